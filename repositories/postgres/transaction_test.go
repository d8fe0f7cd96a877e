package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-gateway/repositories"
	"go.uber.org/zap"
)

func newMockTxManager(t *testing.T) (repositories.TransactionManager, *DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := &DB{DB: sqlDB, logger: zap.NewNop()}
	return NewTransactionManager(db, zap.NewNop()), db, mock
}

func TestInTransactionCommits(t *testing.T) {
	tm, db, mock := newMockTxManager(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO resolution_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewResolutionRepository(db, zap.NewNop())
	record := sampleRecord(t)

	err := tm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
		// The repository must pick the transaction out of the context
		return repo.Create(ctx, record)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTransactionRollsBackOnError(t *testing.T) {
	tm, _, mock := newMockTxManager(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	failure := errors.New("write rejected")
	err := tm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
		return failure
	})

	assert.ErrorIs(t, err, failure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExecutorOutsideTransaction(t *testing.T) {
	_, db, _ := newMockTxManager(t)

	executor := GetExecutor(context.Background(), db)
	assert.Equal(t, db.DB, executor)
}

func TestGetTransactionFromContext(t *testing.T) {
	tm, _, mock := newMockTxManager(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := tm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
		got, ok := GetTransactionFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, tx, got)
		return nil
	})
	require.NoError(t, err)

	_, ok := GetTransactionFromContext(context.Background())
	assert.False(t, ok)
}
