package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/llm-gateway/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// ResolutionFilter narrows List queries over resolution records
type ResolutionFilter struct {
	ChainName string
	Status    models.ResolutionStatus
	Since     *time.Time
	Limit     int
	Offset    int
}

// ResolutionRepository handles resolution record data operations
type ResolutionRepository interface {
	// Create persists a new resolution record
	Create(ctx context.Context, record *models.ResolutionRecord) error

	// GetByID retrieves a resolution record by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.ResolutionRecord, error)

	// GetByRequestID retrieves a resolution record by external request ID
	GetByRequestID(ctx context.Context, requestID string) (*models.ResolutionRecord, error)

	// List retrieves resolution records matching the filter, newest first
	List(ctx context.Context, filter ResolutionFilter) ([]*models.ResolutionRecord, error)

	// CountByStatus returns the number of records per status for a chain
	CountByStatus(ctx context.Context, chainName string) (map[models.ResolutionStatus]int, error)
}

// Repositories groups all repository instances
type Repositories struct {
	Resolutions ResolutionRepository
}
