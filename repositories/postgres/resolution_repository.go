package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/llm-gateway/models"
	"github.com/upb/llm-gateway/repositories"
	"go.uber.org/zap"
)

// ResolutionRepository implements the repositories.ResolutionRepository interface
type ResolutionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewResolutionRepository creates a new resolution record repository
func NewResolutionRepository(db *DB, logger *zap.Logger) repositories.ResolutionRepository {
	return &ResolutionRepository{
		db:     db,
		logger: logger,
	}
}

const resolutionColumns = `id, request_id, status, chain_name, operation, provider, region, model,
	       trace, attempts, prompt_tokens, completion_tokens, total_tokens, latency_ms,
	       error_kind, error_message, created_at, completed_at`

// Create persists a new resolution record
func (r *ResolutionRepository) Create(ctx context.Context, record *models.ResolutionRecord) error {
	query := `
		INSERT INTO resolution_records (
			id, request_id, status, chain_name, operation, provider, region, model,
			trace, attempts, prompt_tokens, completion_tokens, total_tokens, latency_ms,
			error_kind, error_message, created_at, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
	`

	trace := record.Trace
	if len(trace) == 0 {
		trace = []byte("[]")
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		record.ID,
		record.RequestID,
		record.Status,
		record.ChainName,
		record.Operation,
		record.Provider,
		record.Region,
		record.Model,
		trace,
		record.Attempts,
		record.PromptTokens,
		record.CompletionTokens,
		record.TotalTokens,
		record.LatencyMs,
		record.ErrorKind,
		record.ErrorMessage,
		record.CreatedAt,
		record.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create resolution record: %w", err)
	}

	r.logger.Debug("resolution record created",
		zap.String("id", record.ID.String()),
		zap.String("request_id", record.RequestID),
		zap.String("status", string(record.Status)))
	return nil
}

// GetByID retrieves a resolution record by ID
func (r *ResolutionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ResolutionRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM resolution_records
		WHERE id = $1
	`, resolutionColumns)

	executor := GetExecutor(ctx, r.db)
	record, err := scanResolution(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("resolution record not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get resolution record: %w", err)
	}

	return record, nil
}

// GetByRequestID retrieves a resolution record by external request ID
func (r *ResolutionRepository) GetByRequestID(ctx context.Context, requestID string) (*models.ResolutionRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM resolution_records
		WHERE request_id = $1
	`, resolutionColumns)

	executor := GetExecutor(ctx, r.db)
	record, err := scanResolution(executor.QueryRowContext(ctx, query, requestID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("resolution record not found: %s", requestID)
		}
		return nil, fmt.Errorf("failed to get resolution record: %w", err)
	}

	return record, nil
}

// List retrieves resolution records matching the filter, newest first
func (r *ResolutionRepository) List(ctx context.Context, filter repositories.ResolutionFilter) ([]*models.ResolutionRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM resolution_records
		WHERE 1=1
	`, resolutionColumns)

	args := []interface{}{}
	argPos := 1

	if filter.ChainName != "" {
		query += fmt.Sprintf(" AND chain_name = $%d", argPos)
		args = append(args, filter.ChainName)
		argPos++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argPos)
		args = append(args, *filter.Since)
		argPos++
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", argPos)
	args = append(args, limit)
	argPos++

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filter.Offset)
	}

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolution records: %w", err)
	}
	defer rows.Close()

	var records []*models.ResolutionRecord
	for rows.Next() {
		record, err := scanResolution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resolution records: %w", err)
	}

	return records, nil
}

// CountByStatus returns the number of records per status for a chain
func (r *ResolutionRepository) CountByStatus(ctx context.Context, chainName string) (map[models.ResolutionStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM resolution_records
		WHERE chain_name = $1
		GROUP BY status
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, chainName)
	if err != nil {
		return nil, fmt.Errorf("failed to count resolution records: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ResolutionStatus]int)
	for rows.Next() {
		var status models.ResolutionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}

	return counts, nil
}

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanResolution(row scanner) (*models.ResolutionRecord, error) {
	record := &models.ResolutionRecord{}
	err := row.Scan(
		&record.ID,
		&record.RequestID,
		&record.Status,
		&record.ChainName,
		&record.Operation,
		&record.Provider,
		&record.Region,
		&record.Model,
		&record.Trace,
		&record.Attempts,
		&record.PromptTokens,
		&record.CompletionTokens,
		&record.TotalTokens,
		&record.LatencyMs,
		&record.ErrorKind,
		&record.ErrorMessage,
		&record.CreatedAt,
		&record.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}
