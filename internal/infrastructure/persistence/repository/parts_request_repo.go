package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const partsRequestColumns = `
	id, job_card_id, requested_by, items, status, fulfilled_by,
	fulfilled_at, cancelled_at, version, created_at, updated_at`

// PartsRequestRepository implements port.PartsRequestRepository
type PartsRequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPartsRequestRepository creates a new parts request repository
func NewPartsRequestRepository(db *sql.DB, logger *zap.Logger) port.PartsRequestRepository {
	return &PartsRequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a parts request at version 1
func (r *PartsRequestRepository) Create(ctx context.Context, pr *entity.PartsRequest) error {
	items, err := toJSON(pr.Items)
	if err != nil {
		return err
	}

	query := `INSERT INTO parts_requests (` + partsRequestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	pr.Version = 1
	_, err = sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		pr.ID,
		pr.JobCardID,
		pr.RequestedBy,
		items,
		pr.Status,
		nullString(pr.FulfilledBy),
		nullTime(pr.FulfilledAt),
		nullTime(pr.CancelledAt),
		pr.Version,
		pr.CreatedAt.UTC(),
		pr.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create parts request",
			zap.String("job_card_id", pr.JobCardID),
			zap.Error(err))
		return fmt.Errorf("failed to create parts request: %w", translateError(err))
	}
	return nil
}

// Update writes pr when the stored version matches expectedVersion
func (r *PartsRequestRepository) Update(ctx context.Context, pr *entity.PartsRequest, expectedVersion int64) error {
	query := `
		UPDATE parts_requests SET
			status = ?, fulfilled_by = ?, fulfilled_at = ?, cancelled_at = ?,
			updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		pr.Status,
		nullString(pr.FulfilledBy),
		nullTime(pr.FulfilledAt),
		nullTime(pr.CancelledAt),
		pr.UpdatedAt.UTC(),
		pr.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update parts request", zap.String("id", pr.ID), zap.Error(err))
		return fmt.Errorf("failed to update parts request: %w", err)
	}
	if err := checkUpdated(result); err != nil {
		return err
	}

	pr.Version = expectedVersion + 1
	return nil
}

// GetByID retrieves a parts request by its ID
func (r *PartsRequestRepository) GetByID(ctx context.Context, id string) (*entity.PartsRequest, error) {
	query := `SELECT ` + partsRequestColumns + ` FROM parts_requests WHERE id = ?`

	pr, err := scanPartsRequest(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get parts request %s: %w", id, translateError(err))
	}
	return pr, nil
}

// ListByJobCard returns the job card's parts requests oldest first
func (r *PartsRequestRepository) ListByJobCard(ctx context.Context, jobCardID string) ([]*entity.PartsRequest, error) {
	query := `SELECT ` + partsRequestColumns + ` FROM parts_requests
		WHERE job_card_id = ?
		ORDER BY created_at, id`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, jobCardID)
	if err != nil {
		r.logger.Error("Failed to list parts requests", zap.String("job_card_id", jobCardID), zap.Error(err))
		return nil, fmt.Errorf("failed to list parts requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.PartsRequest
	for rows.Next() {
		pr, err := scanPartsRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parts request: %w", err)
		}
		requests = append(requests, pr)
	}
	return requests, rows.Err()
}

func scanPartsRequest(row rowScanner) (*entity.PartsRequest, error) {
	var pr entity.PartsRequest
	var items, fulfilledBy sql.NullString
	var fulfilledAt, cancelledAt sql.NullTime

	err := row.Scan(
		&pr.ID,
		&pr.JobCardID,
		&pr.RequestedBy,
		&items,
		&pr.Status,
		&fulfilledBy,
		&fulfilledAt,
		&cancelledAt,
		&pr.Version,
		&pr.CreatedAt,
		&pr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	pr.FulfilledBy = fulfilledBy.String
	pr.FulfilledAt = timePtr(fulfilledAt)
	pr.CancelledAt = timePtr(cancelledAt)
	pr.CreatedAt = pr.CreatedAt.UTC()
	pr.UpdatedAt = pr.UpdatedAt.UTC()
	if err := fromJSON(items, &pr.Items); err != nil {
		return nil, err
	}
	return &pr, nil
}

var _ port.PartsRequestRepository = (*PartsRequestRepository)(nil)
