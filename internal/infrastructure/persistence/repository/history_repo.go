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

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, h *entity.StatusHistory) error {
	query := `
		INSERT INTO status_history (
			entity_type, entity_id, actor_id, actor_role, action,
			previous_status, new_status, notes, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		h.EntityType,
		h.EntityID,
		h.ActorID,
		h.ActorRole,
		h.Action,
		nullString(h.PreviousStatus),
		h.NewStatus,
		nullString(h.Notes),
		h.Timestamp.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.String("entity_type", string(h.EntityType)),
			zap.String("entity_id", h.EntityID),
			zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	h.ID = id
	return nil
}

// ListByEntity returns an entity's history in commit order
func (r *HistoryRepository) ListByEntity(ctx context.Context, entityType entity.EntityType, entityID string) ([]*entity.StatusHistory, error) {
	query := `
		SELECT id, entity_type, entity_id, actor_id, actor_role, action,
			previous_status, new_status, notes, timestamp
		FROM status_history
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		r.logger.Error("Failed to list history", zap.String("entity_id", entityID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.StatusHistory
	for rows.Next() {
		var record entity.StatusHistory
		var previous, notes sql.NullString
		err := rows.Scan(
			&record.ID,
			&record.EntityType,
			&record.EntityID,
			&record.ActorID,
			&record.ActorRole,
			&record.Action,
			&previous,
			&record.NewStatus,
			&notes,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		record.PreviousStatus = previous.String
		record.Notes = notes.String
		record.Timestamp = record.Timestamp.UTC()
		records = append(records, &record)
	}

	return records, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
