package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create records one delivery attempt
func (r *NotificationRepository) Create(ctx context.Context, rec *port.NotificationRecord) error {
	query := `
		INSERT INTO notifications (
			template, entity_type, entity_id, recipient, channel,
			address, link, status, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		rec.Template,
		rec.EntityType,
		rec.EntityID,
		rec.Recipient,
		rec.Channel,
		nullString(rec.Address),
		nullString(rec.Link),
		rec.Status,
		nullString(rec.Error),
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.String("entity_id", rec.EntityID),
			zap.String("recipient", rec.Recipient),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rec.ID = id
	return nil
}

// ListByEntity returns the delivery attempts for an entity in insertion order
func (r *NotificationRepository) ListByEntity(ctx context.Context, entityType entity.EntityType, entityID string) ([]*port.NotificationRecord, error) {
	query := `
		SELECT id, template, entity_type, entity_id, recipient, channel,
			address, link, status, error, created_at
		FROM notifications
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY id
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var records []*port.NotificationRecord
	for rows.Next() {
		var rec port.NotificationRecord
		var address, link, errMsg sql.NullString
		err := rows.Scan(
			&rec.ID,
			&rec.Template,
			&rec.EntityType,
			&rec.EntityID,
			&rec.Recipient,
			&rec.Channel,
			&address,
			&link,
			&rec.Status,
			&errMsg,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		rec.Address = address.String
		rec.Link = link.String
		rec.Error = errMsg.String
		records = append(records, &rec)
	}
	return records, rows.Err()
}

var _ port.NotificationRepository = (*NotificationRepository)(nil)
