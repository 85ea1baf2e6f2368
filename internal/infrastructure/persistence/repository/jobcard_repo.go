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

const jobCardColumns = `
	id, job_card_number, service_center_id, customer_id, vehicle_id,
	appointment_id, quotation_id, status, priority, part1, part2, part2a,
	passed_to_manager, passed_to_manager_at, manager_id, manager_review_status,
	manager_review_notes, manager_reviewed_at, assigned_engineer_id,
	created_by, version, created_at, updated_at, completed_at`

// JobCardRepository implements port.JobCardRepository
type JobCardRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewJobCardRepository creates a new job card repository
func NewJobCardRepository(db *sql.DB, logger *zap.Logger) port.JobCardRepository {
	return &JobCardRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a job card at version 1
func (r *JobCardRepository) Create(ctx context.Context, jc *entity.JobCard) error {
	part1, part2, part2a, err := encodeJobCardParts(jc)
	if err != nil {
		return err
	}

	query := `INSERT INTO job_cards (` + jobCardColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	jc.Version = 1
	_, err = sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		jc.ID,
		jc.JobCardNumber,
		jc.ServiceCenterID,
		jc.CustomerID,
		jc.VehicleID,
		nullString(jc.AppointmentID),
		nullString(jc.QuotationID),
		jc.Status,
		jc.Priority,
		part1,
		part2,
		part2a,
		jc.PassedToManager,
		nullTime(jc.PassedToManagerAt),
		nullString(jc.ManagerID),
		jc.ManagerReviewStatus,
		nullString(jc.ManagerReviewNotes),
		nullTime(jc.ManagerReviewedAt),
		nullString(jc.AssignedEngineerID),
		jc.CreatedBy,
		jc.Version,
		jc.CreatedAt.UTC(),
		jc.UpdatedAt.UTC(),
		nullTime(jc.CompletedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create job card",
			zap.String("job_card_number", jc.JobCardNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create job card: %w", translateError(err))
	}
	return nil
}

// Update writes jc when the stored version matches expectedVersion
func (r *JobCardRepository) Update(ctx context.Context, jc *entity.JobCard, expectedVersion int64) error {
	part1, part2, part2a, err := encodeJobCardParts(jc)
	if err != nil {
		return err
	}

	query := `
		UPDATE job_cards SET
			quotation_id = ?, status = ?, priority = ?, part1 = ?, part2 = ?, part2a = ?,
			passed_to_manager = ?, passed_to_manager_at = ?, manager_id = ?,
			manager_review_status = ?, manager_review_notes = ?, manager_reviewed_at = ?,
			assigned_engineer_id = ?, completed_at = ?, updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		nullString(jc.QuotationID),
		jc.Status,
		jc.Priority,
		part1,
		part2,
		part2a,
		jc.PassedToManager,
		nullTime(jc.PassedToManagerAt),
		nullString(jc.ManagerID),
		jc.ManagerReviewStatus,
		nullString(jc.ManagerReviewNotes),
		nullTime(jc.ManagerReviewedAt),
		nullString(jc.AssignedEngineerID),
		nullTime(jc.CompletedAt),
		jc.UpdatedAt.UTC(),
		jc.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update job card", zap.String("id", jc.ID), zap.Error(err))
		return fmt.Errorf("failed to update job card: %w", translateError(err))
	}
	if err := checkUpdated(result); err != nil {
		r.logger.Warn("Job card version conflict",
			zap.String("id", jc.ID),
			zap.Int64("expected_version", expectedVersion))
		return err
	}

	jc.Version = expectedVersion + 1
	return nil
}

// GetByID retrieves a job card by its ID
func (r *JobCardRepository) GetByID(ctx context.Context, id string) (*entity.JobCard, error) {
	query := `SELECT ` + jobCardColumns + ` FROM job_cards WHERE id = ?`

	jc, err := scanJobCard(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		err = translateError(err)
		if err != port.ErrNotFound {
			r.logger.Error("Failed to get job card", zap.String("id", id), zap.Error(err))
		}
		return nil, fmt.Errorf("failed to get job card %s: %w", id, err)
	}
	return jc, nil
}

// ListActiveByVehicle returns the vehicle's job cards that are neither completed nor cancelled
func (r *JobCardRepository) ListActiveByVehicle(ctx context.Context, serviceCenterID, vehicleID string) ([]*entity.JobCard, error) {
	query := `SELECT ` + jobCardColumns + ` FROM job_cards
		WHERE service_center_id = ? AND vehicle_id = ? AND status NOT IN (?, ?)
		ORDER BY created_at`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query,
		serviceCenterID, vehicleID, entity.JobCardCompleted, entity.JobCardCancelled)
	if err != nil {
		r.logger.Error("Failed to list active job cards",
			zap.String("vehicle_id", vehicleID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list job cards: %w", err)
	}
	defer rows.Close()

	var cards []*entity.JobCard
	for rows.Next() {
		jc, err := scanJobCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job card: %w", err)
		}
		cards = append(cards, jc)
	}
	return cards, rows.Err()
}

// CountCreatedBetween counts the center's job cards created in [start, end)
func (r *JobCardRepository) CountCreatedBetween(ctx context.Context, serviceCenterID string, start, end time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM job_cards WHERE service_center_id = ? AND created_at >= ? AND created_at < ?`

	var count int
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, serviceCenterID, start.UTC(), end.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count job cards: %w", err)
	}
	return count, nil
}

func encodeJobCardParts(jc *entity.JobCard) (part1, part2 string, part2a sql.NullString, err error) {
	if part1, err = toJSON(jc.Part1); err != nil {
		return
	}
	items := jc.Part2
	if items == nil {
		items = []entity.Part2Item{}
	}
	if part2, err = toJSON(items); err != nil {
		return
	}
	if jc.Part2A != nil {
		var s string
		if s, err = toJSON(jc.Part2A); err != nil {
			return
		}
		part2a = sql.NullString{String: s, Valid: true}
	}
	return
}

func scanJobCard(row rowScanner) (*entity.JobCard, error) {
	var jc entity.JobCard
	var appointmentID, quotationID, managerID, reviewNotes, engineerID sql.NullString
	var part1, part2, part2a sql.NullString
	var passedAt, reviewedAt, completedAt sql.NullTime

	err := row.Scan(
		&jc.ID,
		&jc.JobCardNumber,
		&jc.ServiceCenterID,
		&jc.CustomerID,
		&jc.VehicleID,
		&appointmentID,
		&quotationID,
		&jc.Status,
		&jc.Priority,
		&part1,
		&part2,
		&part2a,
		&jc.PassedToManager,
		&passedAt,
		&managerID,
		&jc.ManagerReviewStatus,
		&reviewNotes,
		&reviewedAt,
		&engineerID,
		&jc.CreatedBy,
		&jc.Version,
		&jc.CreatedAt,
		&jc.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	jc.AppointmentID = appointmentID.String
	jc.QuotationID = quotationID.String
	jc.ManagerID = managerID.String
	jc.ManagerReviewNotes = reviewNotes.String
	jc.AssignedEngineerID = engineerID.String
	jc.PassedToManagerAt = timePtr(passedAt)
	jc.ManagerReviewedAt = timePtr(reviewedAt)
	jc.CompletedAt = timePtr(completedAt)
	jc.CreatedAt = jc.CreatedAt.UTC()
	jc.UpdatedAt = jc.UpdatedAt.UTC()

	if err := fromJSON(part1, &jc.Part1); err != nil {
		return nil, err
	}
	if err := fromJSON(part2, &jc.Part2); err != nil {
		return nil, err
	}
	if part2a.Valid {
		jc.Part2A = &entity.JobCardPart2A{}
		if err := fromJSON(part2a, jc.Part2A); err != nil {
			return nil, err
		}
	}
	return &jc, nil
}

var _ port.JobCardRepository = (*JobCardRepository)(nil)
