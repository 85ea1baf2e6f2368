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

// LeadRepository implements port.LeadRepository
type LeadRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *sql.DB, logger *zap.Logger) port.LeadRepository {
	return &LeadRepository{
		db:     db,
		logger: logger,
	}
}

const leadColumns = `id, service_center_id, customer_id, vehicle_id, quotation_id, job_card_id,
	status, follow_up_date, notes, created_at, updated_at`

// NewLeadFollowUpRepository returns the follow-up view of the leads table
func NewLeadFollowUpRepository(db *sql.DB, logger *zap.Logger) port.LeadFollowUpRepository {
	return &LeadRepository{
		db:     db,
		logger: logger,
	}
}

// GetByQuotationID retrieves the lead attached to a quotation
func (r *LeadRepository) GetByQuotationID(ctx context.Context, quotationID string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE quotation_id = ?`

	lead, err := scanLead(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, quotationID))
	if err != nil {
		return nil, fmt.Errorf("failed to get lead for quotation %s: %w", quotationID, translateError(err))
	}
	return lead, nil
}

// ListDueForFollowUp returns leads still in discussion whose follow-up date
// is at or before before, oldest first
func (r *LeadRepository) ListDueForFollowUp(ctx context.Context, before time.Time, limit int) ([]*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE status = ? AND follow_up_date IS NOT NULL AND follow_up_date <= ?
		ORDER BY follow_up_date, id
		LIMIT ?`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, entity.LeadInDiscussion, before.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due leads: %w", err)
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// ClearFollowUp unsets the follow-up date if it is still due
func (r *LeadRepository) ClearFollowUp(ctx context.Context, leadID string, due, at time.Time) error {
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE leads SET follow_up_date = NULL, updated_at = ? WHERE id = ? AND follow_up_date = ?`,
		at.UTC(), leadID, due.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to clear follow-up for lead %s: %w", leadID, err)
	}
	return checkUpdated(result)
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var lead entity.Lead
	var jobCardID, notes sql.NullString
	var followUp sql.NullTime
	err := row.Scan(
		&lead.ID,
		&lead.ServiceCenterID,
		&lead.CustomerID,
		&lead.VehicleID,
		&lead.QuotationID,
		&jobCardID,
		&lead.Status,
		&followUp,
		&notes,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lead.JobCardID = jobCardID.String
	lead.Notes = notes.String
	lead.FollowUpDate = timePtr(followUp)
	lead.CreatedAt = lead.CreatedAt.UTC()
	lead.UpdatedAt = lead.UpdatedAt.UTC()
	return &lead, nil
}

// Upsert inserts the lead or replaces the mutable fields of the quotation's existing lead
func (r *LeadRepository) Upsert(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (
			id, service_center_id, customer_id, vehicle_id, quotation_id, job_card_id,
			status, follow_up_date, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(quotation_id) DO UPDATE SET
			job_card_id = excluded.job_card_id,
			status = excluded.status,
			follow_up_date = excluded.follow_up_date,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		lead.ID,
		lead.ServiceCenterID,
		lead.CustomerID,
		lead.VehicleID,
		lead.QuotationID,
		nullString(lead.JobCardID),
		lead.Status,
		nullTime(lead.FollowUpDate),
		nullString(lead.Notes),
		lead.CreatedAt.UTC(),
		lead.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to upsert lead",
			zap.String("quotation_id", lead.QuotationID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert lead: %w", translateError(err))
	}
	return nil
}

var (
	_ port.LeadRepository         = (*LeadRepository)(nil)
	_ port.LeadFollowUpRepository = (*LeadRepository)(nil)
)
