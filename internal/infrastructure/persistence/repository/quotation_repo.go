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

const quotationColumns = `
	id, quotation_number, document_type, service_center_id, customer_id, vehicle_id,
	customer_name, customer_phone, job_card_id, appointment_id, status, items, inter_state,
	requested_discount, subtotal, discount, pre_gst_amount, cgst, sgst, igst, total,
	notes, customer_notes, manager_id, manager_notes,
	sent_to_customer_at, customer_approved_at, customer_rejected_at,
	sent_to_manager_at, manager_approved_at, manager_rejected_at,
	document_url, created_by, version, created_at, updated_at`

// QuotationRepository implements port.QuotationRepository
type QuotationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewQuotationRepository creates a new quotation repository
func NewQuotationRepository(db *sql.DB, logger *zap.Logger) port.QuotationRepository {
	return &QuotationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a quotation at version 1
func (r *QuotationRepository) Create(ctx context.Context, q *entity.Quotation) error {
	items, err := encodeQuotationItems(q)
	if err != nil {
		return err
	}

	query := `INSERT INTO quotations (` + quotationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	q.Version = 1
	_, err = sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		q.ID,
		q.QuotationNumber,
		q.DocumentType,
		q.ServiceCenterID,
		q.CustomerID,
		q.VehicleID,
		nullString(q.CustomerName),
		nullString(q.CustomerPhone),
		nullString(q.JobCardID),
		nullString(q.AppointmentID),
		q.Status,
		items,
		q.InterState,
		q.RequestedDiscount,
		q.Totals.Subtotal,
		q.Totals.Discount,
		q.Totals.PreGSTAmount,
		q.Totals.CGST,
		q.Totals.SGST,
		q.Totals.IGST,
		q.Totals.Total,
		nullString(q.Notes),
		nullString(q.CustomerNotes),
		nullString(q.ManagerID),
		nullString(q.ManagerNotes),
		nullTime(q.SentToCustomerAt),
		nullTime(q.CustomerApprovedAt),
		nullTime(q.CustomerRejectedAt),
		nullTime(q.SentToManagerAt),
		nullTime(q.ManagerApprovedAt),
		nullTime(q.ManagerRejectedAt),
		nullString(q.DocumentURL),
		q.CreatedBy,
		q.Version,
		q.CreatedAt.UTC(),
		q.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create quotation",
			zap.String("quotation_number", q.QuotationNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create quotation: %w", translateError(err))
	}
	return nil
}

// Update writes q when the stored version matches expectedVersion
func (r *QuotationRepository) Update(ctx context.Context, q *entity.Quotation, expectedVersion int64) error {
	items, err := encodeQuotationItems(q)
	if err != nil {
		return err
	}

	query := `
		UPDATE quotations SET
			customer_name = ?, customer_phone = ?, job_card_id = ?, status = ?, items = ?, inter_state = ?,
			requested_discount = ?, subtotal = ?, discount = ?, pre_gst_amount = ?, cgst = ?, sgst = ?, igst = ?, total = ?,
			notes = ?, customer_notes = ?, manager_id = ?, manager_notes = ?,
			sent_to_customer_at = ?, customer_approved_at = ?, customer_rejected_at = ?,
			sent_to_manager_at = ?, manager_approved_at = ?, manager_rejected_at = ?,
			document_url = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		nullString(q.CustomerName),
		nullString(q.CustomerPhone),
		nullString(q.JobCardID),
		q.Status,
		items,
		q.InterState,
		q.RequestedDiscount,
		q.Totals.Subtotal,
		q.Totals.Discount,
		q.Totals.PreGSTAmount,
		q.Totals.CGST,
		q.Totals.SGST,
		q.Totals.IGST,
		q.Totals.Total,
		nullString(q.Notes),
		nullString(q.CustomerNotes),
		nullString(q.ManagerID),
		nullString(q.ManagerNotes),
		nullTime(q.SentToCustomerAt),
		nullTime(q.CustomerApprovedAt),
		nullTime(q.CustomerRejectedAt),
		nullTime(q.SentToManagerAt),
		nullTime(q.ManagerApprovedAt),
		nullTime(q.ManagerRejectedAt),
		nullString(q.DocumentURL),
		q.UpdatedAt.UTC(),
		q.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update quotation", zap.String("id", q.ID), zap.Error(err))
		return fmt.Errorf("failed to update quotation: %w", translateError(err))
	}
	if err := checkUpdated(result); err != nil {
		r.logger.Warn("Quotation version conflict",
			zap.String("id", q.ID),
			zap.Int64("expected_version", expectedVersion))
		return err
	}

	q.Version = expectedVersion + 1
	return nil
}

// GetByID retrieves a quotation by its ID
func (r *QuotationRepository) GetByID(ctx context.Context, id string) (*entity.Quotation, error) {
	query := `SELECT ` + quotationColumns + ` FROM quotations WHERE id = ?`

	q, err := scanQuotation(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		err = translateError(err)
		if err != port.ErrNotFound {
			r.logger.Error("Failed to get quotation", zap.String("id", id), zap.Error(err))
		}
		return nil, fmt.Errorf("failed to get quotation %s: %w", id, err)
	}
	return q, nil
}

// ListByCustomerVehicle returns every quotation for the customer's vehicle
func (r *QuotationRepository) ListByCustomerVehicle(ctx context.Context, customerID, vehicleID string) ([]*entity.Quotation, error) {
	query := `SELECT ` + quotationColumns + ` FROM quotations
		WHERE customer_id = ? AND vehicle_id = ?
		ORDER BY created_at, id`
	return r.list(ctx, query, customerID, vehicleID)
}

// ListByJobCard returns every quotation raised from the job card
func (r *QuotationRepository) ListByJobCard(ctx context.Context, jobCardID string) ([]*entity.Quotation, error) {
	query := `SELECT ` + quotationColumns + ` FROM quotations
		WHERE job_card_id = ?
		ORDER BY created_at, id`
	return r.list(ctx, query, jobCardID)
}

// CountCreatedBetween counts the center's documents of one type created in [start, end)
func (r *QuotationRepository) CountCreatedBetween(ctx context.Context, serviceCenterID string, documentType entity.DocumentType, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM quotations
		WHERE service_center_id = ? AND document_type = ? AND created_at >= ? AND created_at < ?
	`

	var count int
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query,
		serviceCenterID, documentType, start.UTC(), end.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count quotations: %w", err)
	}
	return count, nil
}

func (r *QuotationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Quotation, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list quotations", zap.Error(err))
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	defer rows.Close()

	var quotations []*entity.Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quotation: %w", err)
		}
		quotations = append(quotations, q)
	}
	return quotations, rows.Err()
}

func encodeQuotationItems(q *entity.Quotation) (string, error) {
	items := q.Items
	if items == nil {
		items = []entity.QuotationItem{}
	}
	return toJSON(items)
}

func scanQuotation(row rowScanner) (*entity.Quotation, error) {
	var q entity.Quotation
	var customerName, customerPhone, jobCardID, appointmentID sql.NullString
	var items, notes, customerNotes, managerID, managerNotes, documentURL sql.NullString
	var sentToCustomer, customerApproved, customerRejected sql.NullTime
	var sentToManager, managerApproved, managerRejected sql.NullTime

	err := row.Scan(
		&q.ID,
		&q.QuotationNumber,
		&q.DocumentType,
		&q.ServiceCenterID,
		&q.CustomerID,
		&q.VehicleID,
		&customerName,
		&customerPhone,
		&jobCardID,
		&appointmentID,
		&q.Status,
		&items,
		&q.InterState,
		&q.RequestedDiscount,
		&q.Totals.Subtotal,
		&q.Totals.Discount,
		&q.Totals.PreGSTAmount,
		&q.Totals.CGST,
		&q.Totals.SGST,
		&q.Totals.IGST,
		&q.Totals.Total,
		&notes,
		&customerNotes,
		&managerID,
		&managerNotes,
		&sentToCustomer,
		&customerApproved,
		&customerRejected,
		&sentToManager,
		&managerApproved,
		&managerRejected,
		&documentURL,
		&q.CreatedBy,
		&q.Version,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	q.CustomerName = customerName.String
	q.CustomerPhone = customerPhone.String
	q.JobCardID = jobCardID.String
	q.AppointmentID = appointmentID.String
	q.Notes = notes.String
	q.CustomerNotes = customerNotes.String
	q.ManagerID = managerID.String
	q.ManagerNotes = managerNotes.String
	q.DocumentURL = documentURL.String
	q.SentToCustomerAt = timePtr(sentToCustomer)
	q.CustomerApprovedAt = timePtr(customerApproved)
	q.CustomerRejectedAt = timePtr(customerRejected)
	q.SentToManagerAt = timePtr(sentToManager)
	q.ManagerApprovedAt = timePtr(managerApproved)
	q.ManagerRejectedAt = timePtr(managerRejected)
	q.CreatedAt = q.CreatedAt.UTC()
	q.UpdatedAt = q.UpdatedAt.UTC()

	if err := fromJSON(items, &q.Items); err != nil {
		return nil, err
	}
	return &q, nil
}

var _ port.QuotationRepository = (*QuotationRepository)(nil)
