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

// AppointmentRepository implements port.AppointmentRepository
type AppointmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *sql.DB, logger *zap.Logger) port.AppointmentRepository {
	return &AppointmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an appointment at version 1
func (r *AppointmentRepository) Create(ctx context.Context, a *entity.Appointment) error {
	services, err := toJSON(a.RequestedServices)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO appointments (
			id, service_center_id, customer_id, vehicle_id, customer_name, customer_phone,
			vehicle_registration, complaint, requested_services, scheduled_at, status,
			version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	a.Version = 1
	_, err = sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		a.ID,
		a.ServiceCenterID,
		a.CustomerID,
		a.VehicleID,
		nullString(a.CustomerName),
		nullString(a.CustomerPhone),
		nullString(a.VehicleRegistration),
		nullString(a.Complaint),
		services,
		a.ScheduledAt.UTC(),
		a.Status,
		a.Version,
		a.CreatedAt.UTC(),
		a.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create appointment", zap.String("id", a.ID), zap.Error(err))
		return fmt.Errorf("failed to create appointment: %w", translateError(err))
	}
	return nil
}

// GetByID retrieves an appointment by its ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*entity.Appointment, error) {
	query := `
		SELECT id, service_center_id, customer_id, vehicle_id, customer_name, customer_phone,
			vehicle_registration, complaint, requested_services, scheduled_at, status,
			version, created_at, updated_at
		FROM appointments
		WHERE id = ?
	`

	var a entity.Appointment
	var customerName, customerPhone, registration, complaint, services sql.NullString
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.ServiceCenterID,
		&a.CustomerID,
		&a.VehicleID,
		&customerName,
		&customerPhone,
		&registration,
		&complaint,
		&services,
		&a.ScheduledAt,
		&a.Status,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment %s: %w", id, translateError(err))
	}

	a.CustomerName = customerName.String
	a.CustomerPhone = customerPhone.String
	a.VehicleRegistration = registration.String
	a.Complaint = complaint.String
	a.ScheduledAt = a.ScheduledAt.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	if err := fromJSON(services, &a.RequestedServices); err != nil {
		return nil, err
	}
	return &a, nil
}

// Update writes the appointment status when the stored version matches expectedVersion
func (r *AppointmentRepository) Update(ctx context.Context, a *entity.Appointment, expectedVersion int64) error {
	query := `
		UPDATE appointments SET status = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, a.Status, a.UpdatedAt.UTC(), a.ID, expectedVersion)
	if err != nil {
		r.logger.Error("Failed to update appointment", zap.String("id", a.ID), zap.Error(err))
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if err := checkUpdated(result); err != nil {
		return err
	}

	a.Version = expectedVersion + 1
	return nil
}

var _ port.AppointmentRepository = (*AppointmentRepository)(nil)
