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

// ServiceCenterRepository implements port.ServiceCenterRepository
type ServiceCenterRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewServiceCenterRepository creates a new service center repository
func NewServiceCenterRepository(db *sql.DB, logger *zap.Logger) port.ServiceCenterRepository {
	return &ServiceCenterRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a service center
func (r *ServiceCenterRepository) Create(ctx context.Context, sc *entity.ServiceCenter) error {
	query := `
		INSERT INTO service_centers (id, code, name, check_in_slip_prefix, state_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		sc.ID,
		sc.Code,
		sc.Name,
		nullString(sc.CheckInSlipPrefix),
		nullString(sc.StateCode),
		sc.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create service center", zap.String("code", sc.Code), zap.Error(err))
		return fmt.Errorf("failed to create service center: %w", translateError(err))
	}
	return nil
}

// GetByID retrieves a service center by its ID
func (r *ServiceCenterRepository) GetByID(ctx context.Context, id string) (*entity.ServiceCenter, error) {
	query := `
		SELECT id, code, name, check_in_slip_prefix, state_code, created_at
		FROM service_centers
		WHERE id = ?
	`

	var sc entity.ServiceCenter
	var prefix, stateCode sql.NullString
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&sc.ID,
		&sc.Code,
		&sc.Name,
		&prefix,
		&stateCode,
		&sc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get service center %s: %w", id, translateError(err))
	}

	sc.CheckInSlipPrefix = prefix.String
	sc.StateCode = stateCode.String
	sc.CreatedAt = sc.CreatedAt.UTC()
	return &sc, nil
}

// StaffRepository implements port.StaffRepository
type StaffRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStaffRepository creates a new staff repository
func NewStaffRepository(db *sql.DB, logger *zap.Logger) port.StaffRepository {
	return &StaffRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a staff member
func (r *StaffRepository) Create(ctx context.Context, s *entity.Staff) error {
	query := `
		INSERT INTO staff (id, name, role, service_center_id, phone, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		s.ID,
		s.Name,
		s.Role,
		nullString(s.ServiceCenterID),
		nullString(s.Phone),
		s.Active,
		s.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create staff", zap.String("id", s.ID), zap.Error(err))
		return fmt.Errorf("failed to create staff: %w", translateError(err))
	}
	return nil
}

// GetByID retrieves a staff member by ID
func (r *StaffRepository) GetByID(ctx context.Context, id string) (*entity.Staff, error) {
	query := `SELECT id, name, role, service_center_id, phone, active, created_at FROM staff WHERE id = ?`

	s, err := scanStaff(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get staff %s: %w", id, translateError(err))
	}
	return s, nil
}

// ListActiveByRole returns the center's active staff with the role, oldest first
func (r *StaffRepository) ListActiveByRole(ctx context.Context, serviceCenterID string, role entity.Role) ([]*entity.Staff, error) {
	query := `
		SELECT id, name, role, service_center_id, phone, active, created_at
		FROM staff
		WHERE service_center_id = ? AND role = ? AND active = 1
		ORDER BY created_at, id
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, serviceCenterID, role)
	if err != nil {
		r.logger.Error("Failed to list staff",
			zap.String("service_center_id", serviceCenterID),
			zap.String("role", role.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	defer rows.Close()

	var staff []*entity.Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staff: %w", err)
		}
		staff = append(staff, s)
	}
	return staff, rows.Err()
}

func scanStaff(row rowScanner) (*entity.Staff, error) {
	var s entity.Staff
	var centerID, phone sql.NullString
	if err := row.Scan(&s.ID, &s.Name, &s.Role, &centerID, &phone, &s.Active, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.ServiceCenterID = centerID.String
	s.Phone = phone.String
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

var (
	_ port.ServiceCenterRepository = (*ServiceCenterRepository)(nil)
	_ port.StaffRepository         = (*StaffRepository)(nil)
)
