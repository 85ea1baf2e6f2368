package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/service-workflow/internal/domain/workflow"
)

// Rules raised by the directory service
const (
	RuleDirectoryMissingField = "directory.missing_field"
	RuleDirectoryInvalidRole  = "directory.invalid_role"
)

// DirectoryService maintains the reference data the workflow reads:
// service centers, staff and appointments
type DirectoryService interface {
	CreateServiceCenter(ctx context.Context, actor entity.Actor, sc *entity.ServiceCenter) error
	GetServiceCenter(ctx context.Context, id string) (*entity.ServiceCenter, error)
	CreateStaff(ctx context.Context, actor entity.Actor, s *entity.Staff) error
	CreateAppointment(ctx context.Context, actor entity.Actor, a *entity.Appointment) error
	GetAppointment(ctx context.Context, actor entity.Actor, id string) (*entity.Appointment, error)
}

type directoryServiceImpl struct {
	centers      port.ServiceCenterRepository
	staff        port.StaffRepository
	appointments port.AppointmentRepository
	now          func() time.Time
	logger       Logger
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(
	centers port.ServiceCenterRepository,
	staff port.StaffRepository,
	appointments port.AppointmentRepository,
	logger Logger,
) DirectoryService {
	return &directoryServiceImpl{
		centers:      centers,
		staff:        staff,
		appointments: appointments,
		now:          time.Now,
		logger:       logger,
	}
}

func requireAdmin(actor entity.Actor) error {
	if actor.Role != entity.RoleAdmin {
		return domainwf.NewViolation(domainwf.RuleRoleNotAllowed, "role %s cannot manage the directory", actor.Role)
	}
	return nil
}

func (s *directoryServiceImpl) CreateServiceCenter(ctx context.Context, actor entity.Actor, sc *entity.ServiceCenter) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	sc.Code = strings.ToUpper(strings.TrimSpace(sc.Code))
	if sc.Code == "" || strings.TrimSpace(sc.Name) == "" {
		return domainwf.NewViolation(RuleDirectoryMissingField, "service center code and name are required")
	}
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	sc.CreatedAt = s.now()

	if err := s.centers.Create(ctx, sc); err != nil {
		s.logger.Error("Failed to create service center", "error", err, "code", sc.Code)
		return fmt.Errorf("create service center: %w", err)
	}
	s.logger.Info("Service center created", "id", sc.ID, "code", sc.Code)
	return nil
}

func (s *directoryServiceImpl) GetServiceCenter(ctx context.Context, id string) (*entity.ServiceCenter, error) {
	sc, err := s.centers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get service center %s: %w", id, err)
	}
	return sc, nil
}

func (s *directoryServiceImpl) CreateStaff(ctx context.Context, actor entity.Actor, st *entity.Staff) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if strings.TrimSpace(st.Name) == "" {
		return domainwf.NewViolation(RuleDirectoryMissingField, "staff name is required")
	}
	if !st.Role.IsValid() {
		return domainwf.NewViolation(RuleDirectoryInvalidRole, "unknown role %q", st.Role)
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	st.Active = true
	st.CreatedAt = s.now()

	if err := s.staff.Create(ctx, st); err != nil {
		s.logger.Error("Failed to create staff", "error", err, "name", st.Name)
		return fmt.Errorf("create staff: %w", err)
	}
	s.logger.Info("Staff created", "id", st.ID, "role", st.Role, "service_center_id", st.ServiceCenterID)
	return nil
}

func (s *directoryServiceImpl) CreateAppointment(ctx context.Context, actor entity.Actor, a *entity.Appointment) error {
	switch actor.Role {
	case entity.RoleAdmin, entity.RoleCallCenter, entity.RoleServiceAdvisor, entity.RoleSCManager:
	default:
		return domainwf.NewViolation(domainwf.RuleRoleNotAllowed, "role %s cannot book appointments", actor.Role)
	}
	if a.ServiceCenterID == "" {
		a.ServiceCenterID = actor.ServiceCenterID
	}
	if err := checkVisible(actor, a.ServiceCenterID); err != nil {
		return err
	}
	for _, f := range []struct{ name, value string }{
		{"service_center_id", a.ServiceCenterID},
		{"customer_id", a.CustomerID},
		{"vehicle_id", a.VehicleID},
	} {
		if strings.TrimSpace(f.value) == "" {
			return domainwf.NewViolation(RuleDirectoryMissingField, "%s is required", f.name)
		}
	}

	now := s.now()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = entity.AppointmentScheduled
	}
	if a.ScheduledAt.IsZero() {
		a.ScheduledAt = now
	}
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := s.appointments.Create(ctx, a); err != nil {
		s.logger.Error("Failed to create appointment", "error", err, "vehicle_id", a.VehicleID)
		return fmt.Errorf("create appointment: %w", err)
	}
	s.logger.Info("Appointment created", "id", a.ID, "service_center_id", a.ServiceCenterID)
	return nil
}

func (s *directoryServiceImpl) GetAppointment(ctx context.Context, actor entity.Actor, id string) (*entity.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment %s: %w", id, err)
	}
	if err := checkVisible(actor, a.ServiceCenterID); err != nil {
		return nil, err
	}
	return a, nil
}

// staffManagerDirectory resolves managers from the staff table
type staffManagerDirectory struct {
	staff port.StaffRepository
}

// NewManagerDirectory returns a ManagerDirectory backed by active sc_manager staff
func NewManagerDirectory(staff port.StaffRepository) port.ManagerDirectory {
	return &staffManagerDirectory{staff: staff}
}

func (d *staffManagerDirectory) Resolve(ctx context.Context, serviceCenterID string) ([]string, error) {
	managers, err := d.staff.ListActiveByRole(ctx, serviceCenterID, entity.RoleSCManager)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(managers))
	for _, m := range managers {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
