package port

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/service-workflow/internal/domain/entity"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned when an update's expected version is stale
	ErrVersionConflict = errors.New("version conflict")

	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate record")
)

// Unique constraints the store enforces
const (
	ConstraintJobCardNumber    = "job_card_number"
	ConstraintQuotationNumber  = "quotation_number"
	ConstraintActiveJobCard    = "active_job_card"
	ConstraintActiveQuotation  = "active_quotation"
	ConstraintJobCardQuotation = "job_card_quotation"
)

// DuplicateError names the unique constraint a write violated
type DuplicateError struct {
	Constraint string
	Err        error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s: %v", e.Constraint, e.Err)
}

// Is matches ErrDuplicate
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

// IsNumberConstraint reports whether the violated constraint is a document number
func (e *DuplicateError) IsNumberConstraint() bool {
	return e.Constraint == ConstraintJobCardNumber || e.Constraint == ConstraintQuotationNumber
}

// JobCardRepository defines persistence operations for JobCard.
// Update writes jc only when the stored version equals expectedVersion and
// bumps jc.Version on success.
type JobCardRepository interface {
	Create(ctx context.Context, jc *entity.JobCard) error
	Update(ctx context.Context, jc *entity.JobCard, expectedVersion int64) error
	GetByID(ctx context.Context, id string) (*entity.JobCard, error)
	ListActiveByVehicle(ctx context.Context, serviceCenterID, vehicleID string) ([]*entity.JobCard, error)
	CountCreatedBetween(ctx context.Context, serviceCenterID string, start, end time.Time) (int, error)
}

// QuotationRepository defines persistence operations for Quotation
type QuotationRepository interface {
	Create(ctx context.Context, q *entity.Quotation) error
	Update(ctx context.Context, q *entity.Quotation, expectedVersion int64) error
	GetByID(ctx context.Context, id string) (*entity.Quotation, error)

	// ListByCustomerVehicle returns the quotations of a customer's vehicle, any status
	ListByCustomerVehicle(ctx context.Context, customerID, vehicleID string) ([]*entity.Quotation, error)

	// ListByJobCard returns the quotations raised from a job card, any status
	ListByJobCard(ctx context.Context, jobCardID string) ([]*entity.Quotation, error)

	CountCreatedBetween(ctx context.Context, serviceCenterID string, documentType entity.DocumentType, start, end time.Time) (int, error)
}

// AppointmentRepository defines persistence operations for Appointment
type AppointmentRepository interface {
	Create(ctx context.Context, a *entity.Appointment) error
	GetByID(ctx context.Context, id string) (*entity.Appointment, error)
	Update(ctx context.Context, a *entity.Appointment, expectedVersion int64) error
}

// PartsRequestRepository defines persistence operations for PartsRequest
type PartsRequestRepository interface {
	Create(ctx context.Context, pr *entity.PartsRequest) error
	Update(ctx context.Context, pr *entity.PartsRequest, expectedVersion int64) error
	GetByID(ctx context.Context, id string) (*entity.PartsRequest, error)
	ListByJobCard(ctx context.Context, jobCardID string) ([]*entity.PartsRequest, error)
}

// LeadRepository defines persistence operations for Lead. A quotation has at
// most one lead.
type LeadRepository interface {
	GetByQuotationID(ctx context.Context, quotationID string) (*entity.Lead, error)
	Upsert(ctx context.Context, lead *entity.Lead) error
}

// LeadFollowUpRepository finds leads whose follow-up date has passed
type LeadFollowUpRepository interface {
	ListDueForFollowUp(ctx context.Context, before time.Time, limit int) ([]*entity.Lead, error)
	// ClearFollowUp unsets the follow-up date only while it still equals due;
	// it returns ErrVersionConflict when the lead was rescheduled meanwhile
	ClearFollowUp(ctx context.Context, leadID string, due, at time.Time) error
}

// HistoryRepository defines persistence operations for StatusHistory
type HistoryRepository interface {
	Create(ctx context.Context, h *entity.StatusHistory) error
	ListByEntity(ctx context.Context, entityType entity.EntityType, entityID string) ([]*entity.StatusHistory, error)
}

// ServiceCenterRepository defines persistence operations for ServiceCenter
type ServiceCenterRepository interface {
	Create(ctx context.Context, sc *entity.ServiceCenter) error
	GetByID(ctx context.Context, id string) (*entity.ServiceCenter, error)
}

// StaffRepository defines persistence operations for Staff
type StaffRepository interface {
	Create(ctx context.Context, s *entity.Staff) error
	GetByID(ctx context.Context, id string) (*entity.Staff, error)
	ListActiveByRole(ctx context.Context, serviceCenterID string, role entity.Role) ([]*entity.Staff, error)
}

// ManagerDirectory resolves the managers of a service center, in preference order
type ManagerDirectory interface {
	Resolve(ctx context.Context, serviceCenterID string) ([]string, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
