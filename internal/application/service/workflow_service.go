package service

import (
	"context"
	"time"

	"github.com/garyjia/service-workflow/internal/application/dispatcher"
	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/application/workflow"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/jobcard"
	"github.com/garyjia/service-workflow/internal/domain/quotation"
	domainwf "github.com/garyjia/service-workflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Outcome is a committed transition plus what its post-commit effects produced
type Outcome struct {
	*workflow.Result

	DocumentURL      string
	RecipientChannel *port.Channel

	// Warnings are effects that failed after commit
	Warnings []*domainwf.SideEffectFailure
}

// WorkflowService exposes the service-center lifecycle operations. Every
// mutating call returns the committed outcome; when a post-commit effect
// fails the outcome is returned together with a *workflow.SideEffectFailure.
type WorkflowService interface {
	CreateJobCard(ctx context.Context, actor entity.Actor, draft jobcard.Draft) (*Outcome, error)
	CreateJobCardFromAppointment(ctx context.Context, actor entity.Actor, appointmentID string) (*Outcome, error)
	UpdateJobCard(ctx context.Context, actor entity.Actor, id string, patch jobcard.Patch) (*Outcome, error)
	GetJobCardByID(ctx context.Context, actor entity.Actor, id string) (*entity.JobCard, error)
	PermittedJobCardActions(ctx context.Context, actor entity.Actor, jc *entity.JobCard) ([]jobcard.Trigger, error)
	AssignJobCard(ctx context.Context, actor entity.Actor, id, engineerID string) (*Outcome, error)
	StartJobCard(ctx context.Context, actor entity.Actor, id string) (*Outcome, error)
	CompleteJobCard(ctx context.Context, actor entity.Actor, id string) (*Outcome, error)
	CancelJobCard(ctx context.Context, actor entity.Actor, id, notes string) (*Outcome, error)
	PassJobCardToManager(ctx context.Context, actor entity.Actor, id, managerID string) (*Outcome, error)
	ReviewJobCard(ctx context.Context, actor entity.Actor, id string, decision entity.ManagerReviewStatus, notes string) (*Outcome, error)

	CreatePartsRequest(ctx context.Context, actor entity.Actor, jobCardID string, items []entity.PartsRequestItem) (*Outcome, error)
	FulfillPartsRequest(ctx context.Context, actor entity.Actor, id string) (*Outcome, error)
	CancelPartsRequest(ctx context.Context, actor entity.Actor, id string) (*Outcome, error)
	ListPartsRequests(ctx context.Context, actor entity.Actor, jobCardID string) ([]*entity.PartsRequest, error)

	CreateQuotation(ctx context.Context, actor entity.Actor, draft quotation.Draft) (*Outcome, error)
	UpdateQuotation(ctx context.Context, actor entity.Actor, id string, patch quotation.Patch) (*Outcome, error)
	GetQuotationByID(ctx context.Context, actor entity.Actor, id string) (*entity.Quotation, error)
	SendQuotationToCustomer(ctx context.Context, actor entity.Actor, id string) (*Outcome, error)
	RecordCustomerDecision(ctx context.Context, actor entity.Actor, id string, approved bool, notes string) (*Outcome, error)
	SendQuotationToManager(ctx context.Context, actor entity.Actor, id string) (*Outcome, error)
	RecordManagerDecision(ctx context.Context, actor entity.Actor, id string, approved bool, notes string) (*Outcome, error)

	GetHistory(ctx context.Context, actor entity.Actor, entityType entity.EntityType, id string) ([]*entity.StatusHistory, error)
}

// Repositories groups the stores the workflow service reads and writes
type Repositories struct {
	JobCards       port.JobCardRepository
	Quotations     port.QuotationRepository
	Appointments   port.AppointmentRepository
	PartsRequests  port.PartsRequestRepository
	Leads          port.LeadRepository
	History        port.HistoryRepository
	ServiceCenters port.ServiceCenterRepository
}

// Options tune retry and effect behaviour
type Options struct {
	// ConflictRetries is how many times a transition that lost an
	// optimistic-concurrency race is re-read and re-applied
	ConflictRetries int
	// AsyncNotifications sends notifications in the background; failures
	// are logged instead of reported
	AsyncNotifications bool
	Now                func() time.Time
}

type workflowServiceImpl struct {
	repos        Repositories
	orchestrator workflow.Orchestrator
	txManager    port.TransactionManager
	managers     port.ManagerDirectory
	documents    port.DocumentGenerator
	channels     port.ChannelResolver
	dispatcher   dispatcher.Dispatcher
	opts         Options
	logger       Logger
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	repos Repositories,
	orchestrator workflow.Orchestrator,
	txManager port.TransactionManager,
	managers port.ManagerDirectory,
	documents port.DocumentGenerator,
	channels port.ChannelResolver,
	effects dispatcher.Dispatcher,
	opts Options,
	logger Logger,
) WorkflowService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ConflictRetries < 0 {
		opts.ConflictRetries = 0
	}
	return &workflowServiceImpl{
		repos:        repos,
		orchestrator: orchestrator,
		txManager:    txManager,
		managers:     managers,
		documents:    documents,
		channels:     channels,
		dispatcher:   effects,
		opts:         opts,
		logger:       logger,
	}
}
