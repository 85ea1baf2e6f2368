package workflow

import (
	"time"

	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/event"
	"github.com/garyjia/service-workflow/internal/domain/jobcard"
	"github.com/garyjia/service-workflow/internal/domain/quotation"
)

// Action is what the user asked to do
type Action string

const (
	ActionCreateJobCard       Action = "job_card.create"
	ActionUpdateJobCard       Action = "job_card.update"
	ActionAssignJobCard       Action = "job_card.assign"
	ActionStartJobCard        Action = "job_card.start"
	ActionCompleteJobCard     Action = "job_card.complete"
	ActionCancelJobCard       Action = "job_card.cancel"
	ActionPassToManager       Action = "job_card.pass_to_manager"
	ActionReviewJobCard       Action = "job_card.review"
	ActionCreatePartsRequest  Action = "parts_request.create"
	ActionFulfillPartsRequest Action = "parts_request.fulfill"
	ActionCancelPartsRequest  Action = "parts_request.cancel"
	ActionCreateQuotation     Action = "quotation.create"
	ActionUpdateQuotation     Action = "quotation.update"
	ActionSendToCustomer      Action = "quotation.send_to_customer"
	ActionCustomerApprove     Action = "quotation.customer_approve"
	ActionCustomerReject      Action = "quotation.customer_reject"
	ActionSendToManager       Action = "quotation.send_to_manager"
	ActionManagerApprove      Action = "quotation.manager_approve"
	ActionManagerReject       Action = "quotation.manager_reject"
)

// IsValid returns true for defined actions
func (a Action) IsValid() bool {
	switch a {
	case ActionCreateJobCard, ActionUpdateJobCard, ActionAssignJobCard, ActionStartJobCard,
		ActionCompleteJobCard, ActionCancelJobCard, ActionPassToManager, ActionReviewJobCard,
		ActionCreatePartsRequest, ActionFulfillPartsRequest, ActionCancelPartsRequest,
		ActionCreateQuotation, ActionUpdateQuotation, ActionSendToCustomer, ActionCustomerApprove,
		ActionCustomerReject, ActionSendToManager, ActionManagerApprove, ActionManagerReject:
		return true
	}
	return false
}

// Intent is one user action: who, what and the action-specific payload
type Intent struct {
	Actor    entity.Actor
	Action   Action
	TargetID string

	JobCardDraft   *jobcard.Draft
	JobCardPatch   *jobcard.Patch
	QuotationDraft *quotation.Draft
	QuotationPatch *quotation.Patch
	PartsItems     []entity.PartsRequestItem
	EngineerID     string
	ManagerID      string
	Decision       entity.ManagerReviewStatus
	Notes          string

	CorrelationID string
}

// Snapshot is the target entity as last read
type Snapshot struct {
	JobCard      *entity.JobCard
	Quotation    *entity.Quotation
	PartsRequest *entity.PartsRequest
}

// Counts are the prior document counts in the numbering period
type Counts struct {
	JobCards  int
	Documents int
}

// Related holds every other snapshot a decision may depend on. The caller
// loads it; Apply never reads storage.
type Related struct {
	// At is the instant the counts were read for. Numbering and timestamps use
	// it so both fall in the same period; zero means the orchestrator's clock.
	At            time.Time
	ServiceCenter *entity.ServiceCenter
	Appointment   *entity.Appointment
	// LinkedJobCard is the job card a quotation is raised from or linked to
	LinkedJobCard *entity.JobCard
	// LinkedQuotation is the quotation a job card refers to
	LinkedQuotation *entity.Quotation
	// VehicleJobCards are the job cards of the vehicle at the service center
	VehicleJobCards []*entity.JobCard
	// Quotations are the quotations of the customer's vehicle and of the linked job card
	Quotations []*entity.Quotation
	Lead       *entity.Lead
	Managers   []string
	Counts     Counts
}

// Result is a committed-to-be transition: new entity state plus the ordered
// side-effect instructions the caller must execute
type Result struct {
	Action         Action
	EntityType     entity.EntityType
	EntityID       string
	PreviousStatus string
	NewStatus      string

	JobCard      *entity.JobCard
	Quotation    *entity.Quotation
	PartsRequest *entity.PartsRequest
	Appointment  *entity.Appointment
	Lead         *entity.Lead

	History []*entity.StatusHistory
	Effects []*event.Event
}

// EffectsOf returns the effects of type t in order
func (r *Result) EffectsOf(t event.Type) []*event.Event {
	var out []*event.Event
	for _, e := range r.Effects {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
