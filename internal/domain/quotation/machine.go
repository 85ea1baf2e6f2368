// Package quotation holds the quotation approval chain: customer decision
// first, then manager decision, with a rejection exit at each step.
package quotation

import (
	"context"
	"strings"
	"time"

	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/workflow"
)

// Trigger moves a quotation along its approval chain
type Trigger string

const (
	TriggerSendToCustomer  Trigger = "SEND_TO_CUSTOMER"
	TriggerCustomerApprove Trigger = "CUSTOMER_APPROVE"
	TriggerCustomerReject  Trigger = "CUSTOMER_REJECT"
	TriggerSendToManager   Trigger = "SEND_TO_MANAGER"
	TriggerManagerApprove  Trigger = "MANAGER_APPROVE"
	TriggerManagerReject   Trigger = "MANAGER_REJECT"
)

// Triggers lists every quotation trigger
var Triggers = []Trigger{
	TriggerSendToCustomer, TriggerCustomerApprove, TriggerCustomerReject,
	TriggerSendToManager, TriggerManagerApprove, TriggerManagerReject,
}

// Rule identifiers carried by *workflow.Violation
const (
	RuleNoItems             = "quotation.no_items"
	RuleMissingField        = "quotation.missing_field"
	RuleInvalidDocumentType = "quotation.invalid_document_type"
	RuleInvalidItem         = "quotation.invalid_item"
	RuleInvalidDiscount     = "quotation.invalid_discount"
	RuleNotEditable         = "quotation.not_editable"
)

// Params carries trigger input
type Params struct {
	Notes string
	At    time.Time
}

// Machine is the quotation status machine
type Machine = workflow.StateMachine[entity.QuotationStatus, Trigger]

// NewMachine builds a status machine for q with guards bound to actor
func NewMachine(q *entity.Quotation, actor entity.Actor) Machine {
	sender := workflow.RequireRole(actor.Role, entity.RoleServiceAdvisor, entity.RoleSCManager)
	customerDesk := workflow.RequireRole(actor.Role, entity.RoleServiceAdvisor, entity.RoleCallCenter)
	advisor := workflow.RequireRole(actor.Role, entity.RoleServiceAdvisor)
	manager := workflow.RequireRole(actor.Role, entity.RoleSCManager)
	hasItems := workflow.Require(len(q.Items) > 0 || q.DocumentType == entity.DocumentCheckInSlip, RuleNoItems,
		"%s %s has no items", q.DocumentType, q.QuotationNumber)

	b := workflow.NewBuilder[entity.QuotationStatus, Trigger]()
	b.Configure(entity.QuotationDraft).
		PermitIf(TriggerSendToCustomer, entity.QuotationSentToCustomer, sender, hasItems)
	b.Configure(entity.QuotationSentToCustomer).
		PermitIf(TriggerCustomerApprove, entity.QuotationCustomerApproved, customerDesk).
		PermitIf(TriggerCustomerReject, entity.QuotationCustomerRejected, customerDesk)
	b.Configure(entity.QuotationCustomerApproved).
		PermitIf(TriggerSendToManager, entity.QuotationSentToManager, advisor)
	b.Configure(entity.QuotationSentToManager).
		PermitIf(TriggerManagerApprove, entity.QuotationManagerApproved, manager).
		PermitIf(TriggerManagerReject, entity.QuotationManagerRejected, manager)

	return b.Build(q.Status)
}

// Transition fires trigger against q and returns the stamped copy. q is not modified.
func Transition(ctx context.Context, q *entity.Quotation, actor entity.Actor, trigger Trigger, p Params) (*entity.Quotation, error) {
	m := NewMachine(q, actor)
	if err := m.Fire(ctx, trigger); err != nil {
		return nil, err
	}

	at := p.At
	notes := strings.TrimSpace(p.Notes)
	next := q.Clone()
	next.Status = m.State()
	next.UpdatedAt = at

	switch trigger {
	case TriggerSendToCustomer:
		next.SentToCustomerAt = &at
	case TriggerCustomerApprove:
		next.CustomerApprovedAt = &at
		next.CustomerNotes = notes
	case TriggerCustomerReject:
		next.CustomerRejectedAt = &at
		next.CustomerNotes = notes
	case TriggerSendToManager:
		next.SentToManagerAt = &at
	case TriggerManagerApprove:
		next.ManagerID = actor.UserID
		next.ManagerApprovedAt = &at
		next.ManagerNotes = notes
	case TriggerManagerReject:
		next.ManagerID = actor.UserID
		next.ManagerRejectedAt = &at
		next.ManagerNotes = notes
	}
	return next, nil
}

// Stage orders statuses along the main chain. A rejection shares the stage of
// the status it exits from, so every transition is non-decreasing.
func Stage(s entity.QuotationStatus) int {
	switch s {
	case entity.QuotationDraft:
		return 0
	case entity.QuotationSentToCustomer, entity.QuotationCustomerRejected:
		return 1
	case entity.QuotationCustomerApproved:
		return 2
	case entity.QuotationSentToManager, entity.QuotationManagerRejected:
		return 3
	case entity.QuotationManagerApproved:
		return 4
	}
	return -1
}

// InitialStatus is MANAGER_APPROVED when the source job card's warranty review
// is already approved, DRAFT otherwise
func InitialStatus(source *entity.JobCard) entity.QuotationStatus {
	if source != nil && source.ManagerReviewStatus == entity.ReviewApproved {
		return entity.QuotationManagerApproved
	}
	return entity.QuotationDraft
}
