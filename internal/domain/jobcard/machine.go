package jobcard

import (
	"context"
	"sort"
	"time"

	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/workflow"
)

// Trigger moves a job card between statuses
type Trigger string

const (
	// TriggerAwaitQuotation is fired when a quotation is raised from a job card
	// that has not been manager-approved
	TriggerAwaitQuotation Trigger = "AWAIT_QUOTATION"
	// TriggerQuotationSettled is fired when the linked quotation is approved by
	// the manager or rejected
	TriggerQuotationSettled Trigger = "QUOTATION_SETTLED"
	TriggerAssign           Trigger = "ASSIGN"
	TriggerStartWork        Trigger = "START_WORK"
	TriggerComplete         Trigger = "COMPLETE"
	TriggerCancel           Trigger = "CANCEL"
)

// IsValid returns true for defined triggers
func (t Trigger) IsValid() bool {
	switch t {
	case TriggerAwaitQuotation, TriggerQuotationSettled, TriggerAssign, TriggerStartWork, TriggerComplete, TriggerCancel:
		return true
	}
	return false
}

// Params carries trigger-specific input
type Params struct {
	EngineerID  string
	QuotationID string
	// Unlink clears the quotation reference on QUOTATION_SETTLED
	Unlink bool
	// Linked is the quotation jc.QuotationID refers to, when it was loaded
	Linked *entity.Quotation
	At     time.Time
}

// pendingQuotation returns the linked quotation while it is still undecided
func pendingQuotation(jc *entity.JobCard, linked *entity.Quotation) *entity.Quotation {
	if jc.QuotationID == "" || linked == nil || linked.ID != jc.QuotationID || linked.Status.IsTerminal() {
		return nil
	}
	return linked
}

// Machine is the job card status machine
type Machine = workflow.StateMachine[entity.JobCardStatus, Trigger]

// NewMachine builds a status machine for jc with guards bound to actor and params
func NewMachine(jc *entity.JobCard, actor entity.Actor, p Params) Machine {
	advisorOrManager := workflow.RequireRole(actor.Role, entity.RoleServiceAdvisor, entity.RoleSCManager)
	engineer := workflow.RequireRole(actor.Role, entity.RoleServiceEngineer)
	unlinked := workflow.Require(jc.QuotationID == "", RuleQuotationAlreadyLinked,
		"job card %s is already linked to a quotation", jc.JobCardNumber)
	hasEngineer := workflow.Require(p.EngineerID != "", RuleEngineerRequired,
		"an engineer must be chosen to assign job card %s", jc.JobCardNumber)
	pending := pendingQuotation(jc, p.Linked)
	released := func(ctx context.Context) error {
		if pending == nil {
			return nil
		}
		return workflow.GuardViolation(RuleQuotationPending,
			"job card %s waits on %s %s (%s); reject it before cancelling",
			jc.JobCardNumber, pending.DocumentType, pending.QuotationNumber, pending.Status)
	}

	b := workflow.NewBuilder[entity.JobCardStatus, Trigger]()
	b.Configure(entity.JobCardCreated).
		PermitIf(TriggerAwaitQuotation, entity.JobCardAwaitingQuotationApproval, unlinked).
		PermitIf(TriggerAssign, entity.JobCardAssigned, advisorOrManager, hasEngineer).
		PermitIf(TriggerCancel, entity.JobCardCancelled, advisorOrManager, released)
	b.Configure(entity.JobCardAwaitingQuotationApproval).
		Permit(TriggerQuotationSettled, entity.JobCardCreated).
		PermitIf(TriggerCancel, entity.JobCardCancelled, advisorOrManager, released)
	b.Configure(entity.JobCardAssigned).
		PermitIf(TriggerStartWork, entity.JobCardInProgress, engineer).
		PermitIf(TriggerAssign, entity.JobCardAssigned, advisorOrManager, hasEngineer).
		PermitIf(TriggerCancel, entity.JobCardCancelled, advisorOrManager, released)
	b.Configure(entity.JobCardInProgress).
		PermitIf(TriggerComplete, entity.JobCardCompleted, engineer)

	return b.Build(jc.Status)
}

// Transition fires trigger against jc and returns the updated copy. jc is not modified.
func Transition(ctx context.Context, jc *entity.JobCard, actor entity.Actor, trigger Trigger, p Params) (*entity.JobCard, error) {
	m := NewMachine(jc, actor, p)
	if err := m.Fire(ctx, trigger); err != nil {
		return nil, err
	}

	next := jc.Clone()
	next.Status = m.State()
	next.UpdatedAt = p.At

	switch trigger {
	case TriggerAwaitQuotation:
		next.QuotationID = p.QuotationID
	case TriggerQuotationSettled:
		if p.Unlink {
			next.QuotationID = ""
		}
	case TriggerAssign:
		next.AssignedEngineerID = p.EngineerID
	case TriggerComplete:
		at := p.At
		next.CompletedAt = &at
	}
	return next, nil
}

// Available lists the user triggers actor could fire on jc right now, with
// guards evaluated. linked is the quotation jc refers to, if any. Assignment
// is listed when the role allows it.
func Available(ctx context.Context, jc *entity.JobCard, actor entity.Actor, linked *entity.Quotation) []Trigger {
	candidates := []Trigger{TriggerAssign, TriggerStartWork, TriggerComplete, TriggerCancel}
	out := make([]Trigger, 0, len(candidates))
	for _, t := range candidates {
		m := NewMachine(jc, actor, Params{EngineerID: "any", Linked: linked})
		if m.Fire(ctx, t) == nil {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
