package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/event"
	domainwf "github.com/garyjia/service-workflow/internal/domain/workflow"
)

// Rules raised by the orchestrator itself
const (
	RuleUnknownAction         = "intent.unknown_action"
	RuleInvalidActor          = "intent.invalid_actor"
	RuleMissingTarget         = "intent.missing_target"
	RuleMissingPayload        = "intent.missing_payload"
	RuleServiceCenterScope    = "actor.service_center_mismatch"
	RuleServiceCenterRequired = "intent.service_center_unknown"
	RuleAppointmentClosed     = "appointment.already_converted"
	RuleLinkedJobCardMissing  = "quotation.linked_job_card_missing"
)

// Orchestrator turns an intent and the snapshots it depends on into a
// transition result. It performs no I/O.
type Orchestrator interface {
	Apply(ctx context.Context, intent Intent, snap Snapshot, rel Related) (*Result, error)
}

type orchestrator struct {
	now          func() time.Time
	newID        func() string
	followUpDays int
}

// Option configures the orchestrator
type Option func(*orchestrator)

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(o *orchestrator) {
		o.now = now
	}
}

// WithIDGenerator sets the generator for entity and effect ids
func WithIDGenerator(newID func() string) Option {
	return func(o *orchestrator) {
		o.newID = newID
	}
}

// WithLeadFollowUpDays sets how far out a rejected quotation's follow-up is scheduled
func WithLeadFollowUpDays(days int) Option {
	return func(o *orchestrator) {
		if days > 0 {
			o.followUpDays = days
		}
	}
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(opts ...Option) Orchestrator {
	o := &orchestrator{
		now:          time.Now,
		newID:        uuid.NewString,
		followUpDays: 7,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Apply validates role eligibility, linkage and the next status, in that
// order, and returns the new state with its side effects. A rejected intent
// returns a *workflow.Violation or *workflow.LinkageConflict and no result.
func (o *orchestrator) Apply(ctx context.Context, intent Intent, snap Snapshot, rel Related) (*Result, error) {
	if !intent.Action.IsValid() {
		return nil, domainwf.NewViolation(RuleUnknownAction, "unknown action %q", intent.Action)
	}
	if !intent.Actor.Role.IsValid() || intent.Actor.UserID == "" {
		return nil, domainwf.NewViolation(RuleInvalidActor, "actor must have a user id and a known role")
	}

	at := rel.At
	if at.IsZero() {
		at = o.now()
	}
	t := &tx{
		o:      o,
		intent: intent,
		at:     at,
		result: &Result{Action: intent.Action},
	}
	t.correlationID = intent.CorrelationID
	if t.correlationID == "" {
		t.correlationID = o.newID()
	}

	var err error
	switch intent.Action {
	case ActionCreateJobCard:
		err = t.createJobCard(ctx, rel)
	case ActionUpdateJobCard:
		err = t.updateJobCard(ctx, snap)
	case ActionAssignJobCard, ActionStartJobCard, ActionCompleteJobCard, ActionCancelJobCard:
		err = t.transitionJobCard(ctx, snap, rel)
	case ActionPassToManager:
		err = t.passToManager(ctx, snap, rel)
	case ActionReviewJobCard:
		err = t.reviewJobCard(ctx, snap)
	case ActionCreatePartsRequest:
		err = t.createPartsRequest(ctx, snap)
	case ActionFulfillPartsRequest, ActionCancelPartsRequest:
		err = t.transitionPartsRequest(ctx, snap)
	case ActionCreateQuotation:
		err = t.createQuotation(ctx, rel)
	case ActionUpdateQuotation:
		err = t.updateQuotation(ctx, snap)
	default:
		err = t.transitionQuotation(ctx, snap, rel)
	}
	if err != nil {
		return nil, err
	}
	return t.result, nil
}

// tx accumulates one Apply call's result
type tx struct {
	o             *orchestrator
	intent        Intent
	at            time.Time
	correlationID string
	result        *Result
}

func (t *tx) actor() entity.Actor {
	return t.intent.Actor
}

// checkScope keeps staff inside their own service center. Admins and actors
// without a center claim are not scoped.
func (t *tx) checkScope(serviceCenterID string) error {
	a := t.actor()
	if a.Role == entity.RoleAdmin || a.ServiceCenterID == "" || serviceCenterID == "" {
		return nil
	}
	if a.ServiceCenterID != serviceCenterID {
		return domainwf.NewViolation(RuleServiceCenterScope,
			"actor belongs to service center %s, not %s", a.ServiceCenterID, serviceCenterID)
	}
	return nil
}

func (t *tx) primary(entityType entity.EntityType, id, previous, next string) {
	t.result.EntityType = entityType
	t.result.EntityID = id
	t.result.PreviousStatus = previous
	t.result.NewStatus = next
}

func (t *tx) history(entityType entity.EntityType, id, previous, next, notes string) {
	t.result.History = append(t.result.History, &entity.StatusHistory{
		EntityType:     entityType,
		EntityID:       id,
		ActorID:        t.actor().UserID,
		ActorRole:      t.actor().Role,
		Action:         string(t.intent.Action),
		PreviousStatus: previous,
		NewStatus:      next,
		Notes:          notes,
		Timestamp:      t.at,
	})
}

func (t *tx) effect(typ event.Type, entityType entity.EntityType, id string) *event.Event {
	e := event.NewEventAt(t.o.newID(), t.at, t.correlationID, typ, entityType, id)
	t.result.Effects = append(t.result.Effects, e)
	return e
}

func (t *tx) entityEffect(typ event.Type, entityType entity.EntityType, id string, v interface{}) {
	e := t.effect(typ, entityType, id)
	e.Entity = v
}

// saveJobCard records a created or updated job card
func (t *tx) saveJobCard(jc *entity.JobCard, created bool) {
	t.result.JobCard = jc
	typ := event.TypeEntityUpdate
	if created {
		typ = event.TypeEntityCreate
	}
	t.entityEffect(typ, entity.EntityJobCard, jc.ID, jc)
}

func (t *tx) saveQuotation(q *entity.Quotation, created bool) {
	t.result.Quotation = q
	typ := event.TypeEntityUpdate
	if created {
		typ = event.TypeEntityCreate
	}
	t.entityEffect(typ, entity.EntityQuotation, q.ID, q)
}

func (t *tx) savePartsRequest(pr *entity.PartsRequest, created bool) {
	t.result.PartsRequest = pr
	typ := event.TypeEntityUpdate
	if created {
		typ = event.TypeEntityCreate
	}
	t.entityEffect(typ, entity.EntityPartsRequest, pr.ID, pr)
}

// advanceAppointment moves a still-open appointment to status
func (t *tx) advanceAppointment(a *entity.Appointment, status entity.AppointmentStatus) {
	if a == nil || a.Status.IsTerminal() || a.Status == status {
		return
	}
	next := a.Clone()
	prev := next.Status
	next.Status = status
	next.UpdatedAt = t.at
	t.result.Appointment = next
	t.entityEffect(event.TypeEntityUpdate, entity.EntityAppointment, next.ID, next)
	t.history(entity.EntityAppointment, next.ID, string(prev), string(status), "")
}

// upsertLead creates or updates the single lead of q
func (t *tx) upsertLead(existing *entity.Lead, q *entity.Quotation, status entity.LeadStatus, followUp *time.Time, notes string) {
	var lead entity.Lead
	if existing != nil {
		lead = *existing
	} else {
		lead = entity.Lead{
			ID:              t.o.newID(),
			ServiceCenterID: q.ServiceCenterID,
			CustomerID:      q.CustomerID,
			VehicleID:       q.VehicleID,
			QuotationID:     q.ID,
			CreatedAt:       t.at,
		}
	}
	lead.Status = status
	lead.JobCardID = q.JobCardID
	lead.FollowUpDate = followUp
	if notes != "" {
		lead.Notes = notes
	}
	lead.UpdatedAt = t.at
	t.result.Lead = &lead
	t.entityEffect(event.TypeLeadUpsert, entity.EntityLead, lead.ID, &lead)
}

// notify emits a notification instruction. Recipients are staff user ids; a
// phone routes the message to the customer's WhatsApp instead.
func (t *tx) notify(entityType entity.EntityType, id, template string, recipients []string, phone string) {
	if len(recipients) == 0 && phone == "" {
		return
	}
	e := t.effect(event.TypeNotificationSend, entityType, id)
	e.Payload[event.PayloadTemplate] = template
	e.Payload[event.PayloadAction] = string(t.intent.Action)
	if len(recipients) > 0 {
		e.Payload[event.PayloadRecipients] = append([]string(nil), recipients...)
	}
	if phone != "" {
		e.Payload[event.PayloadPhone] = phone
	}
}

func requireTarget[T any](v *T, action Action) error {
	if v == nil {
		return domainwf.NewViolation(RuleMissingTarget, "%s needs the target entity", action)
	}
	return nil
}

func missingPayload(action Action, what string) error {
	return domainwf.NewViolation(RuleMissingPayload, "%s needs %s", action, what)
}

func serviceCenterCode(rel Related, id string) (*entity.ServiceCenter, error) {
	sc := rel.ServiceCenter
	if sc == nil || sc.Code == "" {
		return nil, domainwf.NewViolation(RuleServiceCenterRequired, "service center %s is not known", id)
	}
	if id != "" && sc.ID != id {
		return nil, fmt.Errorf("service center snapshot %s does not match %s", sc.ID, id)
	}
	return sc, nil
}
