package workflow

import (
	"context"

	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/event"
	"github.com/garyjia/service-workflow/internal/domain/identifier"
	"github.com/garyjia/service-workflow/internal/domain/jobcard"
	"github.com/garyjia/service-workflow/internal/domain/linkage"
	domainwf "github.com/garyjia/service-workflow/internal/domain/workflow"
)

var jobCardTriggers = map[Action]jobcard.Trigger{
	ActionAssignJobCard:   jobcard.TriggerAssign,
	ActionStartJobCard:    jobcard.TriggerStartWork,
	ActionCompleteJobCard: jobcard.TriggerComplete,
	ActionCancelJobCard:   jobcard.TriggerCancel,
}

func (t *tx) createJobCard(ctx context.Context, rel Related) error {
	err := domainwf.Check(ctx, domainwf.RequireRole(t.actor().Role, entity.RoleServiceAdvisor, entity.RoleSCManager))
	if err != nil {
		return err
	}

	var draft jobcard.Draft
	switch {
	case t.intent.JobCardDraft != nil:
		draft = *t.intent.JobCardDraft
	case rel.Appointment != nil:
		draft = jobcard.DraftFromAppointment(rel.Appointment)
	default:
		return missingPayload(t.intent.Action, "a job card draft or an appointment")
	}

	if a := rel.Appointment; a != nil {
		if a.Status == entity.AppointmentJobCardCreated || a.Status.IsTerminal() {
			return domainwf.NewViolation(RuleAppointmentClosed, "appointment %s is %s", a.ID, a.Status)
		}
		draft.AppointmentID = a.ID
		if draft.ServiceCenterID == "" {
			draft.ServiceCenterID = a.ServiceCenterID
		}
		if draft.CustomerID == "" {
			draft.CustomerID = a.CustomerID
		}
		if draft.VehicleID == "" {
			draft.VehicleID = a.VehicleID
		}
	}
	if draft.ServiceCenterID == "" {
		draft.ServiceCenterID = t.actor().ServiceCenterID
	}
	if err := t.checkScope(draft.ServiceCenterID); err != nil {
		return err
	}

	if err := linkage.ValidateJobCardCreation(draft.VehicleID, draft.ServiceCenterID, rel.VehicleJobCards); err != nil {
		return err
	}

	jc, err := t.newJobCard(draft, rel)
	if err != nil {
		return err
	}

	t.primary(entity.EntityJobCard, jc.ID, "", string(jc.Status))
	t.saveJobCard(jc, true)
	t.history(entity.EntityJobCard, jc.ID, "", string(jc.Status), "")
	t.advanceAppointment(rel.Appointment, entity.AppointmentJobCardCreated)
	return nil
}

// newJobCard numbers and builds a job card; shared with customer approval
func (t *tx) newJobCard(draft jobcard.Draft, rel Related) (*entity.JobCard, error) {
	sc, err := serviceCenterCode(rel, draft.ServiceCenterID)
	if err != nil {
		return nil, err
	}
	number, err := identifier.JobCardNumber(sc.Code, t.at, rel.Counts.JobCards)
	if err != nil {
		return nil, err
	}
	return jobcard.New(t.o.newID(), number, draft, t.actor(), t.at)
}

func (t *tx) updateJobCard(ctx context.Context, snap Snapshot) error {
	jc := snap.JobCard
	if err := requireTarget(jc, t.intent.Action); err != nil {
		return err
	}
	if t.intent.JobCardPatch == nil || t.intent.JobCardPatch.IsEmpty() {
		return missingPayload(t.intent.Action, "at least one field to change")
	}
	if err := t.checkScope(jc.ServiceCenterID); err != nil {
		return err
	}

	next, err := jobcard.ApplyPatch(ctx, jc, t.actor(), *t.intent.JobCardPatch, t.at)
	if err != nil {
		return err
	}
	t.primary(entity.EntityJobCard, jc.ID, string(jc.Status), string(next.Status))
	t.saveJobCard(next, false)
	return nil
}

func (t *tx) transitionJobCard(ctx context.Context, snap Snapshot, rel Related) error {
	jc := snap.JobCard
	if err := requireTarget(jc, t.intent.Action); err != nil {
		return err
	}
	if err := t.checkScope(jc.ServiceCenterID); err != nil {
		return err
	}

	trigger := jobCardTriggers[t.intent.Action]
	next, err := jobcard.Transition(ctx, jc, t.actor(), trigger, jobcard.Params{
		EngineerID: t.intent.EngineerID,
		Linked:     rel.LinkedQuotation,
		At:         t.at,
	})
	if err != nil {
		return err
	}

	t.primary(entity.EntityJobCard, jc.ID, string(jc.Status), string(next.Status))
	t.saveJobCard(next, false)
	t.history(entity.EntityJobCard, jc.ID, string(jc.Status), string(next.Status), t.intent.Notes)

	if trigger == jobcard.TriggerComplete && rel.Appointment != nil && rel.Appointment.ID == jc.AppointmentID {
		t.advanceAppointment(rel.Appointment, entity.AppointmentCompleted)
	}
	if trigger == jobcard.TriggerAssign {
		t.notify(entity.EntityJobCard, jc.ID, event.TemplateJobCardAssigned, []string{next.AssignedEngineerID}, "")
	}
	return nil
}

func (t *tx) passToManager(ctx context.Context, snap Snapshot, rel Related) error {
	jc := snap.JobCard
	if err := requireTarget(jc, t.intent.Action); err != nil {
		return err
	}
	if err := t.checkScope(jc.ServiceCenterID); err != nil {
		return err
	}

	managerID := t.intent.ManagerID
	if managerID == "" && len(rel.Managers) > 0 {
		managerID = rel.Managers[0]
	}

	next, err := jobcard.PassToManager(ctx, jc, t.actor(), managerID, t.at)
	if err != nil {
		return err
	}

	t.primary(entity.EntityJobCard, jc.ID, string(jc.Status), string(next.Status))
	t.saveJobCard(next, false)
	t.history(entity.EntityJobCard, jc.ID, string(jc.ManagerReviewStatus), string(next.ManagerReviewStatus), t.intent.Notes)
	t.notify(entity.EntityJobCard, jc.ID, event.TemplateJobCardForReview, []string{managerID}, "")
	return nil
}

func (t *tx) reviewJobCard(ctx context.Context, snap Snapshot) error {
	jc := snap.JobCard
	if err := requireTarget(jc, t.intent.Action); err != nil {
		return err
	}
	if err := t.checkScope(jc.ServiceCenterID); err != nil {
		return err
	}

	next, err := jobcard.Review(ctx, jc, t.actor(), t.intent.Decision, t.intent.Notes, t.at)
	if err != nil {
		return err
	}

	t.primary(entity.EntityJobCard, jc.ID, string(jc.Status), string(next.Status))
	t.saveJobCard(next, false)
	t.history(entity.EntityJobCard, jc.ID, string(jc.ManagerReviewStatus), string(next.ManagerReviewStatus), next.ManagerReviewNotes)
	if jc.CreatedBy != "" {
		t.notify(entity.EntityJobCard, jc.ID, event.TemplateJobCardReviewed, []string{jc.CreatedBy}, "")
	}
	return nil
}

func (t *tx) createPartsRequest(ctx context.Context, snap Snapshot) error {
	jc := snap.JobCard
	if err := requireTarget(jc, t.intent.Action); err != nil {
		return err
	}
	if err := t.checkScope(jc.ServiceCenterID); err != nil {
		return err
	}

	pr, err := jobcard.NewPartsRequest(ctx, t.o.newID(), jc, t.actor(), t.intent.PartsItems, t.at)
	if err != nil {
		return err
	}

	t.primary(entity.EntityPartsRequest, pr.ID, "", string(pr.Status))
	t.savePartsRequest(pr, true)
	t.history(entity.EntityPartsRequest, pr.ID, "", string(pr.Status), "")
	return nil
}

func (t *tx) transitionPartsRequest(ctx context.Context, snap Snapshot) error {
	pr := snap.PartsRequest
	if err := requireTarget(pr, t.intent.Action); err != nil {
		return err
	}
	if snap.JobCard != nil {
		if err := t.checkScope(snap.JobCard.ServiceCenterID); err != nil {
			return err
		}
	}

	trigger := jobcard.PartsTriggerFulfill
	if t.intent.Action == ActionCancelPartsRequest {
		trigger = jobcard.PartsTriggerCancel
	}
	next, err := jobcard.TransitionPartsRequest(ctx, pr, t.actor(), trigger, t.at)
	if err != nil {
		return err
	}

	t.primary(entity.EntityPartsRequest, pr.ID, string(pr.Status), string(next.Status))
	t.savePartsRequest(next, false)
	t.history(entity.EntityPartsRequest, pr.ID, string(pr.Status), string(next.Status), t.intent.Notes)
	if trigger == jobcard.PartsTriggerFulfill && pr.RequestedBy != "" {
		t.notify(entity.EntityPartsRequest, pr.ID, event.TemplatePartsFulfilled, []string{pr.RequestedBy}, "")
	}
	return nil
}
