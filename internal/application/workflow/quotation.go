package workflow

import (
	"context"

	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/event"
	"github.com/garyjia/service-workflow/internal/domain/identifier"
	"github.com/garyjia/service-workflow/internal/domain/jobcard"
	"github.com/garyjia/service-workflow/internal/domain/linkage"
	"github.com/garyjia/service-workflow/internal/domain/quotation"
	domainwf "github.com/garyjia/service-workflow/internal/domain/workflow"
)

var quotationTriggers = map[Action]quotation.Trigger{
	ActionSendToCustomer:  quotation.TriggerSendToCustomer,
	ActionCustomerApprove: quotation.TriggerCustomerApprove,
	ActionCustomerReject:  quotation.TriggerCustomerReject,
	ActionSendToManager:   quotation.TriggerSendToManager,
	ActionManagerApprove:  quotation.TriggerManagerApprove,
	ActionManagerReject:   quotation.TriggerManagerReject,
}

func (t *tx) createQuotation(ctx context.Context, rel Related) error {
	if t.intent.QuotationDraft == nil {
		return missingPayload(t.intent.Action, "a quotation draft")
	}
	draft := *t.intent.QuotationDraft
	if draft.ServiceCenterID == "" {
		draft.ServiceCenterID = t.actor().ServiceCenterID
	}
	if err := t.checkScope(draft.ServiceCenterID); err != nil {
		return err
	}

	var source *entity.JobCard
	if draft.JobCardID != "" {
		source = rel.LinkedJobCard
		if source == nil || source.ID != draft.JobCardID {
			return domainwf.NewViolation(RuleLinkedJobCardMissing, "job card %s was not found", draft.JobCardID)
		}
	}
	if a := rel.Appointment; a != nil {
		draft.AppointmentID = a.ID
		if draft.CustomerName == "" {
			draft.CustomerName = a.CustomerName
		}
		if draft.CustomerPhone == "" {
			draft.CustomerPhone = a.CustomerPhone
		}
	}

	cards := rel.VehicleJobCards
	if source != nil {
		cards = append(append([]*entity.JobCard(nil), cards...), source)
	}
	key := linkage.QuotationKey{
		ServiceCenterID: draft.ServiceCenterID,
		CustomerID:      draft.CustomerID,
		VehicleID:       draft.VehicleID,
		DocumentType:    draft.DocumentType,
		JobCardID:       draft.JobCardID,
	}
	if err := linkage.ValidateQuotationCreation(key, rel.Quotations, cards); err != nil {
		return err
	}

	sc, err := serviceCenterCode(rel, draft.ServiceCenterID)
	if err != nil {
		return err
	}
	kind := identifier.KindForDocument(draft.DocumentType)
	code := sc.Code
	if kind == identifier.KindCheckInSlip {
		code = identifier.CheckInSlipPrefix(sc)
	}
	number, err := identifier.Generate(kind, code, t.at, rel.Counts.Documents)
	if err != nil {
		return err
	}

	q, err := quotation.New(ctx, t.o.newID(), number, draft, t.actor(), source, t.at)
	if err != nil {
		return err
	}

	t.primary(entity.EntityQuotation, q.ID, "", string(q.Status))
	t.saveQuotation(q, true)
	t.history(entity.EntityQuotation, q.ID, "", string(q.Status), "")

	if source != nil {
		if err := t.linkSource(ctx, source, q); err != nil {
			return err
		}
	}

	if draft.DocumentType == entity.DocumentCheckInSlip {
		t.advanceAppointment(rel.Appointment, entity.AppointmentCheckedIn)
	} else {
		t.advanceAppointment(rel.Appointment, entity.AppointmentQuotationCreated)
	}
	return nil
}

// linkSource points the source job card at the new quotation. A job card that
// is not manager-approved waits for the quotation; an approved one only links.
func (t *tx) linkSource(ctx context.Context, source *entity.JobCard, q *entity.Quotation) error {
	if err := linkage.ValidateJobCardLink(source, q); err != nil {
		return err
	}

	if q.Status != entity.QuotationManagerApproved && source.Status == entity.JobCardCreated {
		next, err := jobcard.Transition(ctx, source, t.actor(), jobcard.TriggerAwaitQuotation, jobcard.Params{
			QuotationID: q.ID,
			At:          t.at,
		})
		if err != nil {
			return err
		}
		t.saveJobCard(next, false)
		t.history(entity.EntityJobCard, source.ID, string(source.Status), string(next.Status), q.QuotationNumber)
		return nil
	}

	next := source.Clone()
	next.QuotationID = q.ID
	next.UpdatedAt = t.at
	t.saveJobCard(next, false)
	return nil
}

func (t *tx) updateQuotation(ctx context.Context, snap Snapshot) error {
	q := snap.Quotation
	if err := requireTarget(q, t.intent.Action); err != nil {
		return err
	}
	if t.intent.QuotationPatch == nil {
		return missingPayload(t.intent.Action, "at least one field to change")
	}
	if err := t.checkScope(q.ServiceCenterID); err != nil {
		return err
	}

	next, err := quotation.ApplyPatch(ctx, q, t.actor(), *t.intent.QuotationPatch, t.at)
	if err != nil {
		return err
	}
	t.primary(entity.EntityQuotation, q.ID, string(q.Status), string(next.Status))
	t.saveQuotation(next, false)
	return nil
}

func (t *tx) transitionQuotation(ctx context.Context, snap Snapshot, rel Related) error {
	q := snap.Quotation
	if err := requireTarget(q, t.intent.Action); err != nil {
		return err
	}
	if err := t.checkScope(q.ServiceCenterID); err != nil {
		return err
	}

	trigger := quotationTriggers[t.intent.Action]
	next, err := quotation.Transition(ctx, q, t.actor(), trigger, quotation.Params{Notes: t.intent.Notes, At: t.at})
	if err != nil {
		return err
	}

	linked := rel.LinkedJobCard
	if linked != nil && linked.ID != q.JobCardID {
		linked = nil
	}

	t.primary(entity.EntityQuotation, q.ID, string(q.Status), string(next.Status))

	switch trigger {
	case quotation.TriggerSendToCustomer:
		t.saveQuotation(next, false)
		t.upsertLead(rel.Lead, next, entity.LeadQuotationSent, nil, "")
		doc := t.effect(event.TypeDocumentGenerate, entity.EntityQuotation, next.ID)
		doc.Payload[event.PayloadDocumentType] = string(next.DocumentType)
		doc.Entity = next
		t.notify(entity.EntityQuotation, next.ID, event.TemplateQuotationSent, nil, next.CustomerPhone)

	case quotation.TriggerCustomerApprove:
		if err := t.customerApproved(ctx, next, linked, rel); err != nil {
			return err
		}
		t.upsertLead(rel.Lead, next, entity.LeadJobCardInProgress, nil, "")

	case quotation.TriggerCustomerReject:
		if err := t.settleLinked(ctx, linked, next, true); err != nil {
			return err
		}
		t.saveQuotation(next, false)
		followUp := t.at.AddDate(0, 0, t.o.followUpDays)
		t.upsertLead(rel.Lead, next, entity.LeadInDiscussion, &followUp, next.CustomerNotes)

	case quotation.TriggerSendToManager:
		t.saveQuotation(next, false)
		t.notify(entity.EntityQuotation, next.ID, event.TemplateQuotationForApproval, rel.Managers, "")

	case quotation.TriggerManagerApprove:
		t.saveQuotation(next, false)
		if err := t.settleLinked(ctx, linked, next, false); err != nil {
			return err
		}
		t.upsertLead(rel.Lead, next, entity.LeadConverted, nil, "")
		if next.CreatedBy != "" {
			t.notify(entity.EntityQuotation, next.ID, event.TemplateQuotationDecided, []string{next.CreatedBy}, "")
		}

	case quotation.TriggerManagerReject:
		if err := t.settleLinked(ctx, linked, next, true); err != nil {
			return err
		}
		t.saveQuotation(next, false)
		t.upsertLead(rel.Lead, next, entity.LeadLost, nil, next.ManagerNotes)
		if next.CreatedBy != "" {
			t.notify(entity.EntityQuotation, next.ID, event.TemplateQuotationDecided, []string{next.CreatedBy}, "")
		}
	}

	t.history(entity.EntityQuotation, q.ID, string(q.Status), string(next.Status), t.intent.Notes)
	return nil
}

// customerApproved links the quotation to a job card, creating one when none exists
func (t *tx) customerApproved(ctx context.Context, q *entity.Quotation, linked *entity.JobCard, rel Related) error {
	if q.JobCardID != "" {
		if linked == nil {
			return domainwf.NewViolation(RuleLinkedJobCardMissing, "job card %s was not found", q.JobCardID)
		}
		if err := linkage.ValidateJobCardLink(linked, q); err != nil {
			return err
		}
		t.saveQuotation(q, false)
		if linked.QuotationID == "" {
			next := linked.Clone()
			next.QuotationID = q.ID
			next.UpdatedAt = t.at
			t.saveJobCard(next, false)
		}
		return nil
	}

	if err := linkage.ValidateJobCardCreation(q.VehicleID, q.ServiceCenterID, rel.VehicleJobCards); err != nil {
		return err
	}
	jc, err := t.newJobCard(jobcard.DraftFromQuotation(q), rel)
	if err != nil {
		return err
	}
	jc.QuotationID = q.ID
	q.JobCardID = jc.ID

	t.saveJobCard(jc, true)
	t.history(entity.EntityJobCard, jc.ID, "", string(jc.Status), q.QuotationNumber)
	t.saveQuotation(q, false)
	t.advanceAppointment(rel.Appointment, entity.AppointmentJobCardCreated)
	return nil
}

// settleLinked releases a job card waiting on q. On rejection the link is
// cleared so a new quotation may be raised from it.
func (t *tx) settleLinked(ctx context.Context, linked *entity.JobCard, q *entity.Quotation, unlink bool) error {
	if linked == nil || linked.QuotationID != q.ID {
		return nil
	}
	if linked.Status == entity.JobCardAwaitingQuotationApproval {
		next, err := jobcard.Transition(ctx, linked, t.actor(), jobcard.TriggerQuotationSettled, jobcard.Params{
			Unlink: unlink,
			At:     t.at,
		})
		if err != nil {
			return err
		}
		t.saveJobCard(next, false)
		t.history(entity.EntityJobCard, linked.ID, string(linked.Status), string(next.Status), q.QuotationNumber)
		return nil
	}
	if unlink {
		next := linked.Clone()
		next.QuotationID = ""
		next.UpdatedAt = t.at
		t.saveJobCard(next, false)
	}
	return nil
}
