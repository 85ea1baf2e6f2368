package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/application/workflow"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/event"
	"github.com/garyjia/service-workflow/internal/domain/linkage"
	domainwf "github.com/garyjia/service-workflow/internal/domain/workflow"
)

// execute applies intent in a transaction. A lost version race is re-read and
// re-applied up to ConflictRetries times; a clash on a document number is
// renumbered once. Post-commit effects run after the transaction.
func (s *workflowServiceImpl) execute(ctx context.Context, intent workflow.Intent) (*Outcome, error) {
	conflicts, renumbered := 0, false
	for {
		result, err := s.applyOnce(ctx, intent)
		if err == nil {
			s.logger.Info("Transition committed",
				"action", intent.Action,
				"entity_type", result.EntityType,
				"entity_id", result.EntityID,
				"previous_status", result.PreviousStatus,
				"new_status", result.NewStatus,
				"actor_id", intent.Actor.UserID,
			)
			return s.afterCommit(ctx, result)
		}

		var conflict *domainwf.ConflictError
		if errors.As(err, &conflict) && conflicts < s.opts.ConflictRetries {
			conflicts++
			s.logger.Info("Version conflict, retrying",
				"action", intent.Action,
				"entity_type", conflict.EntityType,
				"entity_id", conflict.EntityID,
			)
			continue
		}

		var dup *port.DuplicateError
		if errors.As(err, &dup) {
			if dup.IsNumberConstraint() && !renumbered {
				renumbered = true
				s.logger.Info("Document number taken, renumbering", "action", intent.Action, "constraint", dup.Constraint)
				continue
			}
			err = s.linkageFromDuplicate(ctx, intent, dup)
		}

		s.logger.Error("Transition failed", "action", intent.Action, "target_id", intent.TargetID, "error", err)
		return nil, err
	}
}

func (s *workflowServiceImpl) applyOnce(ctx context.Context, intent workflow.Intent) (*workflow.Result, error) {
	var result *workflow.Result
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		snap, rel, err := s.load(txCtx, intent)
		if err != nil {
			return err
		}
		res, err := s.orchestrator.Apply(txCtx, intent, snap, rel)
		if err != nil {
			return err
		}
		if err := s.persist(txCtx, res); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// persist writes the entity effects in order, then the history entries
func (s *workflowServiceImpl) persist(ctx context.Context, res *workflow.Result) error {
	for _, e := range res.Effects {
		if e.Type.IsPostCommit() {
			continue
		}
		if err := s.persistEffect(ctx, e); err != nil {
			return err
		}
	}
	for _, h := range res.History {
		if err := s.repos.History.Create(ctx, h); err != nil {
			return fmt.Errorf("record history: %w", err)
		}
	}
	return nil
}

func (s *workflowServiceImpl) persistEffect(ctx context.Context, e *event.Event) error {
	create := e.Type == event.TypeEntityCreate
	var err error

	switch e.Type {
	case event.TypeLeadUpsert:
		lead, ok := e.Lead()
		if !ok {
			return fmt.Errorf("effect %s carries no lead", e.ID)
		}
		if err := s.repos.Leads.Upsert(ctx, lead); err != nil {
			return fmt.Errorf("upsert lead: %w", err)
		}
		return nil

	case event.TypeEntityCreate, event.TypeEntityUpdate:
		switch e.EntityType {
		case entity.EntityJobCard:
			jc, ok := e.JobCard()
			if !ok {
				return fmt.Errorf("effect %s carries no job card", e.ID)
			}
			if create {
				err = s.repos.JobCards.Create(ctx, jc)
			} else {
				err = s.repos.JobCards.Update(ctx, jc, jc.Version)
			}
		case entity.EntityQuotation:
			q, ok := e.Quotation()
			if !ok {
				return fmt.Errorf("effect %s carries no quotation", e.ID)
			}
			if create {
				err = s.repos.Quotations.Create(ctx, q)
			} else {
				err = s.repos.Quotations.Update(ctx, q, q.Version)
			}
		case entity.EntityPartsRequest:
			pr, ok := e.PartsRequest()
			if !ok {
				return fmt.Errorf("effect %s carries no parts request", e.ID)
			}
			if create {
				err = s.repos.PartsRequests.Create(ctx, pr)
			} else {
				err = s.repos.PartsRequests.Update(ctx, pr, pr.Version)
			}
		case entity.EntityAppointment:
			a, ok := e.Appointment()
			if !ok {
				return fmt.Errorf("effect %s carries no appointment", e.ID)
			}
			err = s.repos.Appointments.Update(ctx, a, a.Version)
		default:
			return fmt.Errorf("effect %s: unsupported entity type %s", e.ID, e.EntityType)
		}
	default:
		return fmt.Errorf("effect %s: unsupported type %s", e.ID, e.Type)
	}

	if errors.Is(err, port.ErrVersionConflict) {
		return &domainwf.ConflictError{EntityType: string(e.EntityType), EntityID: e.EntityID}
	}
	if err != nil {
		return fmt.Errorf("persist %s %s: %w", e.EntityType, e.EntityID, err)
	}
	return nil
}

// linkageFromDuplicate turns a unique-index rejection into the linkage
// conflict the validator would have raised had it seen the other write. The
// committed row is looked up so the conflict names it.
func (s *workflowServiceImpl) linkageFromDuplicate(ctx context.Context, intent workflow.Intent, dup *port.DuplicateError) error {
	switch dup.Constraint {
	case port.ConstraintActiveJobCard:
		var id, number string
		if jc := s.activeJobCardFor(ctx, intent); jc != nil {
			id, number = jc.ID, jc.JobCardNumber
		}
		return domainwf.NewLinkageConflict(linkage.RuleActiveJobCardExists, string(entity.EntityJobCard), id, number,
			"vehicle already has an active job card")
	case port.ConstraintActiveQuotation, port.ConstraintJobCardQuotation:
		byJobCard := dup.Constraint == port.ConstraintJobCardQuotation
		var id, number string
		if q := s.liveQuotationFor(ctx, intent, byJobCard); q != nil {
			id, number = q.ID, q.QuotationNumber
		}
		if byJobCard {
			return domainwf.NewLinkageConflict(linkage.RuleJobCardQuotationExists, string(entity.EntityQuotation), id, number,
				"job card already has an open quotation of this type")
		}
		return domainwf.NewLinkageConflict(linkage.RuleActiveQuotationExists, string(entity.EntityQuotation), id, number,
			"customer already has an open quotation of this type for the vehicle")
	}
	return dup
}

// activeJobCardFor finds the open job card that won the race for the vehicle
// of a job card draft or of the quotation being approved
func (s *workflowServiceImpl) activeJobCardFor(ctx context.Context, intent workflow.Intent) *entity.JobCard {
	var serviceCenterID, vehicleID string
	switch {
	case intent.JobCardDraft != nil:
		serviceCenterID, vehicleID = intent.JobCardDraft.ServiceCenterID, intent.JobCardDraft.VehicleID
	case intent.Action == workflow.ActionCustomerApprove:
		q, err := s.repos.Quotations.GetByID(ctx, intent.TargetID)
		if err != nil {
			return nil
		}
		serviceCenterID, vehicleID = q.ServiceCenterID, q.VehicleID
	default:
		return nil
	}
	if serviceCenterID == "" {
		serviceCenterID = intent.Actor.ServiceCenterID
	}
	cards, err := s.repos.JobCards.ListActiveByVehicle(ctx, serviceCenterID, vehicleID)
	if err != nil || len(cards) == 0 {
		return nil
	}
	return cards[0]
}

// liveQuotationFor finds the non-rejected quotation holding the slot a
// quotation draft tried to take
func (s *workflowServiceImpl) liveQuotationFor(ctx context.Context, intent workflow.Intent, byJobCard bool) *entity.Quotation {
	d := intent.QuotationDraft
	if d == nil {
		return nil
	}
	var list []*entity.Quotation
	var err error
	if byJobCard {
		list, err = s.repos.Quotations.ListByJobCard(ctx, d.JobCardID)
	} else {
		list, err = s.repos.Quotations.ListByCustomerVehicle(ctx, d.CustomerID, d.VehicleID)
	}
	if err != nil {
		return nil
	}
	for _, q := range list {
		if q.DocumentType == d.DocumentType && !q.Status.IsRejected() {
			return q
		}
	}
	return nil
}
