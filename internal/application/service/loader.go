package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/application/workflow"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/identifier"
)

// load reads the target and every related snapshot the intent's decision
// depends on
func (s *workflowServiceImpl) load(ctx context.Context, intent workflow.Intent) (workflow.Snapshot, workflow.Related, error) {
	var snap workflow.Snapshot
	rel := workflow.Related{At: s.opts.Now()}
	var err error

	switch intent.Action {
	case workflow.ActionCreateJobCard:
		err = s.loadJobCardCreation(ctx, intent, &rel)

	case workflow.ActionUpdateJobCard, workflow.ActionAssignJobCard, workflow.ActionStartJobCard,
		workflow.ActionReviewJobCard, workflow.ActionCreatePartsRequest:
		snap.JobCard, err = s.getJobCard(ctx, intent.TargetID)

	case workflow.ActionCancelJobCard:
		if snap.JobCard, err = s.getJobCard(ctx, intent.TargetID); err == nil {
			rel.LinkedQuotation, err = s.linkedQuotation(ctx, snap.JobCard)
		}

	case workflow.ActionCompleteJobCard:
		if snap.JobCard, err = s.getJobCard(ctx, intent.TargetID); err == nil && snap.JobCard.AppointmentID != "" {
			rel.Appointment, err = s.optionalAppointment(ctx, snap.JobCard.AppointmentID)
		}

	case workflow.ActionPassToManager:
		if snap.JobCard, err = s.getJobCard(ctx, intent.TargetID); err == nil && intent.ManagerID == "" {
			rel.Managers, err = s.resolveManagers(ctx, snap.JobCard.ServiceCenterID)
		}

	case workflow.ActionFulfillPartsRequest, workflow.ActionCancelPartsRequest:
		if snap.PartsRequest, err = s.getPartsRequest(ctx, intent.TargetID); err == nil {
			snap.JobCard, err = s.getJobCard(ctx, snap.PartsRequest.JobCardID)
		}

	case workflow.ActionCreateQuotation:
		err = s.loadQuotationCreation(ctx, intent, &rel)

	case workflow.ActionUpdateQuotation:
		snap.Quotation, err = s.getQuotation(ctx, intent.TargetID)

	default:
		if snap.Quotation, err = s.getQuotation(ctx, intent.TargetID); err == nil {
			err = s.loadQuotationDecision(ctx, intent, snap.Quotation, &rel)
		}
	}
	return snap, rel, err
}

func (s *workflowServiceImpl) loadJobCardCreation(ctx context.Context, intent workflow.Intent, rel *workflow.Related) error {
	var serviceCenterID, vehicleID, appointmentID string
	if d := intent.JobCardDraft; d != nil {
		serviceCenterID, vehicleID, appointmentID = d.ServiceCenterID, d.VehicleID, d.AppointmentID
	}
	if intent.TargetID != "" {
		appointmentID = intent.TargetID
	}
	if appointmentID != "" {
		a, err := s.getAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		rel.Appointment = a
		if serviceCenterID == "" {
			serviceCenterID = a.ServiceCenterID
		}
		if vehicleID == "" {
			vehicleID = a.VehicleID
		}
	}
	if serviceCenterID == "" {
		serviceCenterID = intent.Actor.ServiceCenterID
	}
	return s.loadJobCardNumbering(ctx, serviceCenterID, vehicleID, rel)
}

// loadJobCardNumbering reads what creating a job card needs: the center,
// the vehicle's open job cards and the month's count
func (s *workflowServiceImpl) loadJobCardNumbering(ctx context.Context, serviceCenterID, vehicleID string, rel *workflow.Related) error {
	if err := s.loadServiceCenter(ctx, serviceCenterID, rel); err != nil {
		return err
	}
	cards, err := s.repos.JobCards.ListActiveByVehicle(ctx, serviceCenterID, vehicleID)
	if err != nil {
		return fmt.Errorf("list active job cards: %w", err)
	}
	rel.VehicleJobCards = cards

	start, end := identifier.Period(identifier.KindJobCard, rel.At)
	count, err := s.repos.JobCards.CountCreatedBetween(ctx, serviceCenterID, start, end)
	if err != nil {
		return fmt.Errorf("count job cards: %w", err)
	}
	rel.Counts.JobCards = count
	return nil
}

func (s *workflowServiceImpl) loadQuotationCreation(ctx context.Context, intent workflow.Intent, rel *workflow.Related) error {
	d := intent.QuotationDraft
	if d == nil {
		return nil
	}
	serviceCenterID := d.ServiceCenterID
	if serviceCenterID == "" {
		serviceCenterID = intent.Actor.ServiceCenterID
	}
	if err := s.loadServiceCenter(ctx, serviceCenterID, rel); err != nil {
		return err
	}

	if d.JobCardID != "" {
		jc, err := s.repos.JobCards.GetByID(ctx, d.JobCardID)
		if err != nil && !errors.Is(err, port.ErrNotFound) {
			return fmt.Errorf("get job card: %w", err)
		}
		rel.LinkedJobCard = jc
	}
	if d.AppointmentID != "" {
		a, err := s.getAppointment(ctx, d.AppointmentID)
		if err != nil {
			return err
		}
		rel.Appointment = a
	}

	cards, err := s.repos.JobCards.ListActiveByVehicle(ctx, serviceCenterID, d.VehicleID)
	if err != nil {
		return fmt.Errorf("list active job cards: %w", err)
	}
	rel.VehicleJobCards = cards

	if rel.Quotations, err = s.relatedQuotations(ctx, d.CustomerID, d.VehicleID, d.JobCardID); err != nil {
		return err
	}

	kind := identifier.KindForDocument(d.DocumentType)
	start, end := identifier.Period(kind, rel.At)
	count, err := s.repos.Quotations.CountCreatedBetween(ctx, serviceCenterID, d.DocumentType, start, end)
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	rel.Counts.Documents = count
	return nil
}

func (s *workflowServiceImpl) loadQuotationDecision(ctx context.Context, intent workflow.Intent, q *entity.Quotation, rel *workflow.Related) error {
	var err error
	if q.JobCardID != "" {
		rel.LinkedJobCard, err = s.repos.JobCards.GetByID(ctx, q.JobCardID)
		if err != nil && !errors.Is(err, port.ErrNotFound) {
			return fmt.Errorf("get job card: %w", err)
		}
	}

	rel.Lead, err = s.repos.Leads.GetByQuotationID(ctx, q.ID)
	if err != nil && !errors.Is(err, port.ErrNotFound) {
		return fmt.Errorf("get lead: %w", err)
	}

	switch intent.Action {
	case workflow.ActionSendToManager:
		rel.Managers, err = s.resolveManagers(ctx, q.ServiceCenterID)
		return err
	case workflow.ActionCustomerApprove:
		if q.JobCardID != "" {
			return nil
		}
		if q.AppointmentID != "" {
			if rel.Appointment, err = s.optionalAppointment(ctx, q.AppointmentID); err != nil {
				return err
			}
		}
		return s.loadJobCardNumbering(ctx, q.ServiceCenterID, q.VehicleID, rel)
	}
	return nil
}

// relatedQuotations merges the quotations of the vehicle with those of the job card
func (s *workflowServiceImpl) relatedQuotations(ctx context.Context, customerID, vehicleID, jobCardID string) ([]*entity.Quotation, error) {
	out, err := s.repos.Quotations.ListByCustomerVehicle(ctx, customerID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	if jobCardID == "" {
		return out, nil
	}
	byCard, err := s.repos.Quotations.ListByJobCard(ctx, jobCardID)
	if err != nil {
		return nil, fmt.Errorf("list job card quotations: %w", err)
	}
	seen := make(map[string]bool, len(out))
	for _, q := range out {
		seen[q.ID] = true
	}
	for _, q := range byCard {
		if !seen[q.ID] {
			out = append(out, q)
		}
	}
	return out, nil
}

// linkedQuotation reads the quotation jc refers to; a dangling reference reads as none
func (s *workflowServiceImpl) linkedQuotation(ctx context.Context, jc *entity.JobCard) (*entity.Quotation, error) {
	if jc.QuotationID == "" {
		return nil, nil
	}
	q, err := s.repos.Quotations.GetByID(ctx, jc.QuotationID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get linked quotation: %w", err)
	}
	return q, nil
}

func (s *workflowServiceImpl) loadServiceCenter(ctx context.Context, id string, rel *workflow.Related) error {
	if id == "" {
		return nil
	}
	sc, err := s.repos.ServiceCenters.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get service center: %w", err)
	}
	rel.ServiceCenter = sc
	return nil
}

// resolveManagers asks the directory for the center's managers. An empty
// answer is not a lookup error: pass-to-manager then fails its manager guard,
// and send-to-manager commits with no notification recipient.
func (s *workflowServiceImpl) resolveManagers(ctx context.Context, serviceCenterID string) ([]string, error) {
	if s.managers == nil {
		return nil, nil
	}
	ids, err := s.managers.Resolve(ctx, serviceCenterID)
	if err != nil {
		return nil, fmt.Errorf("resolve managers: %w", err)
	}
	return ids, nil
}

func (s *workflowServiceImpl) getJobCard(ctx context.Context, id string) (*entity.JobCard, error) {
	jc, err := s.repos.JobCards.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job card %s: %w", id, err)
	}
	return jc, nil
}

func (s *workflowServiceImpl) getQuotation(ctx context.Context, id string) (*entity.Quotation, error) {
	q, err := s.repos.Quotations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation %s: %w", id, err)
	}
	return q, nil
}

func (s *workflowServiceImpl) getPartsRequest(ctx context.Context, id string) (*entity.PartsRequest, error) {
	pr, err := s.repos.PartsRequests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get parts request %s: %w", id, err)
	}
	return pr, nil
}

func (s *workflowServiceImpl) getAppointment(ctx context.Context, id string) (*entity.Appointment, error) {
	a, err := s.repos.Appointments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment %s: %w", id, err)
	}
	return a, nil
}

func (s *workflowServiceImpl) optionalAppointment(ctx context.Context, id string) (*entity.Appointment, error) {
	a, err := s.repos.Appointments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment %s: %w", id, err)
	}
	return a, nil
}
