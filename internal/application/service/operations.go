package service

import (
	"context"
	"fmt"

	"github.com/garyjia/service-workflow/internal/application/workflow"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/jobcard"
	"github.com/garyjia/service-workflow/internal/domain/quotation"
	domainwf "github.com/garyjia/service-workflow/internal/domain/workflow"
)

func (s *workflowServiceImpl) CreateJobCard(ctx context.Context, actor entity.Actor, draft jobcard.Draft) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{
		Actor:        actor,
		Action:       workflow.ActionCreateJobCard,
		JobCardDraft: &draft,
	})
}

func (s *workflowServiceImpl) CreateJobCardFromAppointment(ctx context.Context, actor entity.Actor, appointmentID string) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{
		Actor:    actor,
		Action:   workflow.ActionCreateJobCard,
		TargetID: appointmentID,
	})
}

func (s *workflowServiceImpl) UpdateJobCard(ctx context.Context, actor entity.Actor, id string, patch jobcard.Patch) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{
		Actor:        actor,
		Action:       workflow.ActionUpdateJobCard,
		TargetID:     id,
		JobCardPatch: &patch,
	})
}

func (s *workflowServiceImpl) AssignJobCard(ctx context.Context, actor entity.Actor, id, engineerID string) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{
		Actor:      actor,
		Action:     workflow.ActionAssignJobCard,
		TargetID:   id,
		EngineerID: engineerID,
	})
}

func (s *workflowServiceImpl) StartJobCard(ctx context.Context, actor entity.Actor, id string) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{Actor: actor, Action: workflow.ActionStartJobCard, TargetID: id})
}

func (s *workflowServiceImpl) CompleteJobCard(ctx context.Context, actor entity.Actor, id string) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{Actor: actor, Action: workflow.ActionCompleteJobCard, TargetID: id})
}

func (s *workflowServiceImpl) CancelJobCard(ctx context.Context, actor entity.Actor, id, notes string) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{Actor: actor, Action: workflow.ActionCancelJobCard, TargetID: id, Notes: notes})
}

func (s *workflowServiceImpl) PassJobCardToManager(ctx context.Context, actor entity.Actor, id, managerID string) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{
		Actor:     actor,
		Action:    workflow.ActionPassToManager,
		TargetID:  id,
		ManagerID: managerID,
	})
}

func (s *workflowServiceImpl) ReviewJobCard(ctx context.Context, actor entity.Actor, id string, decision entity.ManagerReviewStatus, notes string) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{
		Actor:    actor,
		Action:   workflow.ActionReviewJobCard,
		TargetID: id,
		Decision: decision,
		Notes:    notes,
	})
}

func (s *workflowServiceImpl) CreatePartsRequest(ctx context.Context, actor entity.Actor, jobCardID string, items []entity.PartsRequestItem) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{
		Actor:      actor,
		Action:     workflow.ActionCreatePartsRequest,
		TargetID:   jobCardID,
		PartsItems: items,
	})
}

func (s *workflowServiceImpl) FulfillPartsRequest(ctx context.Context, actor entity.Actor, id string) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{Actor: actor, Action: workflow.ActionFulfillPartsRequest, TargetID: id})
}

func (s *workflowServiceImpl) CancelPartsRequest(ctx context.Context, actor entity.Actor, id string) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{Actor: actor, Action: workflow.ActionCancelPartsRequest, TargetID: id})
}

func (s *workflowServiceImpl) CreateQuotation(ctx context.Context, actor entity.Actor, draft quotation.Draft) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{
		Actor:          actor,
		Action:         workflow.ActionCreateQuotation,
		QuotationDraft: &draft,
	})
}

func (s *workflowServiceImpl) UpdateQuotation(ctx context.Context, actor entity.Actor, id string, patch quotation.Patch) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{
		Actor:          actor,
		Action:         workflow.ActionUpdateQuotation,
		TargetID:       id,
		QuotationPatch: &patch,
	})
}

// SendQuotationToCustomer returns the document URL and customer channel in the outcome
func (s *workflowServiceImpl) SendQuotationToCustomer(ctx context.Context, actor entity.Actor, id string) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{Actor: actor, Action: workflow.ActionSendToCustomer, TargetID: id})
}

func (s *workflowServiceImpl) RecordCustomerDecision(ctx context.Context, actor entity.Actor, id string, approved bool, notes string) (*Outcome, error) {
	action := workflow.ActionCustomerReject
	if approved {
		action = workflow.ActionCustomerApprove
	}
	return s.execute(ctx, workflow.Intent{Actor: actor, Action: action, TargetID: id, Notes: notes})
}

func (s *workflowServiceImpl) SendQuotationToManager(ctx context.Context, actor entity.Actor, id string) (*Outcome, error) {
	return s.execute(ctx, workflow.Intent{Actor: actor, Action: workflow.ActionSendToManager, TargetID: id})
}

func (s *workflowServiceImpl) RecordManagerDecision(ctx context.Context, actor entity.Actor, id string, approved bool, notes string) (*Outcome, error) {
	action := workflow.ActionManagerReject
	if approved {
		action = workflow.ActionManagerApprove
	}
	return s.execute(ctx, workflow.Intent{Actor: actor, Action: action, TargetID: id, Notes: notes})
}

// GetJobCardByID retrieves a job card visible to actor
func (s *workflowServiceImpl) GetJobCardByID(ctx context.Context, actor entity.Actor, id string) (*entity.JobCard, error) {
	jc, err := s.getJobCard(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get job card", "error", err, "id", id)
		return nil, err
	}
	if err := checkVisible(actor, jc.ServiceCenterID); err != nil {
		return nil, err
	}
	return jc, nil
}

// PermittedJobCardActions lists the transitions actor may fire on jc now,
// taking the linked quotation's state into account
func (s *workflowServiceImpl) PermittedJobCardActions(ctx context.Context, actor entity.Actor, jc *entity.JobCard) ([]jobcard.Trigger, error) {
	linked, err := s.linkedQuotation(ctx, jc)
	if err != nil {
		return nil, err
	}
	return jobcard.Available(ctx, jc, actor, linked), nil
}

// GetQuotationByID retrieves a quotation visible to actor
func (s *workflowServiceImpl) GetQuotationByID(ctx context.Context, actor entity.Actor, id string) (*entity.Quotation, error) {
	q, err := s.getQuotation(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get quotation", "error", err, "id", id)
		return nil, err
	}
	if err := checkVisible(actor, q.ServiceCenterID); err != nil {
		return nil, err
	}
	return q, nil
}

// ListPartsRequests lists the parts requests raised on a job card
func (s *workflowServiceImpl) ListPartsRequests(ctx context.Context, actor entity.Actor, jobCardID string) ([]*entity.PartsRequest, error) {
	if _, err := s.GetJobCardByID(ctx, actor, jobCardID); err != nil {
		return nil, err
	}
	prs, err := s.repos.PartsRequests.ListByJobCard(ctx, jobCardID)
	if err != nil {
		return nil, fmt.Errorf("list parts requests: %w", err)
	}
	return prs, nil
}

// GetHistory returns the status history of an entity, oldest first
func (s *workflowServiceImpl) GetHistory(ctx context.Context, actor entity.Actor, entityType entity.EntityType, id string) ([]*entity.StatusHistory, error) {
	switch entityType {
	case entity.EntityJobCard:
		if _, err := s.GetJobCardByID(ctx, actor, id); err != nil {
			return nil, err
		}
	case entity.EntityQuotation:
		if _, err := s.GetQuotationByID(ctx, actor, id); err != nil {
			return nil, err
		}
	}
	entries, err := s.repos.History.ListByEntity(ctx, entityType, id)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

func checkVisible(actor entity.Actor, serviceCenterID string) error {
	if actor.Role == entity.RoleAdmin || actor.ServiceCenterID == "" || actor.ServiceCenterID == serviceCenterID {
		return nil
	}
	return domainwf.NewViolation(workflow.RuleServiceCenterScope,
		"actor belongs to service center %s, not %s", actor.ServiceCenterID, serviceCenterID)
}
