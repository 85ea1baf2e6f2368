package jobcard

import (
	"context"
	"strings"
	"time"

	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/workflow"
)

// PartsTrigger moves a parts request out of PENDING
type PartsTrigger string

const (
	PartsTriggerFulfill PartsTrigger = "FULFILL"
	PartsTriggerCancel  PartsTrigger = "CANCEL"
)

// NewPartsRequest validates and builds a PENDING parts request against jc
func NewPartsRequest(ctx context.Context, id string, jc *entity.JobCard, actor entity.Actor, items []entity.PartsRequestItem, at time.Time) (*entity.PartsRequest, error) {
	err := workflow.Check(ctx,
		workflow.RequireRole(actor.Role, entity.RoleServiceEngineer),
		workflow.Require(jc.Status == entity.JobCardAssigned || jc.Status == entity.JobCardInProgress,
			RulePartsRequestJobCardState, "parts can only be requested while job card %s is assigned or in progress (it is %s)",
			jc.JobCardNumber, jc.Status),
		workflow.Require(len(items) > 0, RulePartsRequestEmpty, "a parts request needs at least one item"),
	)
	if err != nil {
		return nil, err
	}

	clean := make([]entity.PartsRequestItem, 0, len(items))
	for _, item := range items {
		item.PartName = strings.TrimSpace(item.PartName)
		if item.PartName == "" || item.Quantity <= 0 {
			return nil, workflow.NewViolation(RulePartsRequestInvalidItem,
				"each requested part needs a name and a positive quantity")
		}
		clean = append(clean, item)
	}

	return &entity.PartsRequest{
		ID:          id,
		JobCardID:   jc.ID,
		RequestedBy: actor.UserID,
		Items:       clean,
		Status:      entity.PartsRequestPending,
		CreatedAt:   at,
		UpdatedAt:   at,
	}, nil
}

// TransitionPartsRequest fulfils or cancels pr. Only pending requests move.
func TransitionPartsRequest(ctx context.Context, pr *entity.PartsRequest, actor entity.Actor, trigger PartsTrigger, at time.Time) (*entity.PartsRequest, error) {
	b := workflow.NewBuilder[entity.PartsRequestStatus, PartsTrigger]()
	b.Configure(entity.PartsRequestPending).
		PermitIf(PartsTriggerFulfill, entity.PartsRequestFulfilled,
			workflow.RequireRole(actor.Role, entity.RoleInventoryManager)).
		PermitIf(PartsTriggerCancel, entity.PartsRequestCancelled,
			workflow.RequireRole(actor.Role, entity.RoleServiceEngineer))

	m := b.Build(pr.Status)
	if err := m.Fire(ctx, trigger); err != nil {
		return nil, err
	}

	next := pr.Clone()
	next.Status = m.State()
	next.UpdatedAt = at
	switch trigger {
	case PartsTriggerFulfill:
		next.FulfilledBy = actor.UserID
		next.FulfilledAt = &at
	case PartsTriggerCancel:
		next.CancelledAt = &at
	}
	return next, nil
}
