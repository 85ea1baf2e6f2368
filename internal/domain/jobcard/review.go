package jobcard

import (
	"context"
	"strings"
	"time"

	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/workflow"
)

// PassToManager sends a job card with warranty-tagged items for manager review.
// A rejected review may be resent; a pending or approved one may not.
func PassToManager(ctx context.Context, jc *entity.JobCard, actor entity.Actor, managerID string, at time.Time) (*entity.JobCard, error) {
	err := workflow.Check(ctx,
		workflow.RequireRole(actor.Role, entity.RoleServiceAdvisor),
		workflow.Require(!jc.Status.IsTerminal(), RuleClosed,
			"job card %s is %s", jc.JobCardNumber, jc.Status),
		workflow.Require(jc.HasWarrantyItems(), RuleNoWarrantyItems,
			"job card %s has no warranty-tagged items", jc.JobCardNumber),
		workflow.Require(jc.QuotationID == "", RuleQuotationAlreadyLinked,
			"job card %s already has a quotation", jc.JobCardNumber),
		workflow.Require(jc.ManagerReviewStatus == entity.ReviewNone || jc.ManagerReviewStatus == entity.ReviewRejected,
			RuleReviewInProgress, "job card %s review is already %s", jc.JobCardNumber, jc.ManagerReviewStatus),
		workflow.Require(strings.TrimSpace(managerID) != "", RuleManagerRequired,
			"a manager must be chosen"),
	)
	if err != nil {
		return nil, err
	}

	next := jc.Clone()
	next.PassedToManager = true
	next.PassedToManagerAt = &at
	next.ManagerID = managerID
	next.ManagerReviewStatus = entity.ReviewPending
	next.ManagerReviewNotes = ""
	next.ManagerReviewedAt = nil
	next.UpdatedAt = at
	return next, nil
}

// Review records the manager's warranty decision. Once a quotation is linked
// the review can no longer change, so a late approval never auto-approves it.
func Review(ctx context.Context, jc *entity.JobCard, actor entity.Actor, decision entity.ManagerReviewStatus, notes string, at time.Time) (*entity.JobCard, error) {
	notes = strings.TrimSpace(notes)
	err := workflow.Check(ctx,
		workflow.RequireRole(actor.Role, entity.RoleSCManager),
		workflow.Require(decision == entity.ReviewApproved || decision == entity.ReviewRejected,
			RuleInvalidReviewDecision, "review decision must be APPROVED or REJECTED, got %q", decision),
		workflow.Require(jc.QuotationID == "", RuleReviewAfterQuotation,
			"job card %s already has a quotation; its review can no longer change", jc.JobCardNumber),
		workflow.Require(jc.PassedToManager, RuleNotPassedToManager,
			"job card %s was not passed to a manager", jc.JobCardNumber),
		workflow.Require(jc.ManagerReviewStatus == entity.ReviewPending, RuleReviewNotPending,
			"job card %s review is %s, not PENDING", jc.JobCardNumber, jc.ManagerReviewStatus),
		workflow.Require(decision != entity.ReviewRejected || notes != "", RuleRejectionNotes,
			"a reason is required to reject job card %s", jc.JobCardNumber),
	)
	if err != nil {
		return nil, err
	}

	next := jc.Clone()
	next.ManagerReviewStatus = decision
	next.ManagerReviewNotes = notes
	next.ManagerReviewedAt = &at
	next.ManagerID = actor.UserID
	next.UpdatedAt = at
	return next, nil
}
