package jobcard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/workflow"
)

func TestTransition_HappyPath(t *testing.T) {
	ctx := context.Background()
	jc := newJobCard(entity.JobCardCreated)

	assigned, err := Transition(ctx, jc, advisor, TriggerAssign, Params{EngineerID: "u-eng", At: now})
	require.NoError(t, err)
	assert.Equal(t, entity.JobCardAssigned, assigned.Status)
	assert.Equal(t, "u-eng", assigned.AssignedEngineerID)
	assert.Equal(t, entity.JobCardCreated, jc.Status, "input snapshot must not change")

	started, err := Transition(ctx, assigned, engineer, TriggerStartWork, Params{At: now})
	require.NoError(t, err)
	assert.Equal(t, entity.JobCardInProgress, started.Status)

	done, err := Transition(ctx, started, engineer, TriggerComplete, Params{At: now})
	require.NoError(t, err)
	assert.Equal(t, entity.JobCardCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, now, *done.CompletedAt)
}

func TestTransition_Violations(t *testing.T) {
	tests := []struct {
		name    string
		status  entity.JobCardStatus
		actor   entity.Actor
		trigger Trigger
		params  Params
		rule    string
	}{
		{"start from created", entity.JobCardCreated, engineer, TriggerStartWork, Params{}, workflow.RuleTransitionNotPermitted},
		{"advisor cannot start work", entity.JobCardAssigned, advisor, TriggerStartWork, Params{}, workflow.RuleRoleNotAllowed},
		{"manager cannot complete", entity.JobCardInProgress, manager, TriggerComplete, Params{}, workflow.RuleRoleNotAllowed},
		{"complete from assigned", entity.JobCardAssigned, engineer, TriggerComplete, Params{}, workflow.RuleTransitionNotPermitted},
		{"assign without engineer", entity.JobCardCreated, advisor, TriggerAssign, Params{}, RuleEngineerRequired},
		{"engineer cannot assign", entity.JobCardCreated, engineer, TriggerAssign, Params{EngineerID: "x"}, workflow.RuleRoleNotAllowed},
		{"cancel in progress", entity.JobCardInProgress, manager, TriggerCancel, Params{}, workflow.RuleTransitionNotPermitted},
		{"completed is terminal", entity.JobCardCompleted, engineer, TriggerStartWork, Params{}, workflow.RuleTerminalState},
		{"call center cannot cancel", entity.JobCardCreated, callDesk, TriggerCancel, Params{}, workflow.RuleRoleNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transition(context.Background(), newJobCard(tt.status), tt.actor, tt.trigger, tt.params)
			requireViolation(t, err, tt.rule)
		})
	}
}

func TestTransition_QuotationLinkage(t *testing.T) {
	ctx := context.Background()
	jc := newJobCard(entity.JobCardCreated)

	waiting, err := Transition(ctx, jc, advisor, TriggerAwaitQuotation, Params{QuotationID: "q-1", At: now})
	require.NoError(t, err)
	assert.Equal(t, entity.JobCardAwaitingQuotationApproval, waiting.Status)
	assert.Equal(t, "q-1", waiting.QuotationID)

	settled, err := Transition(ctx, waiting, manager, TriggerQuotationSettled, Params{At: now})
	require.NoError(t, err)
	assert.Equal(t, entity.JobCardCreated, settled.Status)
	assert.Equal(t, "q-1", settled.QuotationID)

	released, err := Transition(ctx, waiting, callDesk, TriggerQuotationSettled, Params{Unlink: true, At: now})
	require.NoError(t, err)
	assert.Empty(t, released.QuotationID)

	_, err = Transition(ctx, settled, advisor, TriggerAwaitQuotation, Params{QuotationID: "q-2", At: now})
	requireViolation(t, err, RuleQuotationAlreadyLinked)
}

func TestTransition_CancelWaitsForLinkedQuotation(t *testing.T) {
	ctx := context.Background()
	jc := newJobCard(entity.JobCardAwaitingQuotationApproval)
	jc.QuotationID = "q-1"
	live := &entity.Quotation{ID: "q-1", QuotationNumber: "SC001-QT-2025-0001",
		DocumentType: entity.DocumentQuotation, Status: entity.QuotationSentToCustomer}

	_, err := Transition(ctx, jc, advisor, TriggerCancel, Params{Linked: live, At: now})
	requireViolation(t, err, RuleQuotationPending)
	assert.Contains(t, err.Error(), "SC001-QT-2025-0001")

	approved := *live
	approved.Status = entity.QuotationManagerApproved
	created := newJobCard(entity.JobCardCreated)
	created.QuotationID = "q-1"
	cancelled, err := Transition(ctx, created, manager, TriggerCancel, Params{Linked: &approved, At: now})
	require.NoError(t, err)
	assert.Equal(t, entity.JobCardCancelled, cancelled.Status)

	other := *live
	other.ID = "q-old"
	_, err = Transition(ctx, jc, advisor, TriggerCancel, Params{Linked: &other, At: now})
	require.NoError(t, err, "a quotation the card no longer refers to does not hold it")
}

func TestAvailable(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, []Trigger{TriggerAssign, TriggerCancel}, Available(ctx, newJobCard(entity.JobCardCreated), advisor, nil))
	assert.Equal(t, []Trigger{TriggerStartWork}, Available(ctx, newJobCard(entity.JobCardAssigned), engineer, nil))
	assert.Empty(t, Available(ctx, newJobCard(entity.JobCardCompleted), engineer, nil))

	waiting := newJobCard(entity.JobCardAwaitingQuotationApproval)
	waiting.QuotationID = "q-1"
	live := &entity.Quotation{ID: "q-1", Status: entity.QuotationDraft}
	assert.Empty(t, Available(ctx, waiting, advisor, live))
	assert.Equal(t, []Trigger{TriggerCancel}, Available(ctx, waiting, advisor, nil))
}

func TestTrigger_IsValid(t *testing.T) {
	assert.True(t, TriggerQuotationSettled.IsValid())
	assert.False(t, Trigger("BOGUS").IsValid())
}
