package workflow

import (
	"context"
	"errors"
	"testing"
)

type docState string

const (
	docDraft    docState = "DRAFT"
	docSent     docState = "SENT"
	docAccepted docState = "ACCEPTED"
	docRejected docState = "REJECTED"
)

func (s docState) IsValid() bool {
	switch s {
	case docDraft, docSent, docAccepted, docRejected:
		return true
	}
	return false
}

func (s docState) IsTerminal() bool {
	return s == docAccepted || s == docRejected
}

type docTrigger string

const (
	trSend   docTrigger = "SEND"
	trAccept docTrigger = "ACCEPT"
	trReject docTrigger = "REJECT"
)

type docRole string

func newDocBuilder() StateMachineBuilder[docState, docTrigger] {
	return NewBuilder[docState, docTrigger]()
}

func TestBuilder_Configure(t *testing.T) {
	builder := newDocBuilder()

	config := builder.Configure(docDraft)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	// Configure same state again should return same config
	config2 := builder.Configure(docDraft)
	if config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := newDocBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	builder.Configure(docState("INVALID"))
}

func TestBuilder_ConfigurePanicsOnTerminalState(t *testing.T) {
	builder := newDocBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on terminal state")
		}
	}()

	builder.Configure(docAccepted)
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	builder := newDocBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	builder.Build(docState(""))
}

func TestStateConfiguration_Permit(t *testing.T) {
	builder := newDocBuilder()
	builder.Configure(docDraft).Permit(trSend, docSent)

	machine := builder.Build(docDraft)

	if !machine.CanFire(trSend) {
		t.Error("CanFire() should return true for permitted trigger")
	}
	if err := machine.Fire(context.Background(), trSend); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine.State() != docSent {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), docSent)
	}
}

func TestStateConfiguration_PermitIf_GuardFails(t *testing.T) {
	builder := newDocBuilder()
	builder.Configure(docDraft).
		PermitIf(trSend, docSent, Require(false, "doc.items_required", "document has no items"))

	machine := builder.Build(docDraft)

	err := machine.Fire(context.Background(), trSend)
	if err == nil {
		t.Fatal("Fire() should fail when guard fails")
	}
	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want ErrGuardFailed", err)
	}
	if !errors.Is(err, ErrWorkflowViolation) {
		t.Errorf("Fire() error = %v, want ErrWorkflowViolation", err)
	}

	var v *Violation
	if !errors.As(err, &v) || v.Rule != "doc.items_required" {
		t.Errorf("Fire() error rule = %v, want doc.items_required", err)
	}
	if machine.State() != docDraft {
		t.Errorf("State should remain %v after failed Fire(), got %v", docDraft, machine.State())
	}
}

func TestStateConfiguration_PermitIf_MultipleTransitions(t *testing.T) {
	build := func(fast bool) StateMachine[docState, docTrigger] {
		builder := newDocBuilder()
		builder.Configure(docDraft).
			PermitIf(trSend, docAccepted, Require(fast, "doc.fast_track", "not fast tracked")).
			PermitIf(trSend, docSent, Require(!fast, "doc.normal", "fast tracked"))
		return builder.Build(docDraft)
	}

	machine1 := build(true)
	if err := machine1.Fire(context.Background(), trSend); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine1.State() != docAccepted {
		t.Errorf("State after Fire() = %v, want %v", machine1.State(), docAccepted)
	}

	machine2 := build(false)
	if err := machine2.Fire(context.Background(), trSend); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine2.State() != docSent {
		t.Errorf("State after Fire() = %v, want %v", machine2.State(), docSent)
	}
}

func TestStateConfiguration_FirstGuardErrorReturned(t *testing.T) {
	builder := newDocBuilder()
	builder.Configure(docDraft).
		PermitIf(trSend, docSent, Require(false, "first", "first failed")).
		PermitIf(trSend, docAccepted, Require(false, "second", "second failed"))

	err := builder.Build(docDraft).Fire(context.Background(), trSend)

	var v *Violation
	if !errors.As(err, &v) {
		t.Fatalf("Fire() error = %v, want *Violation", err)
	}
	if v.Rule != "first" {
		t.Errorf("Violation.Rule = %v, want first", v.Rule)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		actual  docRole
		wantErr bool
	}{
		{"allowed role", "advisor", false},
		{"second allowed role", "manager", false},
		{"other role", "engineer", true},
		{"empty role", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireRole(tt.actual, "advisor", "manager")(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("RequireRole() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var v *Violation
				if !errors.As(err, &v) || v.Rule != RuleRoleNotAllowed {
					t.Errorf("RequireRole() rule = %v, want %v", err, RuleRoleNotAllowed)
				}
			}
		})
	}
}

func TestStateMachine_Fire_InvalidTransition(t *testing.T) {
	builder := newDocBuilder()
	builder.Configure(docDraft).Permit(trSend, docSent)

	machine := builder.Build(docDraft)

	err := machine.Fire(context.Background(), trAccept)
	if err == nil {
		t.Fatal("Fire() should fail for invalid transition")
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}

	var v *Violation
	if !errors.As(err, &v) || v.Rule != RuleTransitionNotPermitted {
		t.Errorf("Fire() rule = %v, want %v", err, RuleTransitionNotPermitted)
	}
	if machine.State() != docDraft {
		t.Errorf("State should remain %v after failed Fire(), got %v", docDraft, machine.State())
	}
}

func TestStateMachine_Fire_TerminalState(t *testing.T) {
	builder := newDocBuilder()
	builder.Configure(docDraft).Permit(trSend, docSent)

	machine := builder.Build(docRejected)

	err := machine.Fire(context.Background(), trSend)

	var v *Violation
	if !errors.As(err, &v) {
		t.Fatalf("Fire() error = %v, want *Violation", err)
	}
	if v.Rule != RuleTerminalState {
		t.Errorf("Violation.Rule = %v, want %v", v.Rule, RuleTerminalState)
	}
}

func TestStateMachine_PermittedTriggers(t *testing.T) {
	builder := newDocBuilder()
	builder.Configure(docSent).
		Permit(trAccept, docAccepted).
		Permit(trReject, docRejected)

	triggers := builder.Build(docSent).PermittedTriggers()
	if len(triggers) != 2 {
		t.Errorf("PermittedTriggers() returned %d triggers, want 2", len(triggers))
	}

	terminal := builder.Build(docAccepted).PermittedTriggers()
	if len(terminal) != 0 {
		t.Errorf("PermittedTriggers() on terminal state returned %d triggers, want 0", len(terminal))
	}
}

func TestStateMachine_Immutability(t *testing.T) {
	builder := newDocBuilder()
	builder.Configure(docDraft).Permit(trSend, docSent)

	machine1 := builder.Build(docDraft)
	machine2 := builder.Build(docDraft)

	if err := machine1.Fire(context.Background(), trSend); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}

	if machine2.State() != docDraft {
		t.Errorf("machine2 state = %v, want %v (machines should be independent)", machine2.State(), docDraft)
	}
	if machine1.State() != docSent {
		t.Errorf("machine1 state = %v, want %v", machine1.State(), docSent)
	}
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("smtp down")
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"violation", NewViolation("r", "m"), ErrWorkflowViolation},
		{"linkage", NewLinkageConflict("r", "job_card", "id-1", "SC001-2025-01-0001", "taken"), ErrLinkageConflict},
		{"conflict", &ConflictError{EntityType: "quotation", EntityID: "q-1"}, ErrConflict},
		{"side effect", &SideEffectFailure{Effect: "notification.send", Err: cause}, ErrSideEffectFailed},
		{"side effect cause", &SideEffectFailure{Effect: "notification.send", Err: cause}, cause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.target)
			}
		})
	}

	if errors.Is(NewViolation("r", "m"), ErrLinkageConflict) {
		t.Error("violation should not match ErrLinkageConflict")
	}
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	if err := Check(ctx, Require(true, "r1", "ok"), nil); err != nil {
		t.Fatalf("Check() = %v, want nil", err)
	}

	err := Check(ctx, Require(true, "r1", "ok"), Require(false, "r2", "second"), Require(false, "r3", "third"))
	var v *Violation
	if !errors.As(err, &v) || v.Rule != "r2" {
		t.Errorf("Check() = %v, want rule r2", err)
	}
	if !errors.Is(err, ErrGuardFailed) {
		t.Error("Check() error should match ErrGuardFailed")
	}
}
