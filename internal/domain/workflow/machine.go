package workflow

import "context"

// StateMachine tracks the current status of one entity and validates transitions
type StateMachine[S Status, T Trigger] interface {
	// State returns the current state
	State() S

	// CanFire returns true if the trigger is configured for the current state.
	// Guards are not evaluated.
	CanFire(trigger T) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger T) error

	// PermittedTriggers returns all triggers configured for the current state
	PermittedTriggers() []T
}
