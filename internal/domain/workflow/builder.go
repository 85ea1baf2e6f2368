package workflow

import (
	"context"
	"fmt"
)

// GuardFunc decides whether a transition may happen. A nil return permits it;
// the returned error (usually a *Violation) is surfaced to the caller otherwise.
type GuardFunc func(ctx context.Context) error

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder[S Status, T Trigger] interface {
	// Configure returns a state configuration for the given state
	Configure(state S) StateConfiguration[S, T]

	// Build creates a new state machine instance with the given initial state
	Build(initialState S) StateMachine[S, T]
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration[S Status, T Trigger] interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger T, toState S) StateConfiguration[S, T]

	// PermitIf allows a trigger to transition to the target state if every guard passes
	PermitIf(trigger T, toState S, guards ...GuardFunc) StateConfiguration[S, T]
}

type transition[S Status] struct {
	toState S
	guards  []GuardFunc
}

type stateConfig[S Status, T Trigger] struct {
	fromState   S
	transitions map[T][]transition[S]
}

type stateMachineBuilder[S Status, T Trigger] struct {
	configurations map[S]*stateConfig[S, T]
}

type stateMachine[S Status, T Trigger] struct {
	currentState   S
	configurations map[S]*stateConfig[S, T]
}

// NewBuilder creates a new state machine builder
func NewBuilder[S Status, T Trigger]() StateMachineBuilder[S, T] {
	return &stateMachineBuilder[S, T]{
		configurations: make(map[S]*stateConfig[S, T]),
	}
}

// Configure returns a state configuration for the given state
func (b *stateMachineBuilder[S, T]) Configure(state S) StateConfiguration[S, T] {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if state.IsTerminal() {
		panic(fmt.Sprintf("terminal state %s cannot have outgoing transitions", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig[S, T]{
			fromState:   state,
			transitions: make(map[T][]transition[S]),
		}
		b.configurations[state] = config
	}

	return config
}

// Build creates a new state machine instance with the given initial state
func (b *stateMachineBuilder[S, T]) Build(initialState S) StateMachine[S, T] {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	// Copy configurations so machines built from one builder stay independent
	configsCopy := make(map[S]*stateConfig[S, T], len(b.configurations))
	for state, config := range b.configurations {
		transitionsCopy := make(map[T][]transition[S], len(config.transitions))
		for trigger, transitions := range config.transitions {
			transitionsCopy[trigger] = append([]transition[S]{}, transitions...)
		}
		configsCopy[state] = &stateConfig[S, T]{
			fromState:   state,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine[S, T]{
		currentState:   initialState,
		configurations: configsCopy,
	}
}

// Permit allows a trigger to transition to the target state
func (c *stateConfig[S, T]) Permit(trigger T, toState S) StateConfiguration[S, T] {
	return c.PermitIf(trigger, toState)
}

// PermitIf allows a trigger to transition to the target state if every guard passes
func (c *stateConfig[S, T]) PermitIf(trigger T, toState S, guards ...GuardFunc) StateConfiguration[S, T] {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition[S]{
		toState: toState,
		guards:  guards,
	})

	return c
}

// State returns the current state
func (m *stateMachine[S, T]) State() S {
	return m.currentState
}

// CanFire returns true if the trigger is configured in the current state
func (m *stateMachine[S, T]) CanFire(trigger T) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}

	transitions, exists := config.transitions[trigger]
	return exists && len(transitions) > 0
}

// Fire attempts to execute the trigger. Transitions are tried in the order they
// were permitted; the first one whose guards all pass wins. When every candidate
// is guarded out, the first guard error is returned unchanged.
func (m *stateMachine[S, T]) Fire(ctx context.Context, trigger T) error {
	from := m.currentState

	config, exists := m.configurations[from]
	if !exists {
		if from.IsTerminal() {
			return NewViolation(RuleTerminalState, "%s is terminal; %s is not allowed", from, trigger).
				withKind(ErrInvalidTransition)
		}
		return NewViolation(RuleTransitionNotPermitted, "cannot %s from %s", trigger, from).
			withKind(ErrInvalidTransition)
	}

	transitions, exists := config.transitions[trigger]
	if !exists || len(transitions) == 0 {
		return NewViolation(RuleTransitionNotPermitted, "cannot %s from %s", trigger, from).
			withKind(ErrInvalidTransition)
	}

	var firstErr error
	for _, t := range transitions {
		if err := runGuards(ctx, t.guards); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		m.currentState = t.toState
		return nil
	}

	return firstErr
}

// PermittedTriggers returns all triggers configured for the current state
func (m *stateMachine[S, T]) PermittedTriggers() []T {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []T{}
	}

	triggers := make([]T, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}

	return triggers
}

func runGuards(ctx context.Context, guards []GuardFunc) error {
	for _, guard := range guards {
		if guard == nil {
			continue
		}
		if err := guard(ctx); err != nil {
			return err
		}
	}
	return nil
}
