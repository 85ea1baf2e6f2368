package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrWorkflowViolation matches every *Violation
	ErrWorkflowViolation = errors.New("workflow violation")

	// ErrLinkageConflict matches every *LinkageConflict
	ErrLinkageConflict = errors.New("linkage conflict")

	// ErrConflict matches every *ConflictError
	ErrConflict = errors.New("entity changed since it was read")

	// ErrSideEffectFailed matches every *SideEffectFailure
	ErrSideEffectFailed = errors.New("side effect failed")
)

// Rules raised by the state machine kernel itself
const (
	RuleTransitionNotPermitted = "transition.not_permitted"
	RuleTerminalState          = "transition.terminal_state"
	RuleRoleNotAllowed         = "actor.role_not_allowed"
)

// Violation is an illegal transition: wrong role, wrong current state or a
// failed guard. It is raised before any mutation is applied.
type Violation struct {
	Rule    string
	Message string

	kind error
}

// NewViolation creates a violation for the given rule
func NewViolation(rule, format string, args ...interface{}) *Violation {
	return &Violation{
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
	}
}

// GuardViolation creates a violation that also matches ErrGuardFailed
func GuardViolation(rule, format string, args ...interface{}) *Violation {
	return NewViolation(rule, format, args...).withKind(ErrGuardFailed)
}

func (v *Violation) withKind(kind error) *Violation {
	v.kind = kind
	return v
}

func (v *Violation) Error() string {
	return fmt.Sprintf("workflow violation [%s]: %s", v.Rule, v.Message)
}

// Is reports whether target is ErrWorkflowViolation or the violation's kind
func (v *Violation) Is(target error) bool {
	return target == ErrWorkflowViolation || (v.kind != nil && target == v.kind)
}

// LinkageConflict reports that a cross-entity invariant would be violated.
// ConflictingID and ConflictingNumber identify the entity already holding the slot.
type LinkageConflict struct {
	Rule              string
	EntityType        string
	ConflictingID     string
	ConflictingNumber string
	Message           string
}

// NewLinkageConflict creates a linkage conflict
func NewLinkageConflict(rule, entityType, conflictingID, conflictingNumber, format string, args ...interface{}) *LinkageConflict {
	return &LinkageConflict{
		Rule:              rule,
		EntityType:        entityType,
		ConflictingID:     conflictingID,
		ConflictingNumber: conflictingNumber,
		Message:           fmt.Sprintf(format, args...),
	}
}

func (c *LinkageConflict) Error() string {
	return fmt.Sprintf("linkage conflict [%s]: %s", c.Rule, c.Message)
}

// Is reports whether target is ErrLinkageConflict
func (c *LinkageConflict) Is(target error) bool {
	return target == ErrLinkageConflict
}

// ConflictError is an optimistic-concurrency failure
type ConflictError struct {
	EntityType string
	EntityID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently; reload and retry", e.EntityType, e.EntityID)
}

// Is reports whether target is ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// SideEffectFailure reports a downstream action that failed after the
// transition committed. The transition itself stands.
type SideEffectFailure struct {
	Effect   string
	EffectID string
	Err      error
}

func (f *SideEffectFailure) Error() string {
	return fmt.Sprintf("side effect %s failed after commit: %v", f.Effect, f.Err)
}

// Is reports whether target is ErrSideEffectFailed
func (f *SideEffectFailure) Is(target error) bool {
	return target == ErrSideEffectFailed
}

func (f *SideEffectFailure) Unwrap() error {
	return f.Err
}
