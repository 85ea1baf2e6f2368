package workflow

import "context"

// RequireRole permits the transition only for the listed roles
func RequireRole[R ~string](actual R, allowed ...R) GuardFunc {
	return func(ctx context.Context) error {
		for _, role := range allowed {
			if actual == role {
				return nil
			}
		}
		return GuardViolation(RuleRoleNotAllowed, "role %q may not perform this action (allowed: %v)", actual, allowed)
	}
}

// Require turns a precondition into a guard
func Require(ok bool, rule, format string, args ...interface{}) GuardFunc {
	return func(ctx context.Context) error {
		if ok {
			return nil
		}
		return GuardViolation(rule, format, args...)
	}
}

// Check runs guards outside a state machine, for sub-flows that change fields
// rather than status. The first failing guard's error is returned.
func Check(ctx context.Context, guards ...GuardFunc) error {
	return runGuards(ctx, guards)
}
