package auth

import "errors"

// Role is an authorisation tier.
type Role string

const (
	// RoleObserver can watch the experience but not change it.
	RoleObserver Role = "observer"

	// RoleOperator can start, stop and steer the experience.
	RoleOperator Role = "operator"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleObserver || r == RoleOperator
}

// Domain-specific errors for authentication.
var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrUnknownRole  = errors.New("auth: unknown role")
	ErrNoSecret     = errors.New("auth: signing secret is empty")
)
