package access

import (
	"errors"
	"fmt"
)

// Reason explains why a guard denied an operation.
type Reason string

const (
	ReasonNotMember        Reason = "not-a-member"
	ReasonInsufficientRole Reason = "insufficient-role"
	ReasonOwnerOnly        Reason = "owner-only"
)

// Message is the human-readable text sent back in 403 bodies.
func (r Reason) Message() string {
	switch r {
	case ReasonNotMember:
		return "You are not a member of this project"
	case ReasonInsufficientRole:
		return "You do not have permission to perform this action"
	case ReasonOwnerOnly:
		return "Only the project owner can perform this action"
	default:
		return "Access denied"
	}
}

// Decision is the outcome of a guard check: Allow, or Deny with a reason.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Err converts a denial to a *DeniedError. It returns nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}

func (d Decision) String() string {
	if d.Allowed {
		return "allow"
	}
	return fmt.Sprintf("deny(%s)", d.Reason)
}

// DeniedError carries a denial through error returns.
type DeniedError struct {
	Reason Reason
}

func (e *DeniedError) Error() string {
	return "access denied: " + string(e.Reason)
}

// AsDenied unwraps a *DeniedError from err.
func AsDenied(err error) (*DeniedError, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied, true
	}
	return nil, false
}

func IsDenied(err error) bool {
	_, ok := AsDenied(err)
	return ok
}
