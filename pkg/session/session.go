package session

import (
	"time"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/tokens"
)

type State int

const (
	Unknown State = iota
	Authorized
	Unauthorized
)

func (s State) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Reason names the check that denied a session. All reasons lead to the same
// user visible outcome; they only differ in logs and metrics.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonAbsentCredential
	ReasonMalformedToken
	ReasonExpired
	ReasonRoleMismatch
)

func (r Reason) String() string {
	switch r {
	case ReasonAbsentCredential:
		return "absent_credential"
	case ReasonMalformedToken:
		return "malformed_token"
	case ReasonExpired:
		return "expired"
	case ReasonRoleMismatch:
		return "role_mismatch"
	default:
		return "none"
	}
}

func (r Reason) Error() string {
	return "session unauthorized: " + r.String()
}

type Result struct {
	State  State
	Reason Reason
}

func (r Result) Authorized() bool {
	return r.State == Authorized
}

// Err returns nil for an authorized result and the [Reason] otherwise.
func (r Result) Err() error {
	if r.Authorized() {
		return nil
	}
	return r.Reason
}

func Allow() Result {
	return Result{State: Authorized}
}

func Deny(reason Reason) Result {
	return Result{State: Unauthorized, Reason: reason}
}

/*
Validate applies the access policy to decoded claims, in order, stopping at
the first failure:

 1. `exp` must be present and strictly after now (epoch seconds), else [ReasonExpired]
 2. `role` must equal requiredRole exactly, else [ReasonRoleMismatch]

The caller samples now once, so both checks see the same instant.
*/
func Validate(
	claims *tokens.Claims,
	requiredRole string,
	now time.Time,
) Result {
	if claims == nil || !claims.HasExpiration || claims.Expiration <= now.Unix() {
		return Deny(ReasonExpired)
	}

	if claims.Role != requiredRole {
		return Deny(ReasonRoleMismatch)
	}

	return Allow()
}
