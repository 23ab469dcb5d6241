package model

import "errors"

// Validation errors. Rejected before any mutation.
var (
	// ErrNotRegistered means the requester identity is unknown to the registry.
	ErrNotRegistered = errors.New("requester is not registered")
	// ErrBadProof means the submission proof did not verify.
	ErrBadProof = errors.New("submission proof did not verify")
)

// State errors. Enforce the lifecycle ordering; each rejects the entire
// invocation.
var (
	ErrAlreadySubmitted = errors.New("record already submitted for this pair")
	ErrNoDataSubmitted  = errors.New("no data submitted for this pair")
	ErrAlreadyComputed  = errors.New("score already computed for this pair")
	ErrScoreNotComputed = errors.New("score not computed for this pair")
)

// ErrNotAuthorized is raised only by the read path: the caller is neither
// the subject nor a requester holding a live capability.
var ErrNotAuthorized = errors.New("caller is not authorized to read this score")

// IsValidation reports whether err belongs to the validation kind.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNotRegistered) || errors.Is(err, ErrBadProof)
}

// IsState reports whether err belongs to the lifecycle-state kind.
func IsState(err error) bool {
	return errors.Is(err, ErrAlreadySubmitted) ||
		errors.Is(err, ErrNoDataSubmitted) ||
		errors.Is(err, ErrAlreadyComputed) ||
		errors.Is(err, ErrScoreNotComputed)
}

// IsAuthorization reports whether err belongs to the authorization kind.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}

// ErrorCode returns the stable code recorded in audit entries and matched
// by scenario assertions. Unknown errors map to "error".
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, ErrBadProof):
		return "bad_proof"
	case errors.Is(err, ErrAlreadySubmitted):
		return "already_submitted"
	case errors.Is(err, ErrNoDataSubmitted):
		return "no_data_submitted"
	case errors.Is(err, ErrAlreadyComputed):
		return "already_computed"
	case errors.Is(err, ErrScoreNotComputed):
		return "score_not_computed"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	default:
		return "error"
	}
}
