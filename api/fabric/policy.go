package fabric

import "strings"

// DuplicateSuffix is how the controller ends the text of a duplicate-create
// error.
//
// Known limitation: this is an English message suffix, not an error code,
// so a localised or reworded controller release will no longer match.
const DuplicateSuffix = "already exists."

// IsDuplicateMessage reports whether an error text is the controller's
// duplicate-create message.
func IsDuplicateMessage(text string) bool {
	return strings.HasSuffix(text, DuplicateSuffix)
}

// DuplicatePolicy decides what a POST hitting an existing object returns.
type DuplicatePolicy int

const (
	// DuplicateIsSuccess treats a duplicate create as a no-op: the call
	// succeeds with an empty result. This makes re-running a provisioning
	// sequence idempotent.
	DuplicateIsSuccess DuplicatePolicy = iota
	// DuplicateIsError surfaces the duplicate as an *APIError whose
	// IsDuplicate method returns true.
	DuplicateIsError
)

func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateIsSuccess:
		return "duplicate-is-success"
	case DuplicateIsError:
		return "duplicate-is-error"
	default:
		return "unknown"
	}
}

// CallOption adjusts a single Call or create operation.
type CallOption func(*callOptions)

type callOptions struct {
	duplicatePolicy DuplicatePolicy
}

// WithDuplicatePolicy overrides the client's DuplicatePolicy for one call.
func WithDuplicatePolicy(policy DuplicatePolicy) CallOption {
	return func(o *callOptions) {
		o.duplicatePolicy = policy
	}
}
