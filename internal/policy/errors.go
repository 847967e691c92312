package policy

import "errors"

// Errors returned by script policies.
var (
	// ErrNoAdjustFunc is returned when a script does not define adjust.
	ErrNoAdjustFunc = errors.New("policy script does not define an adjust function")

	// ErrPolicyClosed is returned when a closed Lua policy is used.
	ErrPolicyClosed = errors.New("policy is closed")
)
