package actions

import "errors"

// Reasons for skipping a resolved candidate.
var (
	// errNoOverrideFile indicates the application has no override file to patch.
	errNoOverrideFile = errors.New("override file does not exist")
	// errNoParameter indicates the override file has no parameter named after the candidate's parameter.
	errNoParameter = errors.New("override file has no matching parameter")
)
