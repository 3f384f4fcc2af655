package types

import (
	"context"
	"fmt"
)

// Repository synchronizes the manifest working copy with its remote.
type Repository interface {
	// Sync makes the working copy match the tip of the tracked branch, discarding local changes.
	Sync(ctx context.Context) error
	// CommitAndPush stages every change, commits it and pushes the tracked branch.
	CommitAndPush(ctx context.Context) (string, error)
	// Root returns the working copy directory.
	Root() string
}

// GitError represents a git operation failure with structured information.
type GitError struct {
	Op     string // Operation that failed (open, fetch, reset, commit, push).
	URL    string // Repository URL.
	Branch string // Tracked branch.
	Cause  error  // Underlying error.
}

func (e GitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("git %s %s (%s): %v", e.Op, e.URL, e.Branch, e.Cause)
	}

	return fmt.Sprintf("git %s %s (%s)", e.Op, e.URL, e.Branch)
}

func (e GitError) Unwrap() error {
	return e.Cause
}
