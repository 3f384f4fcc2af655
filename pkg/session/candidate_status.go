package session

import (
	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

const (
	UnknownState State = iota // Uninitialized state.
	SkippedState              // Resolved, but no override parameter to pin.
	UpdatedState              // Override value changed.
	FailedState               // Resolution or patching failed.
	FreshState                // Override already pinned to the latest tag.
)

// State represents the outcome of a candidate within a run.
type State int

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case SkippedState:
		return "Skipped"
	case UpdatedState:
		return "Updated"
	case FailedState:
		return "Failed"
	case FreshState:
		return "Fresh"
	case UnknownState:
		return "Unknown"
	default:
		return "Unknown"
	}
}

// CandidateStatus contains the outcome of one candidate.
type CandidateStatus struct {
	candidate types.Candidate
	latestTag string
	err       error
	state     State
}

// NewCandidateStatus creates a status for candidate.
func NewCandidateStatus(candidate types.Candidate, latestTag string, state State, err error) *CandidateStatus {
	return &CandidateStatus{candidate: candidate, latestTag: latestTag, state: state, err: err}
}

// Candidate returns the candidate.
func (s *CandidateStatus) Candidate() types.Candidate {
	return s.candidate
}

// LatestTag returns the resolved tag, empty if resolution failed.
func (s *CandidateStatus) LatestTag() string {
	return s.latestTag
}

// Error returns the error message, or empty if none.
func (s *CandidateStatus) Error() string {
	if s.err == nil {
		return ""
	}

	return s.err.Error()
}

// Err returns the underlying error.
func (s *CandidateStatus) Err() error {
	return s.err
}

// State returns the human-readable state.
func (s *CandidateStatus) State() string {
	return s.state.String()
}
