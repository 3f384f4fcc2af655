package types

// Report defines the results of one update run.
type Report interface {
	Scanned() []CandidateReport // Candidates that were resolved.
	Updated() []CandidateReport // Candidates whose override value changed.
	Fresh() []CandidateReport   // Candidates already pinned to the latest tag.
	Failed() []CandidateReport  // Candidates that failed to resolve or patch.
	Skipped() []CandidateReport // Candidates without a matching override parameter.
	All() []CandidateReport     // All candidates, each once.
}

// CandidateReport defines a candidate's status at the end of a run.
type CandidateReport interface {
	Candidate() Candidate // The candidate this status belongs to.
	LatestTag() string    // Tag resolved from the registry, empty on failure.
	Error() string        // Error message, if any.
	State() string        // Human-readable state.
}
