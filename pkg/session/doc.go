// Package session tracks candidate outcomes during one update run and builds the run report.
//
// Key components:
//   - State: Enum for candidate states (e.g., Updated, Failed).
//   - CandidateStatus: A candidate's resolved tag, error and state.
//   - Progress: Concurrency-safe collection of statuses for one run.
//   - Report: Categorized, deterministically sorted outcomes.
//
// Usage example:
//
//	progress := session.NewProgress()
//	progress.AddUpdated(candidate, "v2")
//	report := progress.Report()
//	updated := report.Updated()
package session
