package session

import (
	"cmp"
	"slices"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

type report struct {
	scanned []types.CandidateReport // Candidates that resolved to a tag.
	updated []types.CandidateReport // Candidates whose override changed.
	fresh   []types.CandidateReport // Candidates already up to date.
	failed  []types.CandidateReport // Candidates that failed.
	skipped []types.CandidateReport // Candidates without a matching parameter.
	all     []types.CandidateReport // Every candidate.
}

func (r *report) Scanned() []types.CandidateReport { return r.scanned }

func (r *report) Updated() []types.CandidateReport { return r.updated }

func (r *report) Fresh() []types.CandidateReport { return r.fresh }

func (r *report) Failed() []types.CandidateReport { return r.failed }

func (r *report) Skipped() []types.CandidateReport { return r.skipped }

func (r *report) All() []types.CandidateReport { return r.all }

// NewReport categorizes statuses into a report.
//
// Every category is sorted by source path, application, parameter, image and file, so the report
// does not depend on the order in which candidates completed.
func NewReport(statuses []*CandidateStatus) types.Report {
	sorted := slices.Clone(statuses)
	slices.SortStableFunc(sorted, compareStatus)

	report := &report{
		scanned: make([]types.CandidateReport, 0, len(sorted)),
		updated: make([]types.CandidateReport, 0),
		fresh:   make([]types.CandidateReport, 0),
		failed:  make([]types.CandidateReport, 0),
		skipped: make([]types.CandidateReport, 0),
		all:     make([]types.CandidateReport, 0, len(sorted)),
	}

	for _, status := range sorted {
		report.all = append(report.all, status)

		switch status.state {
		case UpdatedState:
			report.scanned = append(report.scanned, status)
			report.updated = append(report.updated, status)
		case FreshState:
			report.scanned = append(report.scanned, status)
			report.fresh = append(report.fresh, status)
		case SkippedState:
			report.scanned = append(report.scanned, status)
			report.skipped = append(report.skipped, status)
		case FailedState, UnknownState:
			report.failed = append(report.failed, status)
		}
	}

	return report
}

func compareStatus(a, b *CandidateStatus) int {
	return cmp.Or(
		cmp.Compare(a.candidate.SourcePath, b.candidate.SourcePath),
		cmp.Compare(a.candidate.AppName, b.candidate.AppName),
		cmp.Compare(a.candidate.ParameterName, b.candidate.ParameterName),
		cmp.Compare(a.candidate.ImageName, b.candidate.ImageName),
		cmp.Compare(a.candidate.File, b.candidate.File),
		cmp.Compare(a.latestTag, b.latestTag),
	)
}
