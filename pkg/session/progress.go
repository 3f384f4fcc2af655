package session

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// Progress collects candidate statuses for one run. It is safe for concurrent use.
type Progress struct {
	mutex    sync.Mutex
	statuses []*CandidateStatus
}

// NewProgress creates an empty Progress.
func NewProgress() *Progress {
	return &Progress{}
}

// Add records status.
func (p *Progress) Add(status *CandidateStatus) {
	p.mutex.Lock()
	p.statuses = append(p.statuses, status)
	p.mutex.Unlock()

	logrus.WithFields(status.candidate.Fields()).
		WithField("state", status.State()).
		Debug("Added candidate status to progress")
}

// AddUpdated records a candidate whose override value changed to tag.
func (p *Progress) AddUpdated(candidate types.Candidate, tag string) {
	p.Add(NewCandidateStatus(candidate, tag, UpdatedState, nil))
}

// AddFresh records a candidate already pinned to tag.
func (p *Progress) AddFresh(candidate types.Candidate, tag string) {
	p.Add(NewCandidateStatus(candidate, tag, FreshState, nil))
}

// AddSkipped records a resolved candidate whose override file has no parameter to pin.
func (p *Progress) AddSkipped(candidate types.Candidate, tag string, reason error) {
	p.Add(NewCandidateStatus(candidate, tag, SkippedState, reason))
}

// AddFailed records a candidate that failed to resolve or patch.
func (p *Progress) AddFailed(candidate types.Candidate, tag string, err error) {
	p.Add(NewCandidateStatus(candidate, tag, FailedState, err))
}

// Len returns the number of recorded statuses.
func (p *Progress) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return len(p.statuses)
}

// Report builds the run report from the recorded statuses.
func (p *Progress) Report() types.Report {
	p.mutex.Lock()
	statuses := make([]*CandidateStatus, len(p.statuses))
	copy(statuses, p.statuses)
	p.mutex.Unlock()

	logrus.WithField("count", len(statuses)).Debug("Generating report")

	return NewReport(statuses)
}
