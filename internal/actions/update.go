package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/manifest"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/metrics"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/overrides"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/session"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// defaultConcurrency is used when a non-positive concurrency is configured.
const defaultConcurrency = 1

// TagResolver resolves a candidate to its latest allowed tag.
type TagResolver interface {
	LatestTag(ctx context.Context, candidate types.Candidate) (string, error)
}

// Updater executes update runs.
//
// An Updater does not serialize runs itself; callers hold the run lock for the duration of Run.
type Updater struct {
	repository  types.Repository
	resolver    TagResolver
	concurrency int
	locks       *overrides.Locks
}

// Result describes one update run.
type Result struct {
	Report      types.Report  // Candidate statuses, nil if the run aborted before extraction finished.
	Diagnostics int           // Files, documents and images skipped during extraction.
	Changed     bool          // At least one override file changed.
	Pushed      bool          // A commit was pushed.
	Commit      string        // Hash of the pushed commit.
	Started     time.Time     // Start of the run.
	Duration    time.Duration // Wall-clock duration of the run.
}

// Metric summarizes the result for the metrics handler.
func (r *Result) Metric(err error) *metrics.Metric {
	return metrics.NewMetric(r.Report, r.Pushed, err)
}

// New creates an Updater resolving at most concurrency candidates at a time.
func New(repository types.Repository, resolver TagResolver, concurrency int) *Updater {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Updater{
		repository:  repository,
		resolver:    resolver,
		concurrency: concurrency,
		locks:       overrides.NewLocks(),
	}
}

// Run executes one update run.
//
// The returned Result is never nil. A synchronization, extraction or push failure aborts the run
// and is returned; candidate failures are recorded in the report only.
func (u *Updater) Run(ctx context.Context) (*Result, error) {
	result := &Result{Started: time.Now()}

	defer func() {
		result.Duration = time.Since(result.Started)
	}()

	if err := u.repository.Sync(ctx); err != nil {
		return result, err
	}

	extraction, err := manifest.FindCandidates(u.repository.Root())
	if err != nil {
		return result, err
	}

	result.Diagnostics = len(extraction.Diagnostics)
	logDiagnostics(extraction.Diagnostics)

	logrus.WithField("count", len(extraction.Candidates)).Info("Found candidates")

	progress := session.NewProgress()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(u.concurrency)

	for _, candidate := range extraction.Candidates {
		group.Go(func() error {
			u.process(groupCtx, candidate, progress)

			return nil
		})
	}

	_ = group.Wait()

	result.Report = progress.Report()
	result.Changed = len(result.Report.Updated()) > 0

	if !result.Changed {
		logrus.Info("No image changes, skipping commit and push")

		return result, nil
	}

	commit, err := u.repository.CommitAndPush(ctx)
	if err != nil {
		return result, err
	}

	result.Commit = commit
	result.Pushed = commit != ""

	return result, nil
}

// process resolves candidate and pins the resolved tag, recording the outcome in progress.
func (u *Updater) process(ctx context.Context, candidate types.Candidate, progress *session.Progress) {
	fields := logrus.Fields(candidate.Fields())

	tag, err := u.resolver.LatestTag(ctx, candidate)
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Failed to resolve latest tag, skipping candidate")
		progress.AddFailed(candidate, "", err)

		return
	}

	path := overrides.Path(u.repository.Root(), candidate)
	lock := u.locks.For(path)

	lock.Lock()
	outcome, err := overrides.Patch(u.repository.Root(), candidate, tag)
	lock.Unlock()

	switch {
	case err != nil:
		logrus.WithFields(fields).WithField("file", path).WithError(err).Warn("Failed to patch override file, skipping candidate")
		progress.AddFailed(candidate, tag, err)
	case outcome.Changed:
		progress.AddUpdated(candidate, tag)
	case !outcome.Exists:
		logrus.WithFields(fields).WithField("file", path).Debug("No override file, skipping candidate")
		progress.AddSkipped(candidate, tag, fmt.Errorf("%w: %s", errNoOverrideFile, path))
	case outcome.Matched == 0:
		logrus.WithFields(fields).WithField("file", path).Debug("No matching override parameter, skipping candidate")
		progress.AddSkipped(candidate, tag, fmt.Errorf("%w: %s", errNoParameter, candidate.ParameterName))
	default:
		progress.AddFresh(candidate, tag)
	}
}

// logDiagnostics logs every extraction diagnostic at its severity.
func logDiagnostics(diagnostics []manifest.Diagnostic) {
	for _, diagnostic := range diagnostics {
		entry := logrus.WithFields(logrus.Fields{
			"file":  diagnostic.File,
			"app":   diagnostic.App,
			"image": diagnostic.Image,
		}).WithError(diagnostic.Err)

		if diagnostic.Severity == manifest.SeverityWarning {
			entry.Warn(diagnostic.Message())
		} else {
			entry.Debug(diagnostic.Message())
		}
	}
}
