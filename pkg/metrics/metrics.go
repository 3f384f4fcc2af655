package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// channelBufferSize sets the metrics channel capacity.
const channelBufferSize = 10

var metrics *Metrics

// Metric holds data points from one update run.
type Metric struct {
	Candidates int  // Number of candidates discovered.
	Scanned    int  // Number of candidates resolved.
	Updated    int  // Number of candidates whose override changed.
	Fresh      int  // Number of candidates already pinned to the latest tag.
	Failed     int  // Number of candidates that failed.
	Pushed     bool // A commit was pushed.
	Aborted    bool // The run ended with a run-level error.
}

// Metrics handles processing and exposing run metrics.
type Metrics struct {
	channel      chan *Metric       // Channel for queuing metrics.
	scanned      prometheus.Gauge   // Candidates resolved in the last run.
	updated      prometheus.Gauge   // Candidates updated in the last run.
	failed       prometheus.Gauge   // Candidates failed in the last run.
	total        prometheus.Counter // Runs since start.
	skipped      prometheus.Counter // Runs skipped due to a run in progress.
	aborted      prometheus.Counter // Runs aborted by a run-level error.
	pushes       prometheus.Counter // Commits pushed.
	dropped      prometheus.Counter // Metrics dropped due to a full channel.
	stopCh       chan struct{}      // Channel for shutdown signaling.
	shutdownOnce sync.Once          // Ensures shutdown is called only once.
	//nolint:containedctx
	ctx    context.Context    // Context for cancellation.
	cancel context.CancelFunc // Cancel function for the context.
}

// NewWithRegistry creates a new Metrics handler registered with registry and starts its processing goroutine.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	ctx, cancel := context.WithCancel(context.Background())

	metrics := &Metrics{
		scanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "image_updater_candidates_scanned",
			Help: "Number of candidates resolved against their registry during the last run",
		}),
		updated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "image_updater_candidates_updated",
			Help: "Number of candidates whose override file changed during the last run",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "image_updater_candidates_failed",
			Help: "Number of candidates that failed to resolve or patch during the last run",
		}),
		total: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_updater_runs_total",
			Help: "Number of update runs since the updater started",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_updater_runs_skipped_total",
			Help: "Number of update runs skipped because another run was in progress",
		}),
		aborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_updater_runs_failed_total",
			Help: "Number of update runs aborted by a synchronization, extraction or push error",
		}),
		pushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_updater_pushes_total",
			Help: "Number of commits pushed to the manifest repository",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_updater_metrics_dropped_total",
			Help: "Number of metrics dropped due to full channel",
		}),
		channel: make(chan *Metric, channelBufferSize),
		stopCh:  make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, collector := range []prometheus.Collector{
		metrics.scanned,
		metrics.updated,
		metrics.failed,
		metrics.total,
		metrics.skipped,
		metrics.aborted,
		metrics.pushes,
		metrics.dropped,
	} {
		if err := registry.Register(collector); err != nil {
			cancel()

			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	go metrics.HandleUpdate()

	return metrics, nil
}

// NewMetric creates a Metric from a run report.
//
// Parameters:
//   - report: Run report, nil if the run aborted before candidates were processed.
//   - pushed: Whether a commit was pushed.
//   - err: Run-level error, if any.
func NewMetric(report types.Report, pushed bool, err error) *Metric {
	metric := &Metric{Pushed: pushed, Aborted: err != nil}

	if report != nil {
		metric.Candidates = len(report.All())
		metric.Scanned = len(report.Scanned())
		metric.Updated = len(report.Updated())
		metric.Fresh = len(report.Fresh())
		metric.Failed = len(report.Failed())
	}

	return metric
}

// QueueIsEmpty checks if the metrics channel is empty.
func (m *Metrics) QueueIsEmpty() bool {
	return len(m.channel) == 0
}

// Register enqueues a metric for processing, dropping it if the channel is full.
func (m *Metrics) Register(metric *Metric) {
	select {
	case m.channel <- metric:
	default:
		m.dropped.Inc()
	}
}

// RegisterRun enqueues the metric of a completed run.
func (m *Metrics) RegisterRun(metric *Metric) {
	m.Register(metric)
}

// RegisterSkipped records a run that was skipped because another run was in progress.
func (m *Metrics) RegisterSkipped() {
	m.Register(nil)
}

// Default initializes or returns the singleton Metrics handler registered with the default registry.
//
// It panics on registration failure.
func Default() *Metrics {
	if metrics != nil {
		return metrics
	}

	var err error

	metrics, err = NewWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		alreadyRegistered := &prometheus.AlreadyRegisteredError{}
		if errors.As(err, &alreadyRegistered) {
			panic(fmt.Sprintf("metrics registered twice: %v", err))
		}

		panic(err)
	}

	return metrics
}

// Shutdown stops the processing goroutine. It is safe to call more than once.
func (m *Metrics) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.stopCh)
		m.cancel()
	})
}

// HandleUpdate processes metrics from the channel until shutdown.
func (m *Metrics) HandleUpdate() {
	for {
		select {
		case change, ok := <-m.channel:
			if !ok {
				return
			}

			m.apply(change)
		case <-m.stopCh:
			return
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Metrics) apply(change *Metric) {
	m.total.Inc()

	if change == nil {
		m.skipped.Inc()

		return
	}

	m.scanned.Set(float64(change.Scanned))
	m.updated.Set(float64(change.Updated))
	m.failed.Set(float64(change.Failed))

	if change.Pushed {
		m.pushes.Inc()
	}

	if change.Aborted {
		m.aborted.Inc()
	}
}
