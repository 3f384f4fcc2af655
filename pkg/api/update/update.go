package update

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/metrics"
)

// RetryAfter is the delay suggested to callers refused because a run is in progress.
const RetryAfter = 30 * time.Second

// apiVersion is reported in every response body.
const apiVersion = "v1"

// Func executes one update run.
//
// It returns the run summary, which must be non-nil even when the run aborted, and the
// run-level error, if any.
type Func func(ctx context.Context) (*metrics.Metric, error)

// Handler triggers update runs over HTTP.
type Handler struct {
	fn        Func
	lock      chan bool
	OnSkipped func() // Called when a request is refused because a run is in progress.
}

// New creates a Handler running fn while holding lock.
//
// A nil lock gets a fresh one, which only serializes requests to this handler.
func New(fn Func, lock chan bool) *Handler {
	if lock == nil {
		lock = make(chan bool, 1)
		lock <- true

		logrus.Debug("Initialized new update lock channel")
	}

	return &Handler{
		fn:   fn,
		lock: lock,
	}
}

// Handle runs one update and responds with its summary.
//
// Responds 429 with a Retry-After header if a run is already in progress, 500 if the run aborted
// and 200 otherwise. The request body is ignored.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Info("Update triggered by webhook")

	select {
	case token := <-h.lock:
		defer func() {
			h.lock <- token
		}()
	default:
		logrus.Info("Skipped update, another update already in progress")

		if h.OnSkipped != nil {
			h.OnSkipped()
		}

		w.Header().Set("Retry-After", strconv.Itoa(int(RetryAfter.Seconds())))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":       "another update is already running",
			"api_version": apiVersion,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})

		return
	}

	// A caller hanging up must not interrupt a run halfway through a push.
	ctx := context.WithoutCancel(r.Context())

	startTime := time.Now()
	metric, err := h.fn(ctx)
	duration := time.Since(startTime)

	if metric == nil {
		metric = &metrics.Metric{Aborted: err != nil}
	}

	response := map[string]any{
		"summary": map[string]any{
			"candidates": metric.Candidates,
			"updated":    metric.Updated,
			"fresh":      metric.Fresh,
			"failed":     metric.Failed,
			"pushed":     metric.Pushed,
		},
		"timing": map[string]any{
			"duration_ms": duration.Milliseconds(),
			"duration":    duration.String(),
		},
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"api_version": apiVersion,
	}

	status := http.StatusOK

	if err != nil {
		status = http.StatusInternalServerError
		response["error"] = err.Error()
	}

	writeJSON(w, status, response)
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	var buf bytes.Buffer

	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		logrus.WithError(err).Error("Failed to encode JSON response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(buf.Bytes()); err != nil {
		logrus.WithError(err).Error("Failed to write response")
	}
}
