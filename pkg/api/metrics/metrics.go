// Package metrics provides the HTTP handler exposing run metrics in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Path is the endpoint serving metrics.
const Path = "/v1/metrics"

// Handler is an HTTP handle for serving metric data.
type Handler struct {
	Path   string
	Handle http.HandlerFunc
}

// New creates a Handler serving the metrics gathered by gatherer.
func New(gatherer prometheus.Gatherer) *Handler {
	handler := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})

	return &Handler{
		Path:   Path,
		Handle: handler.ServeHTTP,
	}
}
