// Package api wires the HTTP API of the image updater: the webhook trigger, the metrics endpoint
// and the health check.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/api"
	metricsAPI "github.com/nicholas-fedor/gitops-image-updater/pkg/api/metrics"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/api/update"
)

// HealthPath is the unauthenticated liveness endpoint.
const HealthPath = "/health"

// Options configures the HTTP API.
type Options struct {
	Host          string              // Host to bind to; empty binds all interfaces.
	Port          string              // Port to bind to.
	Secret        string              // Shared secret expected in the X-Secret header.
	Prefix        string              // Path the trigger is mounted on.
	EnableMetrics bool                // Serve Prometheus metrics.
	Gatherer      prometheus.Gatherer // Source of served metrics; defaults to the default gatherer.
	Lock          chan bool           // Run lock shared with scheduled runs.
	RunUpdate     update.Func         // Executes one update run.
	OnSkipped     func()              // Called when a trigger is refused because a run is in progress.
}

// GetAPIAddr formats the API address string based on host and port, bracketing IPv6 hosts.
func GetAPIAddr(host, port string) string {
	address := host + ":" + port
	if host != "" && strings.Contains(host, ":") && net.ParseIP(host) != nil {
		address = "[" + host + "]:" + port
	}

	return address
}

// TriggerPattern returns the ServeMux pattern matching GET requests to exactly prefix.
func TriggerPattern(prefix string) string {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	if strings.HasSuffix(prefix, "/") {
		prefix += "{$}"
	}

	return http.MethodGet + " " + prefix
}

// New builds the HTTP API with every endpoint enabled by opts registered.
func New(opts Options, server ...api.HTTPServer) *api.API {
	httpAPI := api.New(opts.Secret, GetAPIAddr(opts.Host, opts.Port), server...)

	updateHandler := update.New(opts.RunUpdate, opts.Lock)
	updateHandler.OnSkipped = opts.OnSkipped
	httpAPI.RegisterFunc(TriggerPattern(opts.Prefix), httpAPI.RequireSecret(updateHandler.Handle))

	if opts.EnableMetrics {
		gatherer := opts.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}

		metricsHandler := metricsAPI.New(gatherer)
		httpAPI.RegisterFunc(http.MethodGet+" "+metricsHandler.Path, httpAPI.RequireSecret(metricsHandler.Handle))
	}

	httpAPI.RegisterFunc(http.MethodGet+" "+HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})

	logrus.WithFields(logrus.Fields{
		"trigger": TriggerPattern(opts.Prefix),
		"metrics": opts.EnableMetrics,
	}).Debug("Registered API handlers")

	return httpAPI
}

// SetupAndStartAPI builds and starts the HTTP API.
//
// When block is true it serves until ctx is canceled.
func SetupAndStartAPI(ctx context.Context, opts Options, block bool, server ...api.HTTPServer) error {
	if err := New(opts, server...).Start(ctx, block); err != nil {
		logrus.WithError(err).Error("Failed to start API")

		return fmt.Errorf("failed to start HTTP API: %w", err)
	}

	return nil
}
