package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// SecretHeader is the request header carrying the shared secret.
const SecretHeader = "X-Secret"

// Server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
	idleTimeout       = 60 * time.Second
)

// errEmptySecret indicates the server was started without a shared secret.
var errEmptySecret = errors.New("API secret is empty or unset")

// API represents the HTTP API server.
type API struct {
	secret      string
	Addr        string
	hasHandlers bool
	mux         *http.ServeMux // Custom mux to avoid global collisions
	server      HTTPServer     // Optional injected server for testing
}

// HTTPServer is the subset of http.Server used by API.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// New creates an API guarded by secret and listening on addr.
// The server parameter is optional and allows dependency injection for testing.
func New(secret, addr string, server ...HTTPServer) *API {
	var injectedServer HTTPServer
	if len(server) > 0 {
		injectedServer = server[0]
	}

	logrus.WithField("addr", addr).Debug("Initialized new API instance")

	return &API{
		secret: secret,
		Addr:   addr,
		mux:    http.NewServeMux(),
		server: injectedServer,
	}
}

// RegisterFunc registers an HTTP handler function for the given pattern.
func (a *API) RegisterFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	a.mux.HandleFunc(pattern, handler)
	a.hasHandlers = true
}

// RegisterHandler registers an HTTP handler for the given pattern.
func (a *API) RegisterHandler(pattern string, handler http.Handler) {
	a.mux.Handle(pattern, handler)
	a.hasHandlers = true
}

// Handler returns the request router.
func (a *API) Handler() http.Handler {
	return a.mux
}

// RequireSecret wraps handler with shared-secret validation.
//
// Requests are rejected with 401 unless the X-Secret header equals the configured secret exactly.
// The response never tells a missing header from a wrong one.
func (a *API) RequireSecret(handler func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.authorized(r) {
			logrus.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
				"remote": r.RemoteAddr,
			}).Warn("Rejected unauthorized request")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)

			return
		}

		handler(w, r)
	}
}

func (a *API) authorized(r *http.Request) bool {
	if a.secret == "" {
		return false
	}

	// Only the first value counts when the header is repeated.
	presented := r.Header.Get(SecretHeader)

	return subtle.ConstantTimeCompare([]byte(presented), []byte(a.secret)) == 1
}

// Start starts the server.
//
// When block is true, Start serves until ctx is canceled and then shuts the server down.
// Otherwise it serves in the background and shuts down once ctx is canceled.
func (a *API) Start(ctx context.Context, block bool) error {
	if !a.hasHandlers {
		logrus.Info("No handlers registered, skipping API start")

		return nil
	}

	if a.secret == "" {
		return errEmptySecret
	}

	server := a.server
	if server == nil {
		server = &http.Server{
			Addr:              a.Addr,
			Handler:           a.mux,
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       idleTimeout,
			BaseContext:       func(_ net.Listener) context.Context { return ctx },
		}
	}

	logrus.WithField("addr", a.Addr).Info("Starting HTTP API server")

	if block {
		return RunHTTPServer(ctx, server)
	}

	go func() {
		if err := RunHTTPServer(ctx, server); err != nil {
			logrus.WithError(err).Error("HTTP server failed")
		}
	}()

	return nil
}

// RunHTTPServer serves until the server fails or ctx is canceled, then shuts it down gracefully.
func RunHTTPServer(ctx context.Context, server HTTPServer) error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		return nil
	}
}
