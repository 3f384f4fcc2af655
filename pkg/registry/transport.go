package registry

import (
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimitedTransport paces requests per registry host.
type RateLimitedTransport struct {
	next    http.RoundTripper
	limit   rate.Limit
	burst   int
	mutex   sync.Mutex
	perHost map[string]*rate.Limiter
}

// NewRateLimitedTransport wraps next so that each host receives at most rps requests per second.
//
// A non-positive rps disables pacing.
func NewRateLimitedTransport(next http.RoundTripper, rps float64) *RateLimitedTransport {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &RateLimitedTransport{
		next:    next,
		limit:   rate.Limit(rps),
		burst:   burst,
		perHost: map[string]*rate.Limiter{},
	}
}

// RoundTrip waits for the host's limiter, then forwards the request.
func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limit > 0 {
		// Wait fails early when the context deadline cannot be met.
		if err := t.limiter(req.URL.Host).Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limited: %w", err)
		}
	}

	return t.next.RoundTrip(req)
}

func (t *RateLimitedTransport) limiter(host string) *rate.Limiter {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	limiter, ok := t.perHost[host]
	if !ok {
		limiter = rate.NewLimiter(t.limit, t.burst)
		t.perHost[host] = limiter
	}

	return limiter
}
