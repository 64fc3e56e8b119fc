// Package health reports whether the echo listener is accepting connections.
package health

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	gohealth "github.com/alexliesenfeld/health"
)

// CheckName identifies the echo listener probe in health reports.
const CheckName = "echo_listener"

// HealthChecker probes the echo listener and exposes the result over HTTP.
// Results are cached briefly so a polling harness does not open a
// connection per poll.
type HealthChecker struct {
	checker   gohealth.Checker
	startTime time.Time
	onChange  func(status gohealth.AvailabilityStatus)
}

// Option configures a HealthChecker.
type Option func(*HealthChecker)

// WithStateListener registers fn to be called when the aggregated status
// flips, including the first transition out of "unknown".
func WithStateListener(fn func(status gohealth.AvailabilityStatus)) Option {
	return func(hc *HealthChecker) {
		hc.onChange = fn
	}
}

// NewHealthChecker creates a HealthChecker for the echo listener at addr.
// The first check starts in the background immediately.
func NewHealthChecker(addr string, opts ...Option) *HealthChecker {
	hc := &HealthChecker{startTime: time.Now()}
	for _, opt := range opts {
		opt(hc)
	}

	hc.checker = gohealth.NewChecker(
		gohealth.WithCacheDuration(time.Second),
		gohealth.WithTimeout(5*time.Second),
		gohealth.WithInfo(map[string]any{
			"echo_addr":  addr,
			"started_at": hc.startTime.UTC().Format(time.RFC3339),
		}),
		gohealth.WithStatusListener(func(ctx context.Context, state gohealth.CheckerState) {
			log.Printf("[health] status changed to %s", state.Status)
			if hc.onChange != nil {
				hc.onChange(state.Status)
			}
		}),
		gohealth.WithCheck(gohealth.Check{
			Name:    CheckName,
			Timeout: 2 * time.Second,
			Check: func(ctx context.Context) error {
				return dial(ctx, addr)
			},
		}),
	)

	return hc
}

// dial opens and closes a TCP connection to addr.
func dial(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("echo listener unreachable: %w", err)
	}
	return conn.Close()
}

// Handler returns the handler for the /healthz endpoint.
// Returns 200 when the listener accepts connections, 503 otherwise.
func (hc *HealthChecker) Handler() http.Handler {
	return gohealth.NewHandler(hc.checker)
}

// Stop releases the checker's background resources.
func (hc *HealthChecker) Stop() {
	hc.checker.Stop()
}
