// Package server wires the echo responder, its middleware and the optional
// admin listener into one process lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	gohealth "github.com/alexliesenfeld/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/tanmay/testbackend/internal/config"
	"github.com/tanmay/testbackend/internal/dashboard"
	"github.com/tanmay/testbackend/internal/echo"
	"github.com/tanmay/testbackend/internal/health"
	"github.com/tanmay/testbackend/internal/middleware"
)

// shutdownTimeout bounds how long Serve waits for in-flight requests once its
// context is cancelled.
const shutdownTimeout = 5 * time.Second

// ErrNotListening is returned by Serve when Listen has not succeeded.
var ErrNotListening = errors.New("server is not listening")

// BindError reports a listener that could not be bound, e.g. because the
// port is taken or needs privileges.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Option configures a Server.
type Option func(*Server)

// WithOutput sets where the lifecycle lines and the per-request access log go.
// Defaults to stdout. Error lines from handlers, health and SSE still use the
// standard logger.
func WithOutput(w io.Writer) Option {
	return func(s *Server) {
		s.out = w
	}
}

// Server owns the echo listener and, when enabled, the admin listener.
type Server struct {
	cfg    *config.Config
	out    io.Writer
	logger *log.Logger

	echoLn  net.Listener
	echoSrv *http.Server

	adminLn  net.Listener
	adminSrv *http.Server

	responder *echo.Responder
	registry  *prometheus.Registry
	store     *dashboard.LogStore
	broker    *dashboard.Broker
	health    *health.HealthChecker
}

// New creates a Server for cfg. Nothing is bound until Listen.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg: cfg,
		out: os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.New(s.out, "", log.LstdFlags)
	return s
}

// Listen binds the echo listener (and the admin listener when enabled) and
// builds the handlers. The echo responder reports the port actually bound,
// so a configured port of 0 yields an ephemeral port.
func (s *Server) Listen() error {
	echoLn, err := listen(s.cfg.Server.Host, s.cfg.Server.Port)
	if err != nil {
		return err
	}

	var adminLn net.Listener
	if s.cfg.Admin.Enabled {
		adminLn, err = listen(s.cfg.Admin.Host, s.cfg.Admin.Port)
		if err != nil {
			echoLn.Close()
			return err
		}
	}

	s.echoLn = echoLn
	s.adminLn = adminLn
	port := echoLn.Addr().(*net.TCPAddr).Port

	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s.responder = echo.NewResponder(port, echo.Variant(s.cfg.Server.Variant))
	s.echoSrv = &http.Server{Handler: s.echoHandler(port)}

	if adminLn != nil {
		s.adminSrv = &http.Server{Handler: s.adminHandler()}
	}

	s.logger.Printf("[backend] Listening on port %d (%s variant)", port, s.responder.Variant())
	if adminLn != nil {
		s.logger.Printf("[admin] Listening on %s", adminLn.Addr())
	}
	return nil
}

// echoHandler chains the request middleware around the responder:
// RequestID → Logging → Metrics → Capture → Recover → Auth → Responder.
// Recover sits inside Logging so a recovered panic is logged as a 500.
func (s *Server) echoHandler(port int) http.Handler {
	metrics := middleware.NewMetrics(s.registry)

	chain := []middleware.Middleware{
		middleware.RequestID(),
		middleware.Logging(s.out, port, s.cfg.Logging.Format),
		metrics.Middleware(),
	}

	// Only the admin listener can read captured requests, so without it the
	// echo path keeps nothing between requests.
	if s.cfg.Admin.Enabled && s.cfg.Dashboard.Enabled {
		s.store = dashboard.NewLogStore(s.cfg.Dashboard.LogCapacity)
		s.broker = dashboard.NewBroker(s.cfg.Dashboard.SSEBuffer)
		chain = append(chain, middleware.Capture(s.store))
	}

	chain = append(chain, middleware.Recover())
	if s.cfg.Auth.Enabled() {
		s.logger.Printf("[backend] auth enabled (%d api keys, jwt: %t)", len(s.cfg.Auth.APIKeys), s.cfg.Auth.JWTSecret != "")
		chain = append(chain, middleware.NewAuth(s.cfg.Auth.APIKeys, s.cfg.Auth.JWTSecret).Middleware())
	}

	return middleware.Chain(s.responder, chain...)
}

// adminHandler serves health, metrics and the request dashboard. It stays off
// the echo listener so every echo path keeps echoing.
func (s *Server) adminHandler() http.Handler {
	s.health = health.NewHealthChecker(s.echoLn.Addr().String(), health.WithStateListener(func(status gohealth.AvailabilityStatus) {
		s.logger.Printf("[admin] echo listener is %s", status)
	}))

	mux := http.NewServeMux()
	mux.Handle("/healthz", s.health.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	if s.store != nil {
		dashboard.NewAPI(s.store, s.broker).Register(mux)
	}

	return middleware.Chain(mux, middleware.Recover())
}

// Serve runs the listeners until ctx is cancelled or one of them fails, then
// shuts everything down. A cancelled context is a clean exit and returns nil.
func (s *Server) Serve(ctx context.Context) error {
	if s.echoLn == nil {
		return ErrNotListening
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.echoSrv.Serve(s.echoLn); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("echo server: %w", err)
		}
		return nil
	})

	if s.adminSrv != nil {
		g.Go(func() error {
			if err := s.adminSrv.Serve(s.adminLn); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

// shutdown stops the admin side first: open SSE streams end when the broker
// closes, which lets the admin server drain.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.broker != nil {
		s.broker.Close()
	}

	var errs []error
	if s.adminSrv != nil {
		if err := s.adminSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin shutdown: %w", err))
		}
	}
	if s.health != nil {
		s.health.Stop()
	}
	if err := s.echoSrv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("echo shutdown: %w", err))
	}

	s.logger.Printf("[backend] stopped")
	return errors.Join(errs...)
}

// EchoAddr returns the bound echo address, or nil before Listen.
func (s *Server) EchoAddr() net.Addr {
	if s.echoLn == nil {
		return nil
	}
	return s.echoLn.Addr()
}

// AdminAddr returns the bound admin address, or nil when the admin listener
// is disabled or not yet bound.
func (s *Server) AdminAddr() net.Addr {
	if s.adminLn == nil {
		return nil
	}
	return s.adminLn.Addr()
}

// Store returns the request log, or nil when the dashboard or the admin
// listener is disabled.
func (s *Server) Store() *dashboard.LogStore {
	return s.store
}

// listen binds a TCP listener, wrapping failures in a BindError.
func listen(host string, port int) (net.Listener, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	return ln, nil
}
