// Package gateway serves the voice provider: signed webhooks for the call
// menu and the duplex conversation stream.
package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/switchboard/internal/agent"
	"github.com/soyeahso/switchboard/internal/config"
	"github.com/soyeahso/switchboard/internal/hooks"
	"github.com/soyeahso/switchboard/internal/ivr"
	"github.com/soyeahso/switchboard/internal/logging"
	"github.com/soyeahso/switchboard/internal/metrics"
	"github.com/soyeahso/switchboard/internal/ratelimit"
	"github.com/soyeahso/switchboard/internal/telephony"
	"github.com/soyeahso/switchboard/internal/version"
)

var ErrStreamClosed = errors.New("stream connection closed")

// maxStreamFrame bounds a single inbound stream message.
const maxStreamFrame = 64 * 1024

// Server is the Switchboard HTTP + WebSocket server.
type Server struct {
	cfg      config.Config
	log      *logging.Logger
	machine  *ivr.Machine
	verifier *telephony.Verifier
	limiter  ratelimit.Limiter
	driver   *agent.Driver
	streams  *StreamRegistry
	version  string

	// Optional collaborators.
	hooks   *hooks.Manager
	metrics *metrics.Metrics

	now        func() time.Time
	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader

	// Open stream sessions; Serve waits for them before returning.
	mu       sync.Mutex
	draining bool
	active   sync.WaitGroup
}

// ServerOption configures the gateway server.
type ServerOption func(*Server)

// WithHooks sets the hook manager for lifecycle events.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) {
		s.hooks = hm
	}
}

// WithMetrics records webhook outcomes and serves /metrics when enabled.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLimiter replaces the default in-memory limiter.
func WithLimiter(l ratelimit.Limiter) ServerOption {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithDriver enables the conversation stream endpoint.
func WithDriver(d *agent.Driver) ServerOption {
	return func(s *Server) {
		s.driver = d
	}
}

// WithClock overrides time.Now for stream token checks.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a new gateway server around the menu state machine.
func New(cfg config.Config, machine *ivr.Machine, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log.Sub("gateway"),
		machine:  machine,
		verifier: telephony.NewVerifier(cfg.Telephony.AuthToken, cfg.Gateway.PublicBaseURL, cfg.Gateway.TrustProxy),
		streams:  NewStreamRegistry(log.Sub("streams")),
		version:  version.Version,
		now:      time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.Gateway.AllowedOrigins),
		},
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewMemory(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())
	}
	return s
}

// checkWebSocketOrigin returns a function that validates WebSocket Origin headers.
// The provider's media stream sends no Origin; browsers must match the allowlist.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan", "auto":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)
	return withMiddleware(mux, s.log, s.cfg.Gateway.AllowedOrigins)
}

// Start begins listening for HTTP and WebSocket connections.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Gateway)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.Gateway.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(s.cfg.Gateway.TLS.CertPath, s.cfg.Gateway.TLS.KeyPath)
		if err != nil {
			ln.Close()
			return fmt.Errorf("loading TLS certificate: %w", err)
		}
		tlsCfg := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		ln = tls.NewListener(ln, tlsCfg)
		s.log.Info().Msg("TLS enabled")
	} else if s.cfg.Gateway.Bind != "loopback" && s.cfg.Gateway.PublicBaseURL == "" {
		s.log.Warn().Msg("TLS is not enabled and no public base URL is set; webhooks must reach this server through a TLS proxy")
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. It returns once
// every open stream session has flushed its call summary.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// Stream connections outlive WriteTimeout, so only reads and idle are bounded.
	s.httpServer = &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(l net.Listener) context.Context { return ctx },
	}
	s.startedAt = s.now()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Gateway.Bind).
		Bool("stream", s.driver != nil).
		Bool("metrics", s.metricsEnabled()).
		Msg("gateway server starting")

	if s.hooks != nil {
		s.hooks.Emit(ctx, hooks.EventGatewayStart, map[string]any{
			"addr": ln.Addr().String(),
		})
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		if s.hooks != nil {
			s.hooks.Emit(context.Background(), hooks.EventGatewayStop, nil)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.streams.CloseAll()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	// Hijacked stream connections are not tracked by Shutdown.
	<-stopped
	s.drain()
	s.log.Info().Msg("gateway server stopped")
	return nil
}

// track registers a stream session. It reports false once the server has
// started draining.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		return false
	}
	s.active.Add(1)
	return true
}

// drain refuses new stream sessions and waits for the open ones to finish.
func (s *Server) drain() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	s.active.Wait()
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// Streams returns the registry of open conversation streams.
func (s *Server) Streams() *StreamRegistry { return s.streams }

func (s *Server) metricsEnabled() bool {
	return s.metrics != nil && s.cfg.Metrics.Enabled
}
