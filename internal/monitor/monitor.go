// Package monitor is the HTTP side surface of the tracer: Prometheus
// metrics, readiness, and the trace state as JSON for headless renderers.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openvehicletools/can-tracer/internal/hub"
	"github.com/openvehicletools/can-tracer/internal/logging"
	"github.com/openvehicletools/can-tracer/internal/metrics"
	"github.com/openvehicletools/can-tracer/internal/tracer"
)

const (
	defaultAddr   = ":9323"
	shutdownGrace = 3 * time.Second
)

// Server serves /metrics, /ready, /api/state and /api/stream.
type Server struct {
	mu        sync.RWMutex
	addr      string
	hub       *hub.Hub
	readyOnce sync.Once
	readyCh   chan struct{}
	logger    *slog.Logger
}

type Option func(*Server)

func NewServer(opts ...Option) *Server {
	s := &Server{
		addr:    defaultAddr,
		readyCh: make(chan struct{}),
		logger:  logging.L(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func WithListenAddr(a string) Option { return func(s *Server) { s.addr = a } }
func WithHub(h *hub.Hub) Option      { return func(s *Server) { s.hub = h } }

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func (s *Server) Addr() string     { s.mu.RLock(); defer s.mu.RUnlock(); return s.addr }
func (s *Server) setAddr(a string) { s.mu.Lock(); s.addr = a; s.mu.Unlock() }

// Ready is closed once the listener is bound; Addr is final after that.
func (s *Server) Ready() <-chan struct{} { return s.readyCh }

// Serve binds the listener and serves until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		metrics.IncError(metrics.ErrMonitorHTTP)
		return fmt.Errorf("monitor listen: %w", err)
	}
	s.setAddr(ln.Addr().String())
	s.readyOnce.Do(func() { close(s.readyCh) })
	s.logger.Info("monitor_listen", "addr", s.Addr())

	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("monitor shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			metrics.IncError(metrics.ErrMonitorHTTP)
			return fmt.Errorf("monitor serve: %w", err)
		}
		return nil
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/stream", s.handleStream)
	return mux
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if metrics.IsReady() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready\n"))
}

// handleState serves the latest published snapshot. Before the first tick
// it serves the zero (disconnected, empty) state rather than an error.
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	var snap tracer.Snapshot
	if s.hub != nil {
		if latest, ok := s.hub.Latest(); ok {
			snap = latest
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(StateFrom(snap)); err != nil {
		metrics.IncError(metrics.ErrMonitorHTTP)
	}
}

// handleStream sends one JSON state line per published snapshot until the
// client goes away or the hub detaches it.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "no snapshot source", http.StatusServiceUnavailable)
		return
	}
	fl, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusNotImplemented)
		return
	}
	c := s.hub.Subscribe(0) // hub-configured buffer
	defer s.hub.Unsubscribe(c)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	fl.Flush()
	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.Closed:
			return
		case snap := <-c.Out:
			if err := enc.Encode(StateFrom(snap)); err != nil {
				metrics.IncError(metrics.ErrMonitorHTTP)
				return
			}
			fl.Flush()
		}
	}
}
