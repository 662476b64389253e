// Package graphserver exposes query execution and node expansion over a
// small local HTTP API: a request comes in with connection parameters and a
// query, the matching database adapter executes it, and the columnar result
// is converted into a node/edge graph for the response.
package graphserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spangraph/spangraph/internal/config"
)

// Server is the local query server. Start binds the listener and serves on a
// background goroutine; Stop shuts the listener down and is safe to call
// multiple times and from a process-exit hook. In-flight requests run on
// their own goroutines and finish independently of the listener.
type Server struct {
	host    string
	port    int
	cache   *InstanceCache
	metrics *serverMetrics
	log     *zap.Logger

	httpServer *http.Server
	addr       string
	stopOnce   sync.Once
}

// New creates a server that listens on cfg.Host:cfg.Port (port 0 binds an
// ephemeral port) and owns its instance cache.
func New(cfg config.ServerConfig, mockRowLimit int64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("GraphServer")
	return &Server{
		host:    cfg.Host,
		port:    cfg.Port,
		cache:   NewInstanceCache(mockRowLimit, log),
		metrics: newServerMetrics(),
		log:     log,
	}
}

// Start binds the listener and begins serving. It returns once the address
// is bound; serving continues in the background until Stop.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.host, s.port))
	if err != nil {
		return fmt.Errorf("failed to bind listener on %s:%d: %w", s.host, s.port, err)
	}

	s.addr = listener.Addr().String()
	s.httpServer = &http.Server{Handler: s.routes()}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server terminated unexpectedly", zap.Error(err))
		}
	}()

	s.log.Info("graph server listening", zap.String("addr", s.addr))
	return nil
}

// Addr returns the bound listen address, empty before Start.
func (s *Server) Addr() string {
	return s.addr
}

// URL returns the base URL of the running server.
func (s *Server) URL() string {
	return "http://" + s.addr
}

// Stop shuts the listener down, waiting for in-flight requests up to the
// context deadline. Subsequent calls are no-ops.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if s.httpServer == nil {
			return
		}
		err = s.httpServer.Shutdown(ctx)
		s.log.Info("graph server stopped")
	})
	return err
}

// routes wires the endpoint handlers onto a fresh mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /get_ping", s.handleGetPing)
	mux.HandleFunc("POST /post_ping", s.handlePostPing)
	mux.HandleFunc("POST /post_query", s.handlePostQuery)
	mux.HandleFunc("POST /post_node_expansion", s.handlePostNodeExpansion)
	mux.Handle("GET /metrics", s.metrics.handler())
	return s.withRequestLog(mux)
}

// withRequestLog tags every request with an id and records duration and the
// per-endpoint counter.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()

		next.ServeHTTP(w, r)

		s.metrics.requestsTotal.WithLabelValues(r.URL.Path).Inc()
		s.log.Debug("request handled",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}
