package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shogotsuneto/presto-driver/internal/config"
	"github.com/shogotsuneto/presto-driver/internal/db"
	"github.com/shogotsuneto/presto-driver/internal/driver"
	"github.com/shogotsuneto/presto-driver/internal/middleware"
)

const shutdownTimeout = 5 * time.Second

// Server exposes one driver per configured connection over HTTP
type Server struct {
	connections *config.ConnectionsConfig
	drivers     map[string]*driver.Driver
	chain       middleware.Chain

	done     chan struct{}
	doneOnce sync.Once
}

// Response is the JSON envelope of error responses
type Response struct {
	Error string `json:"error,omitempty"`
}

// New creates a server with a driver for every connection profile. Nothing is
// opened until a request needs the engine.
func New(connections *config.ConnectionsConfig, serverCfg *config.ServerConfig, opts ...db.Option) (*Server, error) {
	if connections == nil || len(connections.Connections) == 0 {
		return nil, fmt.Errorf("at least one connection must be configured")
	}

	chain, err := middleware.CreateMiddlewareChain(serverCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create middleware chain: %w", err)
	}

	drivers := make(map[string]*driver.Driver, len(connections.Connections))
	for _, profile := range connections.Connections {
		drivers[profile.ID] = driver.New(db.NewConnection(profile, opts...))
	}

	return &Server{
		connections: connections,
		drivers:     drivers,
		chain:       chain,
		done:        make(chan struct{}),
	}, nil
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /connections", s.handleListConnections)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.route(mux, "POST /connections/{id}/open", s.handleOpen)
	s.route(mux, "POST /connections/{id}/close", s.handleClose)
	s.route(mux, "POST /connections/{id}/test", s.handleTest)
	s.route(mux, "POST /connections/{id}/query", s.handleQuery)
	s.route(mux, "POST /connections/{id}/children", s.handleChildren)
	s.route(mux, "POST /connections/{id}/search", s.handleSearch)
	s.route(mux, "GET /connections/{id}/completions", s.handleCompletions)
	s.route(mux, "POST /connections/{id}/records", s.handleRecords)
	s.route(mux, "POST /connections/{id}/describe", s.handleDescribe)
	return mux
}

type driverHandler func(w http.ResponseWriter, r *http.Request, d *driver.Driver)

// route registers a connection endpoint behind the middleware chain
func (s *Server) route(mux *http.ServeMux, pattern string, h driverHandler) {
	mux.HandleFunc(pattern, s.chain.Wrap(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		profile, ok := s.connections.Find(id)
		if !ok {
			s.writeErrorResponse(w, fmt.Sprintf("Connection '%s' not found", id), http.StatusNotFound)
			return
		}
		h(w, r, s.drivers[profile.ID])
	}))
}

// Start serves on port until ctx is cancelled, then shuts down gracefully and
// closes every connection
func (s *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		if err := s.Close(); err != nil {
			log.Printf("Error closing connections: %v", err)
		}
		s.doneOnce.Do(func() { close(s.done) })
	}()

	log.Printf("Server starting on %s", srv.Addr)
	log.Printf("Available endpoints:")
	log.Printf("  GET  /health                        - Health check")
	log.Printf("  GET  /connections                   - List configured connections")
	log.Printf("  POST /connections/{id}/query        - Run SQL statements")
	log.Printf("  POST /connections/{id}/children     - Explorer children")
	log.Printf("  POST /connections/{id}/search       - Table and column search")
	log.Printf("  GET  /metrics                       - Prometheus metrics")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Done is closed once a Start cancelled through its context has finished
// shutting down
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Close closes every open connection
func (s *Server) Close() error {
	var errs []error
	for _, profile := range s.connections.Connections {
		if err := s.drivers[profile.ID].Close(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, Response{Error: message})
}
