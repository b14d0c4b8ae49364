// Package server exposes the optional local status endpoints: health,
// counters, a live gesture feed and an MJPEG preview.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ayusman/handrunner/internal/store"
)

// Config holds the server configuration.
type Config struct {
	Hub    *Hub
	Store  *store.Store // optional history journal
	Logger *slog.Logger
}

// Server is the status HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a Server. A nil Hub gets a fresh one.
func New(config Config) *Server {
	if config.Hub == nil {
		config.Hub = NewHub()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.Handle("GET /api/events", NewEventsHandler(s.config.Hub, s.config.Logger))
	s.mux.Handle("GET /api/stream", NewStreamHandler(s.config.Hub))

	if s.config.Store != nil {
		s.mux.HandleFunc("GET /api/sessions", s.handleSessions)
		s.mux.HandleFunc("GET /api/sessions/{id}/events", s.handleSessionEvents)
	}
}

// Hub returns the hub the server reads from.
func (s *Server) Hub() *Hub {
	return s.config.Hub
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.config.Hub.Stats())
}

type sessionResponse struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
	Counts    map[string]int `json:"counts"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.config.Store.Sessions().List()
	if err != nil {
		s.internalError(w, "list sessions", err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		counts, err := s.config.Store.Events().CountByGesture(sess.ID)
		if err != nil {
			s.internalError(w, "count events", err)
			return
		}
		out = append(out, sessionResponse{
			ID:        sess.ID,
			Source:    sess.Source,
			StartedAt: sess.StartedAt,
			EndedAt:   sess.EndedAt,
			Counts:    counts,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type eventResponse struct {
	ID      string    `json:"id"`
	Gesture string    `json:"gesture"`
	Key     string    `json:"key"`
	Fingers string    `json:"fingers"`
	Error   string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.config.Store.Sessions().Get(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		s.internalError(w, "get session", err)
		return
	}

	events, err := s.config.Store.Events().ListBySession(id)
	if err != nil {
		s.internalError(w, "list events", err)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			ID:      e.ID,
			Gesture: e.Gesture,
			Key:     e.Key,
			Fingers: e.Fingers,
			Error:   e.Error,
			Time:    e.OccurredAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) internalError(w http.ResponseWriter, what string, err error) {
	s.config.Logger.Error("status request failed", "op", what, "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("status server listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.config.Logger.Info("status server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("status server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			err = srv.Close()
		}
		<-errCh
		if err != nil {
			return fmt.Errorf("status server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
