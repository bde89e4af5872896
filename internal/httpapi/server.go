// Package httpapi exposes a small read-only diagnostic surface over the
// engine's membership table. It is deliberately minimal: one route,
// net/http only, no router framework.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mcastellin/gossip-detector/internal/membership"
	"go.uber.org/zap"
)

// H is a convenience alias for building ad-hoc JSON responses.
type H = map[string]any

// Snapshotter is the read-only view of engine state the server exposes.
type Snapshotter interface {
	SelfAddr() membership.Addr
	Generation() string
	Snapshot() map[membership.Addr]membership.Entry
}

// Server serves GET /nodes with the current membership view as JSON.
type Server struct {
	Addr   string
	Engine Snapshotter
	Logger *zap.Logger
}

func jsonResponse(w http.ResponseWriter, v H) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) nodesHandler(w http.ResponseWriter, r *http.Request) {
	peers := s.Engine.Snapshot()

	out := make([]H, 0, len(peers))
	for addr, entry := range peers {
		out = append(out, H{
			"addr":          addr,
			"heartbeat":     entry.Heartbeat,
			"state":         entry.State.String(),
			"failure_count": entry.FailureCount,
		})
	}
	jsonResponse(w, H{
		"self":       s.Engine.SelfAddr(),
		"generation": s.Engine.Generation(),
		"nodes":      out,
	})
}

// Serve blocks until ctx is canceled, then shuts the HTTP server down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/nodes", s.nodesHandler)

	srv := &http.Server{Addr: s.Addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.Logger.Warn("http status server shutdown error", zap.Error(err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
