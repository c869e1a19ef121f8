// Package api exposes the reconciled dashboard model over HTTP. The
// server is read-mostly: everything except the booking write-back and
// the manual open/closed toggle serves straight out of the current
// snapshot.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"castboard/internal/events"
	"castboard/internal/models"
	"castboard/internal/snapshot"
	"castboard/internal/timeline"
)

// SnapshotSource serves day snapshots: the polled current one plus
// on-demand builds for other dates.
type SnapshotSource interface {
	Current() *snapshot.Snapshot
	Build(ctx context.Context, date string) (*snapshot.Snapshot, error)
}

// BookingWriter is the write-back slice of the sheets adapter.
type BookingWriter interface {
	AppendReception(ctx context.Context, date string, rec models.ReceptionRecord) (int, error)
	UpdateReception(ctx context.Context, date string, rec models.ReceptionRecord) error
}

// StaffSource lists the staff names for the booking form.
type StaffSource interface {
	FetchStaff(ctx context.Context) ([]string, error)
}

// HTTPServer is the dashboard API server.
type HTTPServer struct {
	server    *http.Server
	log       *zerolog.Logger
	snapshots SnapshotSource
	writer    BookingWriter
	staff     StaffSource
	bus       *events.EventBus
	opts      timeline.Options

	// Manual open/closed toggles, keyed by canonical worker name.
	// Deliberately in-memory only: they describe "right now" and must
	// not survive a restart.
	mu        sync.RWMutex
	overrides map[string]bool

	now func() time.Time
}

func NewHTTPServer(
	port int,
	log *zerolog.Logger,
	snapshots SnapshotSource,
	writer BookingWriter,
	staff StaffSource,
	bus *events.EventBus,
	opts timeline.Options,
) *HTTPServer {
	s := &HTTPServer{
		log:       log,
		snapshots: snapshots,
		writer:    writer,
		staff:     staff,
		bus:       bus,
		opts:      opts,
		overrides: make(map[string]bool),
		now:       time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/workers", s.handleWorkers)
	mux.HandleFunc("/api/timeline", s.handleTimeline)
	mux.HandleFunc("/api/staff", s.handleStaff)
	mux.HandleFunc("/api/receptions", s.handleAddReception)
	mux.HandleFunc("/api/receptions/update", s.handleUpdateReception)
	mux.HandleFunc("/api/closed", s.handleClosedToggle)
	mux.HandleFunc("/api/export", s.handleExport)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until the server is shut down.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("API server listening")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
