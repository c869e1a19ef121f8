package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"castboard/internal/btime"
	"castboard/internal/export"
	"castboard/internal/metrics"
	"castboard/internal/models"
	"castboard/internal/snapshot"
	"castboard/internal/timeline"
)

// snapshotFor resolves the day sheet for an optional ?date=M/D query.
// The polled snapshot is served when it covers the requested sheet;
// other days are built on demand.
func (s *HTTPServer) snapshotFor(r *http.Request) (*snapshot.Snapshot, time.Time, error) {
	now := s.now()
	selected := now

	if dateParam := r.URL.Query().Get("date"); dateParam != "" {
		parsed, err := btime.ParseSheetDate(dateParam, now)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("invalid date %q; expected M/D", dateParam)
		}
		selected = parsed
	}

	sheetName := btime.GridSheetName(selected, now)

	if cur := s.snapshots.Current(); cur != nil && cur.Date == sheetName {
		return cur, selected, nil
	}

	snap, err := s.snapshots.Build(r.Context(), sheetName)
	if err != nil {
		return nil, time.Time{}, err
	}
	return snap, selected, nil
}

func (s *HTTPServer) views(snap *snapshot.Snapshot, selected time.Time) []timeline.WorkerView {
	s.mu.RLock()
	overrides := make(map[string]bool, len(s.overrides))
	for name, closed := range s.overrides {
		overrides[name] = closed
	}
	s.mu.RUnlock()

	return timeline.BuildViews(snap.Workers, snap.Attendance, snap.Index, overrides, selected, s.now(), s.opts)
}

// WorkerSummary is the roster entry for GET /api/workers.
type WorkerSummary struct {
	Name         string                  `json:"name"`
	Aliases      map[models.Brand]string `json:"aliases"`
	Reservations int                     `json:"reservations"`
	Attendance   *models.TimeInterval    `json:"attendance,omitempty"`
	Status       models.Status           `json:"status"`
}

// handleWorkers returns the deduplicated roster with availability.
// GET /api/workers?date=M/D
func (s *HTTPServer) handleWorkers(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("workers")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, selected, err := s.snapshotFor(r)
	if err != nil {
		s.log.Error().Err(err).Msg("Workers snapshot unavailable")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	views := s.views(snap, selected)
	workers := make([]WorkerSummary, 0, len(views))
	for _, view := range views {
		workers = append(workers, WorkerSummary{
			Name:         view.Worker.Name,
			Aliases:      view.Worker.Aliases,
			Reservations: len(view.Worker.Reservations),
			Attendance:   view.Attendance,
			Status:       view.Status,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"date":    snap.Date,
		"workers": workers,
	})
}

// handleTimeline returns per-worker reconciled slots.
// GET /api/timeline?date=M/D
func (s *HTTPServer) handleTimeline(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("timeline")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, selected, err := s.snapshotFor(r)
	if err != nil {
		s.log.Error().Err(err).Msg("Timeline snapshot unavailable")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"date":      snap.Date,
		"fetchedAt": snap.FetchedAt,
		"workers":   s.views(snap, selected),
	})
}

// handleStaff returns the staff name list.
// GET /api/staff
func (s *HTTPServer) handleStaff(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("staff")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	staff, err := s.staff.FetchStaff(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Staff fetch failed")
		writeError(w, http.StatusServiceUnavailable, "failed to fetch staff list")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "staffList": staff})
}

// ClosedToggleRequest flips a worker's manual open/closed override.
type ClosedToggleRequest struct {
	Name   string `json:"name"`
	Closed bool   `json:"closed"`
}

// handleClosedToggle records a manual availability override for the
// rest of the session. POST /api/closed
func (s *HTTPServer) handleClosedToggle(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("closed_toggle")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ClosedToggleRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	s.mu.Lock()
	s.overrides[req.Name] = req.Closed
	s.mu.Unlock()

	s.log.Info().Str("name", req.Name).Bool("closed", req.Closed).Msg("Availability override set")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleExport streams the day report workbook.
// GET /api/export?date=M/D
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, selected, err := s.snapshotFor(r)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writer := export.NewExcelWriter()
	defer writer.Close()

	if err := export.WriteDayReport(writer, snap.Date, s.views(snap, selected), snap.Receptions); err != nil {
		s.log.Error().Err(err).Msg("Day report build failed")
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	var buf bytes.Buffer
	if err := writer.Save(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode report")
		return
	}

	filename := fmt.Sprintf("castboard_%s.xlsx", strings.ReplaceAll(snap.Date, "/", "-"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
