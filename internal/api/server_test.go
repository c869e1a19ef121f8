package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castboard/internal/events"
	"castboard/internal/models"
	"castboard/internal/reception"
	"castboard/internal/snapshot"
	"castboard/internal/store"
	"castboard/internal/timeline"
)

type stubSnapshots struct {
	current  *snapshot.Snapshot
	built    *snapshot.Snapshot
	buildErr error
}

func (s *stubSnapshots) Current() *snapshot.Snapshot { return s.current }

func (s *stubSnapshots) Build(context.Context, string) (*snapshot.Snapshot, error) {
	return s.built, s.buildErr
}

type stubWriter struct {
	appendRow  int
	appendErr  error
	updateErr  error
	lastDate   string
	lastRecord models.ReceptionRecord
}

func (w *stubWriter) AppendReception(_ context.Context, date string, rec models.ReceptionRecord) (int, error) {
	w.lastDate = date
	w.lastRecord = rec
	return w.appendRow, w.appendErr
}

func (w *stubWriter) UpdateReception(_ context.Context, date string, rec models.ReceptionRecord) error {
	w.lastDate = date
	w.lastRecord = rec
	return w.updateErr
}

type stubStaff struct {
	names []string
	err   error
}

func (s *stubStaff) FetchStaff(context.Context) ([]string, error) {
	return s.names, s.err
}

var testNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.Local)

func testSnapshot() *snapshot.Snapshot {
	w := &models.Worker{Name: "ねね"}
	w.SetAlias(models.BrandGohobi, "ねね")
	w.Reservations = []models.ReservationBlock{{
		Brand:    models.BrandGohobi,
		Interval: models.TimeInterval{Start: 600, End: 660},
	}}

	return &snapshot.Snapshot{
		Date:    "8/29",
		Workers: []*models.Worker{w},
		Attendance: map[string]models.AttendanceInterval{
			"ねね": {Name: "ねね", Brand: models.BrandGohobi, Interval: models.TimeInterval{Start: 600, End: 1100}},
		},
		Index:     reception.BuildIndex(nil),
		FetchedAt: testNow,
	}
}

func newTestServer(snaps SnapshotSource, writer BookingWriter, staff StaffSource, bus *events.EventBus) *HTTPServer {
	logger := zerolog.Nop()
	s := NewHTTPServer(0, &logger, snaps, writer, staff, bus, timeline.DefaultOptions())
	s.now = func() time.Time { return testNow }
	return s
}

func doRequest(t *testing.T, s *HTTPServer, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleWorkers(t *testing.T) {
	s := newTestServer(&stubSnapshots{current: testSnapshot()}, nil, nil, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/workers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool            `json:"success"`
		Date    string          `json:"date"`
		Workers []WorkerSummary `json:"workers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, "8/29", resp.Date)
	require.Len(t, resp.Workers, 1)
	assert.Equal(t, "ねね", resp.Workers[0].Name)
	assert.Equal(t, models.StatusOpen, resp.Workers[0].Status)
	require.NotNil(t, resp.Workers[0].Attendance)
	assert.Equal(t, 600, resp.Workers[0].Attendance.Start)
}

func TestHandleTimelineSlots(t *testing.T) {
	s := newTestServer(&stubSnapshots{current: testSnapshot()}, nil, nil, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/timeline?date=8/29", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Workers []timeline.WorkerView `json:"workers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Workers, 1)
	// attendance + reservation + buffer
	assert.Len(t, resp.Workers[0].Slots, 3)
}

func TestHandleTimelineSnapshotUnavailable(t *testing.T) {
	s := newTestServer(&stubSnapshots{buildErr: errors.New("quota")}, nil, nil, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/timeline", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClosedToggleOverridesStatus(t *testing.T) {
	s := newTestServer(&stubSnapshots{current: testSnapshot()}, nil, nil, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/closed", ClosedToggleRequest{Name: "ねね", Closed: true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/workers", nil)
	var resp struct {
		Workers []WorkerSummary `json:"workers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Workers, 1)
	assert.Equal(t, models.StatusClosed, resp.Workers[0].Status)
}

func TestClosedToggleValidation(t *testing.T) {
	s := newTestServer(&stubSnapshots{current: testSnapshot()}, nil, nil, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/closed", ClosedToggleRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStaff(t *testing.T) {
	s := newTestServer(&stubSnapshots{}, nil, &stubStaff{names: []string{"佐藤", "山本"}}, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/staff", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		StaffList []string `json:"staffList"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"佐藤", "山本"}, resp.StaffList)
}

func TestAddReception(t *testing.T) {
	writer := &stubWriter{appendRow: 15}
	bus := events.NewEventBus()

	var audited store.AuditEntry
	bus.Subscribe(events.BookingWritten, func(event events.Event) error {
		return json.Unmarshal(event.Payload, &audited)
	})

	s := newTestServer(&stubSnapshots{current: testSnapshot()}, writer, nil, bus)

	rec := doRequest(t, s, http.MethodPost, "/api/receptions", BookingRequest{
		Brand:         "G",
		CastName:      "ねね",
		StartTime:     "20:00",
		CourseMinutes: 60,
		CustomerName:  "田中",
		MemberType:    "F",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Row     int  `json:"row"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 15, resp.Row)

	// Date defaulted to the current business day sheet.
	assert.Equal(t, "8/29", writer.lastDate)
	assert.Equal(t, models.BrandGohobi, writer.lastRecord.Brand)

	assert.Equal(t, "append", audited.Kind)
	assert.Equal(t, 15, audited.SheetRow)
	assert.Equal(t, "ねね", audited.CastName)
}

func TestAddReceptionValidation(t *testing.T) {
	s := newTestServer(&stubSnapshots{}, &stubWriter{}, nil, nil)

	for name, body := range map[string]BookingRequest{
		"missing cast":  {StartTime: "20:00", CourseMinutes: 60},
		"missing start": {CastName: "ねね", CourseMinutes: 60},
		"bad start":     {CastName: "ねね", StartTime: "soon", CourseMinutes: 60},
		"no course":     {CastName: "ねね", StartTime: "20:00"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/receptions", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUpdateReceptionRequiresSourceRow(t *testing.T) {
	s := newTestServer(&stubSnapshots{}, &stubWriter{}, nil, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/receptions/update", BookingRequest{
		CastName:      "ねね",
		StartTime:     "20:00",
		CourseMinutes: 60,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateReception(t *testing.T) {
	writer := &stubWriter{}
	s := newTestServer(&stubSnapshots{}, writer, nil, nil)

	row := 2
	rec := doRequest(t, s, http.MethodPost, "/api/receptions/update", BookingRequest{
		Date:          "8/28",
		CastName:      "ねね",
		StartTime:     "21:00",
		CourseMinutes: 90,
		SourceRow:     &row,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "8/28", writer.lastDate)
	assert.Equal(t, 2, writer.lastRecord.SourceRow)
}

func TestWriteFailureSurfacesBadGateway(t *testing.T) {
	writer := &stubWriter{appendErr: errors.New("sheet locked")}
	s := newTestServer(&stubSnapshots{}, writer, nil, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/receptions", BookingRequest{
		CastName:      "ねね",
		StartTime:     "20:00",
		CourseMinutes: 60,
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
