package api

import (
	"encoding/json"
	"net/http"
	"time"

	"castboard/internal/btime"
	"castboard/internal/events"
	"castboard/internal/metrics"
	"castboard/internal/models"
	"castboard/internal/store"
)

// BookingRequest carries a reception row for write-back. Member type and
// brand arrive as the sheet's own short codes and are written verbatim.
type BookingRequest struct {
	Date              string `json:"date,omitempty"`
	Brand             string `json:"brand"`
	Staff             string `json:"staff,omitempty"`
	Phone             string `json:"phone,omitempty"`
	CustomerName      string `json:"customerName,omitempty"`
	MemberType        string `json:"memberType,omitempty"`
	CastName          string `json:"castName"`
	StartTime         string `json:"startTime"`
	CourseMinutes     int    `json:"courseMinutes"`
	Extension         string `json:"extension,omitempty"`
	Amount            string `json:"amount,omitempty"`
	ActualStartTime   string `json:"actualStartTime,omitempty"`
	EndTime           string `json:"endTime,omitempty"`
	HotelLocation     string `json:"hotelLocation,omitempty"`
	RoomNumber        string `json:"roomNumber,omitempty"`
	Option            string `json:"option,omitempty"`
	TransportationFee string `json:"transportationFee,omitempty"`
	DiscountName      string `json:"discountName,omitempty"`
	Note              string `json:"note,omitempty"`

	// SourceRow addresses the row being edited; update only.
	SourceRow *int `json:"sourceRow,omitempty"`
}

func (req *BookingRequest) record() models.ReceptionRecord {
	rec := models.ReceptionRecord{
		CastName:          req.CastName,
		Brand:             models.BrandFromCode(req.Brand),
		CustomerName:      req.CustomerName,
		Phone:             req.Phone,
		MemberType:        req.MemberType,
		CourseMinutes:     req.CourseMinutes,
		StartTime:         req.StartTime,
		Amount:            req.Amount,
		ActualStartTime:   req.ActualStartTime,
		EndTime:           req.EndTime,
		HotelLocation:     req.HotelLocation,
		RoomNumber:        req.RoomNumber,
		Option:            req.Option,
		TransportationFee: req.TransportationFee,
		DiscountName:      req.DiscountName,
		Note:              req.Note,
		Staff:             req.Staff,
		Extension:         req.Extension,
	}
	if req.SourceRow != nil {
		rec.SourceRow = *req.SourceRow
	}
	return rec
}

func (s *HTTPServer) decodeBooking(w http.ResponseWriter, r *http.Request) (*BookingRequest, bool) {
	var req BookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}

	if req.CastName == "" {
		writeError(w, http.StatusBadRequest, "castName is required")
		return nil, false
	}
	if req.StartTime == "" {
		writeError(w, http.StatusBadRequest, "startTime is required")
		return nil, false
	}
	if req.CourseMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "courseMinutes must be positive")
		return nil, false
	}
	if _, ok := btime.ParseClockString(req.StartTime); !ok {
		writeError(w, http.StatusBadRequest, "startTime is not a recognizable clock time")
		return nil, false
	}

	if req.Date == "" {
		now := s.now()
		req.Date = btime.GridSheetName(now, now)
	}
	return &req, true
}

// handleAddReception writes a new booking row. POST /api/receptions
func (s *HTTPServer) handleAddReception(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reception_add")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, ok := s.decodeBooking(w, r)
	if !ok {
		return
	}

	rec := req.record()
	row, err := s.writer.AppendReception(r.Context(), req.Date, rec)
	if err != nil {
		s.log.Error().Err(err).Str("cast", rec.CastName).Msg("Booking append failed")
		writeError(w, http.StatusBadGateway, "failed to write booking")
		return
	}

	s.publishWrite("append", req.Date, row, rec)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "row": row})
}

// handleUpdateReception rewrites an existing booking row.
// POST /api/receptions/update
func (s *HTTPServer) handleUpdateReception(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reception_update")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, ok := s.decodeBooking(w, r)
	if !ok {
		return
	}
	if req.SourceRow == nil {
		writeError(w, http.StatusBadRequest, "sourceRow is required")
		return
	}

	rec := req.record()
	if err := s.writer.UpdateReception(r.Context(), req.Date, rec); err != nil {
		s.log.Error().Err(err).Str("cast", rec.CastName).Int("sourceRow", rec.SourceRow).Msg("Booking update failed")
		writeError(w, http.StatusBadGateway, "failed to update booking")
		return
	}

	s.publishWrite("update", req.Date, rec.SourceRow, rec)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *HTTPServer) publishWrite(kind, date string, row int, rec models.ReceptionRecord) {
	if s.bus == nil {
		return
	}

	detail, _ := json.Marshal(rec)
	payload, _ := json.Marshal(store.AuditEntry{
		Kind:      kind,
		SheetDate: date,
		SheetRow:  row,
		CastName:  rec.CastName,
		Brand:     string(rec.Brand),
		Payload:   detail,
		CreatedAt: time.Now(),
	})
	s.bus.Publish(events.Event{Type: events.BookingWritten, Payload: payload})
}
