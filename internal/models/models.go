// Package models defines the in-memory data model shared across the
// reconciliation pipeline. Everything here is a value rebuilt on every
// poll cycle; the spreadsheets stay the only durable store.
package models

import (
	"fmt"
	"strings"

	"castboard/internal/btime"
)

// Brand identifies one of the sub-business lines sharing the cast pool.
type Brand string

const (
	BrandGohobi  Brand = "ごほうびSPA"
	BrandGussuri Brand = "ぐっすり山田"
	BrandChijo   Brand = "痴女性感"
)

// brandCodes maps the one-letter codes used in reservation-grid cells.
var brandCodes = map[string]Brand{
	"G": BrandGohobi,
	"Y": BrandGussuri,
	"C": BrandChijo,
}

// BrandFromCode resolves a grid code letter. Unknown codes pass through
// as their literal code so new brands show up instead of vanishing.
func BrandFromCode(code string) Brand {
	if b, ok := brandCodes[code]; ok {
		return b
	}
	return Brand(code)
}

// ParseBrand normalizes the free-text brand column of the reception
// sheet, where operators type short forms like 痴女.
func ParseBrand(raw string) Brand {
	switch {
	case strings.Contains(raw, "ごほうび"):
		return BrandGohobi
	case strings.Contains(raw, "ぐっすり"):
		return BrandGussuri
	case strings.Contains(raw, "痴女"):
		return BrandChijo
	default:
		return Brand(strings.TrimSpace(raw))
	}
}

// TimeInterval is a half-open [Start, End) span in business minutes.
type TimeInterval struct {
	Start btime.Minute `json:"start"`
	End   btime.Minute `json:"end"`
}

func (iv TimeInterval) Duration() int { return iv.End - iv.Start }

func (iv TimeInterval) String() string {
	return fmt.Sprintf("%s-%s", btime.FormatMinutes(iv.Start), btime.FormatMinutes(iv.End))
}

// ReservationBlock is one coarse booking decoded from a grid cell.
type ReservationBlock struct {
	Brand    Brand        `json:"brand"`
	Interval TimeInterval `json:"interval"`
}

// Worker is one physical person, possibly listed under different names
// per brand. Rebuilt fresh on every fetch; never mutated concurrently.
type Worker struct {
	// Name is the merged display form, "aliasA / aliasB" when the
	// worker appears under both shared-roster brands.
	Name         string             `json:"name"`
	Aliases      map[Brand]string   `json:"aliases"`
	Reservations []ReservationBlock `json:"reservations"`
}

// Alias returns the raw roster name under a brand, or "".
func (w *Worker) Alias(b Brand) string {
	if w.Aliases == nil {
		return ""
	}
	return w.Aliases[b]
}

// SetAlias records the roster name under a brand.
func (w *Worker) SetAlias(b Brand, name string) {
	if name == "" {
		return
	}
	if w.Aliases == nil {
		w.Aliases = make(map[Brand]string)
	}
	w.Aliases[b] = name
}

// MemberType short codes used in the reception sheet.
var memberTypes = map[string]string{
	"F": "新規",
	"J": "指名",
	"S": "本指名",
}

// MemberTypeLabel expands a member-type code, passing unknown values
// through unchanged.
func MemberTypeLabel(code string) string {
	if label, ok := memberTypes[strings.TrimSpace(code)]; ok {
		return label
	}
	return strings.TrimSpace(code)
}

// ReceptionRecord is one fully detailed booking row. A record is only
// constructed when castName, startTime and courseMinutes all parsed;
// rows failing that are dropped at the adapter boundary.
type ReceptionRecord struct {
	CastName          string       `json:"castName"`
	Brand             Brand        `json:"brand"`
	CustomerName      string       `json:"customerName"`
	Phone             string       `json:"phone"`
	MemberType        string       `json:"memberType"`
	CourseMinutes     int          `json:"courseMinutes"`
	StartTime         string       `json:"startTime"`
	Interval          TimeInterval `json:"interval"`
	Amount            string       `json:"amount"`
	ActualStartTime   string       `json:"actualStartTime"`
	EndTime           string       `json:"endTime"`
	HotelLocation     string       `json:"hotelLocation"`
	RoomNumber        string       `json:"roomNumber"`
	Option            string       `json:"option"`
	TransportationFee string       `json:"transportationFee"`
	DiscountName      string       `json:"discountName"`
	Note              string       `json:"note"`

	// Staff and Extension are write-only: the reception sheet carries
	// them but the dashboard never reads them back.
	Staff     string `json:"staff,omitempty"`
	Extension string `json:"extension,omitempty"`

	// SourceRow is the zero-based offset of the row inside the fetched
	// data block; the write-back layer turns it into an absolute sheet
	// row for edits.
	SourceRow int `json:"sourceRow"`
}

// AttendanceInterval is one cast's shift for the selected day.
type AttendanceInterval struct {
	Name     string       `json:"name"`
	Brand    Brand        `json:"brand"`
	Interval TimeInterval `json:"interval"`
}

// SlotKind classifies a reconciled timeline slot.
type SlotKind string

const (
	SlotAttendance  SlotKind = "attendance"
	SlotReservation SlotKind = "reservation"
	SlotReception   SlotKind = "reception"
	SlotBuffer      SlotKind = "buffer"
)

// TimelineSlot is the reconciled, UI-facing unit produced by the
// timeline package. Overlaps are allowed; rendering resolves them by
// kind priority, not by discarding data.
type TimelineSlot struct {
	Interval    TimeInterval      `json:"interval"`
	Kind        SlotKind          `json:"kind"`
	Brand       Brand             `json:"brand,omitempty"`
	Reservation *ReservationBlock `json:"reservation,omitempty"`
	Reception   *ReceptionRecord  `json:"reception,omitempty"`
	Note        string            `json:"note,omitempty"`
}

// Status is the derived open/closed availability of a worker.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)
