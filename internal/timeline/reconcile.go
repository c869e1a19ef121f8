// Package timeline merges a worker's attendance window, roster
// reservation blocks and confirmed receipts into one ordered occupancy
// timeline. Receipts are authoritative: a receipt matching a roster
// reservation replaces it, since the roster cell is a plan and the
// reception sheet is money.
package timeline

import (
	"sort"
	"time"

	"castboard/internal/btime"
	"castboard/internal/models"
	"castboard/internal/names"
	"castboard/internal/reception"
)

// Options tune reconciliation. Zero value is not usable; call
// DefaultOptions and override from config.
type Options struct {
	// BufferMinutes is appended after every booking for travel and
	// cleanup, truncated at close of business.
	BufferMinutes int
	// ToleranceMinutes is the maximum start/end drift, in minutes,
	// under which a receipt is considered the same booking as a roster
	// reservation.
	ToleranceMinutes int
}

func DefaultOptions() Options {
	return Options{BufferMinutes: 30, ToleranceMinutes: 1}
}

// Reconcile builds the occupancy timeline for one worker. Attendance is
// keyed by normalized schedule-sheet name. The result is sorted by
// interval start.
func Reconcile(w *models.Worker, attendance map[string]models.AttendanceInterval, idx reception.Index, opts Options) []models.TimelineSlot {
	var slots []models.TimelineSlot

	if att, ok := lookupAttendance(w, attendance); ok {
		slots = append(slots, models.TimelineSlot{
			Interval: att.Interval,
			Kind:     models.SlotAttendance,
			Brand:    att.Brand,
		})
	}

	receipts := collectReceipts(w, idx)

	// Roster reservations, minus those a receipt supersedes. A row
	// repeating the same token still yields one slot.
	emitted := make(map[models.ReservationBlock]bool)
	for i := range w.Reservations {
		res := &w.Reservations[i]
		if emitted[*res] {
			continue
		}
		emitted[*res] = true
		if overriddenBy(res, receipts, opts.ToleranceMinutes) {
			continue
		}
		slots = append(slots, models.TimelineSlot{
			Interval:    res.Interval,
			Kind:        models.SlotReservation,
			Brand:       res.Brand,
			Reservation: res,
		})
		slots = appendBuffer(slots, res.Interval.End, res.Brand, opts)
	}

	for _, rec := range receipts {
		slots = append(slots, models.TimelineSlot{
			Interval:  rec.Interval,
			Kind:      models.SlotReception,
			Brand:     rec.Brand,
			Reception: rec,
		})
		slots = appendBuffer(slots, rec.Interval.End, rec.Brand, opts)
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Interval.Start != slots[j].Interval.Start {
			return slots[i].Interval.Start < slots[j].Interval.Start
		}
		return kindRank(slots[i].Kind) < kindRank(slots[j].Kind)
	})
	return slots
}

// kindRank orders slots sharing a start minute: the attendance window
// frames the day, then confirmed receipts, then plans, then buffers.
func kindRank(k models.SlotKind) int {
	switch k {
	case models.SlotAttendance:
		return 0
	case models.SlotReception:
		return 1
	case models.SlotReservation:
		return 2
	default:
		return 3
	}
}

// appendBuffer emits the post-booking buffer slot. A booking ending at
// or past close of business gets none, and the buffer never extends past
// close.
func appendBuffer(slots []models.TimelineSlot, end btime.Minute, brand models.Brand, opts Options) []models.TimelineSlot {
	if end >= btime.DayEnd || opts.BufferMinutes <= 0 {
		return slots
	}
	bufEnd := end + opts.BufferMinutes
	if bufEnd > btime.DayEnd {
		bufEnd = btime.DayEnd
	}
	return append(slots, models.TimelineSlot{
		Interval: models.TimeInterval{Start: end, End: bufEnd},
		Kind:     models.SlotBuffer,
		Brand:    brand,
	})
}

// lookupAttendance tries the worker's aliases in brand order, then the
// canonical display name. Schedule sheets are per brand, so the first
// alias that has a shift wins.
func lookupAttendance(w *models.Worker, attendance map[string]models.AttendanceInterval) (models.AttendanceInterval, bool) {
	candidates := []string{
		w.Alias(models.BrandGohobi),
		w.Alias(models.BrandGussuri),
		w.Alias(models.BrandChijo),
		w.Name,
	}
	for _, c := range candidates {
		key := names.Key(c)
		if key == "" {
			continue
		}
		if att, ok := attendance[key]; ok {
			return att, true
		}
	}
	return models.AttendanceInterval{}, false
}

// collectReceipts gathers the worker's receipts. Each alias lookup
// admits only records carrying that alias's own brand; the canonical
// name is a fallback for keys no alias produced, filtered to the brands
// detected on the worker (all, when undetectable). Records are
// deduplicated on their identity fields so the same booking reached via
// two aliases lands once.
func collectReceipts(w *models.Worker, idx reception.Index) []*models.ReceptionRecord {
	type identity struct {
		name   string
		start  string
		course int
		iv     models.TimeInterval
	}
	seen := make(map[identity]bool)
	queried := make(map[string]bool)

	var out []*models.ReceptionRecord
	scan := func(key string, allowed map[models.Brand]bool) {
		for _, rec := range idx[key] {
			if rec.Brand != "" && allowed != nil && !allowed[rec.Brand] {
				continue
			}
			id := identity{names.Key(rec.CastName), rec.StartTime, rec.CourseMinutes, rec.Interval}
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, rec)
		}
	}

	for _, brand := range []models.Brand{models.BrandGohobi, models.BrandGussuri, models.BrandChijo} {
		key := names.Key(w.Alias(brand))
		if key == "" {
			continue
		}
		queried[key] = true
		scan(key, map[models.Brand]bool{brand: true})
	}

	if key := names.Key(w.Name); key != "" && !queried[key] {
		scan(key, workerBrands(w))
	}
	return out
}

// workerBrands is the set of brands the worker is listed under, via
// either a roster alias or a reservation block. Empty means unknown and
// no brand filtering is applied.
func workerBrands(w *models.Worker) map[models.Brand]bool {
	brands := make(map[models.Brand]bool)
	for b := range w.Aliases {
		brands[b] = true
	}
	for _, res := range w.Reservations {
		if res.Brand != "" {
			brands[res.Brand] = true
		}
	}
	if len(brands) == 0 {
		return nil
	}
	return brands
}

// overriddenBy reports whether a receipt covers this roster reservation:
// same brand, start and end each within the tolerance. Sheet times are
// entered by hand in two places, so exact equality is too strict.
func overriddenBy(res *models.ReservationBlock, receipts []*models.ReceptionRecord, tolerance int) bool {
	for _, rec := range receipts {
		if rec.Brand != "" && res.Brand != "" && rec.Brand != res.Brand {
			continue
		}
		if absDiff(rec.Interval.Start, res.Interval.Start) <= tolerance &&
			absDiff(rec.Interval.End, res.Interval.End) <= tolerance {
			return true
		}
	}
	return false
}

func absDiff(a, b btime.Minute) int {
	if a > b {
		return a - b
	}
	return b - a
}

// ComputeStatus decides whether a worker is still bookable. A manual
// override always wins; a future business date is always open; otherwise
// the worker closes once their shift end has passed.
func ComputeStatus(override *bool, selected, now time.Time, attendance *models.TimeInterval) models.Status {
	if override != nil {
		if *override {
			return models.StatusClosed
		}
		return models.StatusOpen
	}
	if btime.BusinessDate(selected).After(btime.BusinessDate(now)) {
		return models.StatusOpen
	}
	if attendance != nil && attendance.End < btime.NowMinutes(now) {
		return models.StatusClosed
	}
	return models.StatusOpen
}

// WorkerView pairs a worker with its reconciled timeline and status for
// presentation ordering.
type WorkerView struct {
	Worker     *models.Worker        `json:"worker"`
	Attendance *models.TimeInterval  `json:"attendance,omitempty"`
	Slots      []models.TimelineSlot `json:"slots"`
	Status     models.Status         `json:"status"`
}

// BuildViews reconciles every worker against the day's attendance and
// receipts, evaluates availability and returns the views in display
// order. Overrides are manual open/closed toggles keyed by canonical
// worker name.
func BuildViews(
	workers []*models.Worker,
	attendance map[string]models.AttendanceInterval,
	idx reception.Index,
	overrides map[string]bool,
	selected, now time.Time,
	opts Options,
) []WorkerView {
	views := make([]WorkerView, 0, len(workers))
	for _, w := range workers {
		view := WorkerView{
			Worker: w,
			Slots:  Reconcile(w, attendance, idx, opts),
		}

		var attIv *models.TimeInterval
		if att, ok := lookupAttendance(w, attendance); ok {
			iv := att.Interval
			attIv = &iv
			view.Attendance = attIv
		}

		var override *bool
		if closed, ok := overrides[w.Name]; ok {
			override = &closed
		}
		view.Status = ComputeStatus(override, selected, now, attIv)

		views = append(views, view)
	}

	SortWorkers(views)
	return views
}

// SortWorkers orders views for display: open before closed, then by
// shift start, with workers lacking a shift at the end of their group.
func SortWorkers(views []WorkerView) {
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Status != views[j].Status {
			return views[i].Status == models.StatusOpen
		}
		ai, aj := views[i].Attendance, views[j].Attendance
		switch {
		case ai == nil && aj == nil:
			return false
		case ai == nil:
			return false
		case aj == nil:
			return true
		default:
			return ai.Start < aj.Start
		}
	})
}
