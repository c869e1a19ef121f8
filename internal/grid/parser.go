// Package grid parses the raw reservation-grid sheets: the compact
// interval-encoded reservation cells and the shift cells of the
// attendance schedule. Malformed content is operator error and is
// skipped, never fatal.
package grid

import (
	"regexp"
	"strconv"
	"strings"

	"castboard/internal/btime"
	"castboard/internal/models"
)

// RosterRow is one row of the shared roster sheet, already mapped to
// named fields. NameGohobi comes from column H, NameGussuri from I, and
// Cells holds the reservation columns S-W.
type RosterRow struct {
	Index       int
	NameGohobi  string
	NameGussuri string
	Cells       []string
}

// DedicatedRow is one row of a single-brand roster sheet.
type DedicatedRow struct {
	Index int
	Name  string
	Cells []string
}

// tokenRe matches one reservation token: a one-letter brand code, a
// start hour with optional fraction, and a duration in minutes.
// Example: "G20-60", "Y22.5-150".
var tokenRe = regexp.MustCompile(`^([A-Z])(\d+(?:\.\d+)?)-(\d+)$`)

var splitRe = regexp.MustCompile(`[\n\s,]+`)

// ParseReservationCell decodes every well-formed token in a grid cell.
// Cells frequently hold several tokens separated by newlines, spaces or
// commas; tokens that do not match the pattern are skipped. Returns the
// number of tokens skipped alongside the blocks.
func ParseReservationCell(cell string) (blocks []models.ReservationBlock, skipped int) {
	for _, part := range splitRe.Split(strings.TrimSpace(cell), -1) {
		if part == "" {
			continue
		}
		m := tokenRe.FindStringSubmatch(part)
		if m == nil {
			skipped++
			continue
		}
		hourPoint, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			skipped++
			continue
		}
		duration, err := strconv.Atoi(m[3])
		if err != nil {
			skipped++
			continue
		}
		start := btime.HourPointToMinutes(hourPoint)
		blocks = append(blocks, models.ReservationBlock{
			Brand: models.BrandFromCode(m[1]),
			Interval: models.TimeInterval{
				Start: start,
				// End may exceed the business-day boundary; kept flat
				// for same-day sorting, display reduces mod 24h.
				End: start + duration,
			},
		})
	}
	return blocks, skipped
}

var attendanceRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)-(\d+(?:\.\d+)?)$`)

// ParseAttendanceCell decodes a shift cell of form "21.5-27.5" into a
// business-minute interval. Fractional hours encode minutes ("21.5" is
// 21:30).
func ParseAttendanceCell(cell string) (models.TimeInterval, bool) {
	m := attendanceRe.FindStringSubmatch(strings.TrimSpace(cell))
	if m == nil {
		return models.TimeInterval{}, false
	}
	startPoint, err1 := strconv.ParseFloat(m[1], 64)
	endPoint, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return models.TimeInterval{}, false
	}
	iv := models.TimeInterval{
		Start: btime.HourPointToMinutes(startPoint),
		End:   btime.HourPointToMinutes(endPoint),
	}
	if iv.End <= iv.Start {
		return models.TimeInterval{}, false
	}
	return iv, true
}

// ParseRowBlocks decodes all reservation cells of one roster row.
func ParseRowBlocks(cells []string) (blocks []models.ReservationBlock, skipped int) {
	for _, cell := range cells {
		if strings.TrimSpace(cell) == "" {
			continue
		}
		b, s := ParseReservationCell(cell)
		blocks = append(blocks, b...)
		skipped += s
	}
	return blocks, skipped
}
