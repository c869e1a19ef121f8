// Package btime implements clock arithmetic for the rolling business day.
//
// The business day opens at 10:00 and closes at 05:00 the next calendar
// morning. All scheduling math is done in "business minutes": minute 0 is
// 10:00, and hours before 10:00 fold into 24:00-33:59 of the previous
// business day.
package btime

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Minute is an offset in minutes from 10:00 of the business day.
type Minute = int

// DayEnd is the close of the business day (05:00 next morning) in
// business minutes: 20 operating hours.
const DayEnd Minute = 20 * 60

// ToMinutes converts a wall-clock hour and minute to business minutes.
// Hours >= 24 are normalized first, then hours before 10 roll into the
// previous business day's overnight stretch.
func ToMinutes(hour, minute int) Minute {
	if hour >= 24 {
		hour -= 24
	}
	if hour < 10 {
		hour += 24
	}
	return (hour-10)*60 + minute
}

// FromMinutes is the inverse of ToMinutes, clock-wrapping the hour back
// into 0..23 for display.
func FromMinutes(m Minute) (hour, minute int) {
	hour = m/60 + 10
	minute = m % 60
	if hour >= 24 {
		hour -= 24
	}
	return hour, minute
}

// FormatMinutes renders a business minute as "HH:MM" wall-clock text.
func FormatMinutes(m Minute) string {
	h, mm := FromMinutes(m)
	return fmt.Sprintf("%02d:%02d", h, mm)
}

// BusinessDate returns the calendar date the instant belongs to for
// scheduling purposes: anything before 10:00 is still the previous
// business day.
func BusinessDate(t time.Time) time.Time {
	if t.Hour() < 10 {
		t = t.AddDate(0, 0, -1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// NowMinutes converts the instant's wall clock to business minutes.
func NowMinutes(t time.Time) Minute {
	return ToMinutes(t.Hour(), t.Minute())
}

// SheetName formats a date the way the daily sheets are titled: "M/D"
// without zero padding.
func SheetName(t time.Time) string {
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
}

// ParseSheetDate parses an "M/D" date parameter against the year of now.
func ParseSheetDate(s string, now time.Time) (time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid date %q, want M/D", s)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month in %q: %w", s, err)
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day in %q: %w", s, err)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("date %q out of range", s)
	}
	return time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location()), nil
}

// GridSheetName decides which reservation-grid sheet serves the selected
// calendar day. Because a business day runs until 05:00 (and the grid for
// it is filled in from 10:00), today's view before 10:00 still lives on
// yesterday's sheet, and a future day's view lives on the sheet of the
// day before it.
func GridSheetName(selected, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sel := time.Date(selected.Year(), selected.Month(), selected.Day(), 0, 0, 0, 0, selected.Location())

	switch {
	case sel.Equal(today):
		if now.Hour() < 10 {
			return SheetName(now.AddDate(0, 0, -1))
		}
		return SheetName(sel)
	case sel.After(today):
		return SheetName(sel.AddDate(0, 0, -1))
	default:
		return SheetName(sel)
	}
}

var (
	clockColonRe = regexp.MustCompile(`^(\d+):(\d+)$`)
	clockDotRe   = regexp.MustCompile(`^(\d+)\.(\d+)$`)
	clockHourRe  = regexp.MustCompile(`^(\d+)$`)
)

// ParseClockString parses the free-form start-time text used in the
// reception sheet. Accepted forms: "20:30", "20.5" and "20". The dotted
// form encodes tenths of an hour, so the fraction digits are multiplied
// by six ("20.5" is 20:30). Returns false for anything else.
func ParseClockString(s string) (Minute, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if m := clockColonRe.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return ToMinutes(hour, minute), true
	}
	if m := clockDotRe.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		frac, _ := strconv.Atoi(m[2])
		return ToMinutes(hour, frac*6), true
	}
	if m := clockHourRe.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		return ToMinutes(hour, 0), true
	}
	return 0, false
}

// ParseHourPoint splits a fractional hour such as "21.5" into a clock
// hour and minute, rounding the fraction to whole minutes (".5" is 30).
func ParseHourPoint(s string) (hour, minute int, err error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour %q: %w", s, err)
	}
	hour = int(math.Floor(f))
	minute = int(math.Round((f - float64(hour)) * 60))
	return hour, minute, nil
}

// HourPointToMinutes converts a fractional hour value to business minutes.
func HourPointToMinutes(f float64) Minute {
	hour := int(math.Floor(f))
	minute := int(math.Round((f - float64(hour)) * 60))
	return ToMinutes(hour, minute)
}
