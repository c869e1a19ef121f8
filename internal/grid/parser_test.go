package grid

import (
	"testing"

	"castboard/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestParseReservationCell(t *testing.T) {
	t.Run("single token", func(t *testing.T) {
		blocks, skipped := ParseReservationCell("G20-60")
		assert.Zero(t, skipped)
		assert.Len(t, blocks, 1)
		assert.Equal(t, models.BrandGohobi, blocks[0].Brand)
		assert.Equal(t, 600, blocks[0].Interval.Start) // 20:00
		assert.Equal(t, 660, blocks[0].Interval.End)
	})

	t.Run("fractional hour is sexagesimal", func(t *testing.T) {
		blocks, _ := ParseReservationCell("Y22.5-150")
		assert.Len(t, blocks, 1)
		assert.Equal(t, models.BrandGussuri, blocks[0].Brand)
		// 22.5 means 22:30, i.e. minute 30 of the hour, not :50.
		assert.Equal(t, 750, blocks[0].Interval.Start)
		assert.Equal(t, 900, blocks[0].Interval.End)
	})

	t.Run("multiple tokens mixed separators", func(t *testing.T) {
		blocks, skipped := ParseReservationCell("G20-60\nY22-90, C14-120")
		assert.Zero(t, skipped)
		assert.Len(t, blocks, 3)
		assert.Equal(t, models.BrandChijo, blocks[2].Brand)
	})

	t.Run("unknown brand code passes through", func(t *testing.T) {
		blocks, skipped := ParseReservationCell("Z20-60")
		assert.Zero(t, skipped)
		assert.Len(t, blocks, 1)
		assert.Equal(t, models.Brand("Z"), blocks[0].Brand)
	})

	t.Run("malformed tokens skipped silently", func(t *testing.T) {
		blocks, skipped := ParseReservationCell("G20-60 garbage 20-60 G-60")
		assert.Len(t, blocks, 1)
		assert.Equal(t, 3, skipped)
	})

	t.Run("overnight end exceeds day boundary", func(t *testing.T) {
		blocks, _ := ParseReservationCell("G28-180")
		assert.Len(t, blocks, 1)
		assert.Equal(t, 1080, blocks[0].Interval.Start) // 28:00 = 04:00
		assert.Equal(t, 1260, blocks[0].Interval.End)   // flat count past DayEnd
	})

	t.Run("empty cell", func(t *testing.T) {
		blocks, skipped := ParseReservationCell("  ")
		assert.Empty(t, blocks)
		assert.Zero(t, skipped)
	})
}

func TestParseAttendanceCell(t *testing.T) {
	iv, ok := ParseAttendanceCell("21.5-27.5")
	assert.True(t, ok)
	assert.Equal(t, 690, iv.Start) // 21:30
	assert.Equal(t, 1050, iv.End)  // 27:30 = 03:30 next morning

	iv, ok = ParseAttendanceCell("10-15")
	assert.True(t, ok)
	assert.Equal(t, 0, iv.Start)
	assert.Equal(t, 300, iv.End)

	for _, bad := range []string{"", "休み", "15", "15-", "15-10"} {
		_, ok := ParseAttendanceCell(bad)
		assert.False(t, ok, "input %q should not parse", bad)
	}
}

func TestParseRowBlocks(t *testing.T) {
	blocks, skipped := ParseRowBlocks([]string{"G20-60", "", "Y21-60 bad"})
	assert.Len(t, blocks, 2)
	assert.Equal(t, 1, skipped)
}
