package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"castboard/internal/models"
	"castboard/internal/timeline"
)

func TestWriteDayReport(t *testing.T) {
	attendance := models.TimeInterval{Start: 690, End: 1050}
	views := []timeline.WorkerView{
		{
			Worker:     &models.Worker{Name: "ねね"},
			Status:     models.StatusOpen,
			Attendance: &attendance,
			Slots: []models.TimelineSlot{
				{
					Interval: models.TimeInterval{Start: 690, End: 750},
					Kind:     models.SlotReception,
					Brand:    models.BrandGohobi,
					Reception: &models.ReceptionRecord{
						CustomerName:  "田中",
						CourseMinutes: 60,
						Note:          "指名",
					},
				},
			},
		},
		{
			Worker: &models.Worker{Name: "みく"},
			Status: models.StatusClosed,
		},
	}
	receptions := []models.ReceptionRecord{
		{CastName: "ねね", Brand: models.BrandGohobi, CustomerName: "田中", StartTime: "21:30", CourseMinutes: 60},
	}

	w := NewExcelWriter()
	defer w.Close()

	require.NoError(t, WriteDayReport(w, "8/29", views, receptions))

	var buf bytes.Buffer
	require.NoError(t, w.Save(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"タイムライン 8-29", "受付 8-29"}, f.GetSheetList())

	rows, err := f.GetRows("タイムライン 8-29")
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + slot row + slotless worker

	assert.Equal(t, "キャスト", rows[0][0])
	assert.Equal(t, "ねね", rows[1][0])
	assert.Equal(t, "受付", rows[1][3])
	assert.Equal(t, "21:30", rows[1][5])
	assert.Equal(t, "22:30", rows[1][6])
	assert.Equal(t, "田中", rows[1][7])
	assert.Equal(t, "みく", rows[2][0])
	assert.Equal(t, "closed", rows[2][1])

	recRows, err := f.GetRows("受付 8-29")
	require.NoError(t, err)
	require.Len(t, recRows, 2)
	assert.Equal(t, "ねね", recRows[1][0])
}
