// Package export renders a reconciled day into an XLSX report: one
// sheet per brand plus a combined timeline sheet, for managers who want
// the day offline.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"castboard/internal/btime"
	"castboard/internal/models"
	"castboard/internal/timeline"
)

// ExcelWriter is a thin sheet-by-sheet writer over excelize.
type ExcelWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{file: excelize.NewFile()}
}

// AddSheet adds a new sheet with the given name.
func (w *ExcelWriter) AddSheet(name string) error {
	// Excel caps sheet names at 31 chars.
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		w.file.SetSheetName("Sheet1", name)
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes bold column headers to the current sheet.
func (w *ExcelWriter) WriteHeader(columns []string) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

// WriteRow writes a data row to the current sheet.
func (w *ExcelWriter) WriteRow(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

// Save writes the workbook to wr.
func (w *ExcelWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// Close releases resources.
func (w *ExcelWriter) Close() error {
	return w.file.Close()
}

var timelineHeader = []string{
	"キャスト", "状態", "出勤", "種別", "ブランド", "開始", "終了", "お客様", "コース(分)", "備考",
}

var receptionHeader = []string{
	"キャスト", "ブランド", "お客様", "会員区分", "開始", "コース(分)", "金額", "場所", "部屋", "備考",
}

// sheetDate rewrites an M/D date for use in a sheet name. Excel forbids
// "/" there.
func sheetDate(date string) string {
	return strings.ReplaceAll(date, "/", "-")
}

// WriteDayReport renders a reconciled day: a timeline sheet of every
// worker's slots followed by a receptions sheet.
func WriteDayReport(w *ExcelWriter, date string, views []timeline.WorkerView, receptions []models.ReceptionRecord) error {
	if err := w.AddSheet("タイムライン " + sheetDate(date)); err != nil {
		return err
	}
	if err := w.WriteHeader(timelineHeader); err != nil {
		return err
	}

	for _, view := range views {
		attendance := ""
		if view.Attendance != nil {
			attendance = view.Attendance.String()
		}

		if len(view.Slots) == 0 {
			if err := w.WriteRow([]interface{}{
				view.Worker.Name, string(view.Status), attendance, "", "", "", "", "", "", "",
			}); err != nil {
				return err
			}
			continue
		}

		for _, slot := range view.Slots {
			row := []interface{}{
				view.Worker.Name,
				string(view.Status),
				attendance,
				slotLabel(slot.Kind),
				string(slot.Brand),
				btime.FormatMinutes(slot.Interval.Start),
				btime.FormatMinutes(slot.Interval.End),
				"", "", "",
			}
			if slot.Reception != nil {
				row[7] = slot.Reception.CustomerName
				row[8] = slot.Reception.CourseMinutes
				row[9] = slot.Reception.Note
			}
			if err := w.WriteRow(row); err != nil {
				return err
			}
		}
	}

	if err := w.AddSheet("受付 " + sheetDate(date)); err != nil {
		return err
	}
	if err := w.WriteHeader(receptionHeader); err != nil {
		return err
	}
	for i := range receptions {
		rec := &receptions[i]
		if err := w.WriteRow([]interface{}{
			rec.CastName,
			string(rec.Brand),
			rec.CustomerName,
			rec.MemberType,
			rec.StartTime,
			rec.CourseMinutes,
			rec.Amount,
			rec.HotelLocation,
			rec.RoomNumber,
			rec.Note,
		}); err != nil {
			return err
		}
	}

	return nil
}

func slotLabel(kind models.SlotKind) string {
	switch kind {
	case models.SlotAttendance:
		return "出勤"
	case models.SlotReservation:
		return "予約"
	case models.SlotReception:
		return "受付"
	case models.SlotBuffer:
		return "バッファ"
	default:
		return string(kind)
	}
}
