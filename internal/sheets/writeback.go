package sheets

import (
	"context"
	"fmt"

	gsheets "google.golang.org/api/sheets/v4"

	"castboard/internal/metrics"
	"castboard/internal/models"
)

// newBookingMarker labels the section of the day tab where new bookings
// go; the first fully blank row below it is the insert target.
const newBookingMarker = "新規受付"

// insertScanRows bounds the marker scan. The new-booking section sits in
// the top block of the tab.
const insertScanRows = 50

// AppendReception writes a new booking into the day tab and returns the
// one-based sheet row it landed on.
func (s *SheetsService) AppendReception(ctx context.Context, date string, rec models.ReceptionRecord) (int, error) {
	ssID := s.cfg.Sheets.ReceptionSpreadsheetID

	sheetName, err := s.resolveSheet(ctx, ssID, date, s.cfg.Sheets.ReceptionSheetGID)
	if err != nil {
		return 0, err
	}

	scan, err := s.getRangeFresh(ctx, ssID, fmt.Sprintf("'%s'!D1:Q%d", sheetName, insertScanRows))
	if err != nil {
		metrics.IncWriteback("append", "error")
		return 0, fmt.Errorf("scan for insert row: %w", err)
	}

	insertRow := findInsertRow(scan)

	if err := s.updateValues(ctx, ssID,
		fmt.Sprintf("'%s'!%d:%d", sheetName, insertRow, insertRow),
		appendReceptionValues(rec),
	); err != nil {
		metrics.IncWriteback("append", "error")
		return 0, err
	}

	s.setCachedRow(bookingKey(rec), insertRow)
	metrics.IncWriteback("append", "ok")
	s.logger.Info().
		Str("sheet", sheetName).
		Int("row", insertRow).
		Str("cast", rec.CastName).
		Msg("Booking written")
	return insertRow, nil
}

// UpdateReception rewrites an existing booking row in place. Only the
// managed columns are sent; nil cells leave whatever else the sheet
// holds untouched.
func (s *SheetsService) UpdateReception(ctx context.Context, date string, rec models.ReceptionRecord) error {
	ssID := s.cfg.Sheets.ReceptionSpreadsheetID

	sheetName, err := s.resolveSheet(ctx, ssID, date, s.cfg.Sheets.ReceptionSheetGID)
	if err != nil {
		return err
	}

	row := rec.SourceRow + receptionDataStartRow
	if err := s.updateValues(ctx, ssID,
		fmt.Sprintf("'%s'!D%d:AE%d", sheetName, row, row),
		updateReceptionValues(rec),
	); err != nil {
		metrics.IncWriteback("update", "error")
		return err
	}

	s.setCachedRow(bookingKey(rec), row)
	metrics.IncWriteback("update", "ok")
	return nil
}

func (s *SheetsService) updateValues(ctx context.Context, spreadsheetID, rng string, row []interface{}) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := s.svc.Spreadsheets.Values.
		Update(spreadsheetID, rng, &gsheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return wrapAPIError(err)
	}
	return nil
}

// findInsertRow locates the first row suited for a new booking: below
// the marker in column H, with the load-bearing columns D, H, O, P and Q
// all blank. A lone ":" in P is a time-format artifact and counts as
// blank. Without a marker or a blank row the booking goes after the last
// scanned row.
func findInsertRow(rows [][]string) int {
	for i := range rows {
		if cellAt(rows, i, recColCustomer) != newBookingMarker {
			continue
		}

		for j := i + 1; j < len(rows); j++ {
			if blankBookingRow(rows, j) {
				return j + 1
			}
		}
		return len(rows) + 1
	}
	return len(rows) + 1
}

func blankBookingRow(rows [][]string, i int) bool {
	start := cellAt(rows, i, recColStartTime)
	if start == ":" {
		start = ""
	}
	return cellAt(rows, i, recColBrand) == "" &&
		cellAt(rows, i, recColCustomer) == "" &&
		cellAt(rows, i, recColCastName) == "" &&
		start == "" &&
		cellAt(rows, i, recColCourse) == ""
}

// appendReceptionValues lays the record out as a whole sheet row,
// zero-based from column A.
func appendReceptionValues(rec models.ReceptionRecord) []interface{} {
	row := make([]interface{}, 31)
	row[3] = string(rec.Brand)      // D
	row[4] = rec.Staff              // E
	row[5] = rec.Phone              // F
	row[7] = rec.CustomerName       // H
	row[8] = rec.MemberType         // I
	row[14] = rec.CastName          // O
	row[15] = rec.StartTime         // P
	row[16] = courseCell(rec)       // Q
	row[17] = rec.Extension         // R
	row[19] = rec.Amount            // T
	row[20] = rec.ActualStartTime   // U
	row[21] = rec.EndTime           // V
	row[23] = rec.HotelLocation     // X
	row[24] = rec.RoomNumber        // Y
	row[26] = rec.Option            // AA
	row[27] = rec.TransportationFee // AB
	row[28] = rec.DiscountName      // AC
	row[30] = rec.Note              // AE
	return row
}

// updateReceptionValues lays the record out zero-based from column D,
// with nil holes over the columns this system does not manage.
func updateReceptionValues(rec models.ReceptionRecord) []interface{} {
	row := make([]interface{}, 28)
	row[recColBrand] = string(rec.Brand)
	row[recColPhone] = rec.Phone
	row[recColCustomer] = rec.CustomerName
	row[recColMemberType] = rec.MemberType
	row[recColCastName] = rec.CastName
	row[recColStartTime] = rec.StartTime
	row[recColCourse] = courseCell(rec)
	row[recColAmount] = rec.Amount
	row[recColActual] = rec.ActualStartTime
	row[recColEndTime] = rec.EndTime
	row[recColHotel] = rec.HotelLocation
	row[recColRoom] = rec.RoomNumber
	row[recColOption] = rec.Option
	row[recColTransport] = rec.TransportationFee
	row[recColDiscount] = rec.DiscountName
	row[recColNote] = rec.Note
	return row
}

func courseCell(rec models.ReceptionRecord) interface{} {
	if rec.CourseMinutes == 0 {
		return ""
	}
	return rec.CourseMinutes
}

func bookingKey(rec models.ReceptionRecord) string {
	return fmt.Sprintf("%s|%s|%d", rec.CastName, rec.StartTime, rec.CourseMinutes)
}
