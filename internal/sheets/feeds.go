package sheets

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"castboard/internal/btime"
	"castboard/internal/grid"
	"castboard/internal/metrics"
	"castboard/internal/models"
	"castboard/internal/names"
)

// Roster tab titles inside the roster spreadsheet. 五GY carries the two
// shared brands side by side, 五C the dedicated brand.
const (
	sharedRosterSheet    = "五GY"
	dedicatedRosterSheet = "五C"
	maxRosterRows        = 100
	maxReceptionRows     = 1000
	maxStaffRows         = 1000
)

// FetchRoster reads the raw roster grid for both tabs: names from
// columns H and I (H only on the dedicated tab), reservation cells from
// S through W.
func (s *SheetsService) FetchRoster(ctx context.Context) ([]grid.RosterRow, []grid.DedicatedRow, error) {
	ssID := s.cfg.Sheets.RosterSpreadsheetID

	if _, err := s.resolveSheet(ctx, ssID, sharedRosterSheet, 0); err != nil {
		return nil, nil, err
	}
	if _, err := s.resolveSheet(ctx, ssID, dedicatedRosterSheet, 0); err != nil {
		return nil, nil, err
	}

	sharedNames, err := s.getRange(ctx, ssID, fmt.Sprintf("'%s'!H5:I%d", sharedRosterSheet, 5+maxRosterRows))
	if err != nil {
		return nil, nil, fmt.Errorf("fetch shared roster names: %w", err)
	}
	sharedCells, err := s.getRange(ctx, ssID, fmt.Sprintf("'%s'!S5:W%d", sharedRosterSheet, 5+maxRosterRows))
	if err != nil {
		return nil, nil, fmt.Errorf("fetch shared roster grid: %w", err)
	}
	dedicatedNames, err := s.getRange(ctx, ssID, fmt.Sprintf("'%s'!H5:H%d", dedicatedRosterSheet, 5+maxRosterRows))
	if err != nil {
		return nil, nil, fmt.Errorf("fetch dedicated roster names: %w", err)
	}
	dedicatedCells, err := s.getRange(ctx, ssID, fmt.Sprintf("'%s'!S5:W%d", dedicatedRosterSheet, 5+maxRosterRows))
	if err != nil {
		return nil, nil, fmt.Errorf("fetch dedicated roster grid: %w", err)
	}

	shared := make([]grid.RosterRow, 0, len(sharedNames))
	for i := 0; i < maxRows(len(sharedNames), len(sharedCells)); i++ {
		shared = append(shared, grid.RosterRow{
			Index:       i,
			NameGohobi:  cellAt(sharedNames, i, 0),
			NameGussuri: cellAt(sharedNames, i, 1),
			Cells:       rowAt(sharedCells, i),
		})
	}

	dedicated := make([]grid.DedicatedRow, 0, len(dedicatedNames))
	for i := 0; i < maxRows(len(dedicatedNames), len(dedicatedCells)); i++ {
		dedicated = append(dedicated, grid.DedicatedRow{
			Index: i,
			Name:  cellAt(dedicatedNames, i, 0),
			Cells: rowAt(dedicatedCells, i),
		})
	}

	return shared, dedicated, nil
}

// Reception sheet columns, zero-based from D. The record starts at row
// 13 of the day tab.
const (
	recColBrand      = 0  // D
	recColPhone      = 2  // F
	recColCustomer   = 4  // H
	recColMemberType = 5  // I
	recColCastName   = 11 // O
	recColStartTime  = 12 // P
	recColCourse     = 13 // Q
	recColAmount     = 16 // T
	recColActual     = 17 // U
	recColEndTime    = 18 // V
	recColHotel      = 20 // X
	recColRoom       = 21 // Y
	recColOption     = 23 // AA
	recColTransport  = 24 // AB
	recColDiscount   = 25 // AC
	recColNote       = 27 // AE
)

const receptionDataStartRow = 13

// FetchReceptions reads the reception book for the day tab named after
// the date ("M/D"). Rows missing cast name, start time or course length
// are not bookings yet and are dropped with a per-reason count.
func (s *SheetsService) FetchReceptions(ctx context.Context, date string) ([]models.ReceptionRecord, error) {
	ssID := s.cfg.Sheets.ReceptionSpreadsheetID

	sheetName, err := s.resolveSheet(ctx, ssID, date, s.cfg.Sheets.ReceptionSheetGID)
	if err != nil {
		return nil, err
	}

	rows, err := s.getRange(ctx, ssID, fmt.Sprintf("'%s'!D%d:AE%d", sheetName, receptionDataStartRow, receptionDataStartRow+maxReceptionRows))
	if err != nil {
		return nil, fmt.Errorf("fetch receptions: %w", err)
	}

	records := parseReceptionRows(rows)
	s.logger.Debug().
		Str("sheet", sheetName).
		Int("rows", len(rows)).
		Int("records", len(records)).
		Msg("Fetched receptions")
	return records, nil
}

func parseReceptionRows(rows [][]string) []models.ReceptionRecord {
	var records []models.ReceptionRecord
	for i := range rows {
		castName := cellAt(rows, i, recColCastName)
		startTime := cellAt(rows, i, recColStartTime)
		course := cellAt(rows, i, recColCourse)

		switch {
		case castName == "" && startTime == "" && course == "":
			continue
		case castName == "":
			metrics.IncRowsDropped("reception_no_cast", 1)
			continue
		case startTime == "":
			metrics.IncRowsDropped("reception_no_start", 1)
			continue
		case course == "":
			metrics.IncRowsDropped("reception_no_course", 1)
			continue
		}

		start, ok := btime.ParseClockString(startTime)
		courseMin, convErr := strconv.Atoi(course)
		if !ok || convErr != nil {
			metrics.IncRowsDropped("reception_unparseable", 1)
			continue
		}

		records = append(records, models.ReceptionRecord{
			CastName:          castName,
			Brand:             models.ParseBrand(cellAt(rows, i, recColBrand)),
			CustomerName:      cellAt(rows, i, recColCustomer),
			Phone:             cellAt(rows, i, recColPhone),
			MemberType:        models.MemberTypeLabel(cellAt(rows, i, recColMemberType)),
			CourseMinutes:     courseMin,
			StartTime:         startTime,
			Interval:          models.TimeInterval{Start: start, End: start + courseMin},
			Amount:            cellAt(rows, i, recColAmount),
			ActualStartTime:   cellAt(rows, i, recColActual),
			EndTime:           cellAt(rows, i, recColEndTime),
			HotelLocation:     cellAt(rows, i, recColHotel),
			RoomNumber:        cellAt(rows, i, recColRoom),
			Option:            cellAt(rows, i, recColOption),
			TransportationFee: cellAt(rows, i, recColTransport),
			DiscountName:      cellAt(rows, i, recColDiscount),
			Note:              cellAt(rows, i, recColNote),
			SourceRow:         i,
		})
	}
	return records
}

// FetchAttendance reads the per-brand schedule spreadsheets. Each sheet
// has cast names in the first column and one column per date; the cell
// at the crossing is the shift ("21.5-27.5"). When the same normalized
// name appears on several brand sheets, the longer shift wins.
func (s *SheetsService) FetchAttendance(ctx context.Context, date string) (map[string]models.AttendanceInterval, error) {
	attendance := make(map[string]models.AttendanceInterval)

	for _, brand := range []models.Brand{models.BrandGohobi, models.BrandGussuri, models.BrandChijo} {
		ssID := s.cfg.Sheets.ScheduleSpreadsheets[string(brand)]
		if ssID == "" {
			continue
		}

		rows, err := s.getRange(ctx, ssID, "A1:AZ200")
		if err != nil {
			return nil, fmt.Errorf("fetch %s schedule: %w", brand, err)
		}
		mergeAttendance(attendance, rows, brand, date)
	}

	return attendance, nil
}

func mergeAttendance(into map[string]models.AttendanceInterval, rows [][]string, brand models.Brand, date string) {
	if len(rows) == 0 {
		return
	}

	dateCol := -1
	for j := 1; j < len(rows[0]); j++ {
		if sameSheetDate(rows[0][j], date) {
			dateCol = j
			break
		}
	}
	if dateCol < 0 {
		return
	}

	for i := 1; i < len(rows); i++ {
		name := cellAt(rows, i, 0)
		if name == "" {
			continue
		}
		iv, ok := grid.ParseAttendanceCell(cellAt(rows, i, dateCol))
		if !ok {
			continue
		}

		key := names.Key(name)
		if key == "" {
			continue
		}
		existing, found := into[key]
		if found && existing.Interval.Duration() >= iv.Duration() {
			continue
		}
		into[key] = models.AttendanceInterval{Name: name, Brand: brand, Interval: iv}
	}
}

// sameSheetDate compares "M/D" strings tolerating zero padding, so a
// "08/05" header matches the "8/5" tab convention.
func sameSheetDate(a, b string) bool {
	return normalizeSheetDate(a) == normalizeSheetDate(b) && normalizeSheetDate(a) != ""
}

func normalizeSheetDate(s string) string {
	var month, day int
	if _, err := fmt.Sscanf(s, "%d/%d", &month, &day); err != nil {
		return ""
	}
	return fmt.Sprintf("%d/%d", month, day)
}

// FetchStaff reads the staff name list, deduplicated and sorted.
func (s *SheetsService) FetchStaff(ctx context.Context) ([]string, error) {
	ssID := s.cfg.Sheets.ReceptionSpreadsheetID

	sheetName, err := s.resolveSheet(ctx, ssID, "", s.cfg.Sheets.StaffSheetGID)
	if err != nil {
		return nil, err
	}

	rows, err := s.getRange(ctx, ssID, fmt.Sprintf("'%s'!B2:B%d", sheetName, 2+maxStaffRows))
	if err != nil {
		return nil, fmt.Errorf("fetch staff: %w", err)
	}

	seen := make(map[string]bool)
	var staff []string
	for i := range rows {
		name := cellAt(rows, i, 0)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		staff = append(staff, name)
	}
	sort.Strings(staff)
	return staff, nil
}

func cellAt(rows [][]string, i, j int) string {
	if i >= len(rows) || j >= len(rows[i]) {
		return ""
	}
	return rows[i][j]
}

func rowAt(rows [][]string, i int) []string {
	if i >= len(rows) {
		return nil
	}
	return rows[i]
}

func maxRows(a, b int) int {
	if a > b {
		return a
	}
	return b
}
