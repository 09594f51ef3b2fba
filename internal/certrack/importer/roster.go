package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const maxRosterRows = 50000

var (
	ErrRosterNoData      = errors.New("roster has no data rows (first row is the header)")
	ErrRosterTooManyRows = fmt.Errorf("roster exceeds %d rows", maxRosterRows)
)

// Roster columns, fixed order. The secondary placement block is optional
// per row.
const (
	colRegional = iota
	colDivision
	colUnit
	colJobTitle
	colNIP
	colName
	colGender
	colEmail
	colEffectiveDate
	colRegional2
	colDivision2
	colUnit2
	colJobTitle2
	colEffectiveDate2
	colCount
)

// RosterRow is one parsed line of the uploaded roster.
type RosterRow struct {
	// Row is the 1-based spreadsheet row number, kept for error messages.
	Row int

	Regional      string
	Division      string
	Unit          string
	JobTitle      string
	NIP           string
	Name          string
	Gender        string
	Email         string
	EffectiveDate time.Time

	HasSecondary   bool
	Regional2      string
	Division2      string
	Unit2          string
	JobTitle2      string
	EffectiveDate2 time.Time
}

// ParseRoster reads the first sheet of an uploaded workbook. The first
// row is the header; fully blank rows are skipped. Unparseable dates are
// reported per row by the planner, not here; the raw cell simply stays
// zero.
func ParseRoster(reader io.Reader) ([]RosterRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("cannot open roster workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("cannot read sheet %q: %w", sheet, err)
	}
	if len(cells) < 2 {
		return nil, ErrRosterNoData
	}

	var rows []RosterRow
	for i := 1; i < len(cells); i++ {
		row := parseRow(i+1, cells[i])
		if row == nil {
			continue
		}
		rows = append(rows, *row)
	}
	if len(rows) == 0 {
		return nil, ErrRosterNoData
	}
	if len(rows) > maxRosterRows {
		return nil, ErrRosterTooManyRows
	}
	return rows, nil
}

func parseRow(num int, cells []string) *RosterRow {
	cell := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	blank := true
	for i := 0; i < colCount; i++ {
		if cell(i) != "" {
			blank = false
			break
		}
	}
	if blank {
		return nil
	}

	row := &RosterRow{
		Row:           num,
		Regional:      cell(colRegional),
		Division:      cell(colDivision),
		Unit:          cell(colUnit),
		JobTitle:      cell(colJobTitle),
		NIP:           cell(colNIP),
		Name:          cell(colName),
		Gender:        cell(colGender),
		Email:         cell(colEmail),
		EffectiveDate: parseDate(cell(colEffectiveDate)),
	}

	if cell(colRegional2) != "" {
		row.HasSecondary = true
		row.Regional2 = cell(colRegional2)
		row.Division2 = cell(colDivision2)
		row.Unit2 = cell(colUnit2)
		row.JobTitle2 = cell(colJobTitle2)
		row.EffectiveDate2 = parseDate(cell(colEffectiveDate2))
	}
	return row
}

// parseDate accepts the formats Excel cells commonly carry.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02", "01-02-06", "1/2/06", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
