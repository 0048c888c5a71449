// Package present turns comparison rows into display strings.
package present

import (
	"strconv"

	"github.com/aarondl/null/v8"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"driver-compare/internal/models"
)

const (
	ColumnDriverNo   = "Driver No"
	ColumnDepartment = "Department"
	ColumnAverage    = "Average"
	ColumnNotes      = "Notes"
)

// Missing is rendered for cells with no value.
const Missing = ""

type Row struct {
	Driver string   `json:"driver"`
	Cells  []string `json:"cells"`
}

// Table is keyed by driver; Columns excludes the driver key itself.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
	Whole   bool     `json:"whole_numbers"`
}

var printer = message.NewPrinter(language.English)

// Format applies the display policy: Driver No is always whole, value
// columns are whole when Job Numbers is selected and grouped to two
// decimals otherwise. Value columns appear only when some row has values.
func Format(rows []models.ComparisonRow, metrics []models.Metric) Table {
	whole := false
	for _, m := range metrics {
		if m.WholeNumbers() {
			whole = true
			break
		}
	}

	withValues := false
	for _, r := range rows {
		if r.HasValues {
			withValues = true
			break
		}
	}

	table := Table{Columns: []string{ColumnDriverNo, ColumnDepartment}, Whole: whole}
	if withValues {
		table.Columns = append(table.Columns, models.MonthNames[:]...)
		table.Columns = append(table.Columns, ColumnAverage)
	}
	table.Columns = append(table.Columns, ColumnNotes)

	table.Rows = make([]Row, 0, len(rows))
	for _, r := range rows {
		cells := make([]string, 0, len(table.Columns))
		cells = append(cells, FormatInt(r.DriverNo), r.Department)
		if withValues {
			for _, v := range r.Months {
				cells = append(cells, FormatValue(v, whole))
			}
			cells = append(cells, FormatValue(r.Average, whole))
		}
		cells = append(cells, r.Notes)
		table.Rows = append(table.Rows, Row{Driver: r.Driver, Cells: cells})
	}
	return table
}

func FormatInt(v null.Int) string {
	if !v.Valid {
		return Missing
	}
	return strconv.Itoa(v.Int)
}

// FormatValue renders "1234" when whole, else "1,234.50".
func FormatValue(v null.Float64, whole bool) string {
	if !v.Valid {
		return Missing
	}
	if whole {
		return strconv.FormatFloat(v.Float64, 'f', 0, 64)
	}
	return printer.Sprintf("%.2f", v.Float64)
}
