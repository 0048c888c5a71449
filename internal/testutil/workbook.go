// Package testutil builds in-memory xlsx workbooks for tests.
package testutil

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

var header = []any{
	"Driver", "Driver No", "Department",
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
	"Average", "Notes",
}

// Sheet is one worksheet: a header row is prepended unless NoHeader is set.
type Sheet struct {
	Name     string
	Rows     [][]any
	NoHeader bool
}

// DriverRow builds a 17-cell row. Month i holds base+i, the average
// holds base+5.5.
func DriverRow(driver string, driverNo any, department string, base float64, notes string) []any {
	row := []any{driver, driverNo, department}
	for i := 0; i < 12; i++ {
		row = append(row, base+float64(i))
	}
	return append(row, base+5.5, notes)
}

// Standard returns the three metric sheets with the given rows in each.
func Standard(revenue, jobs, average [][]any) []Sheet {
	return []Sheet{
		{Name: "Total R", Rows: revenue},
		{Name: "Total J", Rows: jobs},
		{Name: "Total Average", Rows: average},
	}
}

// Build writes the sheets to an xlsx byte slice.
func Build(t testing.TB, sheets ...Sheet) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			t.Fatalf("new sheet %q: %v", sheet.Name, err)
		}

		rows := sheet.Rows
		if !sheet.NoHeader {
			rows = append([][]any{header}, rows...)
		}
		for r, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			values := row
			if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
				t.Fatalf("write row %d of %q: %v", r, sheet.Name, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// Reader is Build wrapped in a reader.
func Reader(t testing.TB, sheets ...Sheet) *bytes.Reader {
	t.Helper()
	return bytes.NewReader(Build(t, sheets...))
}
