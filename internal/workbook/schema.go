package workbook

import (
	"errors"
	"fmt"
)

// ColumnCount is the width of every metric sheet.
const ColumnCount = 17

// Columns is the positional schema applied to each data row.
var Columns = [ColumnCount]string{
	"Driver", "Driver No", "Department",
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
	"Average", "Notes",
}

const (
	colDriver     = 0
	colDriverNo   = 1
	colDepartment = 2
	colFirstMonth = 3
	colAverage    = 15
	colNotes      = 16
)

var (
	ErrSheetNotFound = errors.New("sheet not found")
	ErrNoDataRows    = errors.New("no data rows after header")
	ErrTooFewColumns = errors.New("too few columns")
)

// ParseError reports a workbook or sheet that cannot be turned into a
// metric table. It is fatal to the load that produced it.
type ParseError struct {
	Sheet  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("parse workbook: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse sheet %q: %s: %v", e.Sheet, e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// RawTable is a sheet cut to the fixed schema, one string per cell.
type RawTable struct {
	Sheet string
	Rows  [][ColumnCount]string
}
