package models

import (
	"strings"
	"time"

	"github.com/aarondl/null/v8"
)

type Metric string

const (
	MetricRevenue    Metric = "Revenue"
	MetricJobNumbers Metric = "Job Numbers"
	MetricAverage    Metric = "Average"
)

// Metrics lists every metric in the order the dashboard offers them.
var Metrics = []Metric{MetricRevenue, MetricJobNumbers, MetricAverage}

// Sheet returns the workbook sheet holding the metric's table.
func (m Metric) Sheet() string {
	switch m {
	case MetricRevenue:
		return "Total R"
	case MetricJobNumbers:
		return "Total J"
	case MetricAverage:
		return "Total Average"
	default:
		return ""
	}
}

// WholeNumbers reports whether the metric's values are counts.
func (m Metric) WholeNumbers() bool {
	return m == MetricJobNumbers
}

func ParseMetric(s string) (Metric, bool) {
	s = strings.TrimSpace(s)
	for _, m := range Metrics {
		if strings.EqualFold(s, string(m)) {
			return m, true
		}
	}
	return "", false
}

var MonthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

type DriverRow struct {
	Driver     string           `json:"driver"`
	DriverNo   null.Int         `json:"driver_no"`
	Department string           `json:"department"`
	Months     [12]null.Float64 `json:"months"`
	Average    null.Float64     `json:"average"`
	Notes      string           `json:"notes"`
}

type MetricTable struct {
	Metric Metric      `json:"metric"`
	Rows   []DriverRow `json:"rows"`
}

// Find returns the first row keyed by driver. Later duplicates are ignored.
func (t *MetricTable) Find(driver string) (DriverRow, bool) {
	if t == nil {
		return DriverRow{}, false
	}
	for _, row := range t.Rows {
		if row.Driver == driver {
			return row, true
		}
	}
	return DriverRow{}, false
}

// Workbook holds the three metric tables parsed from one upload.
// It is never mutated after loading.
type Workbook struct {
	FileName   string
	LoadedAt   time.Time
	Revenue    *MetricTable
	JobNumbers *MetricTable
	Average    *MetricTable
}

func (w *Workbook) Table(m Metric) *MetricTable {
	switch m {
	case MetricRevenue:
		return w.Revenue
	case MetricJobNumbers:
		return w.JobNumbers
	case MetricAverage:
		return w.Average
	default:
		return nil
	}
}

// RowCount is the total number of rows across the three tables.
func (w *Workbook) RowCount() int {
	n := 0
	for _, m := range Metrics {
		if t := w.Table(m); t != nil {
			n += len(t.Rows)
		}
	}
	return n
}

// Selection is the filter state for one comparison. Empty Departments
// means every department; empty Drivers means derive from departments.
type Selection struct {
	Departments []string `json:"departments" validate:"dive,max=200"`
	Drivers     []string `json:"drivers" validate:"dive,max=200"`
	Metrics     []Metric `json:"metrics" validate:"dive,oneof='Revenue' 'Job Numbers' 'Average'"`
}

// HasMetric reports whether m is among the selected metrics.
func (s Selection) HasMetric(m Metric) bool {
	for _, selected := range s.Metrics {
		if selected == m {
			return true
		}
	}
	return false
}

// ComparisonRow merges the selected metrics for one driver. Months and
// Average hold the values of the last selected metric that had a row.
type ComparisonRow struct {
	Driver     string           `json:"driver"`
	DriverNo   null.Int         `json:"driver_no"`
	Department string           `json:"department"`
	Months     [12]null.Float64 `json:"months"`
	Average    null.Float64     `json:"average"`
	Notes      string           `json:"notes"`
	HasValues  bool             `json:"has_values"`
}
