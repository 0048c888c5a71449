package workbook

import (
	"math"
	"strconv"
	"strings"

	"github.com/aarondl/null/v8"

	"driver-compare/internal/models"
)

// Normalize coerces each raw cell to its column type. Cells that do not
// parse become invalid null values; the row is always kept.
func Normalize(raw *RawTable, metric models.Metric) *models.MetricTable {
	table := &models.MetricTable{
		Metric: metric,
		Rows:   make([]models.DriverRow, len(raw.Rows)),
	}

	whole := metric.WholeNumbers()
	for i, cells := range raw.Rows {
		row := models.DriverRow{
			Driver:     cells[colDriver],
			DriverNo:   ParseInt(cells[colDriverNo]),
			Department: cells[colDepartment],
			Notes:      cells[colNotes],
		}
		for m := range row.Months {
			row.Months[m] = parseValue(cells[colFirstMonth+m], whole)
		}
		row.Average = parseValue(cells[colAverage], whole)
		table.Rows[i] = row
	}
	return table
}

func parseValue(cell string, whole bool) null.Float64 {
	v := ParseFloat(cell)
	if whole && v.Valid {
		v.Float64 = math.Round(v.Float64)
	}
	return v
}

// ParseFloat reads a numeric cell. Empty, non-numeric, NaN and infinite
// cells are missing.
func ParseFloat(cell string) null.Float64 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return null.Float64{}
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float64{}
	}
	return null.Float64From(f)
}

// ParseInt reads a whole-number cell, rounding fractional values.
func ParseInt(cell string) null.Int {
	f := ParseFloat(cell)
	if !f.Valid {
		return null.Int{}
	}
	r := math.Round(f.Float64)
	if r > math.MaxInt32 || r < math.MinInt32 {
		return null.Int{}
	}
	return null.IntFrom(int(r))
}
