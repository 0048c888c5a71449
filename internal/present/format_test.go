package present

import (
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driver-compare/internal/models"
)

func comparisonRow(driver string, no int, jan float64) models.ComparisonRow {
	row := models.ComparisonRow{
		Driver:     driver,
		DriverNo:   null.IntFrom(no),
		Department: "North",
		Average:    null.Float64From(jan),
		Notes:      "note",
		HasValues:  true,
	}
	for i := range row.Months {
		row.Months[i] = null.Float64From(jan)
	}
	return row
}

func TestFormat_Revenue(t *testing.T) {
	table := Format([]models.ComparisonRow{comparisonRow("A", 7, 100.5)}, []models.Metric{models.MetricRevenue})

	require.Len(t, table.Columns, 16)
	assert.Equal(t, []string{"Driver No", "Department", "Jan"}, table.Columns[:3])
	assert.Equal(t, "Average", table.Columns[14])
	assert.Equal(t, "Notes", table.Columns[15])
	assert.False(t, table.Whole)

	require.Len(t, table.Rows, 1)
	row := table.Rows[0]
	assert.Equal(t, "A", row.Driver)
	assert.Equal(t, "7", row.Cells[0])
	assert.Equal(t, "North", row.Cells[1])
	assert.Equal(t, "100.50", row.Cells[2])
	assert.Equal(t, "note", row.Cells[15])
}

func TestFormat_JobNumbersWhole(t *testing.T) {
	metrics := []models.Metric{models.MetricRevenue, models.MetricJobNumbers}
	table := Format([]models.ComparisonRow{comparisonRow("A", 7, 1234.4)}, metrics)

	assert.True(t, table.Whole)
	assert.Equal(t, "1234", table.Rows[0].Cells[2])
}

func TestFormat_NoValues(t *testing.T) {
	row := models.ComparisonRow{Driver: "B", DriverNo: null.IntFrom(8), Department: "North"}
	table := Format([]models.ComparisonRow{row}, []models.Metric{models.MetricJobNumbers})

	assert.Equal(t, []string{"Driver No", "Department", "Notes"}, table.Columns)
	assert.Equal(t, []string{"8", "North", ""}, table.Rows[0].Cells)
}

func TestFormat_MissingCells(t *testing.T) {
	withValues := comparisonRow("A", 7, 5)
	missing := models.ComparisonRow{Driver: "B", Department: "North"}

	table := Format([]models.ComparisonRow{withValues, missing}, []models.Metric{models.MetricRevenue})

	require.Len(t, table.Rows, 2)
	for _, cell := range table.Rows[1].Cells[:15] {
		if cell != "North" {
			assert.Equal(t, Missing, cell)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value null.Float64
		whole bool
		want  string
	}{
		{"two decimals", null.Float64From(100.5), false, "100.50"},
		{"grouped", null.Float64From(1234567.891), false, "1,234,567.89"},
		{"negative", null.Float64From(-42), false, "-42.00"},
		{"whole", null.Float64From(12), true, "12"},
		{"whole rounds", null.Float64From(12.7), true, "13"},
		{"missing", null.Float64{}, false, Missing},
		{"missing whole", null.Float64{}, true, Missing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.value, tt.whole))
		})
	}
}

func TestFormatInt(t *testing.T) {
	assert.Equal(t, "7", FormatInt(null.IntFrom(7)))
	assert.Equal(t, Missing, FormatInt(null.Int{}))
}
