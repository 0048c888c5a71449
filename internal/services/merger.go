package services

import (
	"errors"
	"fmt"

	"driver-compare/internal/models"
)

// ErrEmptySelection is advisory: nothing to compare until at least one
// metric and one driver are active.
var ErrEmptySelection = errors.New("select at least one department, driver, or metric")

// LookupError records a driver missing from one metric table. Merge never
// fails on it; the driver or that metric's contribution is skipped.
type LookupError struct {
	Driver string        `json:"driver"`
	Metric models.Metric `json:"metric"`
}

func (e LookupError) Error() string {
	return fmt.Sprintf("driver %q not found in %s table", e.Driver, e.Metric)
}

// Merge builds one row per driver that has a revenue entry. Identity
// columns and notes come from revenue; each metric then overwrites the
// month and average values in the order given, so the last metric with a
// matching row wins.
func Merge(drivers []string, metrics []models.Metric, wb *models.Workbook) ([]models.ComparisonRow, []LookupError) {
	rows := make([]models.ComparisonRow, 0, len(drivers))
	var misses []LookupError

	for _, driver := range drivers {
		identity, ok := wb.Revenue.Find(driver)
		if !ok {
			misses = append(misses, LookupError{Driver: driver, Metric: models.MetricRevenue})
			continue
		}

		row := models.ComparisonRow{
			Driver:     driver,
			DriverNo:   identity.DriverNo,
			Department: identity.Department,
		}
		for _, metric := range metrics {
			source, ok := wb.Table(metric).Find(driver)
			if !ok {
				misses = append(misses, LookupError{Driver: driver, Metric: metric})
				continue
			}
			row.Months = source.Months
			row.Average = source.Average
			row.HasValues = true
		}
		row.Notes = identity.Notes

		rows = append(rows, row)
	}
	return rows, misses
}
