package services

import (
	"driver-compare/internal/models"
)

// Resolution is the active set derived from a Selection.
type Resolution struct {
	Departments []string `json:"departments"`
	Candidates  []string `json:"candidates"`
	Drivers     []string `json:"drivers"`
}

// Select resolves which drivers a comparison covers. Explicit drivers win;
// otherwise the selected departments narrow the revenue drivers; with no
// filter at all every revenue driver is active.
func Select(revenue *models.MetricTable, sel models.Selection) Resolution {
	res := Resolution{Departments: dedupe(sel.Departments)}
	if len(res.Departments) == 0 {
		res.Departments = DepartmentOptions(revenue)
	}

	res.Candidates = driversIn(revenue, res.Departments)

	switch {
	case len(sel.Drivers) > 0:
		res.Drivers = dedupe(sel.Drivers)
	case len(sel.Departments) > 0:
		res.Drivers = res.Candidates
	default:
		res.Drivers = allDrivers(revenue)
	}
	return res
}

// DepartmentOptions lists the departments present in the revenue table in
// first-seen order.
func DepartmentOptions(revenue *models.MetricTable) []string {
	if revenue == nil {
		return []string{}
	}
	seen := make(map[string]struct{})
	out := []string{}
	for _, row := range revenue.Rows {
		if row.Department == "" {
			continue
		}
		if _, ok := seen[row.Department]; ok {
			continue
		}
		seen[row.Department] = struct{}{}
		out = append(out, row.Department)
	}
	return out
}

// DriverOptions lists the drivers a user can pick, narrowed to the given
// departments when any are set.
func DriverOptions(revenue *models.MetricTable, departments []string) []string {
	if len(departments) == 0 {
		return allDrivers(revenue)
	}
	return driversIn(revenue, departments)
}

func driversIn(revenue *models.MetricTable, departments []string) []string {
	if revenue == nil {
		return []string{}
	}
	active := make(map[string]struct{}, len(departments))
	for _, d := range departments {
		active[d] = struct{}{}
	}

	seen := make(map[string]struct{})
	out := []string{}
	for _, row := range revenue.Rows {
		if row.Driver == "" {
			continue
		}
		if _, ok := active[row.Department]; !ok {
			continue
		}
		if _, ok := seen[row.Driver]; ok {
			continue
		}
		seen[row.Driver] = struct{}{}
		out = append(out, row.Driver)
	}
	return out
}

func allDrivers(revenue *models.MetricTable) []string {
	if revenue == nil {
		return []string{}
	}
	seen := make(map[string]struct{})
	out := []string{}
	for _, row := range revenue.Rows {
		if row.Driver == "" {
			continue
		}
		if _, ok := seen[row.Driver]; ok {
			continue
		}
		seen[row.Driver] = struct{}{}
		out = append(out, row.Driver)
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
