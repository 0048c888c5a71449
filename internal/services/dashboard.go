package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"driver-compare/internal/metrics"
	"driver-compare/internal/models"
	"driver-compare/internal/observability"
	"driver-compare/internal/workbook"
)

// Comparison is the result of one render cycle.
type Comparison struct {
	Selection models.Selection       `json:"selection"`
	Drivers   []string               `json:"drivers"`
	Rows      []models.ComparisonRow `json:"rows"`
	Misses    []LookupError          `json:"misses,omitempty"`
}

// Options feeds the filter widgets.
type Options struct {
	FileName    string          `json:"file_name"`
	Departments []string        `json:"departments"`
	Drivers     []string        `json:"drivers"`
	Metrics     []models.Metric `json:"metrics"`
}

type Dashboard struct {
	loader   *workbook.Loader
	sessions *Sessions
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

func NewDashboard(loader *workbook.Loader, sessions *Sessions, recorder *metrics.Recorder, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	sessions.OnChange(recorder.SetSessions)
	return &Dashboard{
		loader:   loader,
		sessions: sessions,
		metrics:  recorder,
		logger:   logger.With("component", "dashboard"),
	}
}

// Upload parses r and stores the workbook in a new session.
func (d *Dashboard) Upload(ctx context.Context, r io.Reader, fileName string) (string, *models.Workbook, error) {
	ctx, span := observability.StartSpan(ctx, "workbook.upload")
	defer span.Finish()
	span.SetTag("file", fileName)

	wb, err := d.loader.Load(ctx, r, fileName)
	if err != nil {
		span.SetError(err)
		d.metrics.ObserveUpload(metrics.UploadRejected)
		return "", nil, err
	}

	id := d.sessions.Create(wb)
	d.metrics.ObserveUpload(metrics.UploadOK)
	span.SetTag("rows", strconv.Itoa(wb.RowCount()))
	return id, wb, nil
}

// LoadDefault loads a workbook from disk and serves it to requests that
// carry no session.
func (d *Dashboard) LoadDefault(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open default workbook: %w", err)
	}
	defer f.Close()

	wb, err := d.loader.Load(ctx, f, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("load default workbook: %w", err)
	}
	d.sessions.SetDefault(wb)
	return nil
}

func (d *Dashboard) Workbook(sessionID string) (*models.Workbook, bool) {
	return d.sessions.Get(sessionID)
}

func (d *Dashboard) Options(wb *models.Workbook, departments []string) Options {
	return Options{
		FileName:    wb.FileName,
		Departments: DepartmentOptions(wb.Revenue),
		Drivers:     DriverOptions(wb.Revenue, departments),
		Metrics:     models.Metrics,
	}
}

// Compare resolves the active drivers and merges the selected metrics.
// It returns ErrEmptySelection when there is nothing to show.
func (d *Dashboard) Compare(ctx context.Context, wb *models.Workbook, sel models.Selection) (*Comparison, error) {
	_, span := observability.StartSpan(ctx, "comparison.build")
	defer span.Finish()
	start := time.Now()

	res := Select(wb.Revenue, sel)
	if len(res.Drivers) == 0 || len(sel.Metrics) == 0 {
		d.metrics.ObserveComparison(metrics.OutcomeAdvisory, time.Since(start), 0)
		span.SetTag("outcome", metrics.OutcomeAdvisory)
		return nil, ErrEmptySelection
	}

	rows, misses := Merge(res.Drivers, sel.Metrics, wb)
	for _, miss := range misses {
		d.metrics.ObserveLookupMiss(string(miss.Metric))
		d.logger.Debug("lookup miss", "driver", miss.Driver, "metric", miss.Metric)
	}

	d.metrics.ObserveComparison(metrics.OutcomeTable, time.Since(start), len(rows))
	span.SetTag("outcome", metrics.OutcomeTable)
	span.SetTag("rows", strconv.Itoa(len(rows)))

	return &Comparison{
		Selection: sel,
		Drivers:   res.Drivers,
		Rows:      rows,
		Misses:    misses,
	}, nil
}

// Failed records a render cycle that aborted before a table was built.
func (d *Dashboard) Failed() {
	d.metrics.ObserveComparison(metrics.OutcomeError, 0, 0)
}

func (d *Dashboard) Stats() map[string]any {
	stats := map[string]any{
		"sessions": d.sessions.Len(),
	}
	if wb, ok := d.sessions.Get(""); ok {
		stats["default_workbook"] = wb.FileName
		stats["default_rows"] = wb.RowCount()
		stats["default_loaded_at"] = wb.LoadedAt
	}
	return stats
}
