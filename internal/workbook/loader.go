package workbook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"driver-compare/internal/models"
)

type Loader struct {
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With("component", "workbook_loader")}
}

// Load opens an xlsx stream and builds the three metric tables from the
// "Total R", "Total J" and "Total Average" sheets.
func (l *Loader) Load(ctx context.Context, r io.Reader, fileName string) (*models.Workbook, error) {
	start := time.Now()

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Reason: "open workbook", Err: err}
	}
	defer func() { _ = f.Close() }()

	raws := make([]*RawTable, len(models.Metrics))
	for i, metric := range models.Metrics {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := LoadSheet(f, metric.Sheet())
		if err != nil {
			return nil, err
		}
		raws[i] = raw
	}

	tables := make([]*models.MetricTable, len(models.Metrics))
	g, gctx := errgroup.WithContext(ctx)
	for i, metric := range models.Metrics {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tables[i] = Normalize(raws[i], metric)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("normalize tables: %w", err)
	}

	wb := &models.Workbook{
		FileName:   fileName,
		LoadedAt:   time.Now(),
		Revenue:    tables[0],
		JobNumbers: tables[1],
		Average:    tables[2],
	}

	l.logger.Info("workbook loaded",
		"file", fileName,
		"revenue_rows", len(wb.Revenue.Rows),
		"job_rows", len(wb.JobNumbers.Rows),
		"average_rows", len(wb.Average.Rows),
		"duration", time.Since(start),
	)
	return wb, nil
}

// LoadSheet reads one sheet, drops the header row and pads every data row
// to ColumnCount cells. Cells past the schema are ignored. Header labels
// are not checked; columns are assigned by position.
func LoadSheet(f *excelize.File, sheet string) (*RawTable, error) {
	if !slices.Contains(f.GetSheetList(), sheet) {
		return nil, &ParseError{Sheet: sheet, Reason: "missing sheet", Err: ErrSheetNotFound}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Sheet: sheet, Reason: "read rows", Err: err}
	}
	if len(rows) < 2 {
		return nil, &ParseError{Sheet: sheet, Reason: "empty sheet", Err: ErrNoDataRows}
	}

	// excelize trims blank trailing cells, so a Notes column that is empty
	// on every data row is only visible through the header.
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	data := rows[1:]
	if width < ColumnCount {
		return nil, &ParseError{
			Sheet:  sheet,
			Reason: fmt.Sprintf("found %d columns, want %d", width, ColumnCount),
			Err:    ErrTooFewColumns,
		}
	}

	table := &RawTable{Sheet: sheet, Rows: make([][ColumnCount]string, len(data))}
	for i, row := range data {
		for j := 0; j < ColumnCount && j < len(row); j++ {
			table.Rows[i][j] = strings.TrimSpace(row[j])
		}
	}
	return table, nil
}
