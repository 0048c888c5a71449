package handlers

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"driver-compare/internal/errors"
	"driver-compare/internal/models"
	"driver-compare/internal/observability"
	"driver-compare/internal/present"
	"driver-compare/internal/services"
)

const maxSelectionBody = 1 << 20

type APIHandlers struct {
	dashboard *services.Dashboard
	validate  *validator.Validate
	upload    UploadOptions
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard *services.Dashboard, upload UploadOptions, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		validate:  NewValidator(),
		upload:    upload,
		logger:    logger,
	}
}

type UploadResponse struct {
	SessionID string           `json:"session_id"`
	Rows      int              `json:"rows"`
	Options   services.Options `json:"options"`
}

type ComparisonResponse struct {
	Advisory string                 `json:"advisory,omitempty"`
	Table    *present.Table         `json:"table,omitempty"`
	Drivers  []string               `json:"drivers,omitempty"`
	Misses   []services.LookupError `json:"misses,omitempty"`
}

// HandleUpload is the JSON flavor of the upload form.
func (h *APIHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	file, name, cleanup, err := readUpload(w, r, h.upload.MaxBytes)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}
	defer cleanup()

	id, wb, err := h.dashboard.Upload(r.Context(), file, name)
	if err != nil {
		errors.WriteError(w, h.logger, uploadError(err), requestID)
		return
	}

	setSessionCookie(w, r, id, h.upload.SessionTTL)
	errors.WriteSuccess(w, UploadResponse{
		SessionID: id,
		Rows:      wb.RowCount(),
		Options:   h.dashboard.Options(wb, nil),
	})
}

// HandleOptions lists departments and the drivers in the departments given
// as repeated "department" query parameters.
func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	wb, ok := h.dashboard.Workbook(sessionID(r))
	if !ok {
		errors.WriteError(w, h.logger, errors.NotFound(NoWorkbookMessage), observability.GetRequestID(r.Context()))
		return
	}

	opts := h.dashboard.Options(wb, compact(r.URL.Query()["department"]))
	errors.WriteSuccessWithHeaders(w, opts, map[string]string{"Cache-Control": "no-store"})
}

func (h *APIHandlers) HandleComparison(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	var req SelectionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSelectionBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "Invalid JSON body"), requestID)
		return
	}

	sel, err := req.Selection(h.validate)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	wb, ok := h.dashboard.Workbook(sessionID(r))
	if !ok {
		errors.WriteError(w, h.logger, errors.NotFound(NoWorkbookMessage), requestID)
		return
	}

	cmp, err := h.dashboard.Compare(r.Context(), wb, sel)
	switch {
	case stderrors.Is(err, services.ErrEmptySelection):
		errors.WriteSuccess(w, ComparisonResponse{Advisory: AdvisoryMessage})
		return
	case err != nil:
		h.dashboard.Failed()
		errors.WriteError(w, h.logger, errors.Wrap(err, errors.CodeInternal, "Comparison failed"), requestID)
		return
	}

	table := present.Format(cmp.Rows, sel.Metrics)
	errors.WriteSuccess(w, ComparisonResponse{
		Table:   &table,
		Drivers: cmp.Drivers,
		Misses:  cmp.Misses,
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.dashboard.Stats()
	stats["metrics"] = models.Metrics
	errors.WriteSuccess(w, stats)
}
