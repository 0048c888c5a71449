package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"driver-compare/internal/services"
	"driver-compare/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

type PageHandlers struct {
	dashboard *services.Dashboard
	upload    UploadOptions
	logger    *slog.Logger
}

func NewPageHandlers(dashboard *services.Dashboard, upload UploadOptions, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		dashboard: dashboard,
		upload:    upload,
		logger:    logger,
	}
}

func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.render(w, r, http.StatusOK, h.pageData(r, ""))
}

// HandleUpload loads the workbook from the form and redirects back to the
// dashboard. A rejected workbook re-renders the page with the reason.
func (h *PageHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	file, name, cleanup, err := readUpload(w, r, h.upload.MaxBytes)
	if err != nil {
		h.rejectUpload(w, r, err)
		return
	}
	defer cleanup()

	id, _, err := h.dashboard.Upload(r.Context(), file, name)
	if err != nil {
		h.rejectUpload(w, r, uploadError(err))
		return
	}

	setSessionCookie(w, r, id, h.upload.SessionTTL)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandlers) rejectUpload(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.WarnContext(r.Context(), "upload rejected", "error", err)

	status := http.StatusBadRequest
	if appErr, ok := asAppError(err); ok {
		status = appErr.StatusCode
	}
	h.render(w, r, status, h.pageData(r, ErrorPrefix+userMessage(err)))
}

func (h *PageHandlers) pageData(r *http.Request, errMsg string) templates.DashboardData {
	data := templates.DashboardData{Error: errMsg, Message: NoWorkbookMessage}

	wb, ok := h.dashboard.Workbook(sessionID(r))
	if !ok {
		return data
	}

	opts := h.dashboard.Options(wb, nil)
	metrics := make([]string, len(opts.Metrics))
	for i, m := range opts.Metrics {
		metrics[i] = string(m)
	}

	data.HasWorkbook = true
	data.FileName = wb.FileName
	data.Message = AdvisoryMessage
	data.Departments = templates.NewOptions(opts.Departments, nil)
	data.Drivers = templates.NewOptions(opts.Drivers, nil)
	data.Metrics = templates.NewOptions(metrics, nil)
	return data
}

func (h *PageHandlers) render(w http.ResponseWriter, r *http.Request, status int, data templates.DashboardData) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	html, err := templates.Render(ctx, templates.Dashboard(data))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "render dashboard", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}
