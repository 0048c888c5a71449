package handlers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-playground/validator/v10"
	"github.com/starfederation/datastar-go/datastar"

	"driver-compare/internal/models"
	"driver-compare/internal/present"
	"driver-compare/internal/services"
	"driver-compare/internal/ui/templates"
)

type SSEHandlers struct {
	dashboard *services.Dashboard
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		validate:  NewValidator(),
		logger:    logger,
	}
}

// HandleComparison runs one render cycle from the current signals. It
// patches the narrowed driver list first, then exactly one of: the table,
// the advisory, or an error notice.
func (h *SSEHandlers) HandleComparison(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	readErr := datastar.ReadSignals(r, &req)

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	wb, ok := h.dashboard.Workbook(sessionID(r))
	if !ok {
		h.patch(ctx, sse, templates.Message("info", NoWorkbookMessage))
		return
	}

	if readErr != nil {
		h.fail(ctx, sse, readErr)
		return
	}

	sel, err := req.Selection(h.validate)
	if err != nil {
		h.fail(ctx, sse, err)
		return
	}

	drivers := services.DriverOptions(wb.Revenue, sel.Departments)
	if !h.patch(ctx, sse, templates.DriverOptions(templates.NewOptions(drivers, sel.Drivers))) {
		return
	}

	cmp, err := h.dashboard.Compare(ctx, wb, sel)
	switch {
	case stderrors.Is(err, services.ErrEmptySelection):
		h.patch(ctx, sse, templates.Message("info", AdvisoryMessage))
	case err != nil:
		h.fail(ctx, sse, err)
	default:
		h.patch(ctx, sse, templates.Comparison(caption(sel.Metrics), present.Format(cmp.Rows, sel.Metrics)))
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// patch renders c in full before sending, so a template failure never
// leaves half a table on the page.
func (h *SSEHandlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component) bool {
	html, err := templates.Render(ctx, c)
	if err != nil {
		h.logger.ErrorContext(ctx, "render fragment", "error", err)
		html, _ = templates.Render(ctx, templates.Message("error", ErrorPrefix+"could not render the comparison"))
		h.dashboard.Failed()
		_ = sse.PatchElements(html)
		return false
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.DebugContext(ctx, "patch elements", "error", err)
		return false
	}
	return true
}

func (h *SSEHandlers) fail(ctx context.Context, sse *datastar.ServerSentEventGenerator, err error) {
	h.dashboard.Failed()
	h.logger.WarnContext(ctx, "comparison failed", "error", err)
	h.patch(ctx, sse, templates.Message("error", ErrorPrefix+userMessage(err)))
}

func caption(metrics []models.Metric) string {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
