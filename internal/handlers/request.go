package handlers

import (
	stderrors "errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"driver-compare/internal/errors"
	"driver-compare/internal/models"
	"driver-compare/internal/workbook"
)

// SessionCookie carries the id of the caller's uploaded workbook.
const SessionCookie = "driver_session"

const (
	AdvisoryMessage   = "Please select at least one department, driver, or metric."
	NoWorkbookMessage = "Please upload an Excel file to proceed."
	ErrorPrefix       = "An error occurred: "
)

// UploadOptions bounds uploads and sizes the session cookie.
type UploadOptions struct {
	MaxBytes   int64
	SessionTTL time.Duration
}

// SelectionRequest is the filter state as the browser sends it, either as
// datastar signals or as a JSON body.
type SelectionRequest struct {
	Departments []string `json:"departments"`
	Drivers     []string `json:"drivers"`
	Metrics     []string `json:"metrics"`
}

func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Selection normalizes the request and validates it. Metric names are
// matched case-insensitively; unknown names fail validation.
func (req SelectionRequest) Selection(v *validator.Validate) (models.Selection, error) {
	sel := models.Selection{
		Departments: compact(req.Departments),
		Drivers:     compact(req.Drivers),
	}
	for _, name := range compact(req.Metrics) {
		m, ok := models.ParseMetric(name)
		if !ok {
			m = models.Metric(name)
		}
		sel.Metrics = append(sel.Metrics, m)
	}

	if err := v.Struct(sel); err != nil {
		msg, fields := validationDetail(err)
		return models.Selection{}, errors.ValidationWrap(err, msg, fields...)
	}
	return sel, nil
}

func validationDetail(err error) (string, []errors.FieldError) {
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return "Invalid selection", nil
	}
	parts := make([]string, 0, len(fieldErrs))
	fields := make([]errors.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		fields = append(fields, errors.FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return "Invalid selection: " + strings.Join(parts, "; "), fields
}

// compact trims values and drops the empty ones a cleared multi-select sends.
func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func sessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, id string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// readUpload caps the body and returns the multipart "file" part. The caller
// must call cleanup.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (multipart.File, string, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooBig *http.MaxBytesError
		if stderrors.As(err, &tooBig) {
			return nil, "", nil, errors.TooLarge(fmt.Sprintf("Workbook exceeds the %d byte upload limit", maxBytes))
		}
		return nil, "", nil, errors.BadRequestWrap(err, "Expected a multipart form upload")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = r.MultipartForm.RemoveAll()
		return nil, "", nil, errors.BadRequestWrap(err, `Missing form field "file"`)
	}

	cleanup := func() {
		_ = file.Close()
		_ = r.MultipartForm.RemoveAll()
	}
	return file, header.Filename, cleanup, nil
}

// uploadError maps a loader failure onto the error envelope.
func uploadError(err error) error {
	var parseErr *workbook.ParseError
	if stderrors.As(err, &parseErr) {
		return errors.Parse(err)
	}
	return errors.Wrap(err, errors.CodeInternal, "Failed to load workbook")
}

func asAppError(err error) (*errors.AppError, bool) {
	var appErr *errors.AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// userMessage is the text shown for err on the page.
func userMessage(err error) string {
	if appErr, ok := asAppError(err); ok {
		if appErr.Details != "" {
			return appErr.Details
		}
		return appErr.Message
	}
	return err.Error()
}
