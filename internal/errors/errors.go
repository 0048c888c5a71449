package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type ErrorCode string

const (
	CodeInternal   ErrorCode = "INTERNAL_ERROR"
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	CodeNotFound   ErrorCode = "NOT_FOUND"
	CodeBadRequest ErrorCode = "BAD_REQUEST"
	CodeParse      ErrorCode = "PARSE_ERROR"
	CodeTooLarge   ErrorCode = "PAYLOAD_TOO_LARGE"
	CodeRateLimit  ErrorCode = "RATE_LIMIT_EXCEEDED"
)

var statusByCode = map[ErrorCode]int{
	CodeValidation: http.StatusBadRequest,
	CodeBadRequest: http.StatusBadRequest,
	CodeNotFound:   http.StatusNotFound,
	CodeParse:      http.StatusUnprocessableEntity,
	CodeTooLarge:   http.StatusRequestEntityTooLarge,
	CodeRateLimit:  http.StatusTooManyRequests,
}

// FieldError names one rejected input field of a validation failure.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

type AppError struct {
	Code       ErrorCode    `json:"code"`
	Message    string       `json:"message"`
	Details    string       `json:"details,omitempty"`
	Fields     []FieldError `json:"fields,omitempty"`
	StatusCode int          `json:"-"`
	Cause      error        `json:"-"`
	Timestamp  time.Time    `json:"timestamp"`
	RequestID  string       `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any *AppError carrying the same code, so callers can write
// errors.Is(err, errors.New(errors.CodeParse, "")).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func New(code ErrorCode, message string) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

// ValidationWrap reports a rejected request body or signal set together
// with the offending fields.
func ValidationWrap(err error, message string, fields ...FieldError) *AppError {
	appErr := Wrap(err, CodeValidation, message)
	appErr.Fields = fields
	return appErr
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func BadRequestWrap(err error, message string) *AppError {
	return Wrap(err, CodeBadRequest, message)
}

// Parse reports a workbook that could not be loaded. The cause is shown to
// the user since it names the sheet and the problem.
func Parse(err error) *AppError {
	appErr := Wrap(err, CodeParse, "The workbook could not be read")
	appErr.Details = err.Error()
	return appErr
}

func TooLarge(message string) *AppError {
	return New(CodeTooLarge, message)
}

func RateLimit(message string) *AppError {
	return New(CodeRateLimit, message)
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

// WriteError writes the JSON error envelope. Errors that are not an
// *AppError anywhere in their chain are reported as internal.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = Wrap(err, CodeInternal, "An unexpected error occurred")
	}
	appErr.RequestID = requestID

	if encodeErr := writeJSON(w, appErr.StatusCode, nil, ErrorResponse{Error: appErr}); encodeErr != nil {
		logger.Error("failed to encode error response",
			"encode_error", encodeErr,
			"original_error", err,
			"request_id", requestID,
		)
		return
	}

	level := slog.LevelError
	if appErr.StatusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "request failed",
		"error_code", appErr.Code,
		"error_message", appErr.Message,
		"status_code", appErr.StatusCode,
		"request_id", requestID,
		"cause", appErr.Cause,
	)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessWithHeaders(w, data, nil)
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	_ = writeJSON(w, http.StatusOK, headers, SuccessResponse{Data: data, Success: true})
}

func writeJSON(w http.ResponseWriter, status int, headers map[string]string, body any) error {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}
