package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"driver-compare/internal/metrics"
	"driver-compare/internal/services"
	"driver-compare/internal/testutil"
	"driver-compare/internal/workbook"
)

var testUpload = UploadOptions{MaxBytes: 1 << 20, SessionTTL: time.Hour}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestDashboard() *services.Dashboard {
	return services.NewDashboard(
		workbook.NewLoader(testLogger()),
		services.NewSessions(time.Hour, testLogger()),
		metrics.New(),
		testLogger(),
	)
}

func testWorkbook(t *testing.T) []byte {
	t.Helper()
	revenue := [][]any{
		testutil.DriverRow("Alice", 7, "North", 1000, "top seller"),
		testutil.DriverRow("Bob", 8, "North", 200, ""),
		testutil.DriverRow("Cara", 9, "South", 300, "part time"),
	}
	jobs := [][]any{
		testutil.DriverRow("Alice", 7, "North", 40, ""),
		testutil.DriverRow("Cara", 9, "South", 12, ""),
	}
	average := [][]any{
		testutil.DriverRow("Alice", 7, "North", 25, ""),
		testutil.DriverRow("Bob", 8, "North", 20, ""),
		testutil.DriverRow("Cara", 9, "South", 25, ""),
	}
	return testutil.Build(t, testutil.Standard(revenue, jobs, average)...)
}

// uploadedSession returns a dashboard holding testWorkbook and the session id
// it was stored under.
func uploadedSession(t *testing.T) (*services.Dashboard, string) {
	t.Helper()
	d := newTestDashboard()
	id, _, err := d.Upload(context.Background(), bytes.NewReader(testWorkbook(t)), "drivers.xlsx")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return d, id
}

func withSession(r *http.Request, id string) *http.Request {
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
	return r
}

func multipartRequest(t *testing.T, target, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, target, &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatalf("response did not set the %s cookie", SessionCookie)
	return nil
}
