package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"driver-compare/internal/testutil"
)

func TestPageHandlers_HandleDashboard(t *testing.T) {
	d, id := uploadedSession(t)
	h := NewPageHandlers(d, testUpload, testLogger())

	t.Run("without session", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.HandleDashboard(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
			t.Errorf("content-type = %q", ct)
		}
		if !strings.Contains(w.Body.String(), NoWorkbookMessage) {
			t.Error("expected the upload prompt")
		}
	})

	t.Run("with session", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.HandleDashboard(w, withSession(httptest.NewRequest(http.MethodGet, "/", nil), id))

		body := w.Body.String()
		for _, want := range []string{"Loaded: drivers.xlsx", AdvisoryMessage, `<option value="North">`, `<option value="Job Numbers">`} {
			if !strings.Contains(body, want) {
				t.Errorf("expected page to contain %q", want)
			}
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.HandleDashboard(w, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestPageHandlers_HandleUpload(t *testing.T) {
	h := NewPageHandlers(newTestDashboard(), testUpload, testLogger())

	w := httptest.NewRecorder()
	h.HandleUpload(w, multipartRequest(t, "/upload", "file", "drivers.xlsx", testWorkbook(t)))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("location = %q, want /", loc)
	}
	cookie := sessionCookie(t, w)

	w = httptest.NewRecorder()
	h.HandleDashboard(w, withSession(httptest.NewRequest(http.MethodGet, "/", nil), cookie.Value))
	if !strings.Contains(w.Body.String(), "Loaded: drivers.xlsx") {
		t.Error("uploaded workbook should be served for the new session")
	}
}

func TestPageHandlers_HandleUpload_ParseError(t *testing.T) {
	h := NewPageHandlers(newTestDashboard(), testUpload, testLogger())
	data := testutil.Build(t,
		testutil.Sheet{Name: "Total R", Rows: [][]any{testutil.DriverRow("A", 1, "North", 1, "")}},
		testutil.Sheet{Name: "Total J", Rows: [][]any{testutil.DriverRow("A", 1, "North", 1, "")}},
	)

	w := httptest.NewRecorder()
	h.HandleUpload(w, multipartRequest(t, "/upload", "file", "partial.xlsx", data))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	body := w.Body.String()
	if !strings.Contains(body, ErrorPrefix) || !strings.Contains(body, "Total Average") {
		t.Errorf("page should explain the missing sheet, got %q", body)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			t.Error("rejected upload must not set a session")
		}
	}
}

func TestPageHandlers_HandleUpload_TooLarge(t *testing.T) {
	h := NewPageHandlers(newTestDashboard(), UploadOptions{MaxBytes: 512, SessionTTL: testUpload.SessionTTL}, testLogger())

	w := httptest.NewRecorder()
	h.HandleUpload(w, multipartRequest(t, "/upload", "file", "drivers.xlsx", testWorkbook(t)))

	if w.Code != http.StatusRequestEntityTooLarge && w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 413 or 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), ErrorPrefix) {
		t.Error("expected an error notice on the page")
	}
}
