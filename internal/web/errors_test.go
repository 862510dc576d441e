package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/calsrv/internal/calendar"
	"github.com/JonMunkholm/calsrv/internal/serializer"
)

func TestClassify(t *testing.T) {
	cal := &calendar.Calendar{ID: 3}

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "calendar not found",
			err:         calendar.CalendarNotFound(3),
			wantStatus:  http.StatusNotFound,
			wantCode:    "CAL001",
			wantMessage: "calendar 3 not found",
		},
		{
			name:        "read denied",
			err:         calendar.Forbidden(cal, calendar.PermRead),
			wantStatus:  http.StatusForbidden,
			wantCode:    "PERM001",
			wantMessage: "read access to calendar 3 denied",
		},
		{
			name:        "wrapped business error",
			err:         fmt.Errorf("list: %w", calendar.InvalidRequest("bad limit")),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "REQ001",
			wantMessage: "bad limit",
		},
		{
			name:        "too many imports",
			err:         calendar.ErrTooManyImports,
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    "IMP001",
			wantMessage: calendar.ErrTooManyImports.Error(),
		},
		{
			name:        "serializer",
			err:         &serializer.Error{Kind: serializer.KindObject, Media: serializer.MediaJSON, Err: errors.New("boom")},
			wantStatus:  http.StatusInternalServerError,
			wantCode:    serializer.Code,
			wantMessage: msgSerialization,
		},
		{
			name:        "unexpected",
			err:         errors.New("connection reset by peer"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "ERR000",
			wantMessage: msgInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, message := classify(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
			if message != tt.wantMessage {
				t.Errorf("message = %q, want %q", message, tt.wantMessage)
			}
		})
	}
}

func TestRespondError_JSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/calendars/1/events", nil)

	respondError(rec, req, errors.New("pq: relation does not exist"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Contains(resp.Message, "relation") {
		t.Errorf("internal detail leaked: %q", resp.Message)
	}
	if resp.Code != "ERR000" {
		t.Errorf("code = %q, want ERR000", resp.Code)
	}
}

func TestRespondError_HTMX(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/calendars/1/import", nil)
	req.Header.Set("HX-Request", "true")

	respondError(rec, req, calendar.InvalidRequest("no <file> provided"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "no &lt;file&gt; provided") {
		t.Errorf("partial does not escape message: %s", body)
	}
	if !strings.Contains(body, "REQ001") {
		t.Errorf("partial missing code: %s", body)
	}
}
