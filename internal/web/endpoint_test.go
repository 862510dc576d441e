package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/calsrv/internal/calendar"
	"github.com/JonMunkholm/calsrv/internal/serializer"
	"github.com/go-chi/chi/v5"
)

var testLimits = listLimits{Default: 25, Max: 500}

func newTestEndpoint(b *fakeBackend, ser serializer.Serializer) *ObjectEndpoint {
	e := NewObjectEndpoint(calendar.TypeEvent, b, b, ser, testLimits)
	e.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	return e
}

func eventsHandler(e *ObjectEndpoint, userID string) http.Handler {
	return withUser(userID, func(r chi.Router) {
		r.Mount("/events", e.Routes())
	})
}

func decodeObjects(t *testing.T, rec *httptest.ResponseRecorder) []calendar.Object {
	t.Helper()
	var got []calendar.Object
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return got
}

func TestObjectEndpoint_ListObjects(t *testing.T) {
	b := newFakeBackend()
	b.addCalendar(5, calendar.PermRead)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	b.objects = calendar.ObjectCollection{
		event("a", base),
		event("b", base.AddDate(0, 0, 1)),
		event("c", base.AddDate(0, 0, 2)),
		{URI: "t", Type: calendar.TypeTodo, Summary: "todo"},
	}
	e := newTestEndpoint(b, serializer.New())

	got, err := e.ListObjects(context.Background(), 5, "alice", calendar.Page{Limit: 25})
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if got.Len() != 3 {
		t.Errorf("ListObjects returned %d objects, want 3", got.Len())
	}
	if b.lastUser != "alice" {
		t.Errorf("calendar resolved for %q, want alice", b.lastUser)
	}

	rec := do(eventsHandler(e, "alice"), httptest.NewRequest(http.MethodGet, "/calendars/5/events?limit=25&offset=0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, serializer.MediaJSON) {
		t.Errorf("Content-Type = %q, want JSON", ct)
	}
	if objs := decodeObjects(t, rec); len(objs) != 3 {
		t.Errorf("body has %d objects, want 3", len(objs))
	}
	if b.lastPage != (calendar.Page{Limit: 25}) {
		t.Errorf("page = %+v, want limit 25 offset 0", b.lastPage)
	}
}

func TestObjectEndpoint_ReadDenied(t *testing.T) {
	b := newFakeBackend()
	b.addCalendar(5, calendar.PermCreate)
	b.objects = calendar.ObjectCollection{event("a", time.Now())}
	e := newTestEndpoint(b, serializer.New())

	paths := []string{
		"/calendars/5/events",
		"/calendars/5/events/period",
		"/calendars/5/events/a",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := do(eventsHandler(e, "alice"), httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusForbidden {
				t.Fatalf("status = %d, want 403", rec.Code)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Code != "PERM001" || resp.Message == "" {
				t.Errorf("error body = %+v, want PERM001 with message", resp)
			}
		})
	}

	if b.objectCalls != 0 {
		t.Errorf("object finder called %d times after denial, want 0", b.objectCalls)
	}

	_, err := e.ListObjects(context.Background(), 5, "alice", calendar.Page{})
	if !errors.Is(err, calendar.ErrPermissionDenied) {
		t.Errorf("ListObjects error = %v, want permission denied", err)
	}
}

func TestObjectEndpoint_NotFound(t *testing.T) {
	b := newFakeBackend()
	b.addCalendar(5, calendar.PermRead)
	e := newTestEndpoint(b, serializer.New())
	h := eventsHandler(e, "alice")

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing calendar", "/calendars/9/events", "CAL001"},
		{"missing object", "/calendars/5/events/nope", "OBJ001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", rec.Code)
			}
			var resp ErrorResponse
			json.Unmarshal(rec.Body.Bytes(), &resp)
			if resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
			if !strings.Contains(resp.Message, "not found") {
				t.Errorf("message = %q, want the not found message", resp.Message)
			}
		})
	}
}

func TestObjectEndpoint_GetObject(t *testing.T) {
	b := newFakeBackend()
	b.addCalendar(5, calendar.PermRead)
	b.objects = calendar.ObjectCollection{event("standup", time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))}
	e := newTestEndpoint(b, serializer.New())

	rec := do(eventsHandler(e, "alice"), httptest.NewRequest(http.MethodGet, "/calendars/5/events/standup", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var got calendar.Object
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.URI != "standup" {
		t.Errorf("URI = %q, want standup", got.URI)
	}
}

func TestObjectEndpoint_ICalendar(t *testing.T) {
	b := newFakeBackend()
	b.addCalendar(5, calendar.PermRead)
	b.objects = calendar.ObjectCollection{event("standup", time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))}
	e := newTestEndpoint(b, serializer.New())

	req := httptest.NewRequest(http.MethodGet, "/calendars/5/events", nil)
	req.Header.Set("Accept", "text/calendar")
	rec := do(eventsHandler(e, "alice"), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, serializer.MediaCalendar) {
		t.Errorf("Content-Type = %q, want text/calendar", ct)
	}
	if !strings.Contains(rec.Body.String(), "BEGIN:VEVENT") {
		t.Errorf("body has no VEVENT:\n%s", rec.Body)
	}
}

func TestObjectEndpoint_SerializationError(t *testing.T) {
	b := newFakeBackend()
	b.addCalendar(5, calendar.PermRead)
	b.objects = calendar.ObjectCollection{event("a", time.Now())}
	e := newTestEndpoint(b, failingSerializer{})

	rec := do(eventsHandler(e, "alice"), httptest.NewRequest(http.MethodGet, "/calendars/5/events", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Code != serializer.Code {
		t.Errorf("code = %q, want %q", resp.Code, serializer.Code)
	}
	if strings.Contains(resp.Message, "boom") {
		t.Errorf("message leaks cause: %q", resp.Message)
	}
}

func TestObjectEndpoint_PeriodDefaults(t *testing.T) {
	b := newFakeBackend()
	b.addCalendar(5, calendar.PermRead)
	b.objects = calendar.ObjectCollection{
		event("feb", time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)),
		event("mar", time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)),
	}
	e := newTestEndpoint(b, serializer.New())
	h := eventsHandler(e, "alice")

	rec := do(h, httptest.NewRequest(http.MethodGet, "/calendars/5/events/period", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	want := calendar.MonthOf(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	if !b.lastPeriod.Start.Equal(want.Start) || !b.lastPeriod.End.Equal(want.End) {
		t.Errorf("period = %v..%v, want %v..%v", b.lastPeriod.Start, b.lastPeriod.End, want.Start, want.End)
	}
	objs := decodeObjects(t, rec)
	if len(objs) != 1 || objs[0].URI != "mar" {
		t.Errorf("objects = %+v, want only mar", objs)
	}

	// start alone switches the plain listing to period mode; end stays at month end.
	rec = do(h, httptest.NewRequest(http.MethodGet, "/calendars/5/events?start=2024-03-10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := b.lastPeriod.Start; !got.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("period start = %v, want 2024-03-10", got)
	}
	if !b.lastPeriod.End.Equal(want.End) {
		t.Errorf("period end = %v, want %v", b.lastPeriod.End, want.End)
	}
}

func TestObjectEndpoint_BadRequest(t *testing.T) {
	b := newFakeBackend()
	b.addCalendar(5, calendar.PermRead)
	e := newTestEndpoint(b, serializer.New())
	h := eventsHandler(e, "alice")

	paths := []string{
		"/calendars/abc/events",
		"/calendars/5/events?limit=0",
		"/calendars/5/events?limit=501",
		"/calendars/5/events?offset=-1",
		"/calendars/5/events?offset=3000000000",
		"/calendars/5/events?start=tomorrow",
		"/calendars/5/events/period?start=2024-03-10&end=2024-03-01",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := do(h, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
	if b.objectCalls != 0 {
		t.Errorf("object finder called %d times, want 0", b.objectCalls)
	}
}

func TestObjectEndpoint_NoUser(t *testing.T) {
	b := newFakeBackend()
	b.addCalendar(5, calendar.PermRead)
	e := newTestEndpoint(b, serializer.New())

	rec := do(eventsHandler(e, ""), httptest.NewRequest(http.MethodGet, "/calendars/5/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if b.calendarCalls != 0 {
		t.Errorf("calendar finder called %d times, want 0", b.calendarCalls)
	}
}

func TestObjectEndpoint_HTMXError(t *testing.T) {
	b := newFakeBackend()
	e := newTestEndpoint(b, serializer.New())

	req := httptest.NewRequest(http.MethodGet, "/calendars/5/events", nil)
	req.Header.Set("HX-Request", "true")
	rec := do(eventsHandler(e, "alice"), req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "CAL001") {
		t.Errorf("partial missing code: %s", rec.Body)
	}
}
