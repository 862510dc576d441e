package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/JonMunkholm/calsrv/internal/calendar"
	"github.com/JonMunkholm/calsrv/internal/config"
	"github.com/JonMunkholm/calsrv/internal/i18n"
	"github.com/JonMunkholm/calsrv/internal/importresult"
	"github.com/JonMunkholm/calsrv/internal/serializer"
	"github.com/go-chi/chi/v5"
)

// fakeBackend is an in-memory Backend that counts calls.
type fakeBackend struct {
	mu sync.Mutex

	calendars map[int64]*calendar.Calendar
	objects   calendar.ObjectCollection
	findErr   error

	importResult *calendar.ImportResult
	importErr    error
	history      []calendar.ImportRecord

	calendarCalls int
	objectCalls   int
	importCalls   int
	lastUser      string
	lastPage      calendar.Page
	lastPeriod    calendar.Period
	importedData  []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calendars: make(map[int64]*calendar.Calendar)}
}

func (f *fakeBackend) addCalendar(id int64, perms calendar.Permissions) *calendar.Calendar {
	cal := &calendar.Calendar{
		ID:          id,
		OwnerUserID: "owner",
		UserID:      "alice",
		DisplayName: "Work",
		Components:  calendar.TypeAll,
		Permissions: perms,
	}
	f.calendars[id] = cal
	return cal
}

func (f *fakeBackend) FindCalendar(ctx context.Context, id int64, userID string) (*calendar.Calendar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calendarCalls++
	f.lastUser = userID
	if f.findErr != nil {
		return nil, f.findErr
	}
	cal, ok := f.calendars[id]
	if !ok {
		return nil, calendar.CalendarNotFound(id)
	}
	return cal, nil
}

func (f *fakeBackend) FindObjectsByType(ctx context.Context, cal *calendar.Calendar, t calendar.ObjectType, page calendar.Page) (calendar.ObjectCollection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objectCalls++
	f.lastPage = page
	return page.Apply(f.objects.OfType(t)), nil
}

func (f *fakeBackend) FindObjectsByTypeInPeriod(ctx context.Context, cal *calendar.Calendar, t calendar.ObjectType, period calendar.Period, page calendar.Page) (calendar.ObjectCollection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objectCalls++
	f.lastPage = page
	f.lastPeriod = period

	var in calendar.ObjectCollection
	for _, o := range f.objects.OfType(t) {
		if period.Overlaps(o.Start, o.End) {
			in = append(in, o)
		}
	}
	return page.Apply(in), nil
}

func (f *fakeBackend) FindObjectByType(ctx context.Context, cal *calendar.Calendar, objectURI string, t calendar.ObjectType) (*calendar.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objectCalls++
	for _, o := range f.objects {
		if o.URI == objectURI && o.Type == t {
			return o, nil
		}
	}
	return nil, calendar.ObjectNotFound(objectURI, t)
}

func (f *fakeBackend) Import(ctx context.Context, cal *calendar.Calendar, file calendar.ImportFile) (*calendar.ImportResult, error) {
	data, err := io.ReadAll(file.Data)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.importCalls++
	f.importedData = append(f.importedData, string(data))
	if f.importErr != nil {
		return nil, f.importErr
	}
	res := *f.importResult
	res.FileName = file.Name
	return &res, nil
}

func (f *fakeBackend) ImportHistory(ctx context.Context, cal *calendar.Calendar, limit int) ([]calendar.ImportRecord, error) {
	if err := calendar.Require(cal, calendar.PermRead); err != nil {
		return nil, err
	}
	return f.history, nil
}

// failingSerializer fails every call.
type failingSerializer struct{}

func (failingSerializer) Serialize(kind serializer.Kind, value any, accept string) (serializer.Payload, error) {
	return serializer.Payload{}, &serializer.Error{Kind: kind, Media: serializer.MediaJSON, Err: errors.New("boom")}
}

func event(uri string, start time.Time) *calendar.Object {
	return &calendar.Object{
		URI:     uri,
		Type:    calendar.TypeEvent,
		UID:     uri + "@test",
		Summary: "Meeting " + uri,
		Start:   start,
		End:     start.Add(time.Hour),
	}
}

func testFormatter() *importresult.Formatter {
	return importresult.NewFormatter(i18n.NewCatalog("en"))
}

// testConfig returns settings for a server without rate limiting.
func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{RequestTimeout: 5 * time.Second},
		Calendar: config.CalendarConfig{DefaultLimit: 25, MaxLimit: 500},
		Import:   config.ImportConfig{MaxFileSize: 1 << 20},
		Rate:     config.RateLimitConfig{RequestsPerMinute: 100, ImportLimit: 10},
	}
}

// withUser serves h under /calendars/{calendarID} as userID.
func withUser(userID string, mount func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if userID != "" {
				req = req.WithContext(calendar.ContextWithUserID(req.Context(), userID))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/calendars/{calendarID}", mount)
	return r
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
