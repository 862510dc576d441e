package web

// endpoint.go adapts object requests to the business layer.
//
// An ObjectEndpoint is bound to one object type when it is built and is
// shared by all requests. Every operation resolves the calendar for the
// user first and checks Read before any object query is issued.

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/calsrv/internal/calendar"
	"github.com/JonMunkholm/calsrv/internal/serializer"
	"github.com/go-chi/chi/v5"
)

// ObjectEndpoint serves events, todos or journals of a calendar.
type ObjectEndpoint struct {
	objectType calendar.ObjectType
	calendars  calendar.CalendarFinder
	objects    calendar.ObjectFinder
	serializer serializer.Serializer
	limits     listLimits
	now        func() time.Time
}

// NewObjectEndpoint returns an endpoint for objects of type t.
func NewObjectEndpoint(t calendar.ObjectType, calendars calendar.CalendarFinder, objects calendar.ObjectFinder, ser serializer.Serializer, limits listLimits) *ObjectEndpoint {
	return &ObjectEndpoint{
		objectType: t,
		calendars:  calendars,
		objects:    objects,
		serializer: ser,
		limits:     limits,
		now:        time.Now,
	}
}

// Type returns the object type the endpoint is bound to.
func (e *ObjectEndpoint) Type() calendar.ObjectType {
	return e.objectType
}

// readableCalendar resolves calendarID for userID and requires Read.
func (e *ObjectEndpoint) readableCalendar(ctx context.Context, calendarID int64, userID string) (*calendar.Calendar, error) {
	cal, err := e.calendars.FindCalendar(ctx, calendarID, userID)
	if err != nil {
		return nil, err
	}
	if err := calendar.Require(cal, calendar.PermRead); err != nil {
		return nil, err
	}
	return cal, nil
}

// ListObjects returns a page of the calendar's objects.
func (e *ObjectEndpoint) ListObjects(ctx context.Context, calendarID int64, userID string, page calendar.Page) (calendar.ObjectCollection, error) {
	cal, err := e.readableCalendar(ctx, calendarID, userID)
	if err != nil {
		return nil, err
	}
	return e.objects.FindObjectsByType(ctx, cal, e.objectType, page)
}

// ListObjectsInPeriod returns a page of the objects intersecting period.
func (e *ObjectEndpoint) ListObjectsInPeriod(ctx context.Context, calendarID int64, userID string, period calendar.Period, page calendar.Page) (calendar.ObjectCollection, error) {
	cal, err := e.readableCalendar(ctx, calendarID, userID)
	if err != nil {
		return nil, err
	}
	return e.objects.FindObjectsByTypeInPeriod(ctx, cal, e.objectType, period, page)
}

// GetObject returns one object by URI.
func (e *ObjectEndpoint) GetObject(ctx context.Context, calendarID int64, userID, objectID string) (*calendar.Object, error) {
	cal, err := e.readableCalendar(ctx, calendarID, userID)
	if err != nil {
		return nil, err
	}
	return e.objects.FindObjectByType(ctx, cal, objectID, e.objectType)
}

// HandleList serves a listing. When start or end is given the listing is
// restricted to that period.
func (e *ObjectEndpoint) HandleList(w http.ResponseWriter, r *http.Request) {
	e.list(w, r, false)
}

// HandlePeriod serves a period listing, defaulting to the current month.
func (e *ObjectEndpoint) HandlePeriod(w http.ResponseWriter, r *http.Request) {
	e.list(w, r, true)
}

func (e *ObjectEndpoint) list(w http.ResponseWriter, r *http.Request, period bool) {
	calendarID, userID, err := requestTarget(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	req, err := parseListRequest(r.URL.Query(), e.limits, e.now())
	if err != nil {
		respondError(w, r, err)
		return
	}

	var objects calendar.ObjectCollection
	if period || req.InPeriod {
		objects, err = e.ListObjectsInPeriod(r.Context(), calendarID, userID, req.Period, req.Page)
	} else {
		objects, err = e.ListObjects(r.Context(), calendarID, userID, req.Page)
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	e.respond(w, r, serializer.KindObjectCollection, objects)
}

// HandleGet serves a single object.
func (e *ObjectEndpoint) HandleGet(w http.ResponseWriter, r *http.Request) {
	calendarID, userID, err := requestTarget(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	obj, err := e.GetObject(r.Context(), calendarID, userID, chi.URLParam(r, "objectID"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	e.respond(w, r, serializer.KindObject, obj)
}

func (e *ObjectEndpoint) respond(w http.ResponseWriter, r *http.Request, kind serializer.Kind, v any) {
	payload, err := e.serializer.Serialize(kind, v, r.Header.Get("Accept"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", payload.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(payload.Body)
}

// Routes mounts the typed listing, period and detail routes.
func (e *ObjectEndpoint) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", e.HandleList)
	r.Get("/period", e.HandlePeriod)
	r.Get("/{objectID}", e.HandleGet)
	return r
}
