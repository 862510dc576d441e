package calendar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata" // TZID lookups must work without system zoneinfo

	db "github.com/JonMunkholm/calsrv/internal/database"
	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ImportFile is one uploaded iCalendar file.
type ImportFile struct {
	Name string
	Data io.Reader
}

// ImportFailure describes a component that could not be imported.
type ImportFailure struct {
	UID       string `json:"uid,omitempty"`
	Component string `json:"component"`
	Reason    string `json:"reason"`
	Duplicate bool   `json:"duplicate"`
}

// ImportResult is the outcome of importing one file.
//
// Errors counts every component that was not imported, duplicates
// included, so Duplicates <= Errors always holds.
type ImportResult struct {
	ID         string          `json:"id"`
	FileName   string          `json:"file"`
	Imported   int             `json:"imported"`
	Errors     int             `json:"errors"`
	Duplicates int             `json:"duplicates"`
	Failures   []ImportFailure `json:"failures,omitempty"`
	Error      string          `json:"error,omitempty"` // Non-empty if the file could not be read
	Duration   time.Duration   `json:"-"`
}

func (r *ImportResult) fail(f ImportFailure) {
	r.Errors++
	if f.Duplicate {
		r.Duplicates++
	}
	r.Failures = append(r.Failures, f)
}

// Import parses file and inserts its events, todos and journals into cal.
// The user needs Create on cal. Components already present (same UID) are
// skipped as duplicates. A file that cannot be parsed yields a result with
// one error rather than a Go error; Go errors are reserved for permission,
// capacity and context failures.
func (s *Service) Import(ctx context.Context, cal *Calendar, file ImportFile) (*ImportResult, error) {
	if err := Require(cal, PermCreate); err != nil {
		return nil, err
	}

	if err := s.imports.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.imports.Release()

	start := s.now()
	result := &ImportResult{
		ID:       uuid.New().String(),
		FileName: file.Name,
	}

	parsed, err := ical.ParseCalendar(file.Data)
	if err != nil {
		result.Error = fmt.Sprintf("invalid iCalendar file: %v", err)
		result.fail(ImportFailure{Component: "VCALENDAR", Reason: result.Error})
	} else {
		for _, comp := range parsed.Components {
			t, base := componentBase(comp)
			if base == nil {
				continue // VTIMEZONE and friends carry no objects
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			s.importComponent(ctx, cal, t, base, result)
		}
	}

	if result.Imported > 0 {
		if err := s.store.BumpCalendarCtag(ctx, cal.ID); err != nil {
			slog.Warn("import: bump ctag failed", "calendar_id", cal.ID, "error", err)
		}
	}

	result.Duration = s.now().Sub(start)
	s.recordImport(ctx, cal, result)

	slog.Info("import completed",
		"calendar_id", cal.ID,
		"file", result.FileName,
		"imported", result.Imported,
		"errors", result.Errors,
		"duplicates", result.Duplicates,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// componentBase returns the object type and property holder of comp, or
// a nil base for components that are not calendar objects.
func componentBase(comp ical.Component) (ObjectType, *ical.ComponentBase) {
	switch c := comp.(type) {
	case *ical.VEvent:
		return TypeEvent, &c.ComponentBase
	case *ical.VTodo:
		return TypeTodo, &c.ComponentBase
	case *ical.VJournal:
		return TypeJournal, &c.ComponentBase
	default:
		return 0, nil
	}
}

func (s *Service) importComponent(ctx context.Context, cal *Calendar, t ObjectType, base *ical.ComponentBase, result *ImportResult) {
	obj, err := objectFromComponent(t, base)
	if err != nil {
		result.fail(ImportFailure{UID: propValue(base, ical.ComponentPropertyUniqueId), Component: t.Component(), Reason: err.Error()})
		return
	}

	if !cal.Supports(t) {
		result.fail(ImportFailure{UID: obj.UID, Component: t.Component(),
			Reason: fmt.Sprintf("calendar does not accept %s", t.Component())})
		return
	}

	n, err := s.store.InsertObject(ctx, insertParams(cal.ID, obj))
	switch {
	case err != nil:
		slog.Warn("import: insert failed", "calendar_id", cal.ID, "uid", obj.UID, "error", err)
		result.fail(ImportFailure{UID: obj.UID, Component: t.Component(), Reason: "could not be saved"})
	case n == 0:
		result.fail(ImportFailure{UID: obj.UID, Component: t.Component(), Reason: "already exists", Duplicate: true})
	default:
		result.Imported++
	}
}

// recordImport stores the outcome in the import history. Failures are
// logged and do not affect the import.
func (s *Service) recordImport(ctx context.Context, cal *Calendar, r *ImportResult) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return
	}
	err = s.store.InsertImportHistory(ctx, db.InsertImportHistoryParams{
		ID:         pgtype.UUID{Bytes: id, Valid: true},
		CalendarID: cal.ID,
		UserID:     cal.UserID,
		FileName:   r.FileName,
		Imported:   int32(r.Imported),
		Errors:     int32(r.Errors),
		Duplicates: int32(r.Duplicates),
	})
	if err != nil {
		slog.Warn("import: record history failed", "calendar_id", cal.ID, "import_id", r.ID, "error", err)
	}
}

// objectFromComponent maps iCalendar properties onto an Object.
func objectFromComponent(t ObjectType, base *ical.ComponentBase) (*Object, error) {
	uid := propValue(base, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return nil, fmt.Errorf("missing UID")
	}

	o := &Object{
		URI:         uuid.New().String() + ".ics",
		Type:        t,
		UID:         uid,
		Summary:     propValue(base, ical.ComponentPropertySummary),
		Description: propValue(base, ical.ComponentPropertyDescription),
		Location:    propValue(base, ical.ComponentPropertyLocation),
		Status:      propValue(base, ical.ComponentPropertyStatus),
		RRule:       propValue(base, ical.ComponentPropertyRrule),
		ETag:        uuid.New().String(),
	}

	if p := base.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		start, allDay, err := parseICalTime(p)
		if err != nil {
			return nil, fmt.Errorf("DTSTART: %w", err)
		}
		o.Start, o.AllDay = start, allDay
	} else if t == TypeEvent {
		return nil, fmt.Errorf("missing DTSTART")
	}

	endProp := ical.ComponentPropertyDtEnd
	if t == TypeTodo {
		endProp = ical.ComponentPropertyDue
	}
	if p := base.GetProperty(endProp); p != nil {
		end, _, err := parseICalTime(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", endProp, err)
		}
		o.End = end
	}

	switch {
	case o.End.IsZero() && o.AllDay:
		o.End = o.Start.AddDate(0, 0, 1)
	case o.End.IsZero():
		o.End = o.Start
	case o.End.Before(o.Start):
		return nil, fmt.Errorf("end before start")
	}

	if o.Recurring() {
		if o.Start.IsZero() {
			return nil, fmt.Errorf("RRULE without DTSTART")
		}
		if _, err := ParseRule(o.RRule, o.Start); err != nil {
			return nil, fmt.Errorf("invalid RRULE: %w", err)
		}
	}
	return o, nil
}

func propValue(base *ical.ComponentBase, prop ical.ComponentProperty) string {
	if p := base.GetProperty(prop); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

var icalTimeLayouts = []string{
	"20060102T150405Z",
	"20060102T150405",
}

// parseICalTime parses a DATE or DATE-TIME property, honouring TZID.
// Floating times without TZID are read as UTC.
func parseICalTime(p *ical.IANAProperty) (time.Time, bool, error) {
	value := strings.TrimSpace(p.Value)

	isDate := len(value) == 8
	if vs := p.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		isDate = true
	}

	loc := time.UTC
	if tz := p.ICalParameters["TZID"]; len(tz) > 0 && tz[0] != "" {
		if l, err := time.LoadLocation(strings.Trim(tz[0], `"`)); err == nil {
			loc = l
		}
	}

	if isDate {
		t, err := time.ParseInLocation("20060102", value, loc)
		return t, true, err
	}

	for _, layout := range icalTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid date-time %q", value)
}

func insertParams(calendarID int64, o *Object) db.InsertObjectParams {
	arg := db.InsertObjectParams{
		CalendarID:  calendarID,
		Uri:         o.URI,
		ObjectType:  int32(o.Type),
		Uid:         o.UID,
		Summary:     text(o.Summary),
		Description: text(o.Description),
		Location:    text(o.Location),
		Status:      text(o.Status),
		AllDay:      o.AllDay,
		Rrule:       text(o.RRule),
		Etag:        o.ETag,
	}
	if !o.Start.IsZero() {
		arg.StartAt = pgtype.Timestamptz{Time: o.Start, Valid: true}
	}
	if !o.End.IsZero() {
		arg.EndAt = pgtype.Timestamptz{Time: o.End, Valid: true}
	}
	return arg
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
