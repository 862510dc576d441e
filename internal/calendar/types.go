package calendar

import (
	"fmt"
	"strings"
	"time"
)

// ObjectType identifies the kind of calendar object. Values are bit flags
// so a calendar's supported components can be stored as one mask.
type ObjectType int

const (
	TypeEvent   ObjectType = 1
	TypeJournal ObjectType = 2
	TypeTodo    ObjectType = 4

	// TypeAll is the mask of every supported component.
	TypeAll = TypeEvent | TypeJournal | TypeTodo
)

// ObjectTypes lists the concrete object types in display order.
var ObjectTypes = []ObjectType{TypeEvent, TypeTodo, TypeJournal}

// String returns the lowercase name used in URLs and JSON.
func (t ObjectType) String() string {
	switch t {
	case TypeEvent:
		return "event"
	case TypeTodo:
		return "todo"
	case TypeJournal:
		return "journal"
	default:
		return fmt.Sprintf("ObjectType(%d)", int(t))
	}
}

// Component returns the iCalendar component name (VEVENT, VTODO, VJOURNAL).
func (t ObjectType) Component() string {
	switch t {
	case TypeEvent:
		return "VEVENT"
	case TypeTodo:
		return "VTODO"
	case TypeJournal:
		return "VJOURNAL"
	default:
		return ""
	}
}

// Plural returns the collection name used in typed routes.
func (t ObjectType) Plural() string {
	return t.String() + "s"
}

// MarshalText encodes t by name.
func (t ObjectType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid object type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a name accepted by ParseObjectType.
func (t *ObjectType) UnmarshalText(b []byte) error {
	v, err := ParseObjectType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Valid reports whether t is exactly one known type.
func (t ObjectType) Valid() bool {
	return t == TypeEvent || t == TypeTodo || t == TypeJournal
}

// In reports whether t is part of mask.
func (t ObjectType) In(mask ObjectType) bool {
	return t.Valid() && mask&t == t
}

// ParseObjectType accepts "event", "todo", "journal", their plurals, or the
// iCalendar component names, case-insensitively.
func ParseObjectType(s string) (ObjectType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "event", "events", "vevent":
		return TypeEvent, nil
	case "todo", "todos", "vtodo":
		return TypeTodo, nil
	case "journal", "journals", "vjournal":
		return TypeJournal, nil
	default:
		return 0, fmt.Errorf("unknown object type %q", s)
	}
}

// Permissions is the capability set a user holds on a calendar.
type Permissions int

const (
	PermRead   Permissions = 1
	PermUpdate Permissions = 2
	PermCreate Permissions = 4
	PermDelete Permissions = 8
	PermShare  Permissions = 16

	PermAll = PermRead | PermUpdate | PermCreate | PermDelete | PermShare
)

// Has reports whether every capability in want is present.
func (p Permissions) Has(want Permissions) bool {
	return p&want == want
}

// String lists the held capabilities, e.g. "read|create".
func (p Permissions) String() string {
	names := []struct {
		perm Permissions
		name string
	}{
		{PermRead, "read"},
		{PermUpdate, "update"},
		{PermCreate, "create"},
		{PermDelete, "delete"},
		{PermShare, "share"},
	}

	var parts []string
	for _, n := range names {
		if p.Has(n.perm) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Calendar is a calendar as seen by one user.
// Permissions reflect that user's access, not the owner's.
type Calendar struct {
	ID          int64       `json:"id"`
	OwnerUserID string      `json:"ownerId"`
	UserID      string      `json:"userId"`
	DisplayName string      `json:"displayName"`
	Color       string      `json:"color,omitempty"`
	Components  ObjectType  `json:"-"`
	Permissions Permissions `json:"-"`
	CTag        int64       `json:"ctag"`
}

// Allows reports whether the resolving user holds want on c.
func (c *Calendar) Allows(want Permissions) bool {
	return c != nil && c.Permissions.Has(want)
}

// Supports reports whether c accepts objects of type t.
func (c *Calendar) Supports(t ObjectType) bool {
	return c != nil && t.In(c.Components)
}

// Object is a single calendar item.
type Object struct {
	URI          string     `json:"uri"`
	CalendarID   int64      `json:"calendarId"`
	Type         ObjectType `json:"type"`
	UID          string     `json:"uid"`
	Summary      string     `json:"summary"`
	Description  string     `json:"description,omitempty"`
	Location     string     `json:"location,omitempty"`
	Status       string     `json:"status,omitempty"`
	Start        time.Time  `json:"start"`
	End          time.Time  `json:"end"`
	AllDay       bool       `json:"allDay"`
	RRule        string     `json:"rrule,omitempty"`
	ETag         string     `json:"etag"`
	LastModified time.Time  `json:"lastModified"`
}

// Recurring reports whether o carries a recurrence rule.
func (o *Object) Recurring() bool {
	return o.RRule != ""
}

// ObjectCollection is an ordered set of objects returned by a query.
type ObjectCollection []*Object

// Len returns the number of objects.
func (c ObjectCollection) Len() int {
	return len(c)
}

// OfType returns the objects of type t.
func (c ObjectCollection) OfType(t ObjectType) ObjectCollection {
	out := make(ObjectCollection, 0, len(c))
	for _, o := range c {
		if o.Type == t {
			out = append(out, o)
		}
	}
	return out
}

// Page selects a window of a result set.
// NoLimit overrides Limit and Offset and returns everything.
type Page struct {
	Limit   int
	Offset  int
	NoLimit bool
}

// Apply returns the window of c selected by p.
func (p Page) Apply(c ObjectCollection) ObjectCollection {
	if p.NoLimit {
		return c
	}
	if p.Offset >= len(c) {
		return ObjectCollection{}
	}
	end := len(c)
	if p.Limit >= 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	return c[p.Offset:end]
}

// Period is the half-open interval [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthOf returns the calendar month containing t, in t's location.
func MonthOf(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// Valid reports whether the period is non-empty.
func (p Period) Valid() bool {
	return p.End.After(p.Start)
}

// Overlaps reports whether [start, end) intersects p.
// A zero-length item overlaps when its instant falls inside p.
func (p Period) Overlaps(start, end time.Time) bool {
	if !end.After(start) {
		return !start.Before(p.Start) && start.Before(p.End)
	}
	return start.Before(p.End) && end.After(p.Start)
}
