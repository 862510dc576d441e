package serializer

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/calsrv/internal/calendar"
	ical "github.com/arran4/golang-ical"
)

const (
	icalUTC  = "20060102T150405Z"
	icalDate = "20060102"
)

// icalendar wraps objects in a single VCALENDAR.
func (s *Default) icalendar(objects calendar.ObjectCollection) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	if s.ProductID != "" {
		cal.SetProductId(s.ProductID)
	}

	for _, o := range objects {
		comp, base, err := newComponent(o)
		if err != nil {
			return nil, err
		}
		fillComponent(base, o)
		cal.Components = append(cal.Components, comp)
	}

	return []byte(cal.Serialize()), nil
}

func newComponent(o *calendar.Object) (ical.Component, *ical.ComponentBase, error) {
	switch o.Type {
	case calendar.TypeEvent:
		c := &ical.VEvent{}
		return c, &c.ComponentBase, nil
	case calendar.TypeTodo:
		c := &ical.VTodo{}
		return c, &c.ComponentBase, nil
	case calendar.TypeJournal:
		c := &ical.VJournal{}
		return c, &c.ComponentBase, nil
	default:
		return nil, nil, fmt.Errorf("object %q has no iCalendar component for type %d", o.URI, int(o.Type))
	}
}

func fillComponent(base *ical.ComponentBase, o *calendar.Object) {
	base.SetProperty(ical.ComponentPropertyUniqueId, o.UID)

	stamp := o.LastModified
	if stamp.IsZero() {
		stamp = time.Now()
	}
	base.SetProperty(ical.ComponentPropertyDtstamp, stamp.UTC().Format(icalUTC))

	if !o.Start.IsZero() {
		setTime(base, ical.ComponentPropertyDtStart, o.Start, o.AllDay)
	}
	if !o.End.IsZero() && !o.End.Equal(o.Start) {
		end := ical.ComponentPropertyDtEnd
		if o.Type == calendar.TypeTodo {
			end = ical.ComponentPropertyDue
		}
		if o.Type != calendar.TypeJournal {
			setTime(base, end, o.End, o.AllDay)
		}
	}

	optional := []struct {
		prop  ical.ComponentProperty
		value string
	}{
		{ical.ComponentPropertySummary, o.Summary},
		{ical.ComponentPropertyDescription, o.Description},
		{ical.ComponentPropertyLocation, o.Location},
		{ical.ComponentPropertyStatus, o.Status},
		{ical.ComponentPropertyRrule, o.RRule},
	}
	for _, p := range optional {
		if p.value != "" {
			base.SetProperty(p.prop, p.value)
		}
	}
}

func setTime(base *ical.ComponentBase, prop ical.ComponentProperty, t time.Time, allDay bool) {
	if allDay {
		base.SetProperty(prop, t.Format(icalDate), ical.WithValue(string(ical.ValueDataTypeDate)))
		return
	}
	base.SetProperty(prop, t.UTC().Format(icalUTC))
}
