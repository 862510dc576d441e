// Package serializer converts calendar objects into wire representations.
//
// JSON is the default and answers any Accept header that does not ask
// for iCalendar. text/calendar wraps objects in a VCALENDAR using
// github.com/arran4/golang-ical.
package serializer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"github.com/JonMunkholm/calsrv/internal/calendar"
)

// Kind names the shape of the value being serialized.
type Kind int

const (
	KindObject Kind = iota
	KindObjectCollection
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindObjectCollection:
		return "collection"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Media types understood by Serialize.
const (
	MediaJSON     = "application/json"
	MediaCalendar = "text/calendar"
)

// Payload is a serialized response body.
type Payload struct {
	Body        []byte
	ContentType string
}

// Serializer renders a value of the given kind for an Accept header.
type Serializer interface {
	Serialize(kind Kind, value any, accept string) (Payload, error)
}

// Error reports a value that could not be rendered.
// Transports answer it with 500.
type Error struct {
	Kind  Kind
	Media string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("serialize %s as %s: %v", e.Kind, e.Media, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code is the support reference for serialization failures.
const Code = "SER001"

// IsError reports whether err is a serialization failure.
func IsError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

var errUnexpectedValue = errors.New("unexpected value type")

// Default serializes to JSON or iCalendar.
type Default struct {
	// ProductID is written as PRODID in iCalendar output.
	ProductID string
}

// New returns the default serializer.
func New() *Default {
	return &Default{ProductID: "-//calsrv//calendar objects//EN"}
}

// Serialize renders value. value must be a *calendar.Object for
// KindObject and a calendar.ObjectCollection for KindObjectCollection.
func (s *Default) Serialize(kind Kind, value any, accept string) (Payload, error) {
	media := Negotiate(accept)

	objects, err := objectsOf(kind, value)
	if err != nil {
		return Payload{}, &Error{Kind: kind, Media: media, Err: err}
	}

	var body []byte
	switch media {
	case MediaCalendar:
		body, err = s.icalendar(objects)
	default:
		body, err = marshalJSON(kind, objects)
	}
	if err != nil {
		return Payload{}, &Error{Kind: kind, Media: media, Err: err}
	}

	return Payload{Body: body, ContentType: media + "; charset=utf-8"}, nil
}

func objectsOf(kind Kind, value any) (calendar.ObjectCollection, error) {
	switch kind {
	case KindObject:
		o, ok := value.(*calendar.Object)
		if !ok || o == nil {
			return nil, fmt.Errorf("%w %T for %s", errUnexpectedValue, value, kind)
		}
		return calendar.ObjectCollection{o}, nil
	case KindObjectCollection:
		c, ok := value.(calendar.ObjectCollection)
		if !ok {
			return nil, fmt.Errorf("%w %T for %s", errUnexpectedValue, value, kind)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown kind %d", int(kind))
	}
}

func marshalJSON(kind Kind, objects calendar.ObjectCollection) ([]byte, error) {
	var v any = objects
	if kind == KindObject {
		v = objects[0]
	} else if objects == nil {
		v = calendar.ObjectCollection{}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Negotiate picks the media type for an Accept header. Only an explicit
// text/calendar range selects iCalendar; everything else gets JSON.
func Negotiate(accept string) string {
	bestJSON, bestCal := -1.0, -1.0
	for _, part := range strings.Split(accept, ",") {
		mt, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		q := 1.0
		if v, ok := params["q"]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				q = f
			} else {
				q = 0
			}
		}
		switch mt {
		case MediaCalendar:
			bestCal = max(bestCal, q)
		case MediaJSON, "application/*", "*/*":
			bestJSON = max(bestJSON, q)
		}
	}
	if bestCal > 0 && bestCal >= bestJSON {
		return MediaCalendar
	}
	return MediaJSON
}
