// Package importresult turns per-file import outcomes into user-facing
// status messages.
//
// Selection and rendering are separate steps: [Select] picks a translation
// key plus interpolation params from an [Outcome], and a [Formatter] hands
// that pair to a translator. The translator owns fallback text, so a
// missing translation never changes which message was selected.
package importresult

import (
	"bytes"
	"encoding/json"
)

// Message keys. They double as the English source strings of the
// translation catalog.
const (
	KeySuccess               = "Successfully imported"
	KeyOneDuplicate          = "Partially imported, skipped 1 duplicate"
	KeyOneFailure            = "Partially imported, 1 failure"
	KeyFailures              = "Partially imported, {n} failures"
	KeyDuplicates            = "Partially imported, skipped {n} duplicates"
	KeyFailuresAndDuplicates = "Partially imported, {n} failures, skipped {d} duplicates"
)

// Outcome is the result of importing a single file.
// Duplicates are counted as errors too, so Duplicates <= Errors is expected.
type Outcome struct {
	Errors     int `json:"errors"`
	Duplicates int `json:"duplicates"`
}

// Message is a translation key with its interpolation params.
// The zero Message means "nothing to display".
type Message struct {
	Key    string
	Params map[string]any
}

// IsZero reports whether m carries no key.
func (m Message) IsZero() bool {
	return m.Key == ""
}

// Select maps an outcome to the message describing it.
//
// A nil outcome or negative counts yield the zero Message. Combinations
// that break the Duplicates <= Errors invariant fall back to the
// generic "{n} failures" form with n = Errors.
func Select(o *Outcome) Message {
	if o == nil || o.Errors < 0 || o.Duplicates < 0 {
		return Message{}
	}

	switch {
	case o.Errors == 0:
		return Message{Key: KeySuccess}
	case o.Errors == 1 && o.Duplicates == 1:
		return Message{Key: KeyOneDuplicate}
	case o.Errors == 1 && o.Duplicates == 0:
		return Message{Key: KeyOneFailure}
	case o.Errors == 1:
		return failures(o.Errors)
	case o.Duplicates == 0:
		return failures(o.Errors)
	case o.Duplicates == o.Errors:
		return Message{Key: KeyDuplicates, Params: map[string]any{"n": o.Errors}}
	case o.Duplicates < o.Errors:
		return Message{
			Key: KeyFailuresAndDuplicates,
			Params: map[string]any{
				"n": o.Errors - o.Duplicates,
				"d": o.Duplicates,
			},
		}
	default:
		return failures(o.Errors)
	}
}

func failures(n int) Message {
	return Message{Key: KeyFailures, Params: map[string]any{"n": n}}
}

// ParseOutcome decodes a raw outcome payload as sent by the import UI.
//
// It returns nil when the payload is not a JSON object or when "errors"
// is missing or not an integer. A missing or non-numeric "duplicates"
// is treated as zero, matching how the UI reports files that had no
// duplicate detection.
func ParseOutcome(raw []byte) *Outcome {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}

	errs, ok := intField(fields, "errors")
	if !ok {
		return nil
	}
	dups, _ := intField(fields, "duplicates")

	return &Outcome{Errors: errs, Duplicates: dups}
}

// intField reads an integral JSON number from fields.
func intField(fields map[string]json.RawMessage, name string) (int, bool) {
	v, ok := fields[name]
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, false
	}
	if f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
