package importresult

import "github.com/JonMunkholm/calsrv/internal/i18n"

// Domain is the translation domain all import messages live in.
const Domain = "calendar"

// Formatter renders selected messages through a translator.
type Formatter struct {
	tr i18n.Translator
}

// NewFormatter returns a Formatter backed by tr.
func NewFormatter(tr i18n.Translator) *Formatter {
	return &Formatter{tr: tr}
}

// Render returns the display string for m.
// The zero Message renders as "" and does not reach the translator.
func (f *Formatter) Render(m Message) string {
	if m.IsZero() {
		return ""
	}
	return f.tr.T(Domain, m.Key, m.Params)
}

// Describe selects and renders the message for o in one step.
func (f *Formatter) Describe(o *Outcome) string {
	return f.Render(Select(o))
}

// DescribeRaw renders the message for a raw outcome payload.
// Malformed payloads render as "".
func (f *Formatter) DescribeRaw(raw []byte) string {
	return f.Describe(ParseOutcome(raw))
}
