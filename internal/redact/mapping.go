package redact

import "strings"

// Entry records one redacted occurrence: the placeholder spliced into the
// text, the original text it replaced, and the entity label. Every
// occurrence is recorded (not one entry per entity), so restoration is
// exact even when a fuzzy cluster's members differ slightly.
type Entry struct {
	Placeholder string `json:"placeholder"`
	Original    string `json:"original"`
	Label       string `json:"label"`
}

// Mapping is the ordered record enabling restoration of original text from
// placeholders. Entries are ordered by ascending position of the occurrence
// in the redacted document. A Mapping is produced fresh per Redact call and
// consumed by the matching Restore call; the engine holds no cross-call
// mapping state.
type Mapping []Entry

// Apply replaces each entry's placeholder occurrence with its original
// text, reconstructing the document.
//
// Because entries are position-ordered, restoration walks the text left to
// right with a cursor and substitutes the first occurrence of each entry's
// placeholder at or after the cursor. The positional walk means a short
// placeholder ([PERSON_1]) can never consume part of a longer one
// ([PERSON_10]). An entry whose placeholder is absent from the remaining
// text is skipped, leaving unmatched placeholders verbatim rather than
// losing data.
func (m Mapping) Apply(text string) string {
	if len(m) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	cursor := 0
	for _, e := range m {
		if e.Placeholder == "" || cursor >= len(text) {
			continue
		}
		idx := strings.Index(text[cursor:], e.Placeholder)
		if idx < 0 {
			continue
		}
		b.WriteString(text[cursor : cursor+idx])
		b.WriteString(e.Original)
		cursor += idx + len(e.Placeholder)
	}
	b.WriteString(text[cursor:])
	return b.String()
}
