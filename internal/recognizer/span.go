package recognizer

// Span is a half-open character range [Start, End) in a document, tagged with
// an entity label and a confidence score. Spans are immutable once produced
// by a recognizer. Invariant: 0 <= Start < End <= len(document).
type Span struct {
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Label  string  `json:"label"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether two spans share at least one character offset.
// Adjacent spans (s.End == o.Start) do not overlap.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Candidate pairs a span with the priority of the recognizer that produced
// it, so conflict resolution can rank spans across recognizers.
type Candidate struct {
	Span
	Priority int `json:"priority"`
}
