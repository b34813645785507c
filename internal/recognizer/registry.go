package recognizer

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	veilotel "github.com/veil-sh/veil/internal/otel"
)

var tracer = veilotel.Tracer("github.com/veil-sh/veil/internal/recognizer")

// Registry holds built-in and caller-supplied recognizers and fans a scan
// request out to all of them. An optional label allow-list restricts which
// recognizers run at all: a recognizer none of whose labels are allowed is
// skipped entirely, not run and filtered.
//
// Registry is not safe for concurrent mutation; callers needing parallel
// redaction must use independent Redactor instances.
type Registry struct {
	recognizers []Recognizer
	allowed     map[string]bool // nil means all labels enabled
}

// NewRegistry creates a registry. enabledLabels restricts active recognizers
// to those emitting at least one of the given labels; nil or empty enables
// everything.
func NewRegistry(enabledLabels []string) *Registry {
	r := &Registry{}
	if len(enabledLabels) > 0 {
		r.allowed = make(map[string]bool, len(enabledLabels))
		for _, l := range enabledLabels {
			r.allowed[l] = true
		}
	}
	return r
}

// Register appends a recognizer. Registration order is the final tie-break
// for recognizers of equal priority, so it must stay stable.
func (r *Registry) Register(rec Recognizer) {
	r.recognizers = append(r.recognizers, rec)
}

// AllowLabel adds a label to the allow-list. No-op when the registry
// enables all labels.
func (r *Registry) AllowLabel(label string) {
	if r.allowed != nil {
		r.allowed[label] = true
	}
}

// labelAllowed reports whether spans of the given label may be produced.
func (r *Registry) labelAllowed(label string) bool {
	return r.allowed == nil || r.allowed[label]
}

// active reports whether a recognizer should run at all.
func (r *Registry) active(rec Recognizer) bool {
	if r.allowed == nil {
		return true
	}
	for _, l := range rec.Labels() {
		if r.allowed[l] {
			return true
		}
	}
	return false
}

// EnabledLabels returns the sorted set of labels the active recognizers may
// emit. Enabling a label with zero registered recognizers is not an error;
// such labels simply never appear here.
func (r *Registry) EnabledLabels() []string {
	set := make(map[string]bool)
	for _, rec := range r.recognizers {
		if !r.active(rec) {
			continue
		}
		for _, l := range rec.Labels() {
			if r.labelAllowed(l) {
				set[l] = true
			}
		}
	}
	labels := make([]string, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// ScanAll runs every active recognizer over text and concatenates the
// results, unfiltered and unresolved. A recognizer returning an error is
// isolated: the failure is logged and scanning proceeds with the remaining
// recognizers. Spans carrying a disallowed label (possible with multi-label
// recognizers such as the statistical detector adapter) are dropped, and
// spans violating the offset invariant are rejected at this boundary.
func (r *Registry) ScanAll(ctx context.Context, text string) []Candidate {
	ctx, span := tracer.Start(ctx, "recognizer.scan_all")
	defer span.End()

	var candidates []Candidate
	for _, rec := range r.recognizers {
		if !r.active(rec) {
			continue
		}
		spans, err := rec.Scan(ctx, text)
		if err != nil {
			log.Warn().
				Err(err).
				Str("recognizer", rec.Name()).
				Msg("Recognizer scan failed, continuing without its results")
			continue
		}
		for _, sp := range spans {
			if sp.Start < 0 || sp.Start >= sp.End || sp.End > len(text) {
				log.Warn().
					Str("recognizer", rec.Name()).
					Int("start", sp.Start).
					Int("end", sp.End).
					Msg("Recognizer produced an invalid span, dropping it")
				continue
			}
			if !r.labelAllowed(sp.Label) {
				continue
			}
			if sp.Source == "" {
				sp.Source = rec.Name()
			}
			candidates = append(candidates, Candidate{Span: sp, Priority: rec.Priority()})
		}
	}

	span.SetAttributes(attribute.Int("scan.candidates", len(candidates)))
	return candidates
}
