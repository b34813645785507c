// Package recognizer defines the candidate-span producers of the redaction
// pipeline: regex pattern recognizers built via a fluent Builder, an
// exact-match word list recognizer, and the Registry that fans a scan
// request out to every active recognizer.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// ContextBoost is the score increment applied per distinct context word
	// found near a match, capped so the final score never exceeds 1.0.
	ContextBoost = 0.1

	// ContextWindowChars is the number of characters searched before and
	// after a match when looking for context words.
	ContextWindowChars = 50
)

// ErrInvalidPattern is returned (wrapped) when a recognizer pattern fails to
// compile. Malformed patterns fail fast at build time, never silently.
var ErrInvalidPattern = errors.New("invalid recognizer pattern")

// Recognizer scans text and yields candidate spans. Implementations must be
// safe for repeated Scan calls on the same value; they are constructed once
// and held by the Registry for the lifetime of a Redactor.
type Recognizer interface {
	// Name identifies the recognizer in span sources and failure logs.
	Name() string
	// Labels lists every entity label this recognizer may emit.
	Labels() []string
	// Priority ranks this recognizer's spans during conflict resolution.
	// Higher wins. Defaults to 0 for built-ins.
	Priority() int
	// Scan returns every candidate span found in text. Offsets are byte
	// offsets into text and must satisfy 0 <= Start < End <= len(text).
	Scan(ctx context.Context, text string) ([]Span, error)
}

// PatternSpec is one (id, regex, base score) triple for batch registration
// on a Builder.
type PatternSpec struct {
	ID    string
	Regex string
	Score float64
}

type compiledPattern struct {
	id    string
	re    *regexp.Regexp
	score float64
}

// PatternRecognizer matches a single entity label through one or more regex
// patterns, with optional context-word score boosting and a validation
// predicate. Immutable after Build.
type PatternRecognizer struct {
	name      string
	label     string
	patterns  []compiledPattern
	context   []string // lowercased
	priority  int
	validator func(string) bool
}

// Builder accumulates patterns, context words, priority, and an optional
// validator, then yields an immutable PatternRecognizer. Operations return
// the builder for chaining; Build reports the first invalid regex.
type Builder struct {
	name     string
	label    string
	specs    []PatternSpec
	context  []string
	priority int
	validate func(string) bool
}

// NewBuilder starts a builder for recognizers emitting the given label.
func NewBuilder(label string) *Builder {
	return &Builder{label: label}
}

// WithName overrides the default recognizer name ("<label>_recognizer",
// lowercased).
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithPattern adds a single regex pattern with a base score.
func (b *Builder) WithPattern(regex string, score float64) *Builder {
	b.specs = append(b.specs, PatternSpec{
		ID:    fmt.Sprintf("pattern_%d", len(b.specs)+1),
		Regex: regex,
		Score: score,
	})
	return b
}

// WithPatterns adds a batch of (id, regex, score) patterns.
func (b *Builder) WithPatterns(specs []PatternSpec) *Builder {
	b.specs = append(b.specs, specs...)
	return b
}

// WithContext adds context words. A distinct context word found within
// ContextWindowChars of a match boosts its score by ContextBoost.
func (b *Builder) WithContext(words []string) *Builder {
	b.context = append(b.context, words...)
	return b
}

// WithValidator sets a predicate applied to each matched text; candidates
// for which it returns false are dropped.
func (b *Builder) WithValidator(fn func(string) bool) *Builder {
	b.validate = fn
	return b
}

// WithPriority sets the conflict-resolution priority. Higher wins; unset
// defaults to 0 and ties are broken by registration order.
func (b *Builder) WithPriority(p int) *Builder {
	b.priority = p
	return b
}

// Build compiles all patterns and returns the immutable recognizer.
// An invalid regex fails fast with an error wrapping ErrInvalidPattern.
func (b *Builder) Build() (*PatternRecognizer, error) {
	if b.label == "" {
		return nil, fmt.Errorf("%w: recognizer label must not be empty", ErrInvalidPattern)
	}
	name := b.name
	if name == "" {
		name = strings.ToLower(b.label) + "_recognizer"
	}

	compiled := make([]compiledPattern, 0, len(b.specs))
	for _, spec := range b.specs {
		re, err := regexp.Compile(spec.Regex)
		if err != nil {
			return nil, fmt.Errorf("%w: compiling %q in recognizer %q: %v", ErrInvalidPattern, spec.ID, name, err)
		}
		compiled = append(compiled, compiledPattern{id: spec.ID, re: re, score: clampScore(spec.Score)})
	}

	ctxWords := make([]string, 0, len(b.context))
	seen := make(map[string]bool, len(b.context))
	for _, w := range b.context {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && !seen[w] {
			seen[w] = true
			ctxWords = append(ctxWords, w)
		}
	}

	return &PatternRecognizer{
		name:      name,
		label:     b.label,
		patterns:  compiled,
		context:   ctxWords,
		priority:  b.priority,
		validator: b.validate,
	}, nil
}

// MustBuild is like Build but panics on error. Useful for compiled-in
// recognizers whose patterns are expected to always compile.
func (b *Builder) MustBuild() *PatternRecognizer {
	r, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("recognizer.Build: %v", err))
	}
	return r
}

// Name returns the recognizer name.
func (r *PatternRecognizer) Name() string { return r.name }

// Labels returns the single entity label this recognizer emits.
func (r *PatternRecognizer) Labels() []string { return []string{r.label} }

// Priority returns the conflict-resolution priority.
func (r *PatternRecognizer) Priority() int { return r.priority }

// Scan finds every non-overlapping regex match for each pattern. The score
// is the pattern's base score boosted by ContextBoost per distinct context
// word found within ContextWindowChars before or after the match, capped at
// 1.0. Candidates failing the validator are dropped.
func (r *PatternRecognizer) Scan(ctx context.Context, text string) ([]Span, error) {
	var spans []Span
	for _, p := range r.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if loc[0] >= loc[1] {
				continue // zero-length match, violates the span invariant
			}
			value := text[loc[0]:loc[1]]
			if r.validator != nil && !r.validator(value) {
				continue
			}
			spans = append(spans, Span{
				Start:  loc[0],
				End:    loc[1],
				Label:  r.label,
				Text:   value,
				Score:  boostScore(text, loc[0], loc[1], p.score, r.context),
				Source: r.name,
			})
		}
	}
	return spans, nil
}

// boostScore adds ContextBoost per distinct context word found within
// ContextWindowChars preceding or following the match range.
func boostScore(text string, start, end int, base float64, contextWords []string) float64 {
	if len(contextWords) == 0 {
		return base
	}
	lo := start - ContextWindowChars
	if lo < 0 {
		lo = 0
	}
	hi := end + ContextWindowChars
	if hi > len(text) {
		hi = len(text)
	}
	window := strings.ToLower(text[lo:start] + " " + text[end:hi])

	score := base
	for _, cw := range contextWords {
		if strings.Contains(window, cw) {
			score += ContextBoost
		}
	}
	return clampScore(score)
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
