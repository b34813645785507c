// Package redact is the façade of the redaction pipeline: it runs
// scan → resolve → consolidate → replace, records the reversible mapping,
// and provides the inverse restore operation.
package redact

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/veil-sh/veil/internal/cluster"
	"github.com/veil-sh/veil/internal/detector"
	veilotel "github.com/veil-sh/veil/internal/otel"
	"github.com/veil-sh/veil/internal/recognizer"
	"github.com/veil-sh/veil/internal/resolver"
)

var tracer = veilotel.Tracer("github.com/veil-sh/veil/internal/redact")

// Redactor detects sensitive spans, replaces them with stable type-labeled
// placeholders, and restores originals from the returned Mapping.
//
// Redact calls on one instance are serialized internally so counter updates
// never interleave; for parallel redaction use independent instances.
// Recognizer registration is not synchronized and must complete before the
// first Redact.
type Redactor struct {
	registry   *recognizer.Registry
	gen        *placeholderGen
	fuzzy      int
	persistent bool
	minScore   float64

	mu sync.Mutex
}

// Option configures a Redactor via the functional options pattern.
type Option func(*config)

type config struct {
	enabledEntities []string
	customWords     []string
	foldWords       bool
	fuzzy           int
	persistent      bool
	minScore        float64
	placeholder     GenerateFunc
	patternFile     string
	det             detector.Detector
	detLabels       []string
	extraConfigs    []recognizer.RecognizerConfig
}

// WithEnabledEntities restricts redaction to the given entity labels.
// Unset means all labels are enabled.
func WithEnabledEntities(labels ...string) Option {
	return func(c *config) { c.enabledEntities = labels }
}

// WithCustomWords adds literal words to redact. Each occurrence matches
// exactly, with a fixed high score, under the CUSTOM_WORD label.
func WithCustomWords(words ...string) Option {
	return func(c *config) { c.customWords = words }
}

// WithCaseInsensitiveWords makes custom-word matching case-insensitive.
// Matching stays case-sensitive without this option.
func WithCaseInsensitiveWords() Option {
	return func(c *config) { c.foldWords = true }
}

// WithFuzzyMapping enables fuzzy consolidation of near-duplicate mentions.
// strength >= 1 tunes the edit budget; 0 disables fuzzy mode.
func WithFuzzyMapping(strength int) Option {
	return func(c *config) { c.fuzzy = strength }
}

// WithPersistentCounters keeps per-label placeholder counters across Redact
// calls on this instance. The default resets them each call.
func WithPersistentCounters() Option {
	return func(c *config) { c.persistent = true }
}

// WithMinScore discards candidate spans scoring below the threshold before
// conflict resolution. The default of 0 accepts everything recognizers emit.
func WithMinScore(score float64) Option {
	return func(c *config) { c.minScore = score }
}

// WithPlaceholderFunc replaces the default [LABEL_n] template with an
// arbitrary generator. The function is invoked once per consolidated entity
// and its result reused for every occurrence of that entity in the run.
func WithPlaceholderFunc(fn GenerateFunc) Option {
	return func(c *config) { c.placeholder = fn }
}

// WithPatternFile layers recognizer definitions from a YAML file over the
// embedded defaults. A missing file is silently skipped.
func WithPatternFile(path string) Option {
	return func(c *config) { c.patternFile = path }
}

// WithDetector registers an external statistical detector emitting the
// given labels (detector.LLMLabels when nil).
func WithDetector(det detector.Detector, labels ...string) Option {
	return func(c *config) {
		c.det = det
		c.detLabels = labels
	}
}

// WithRecognizerConfigs layers caller-supplied recognizer definitions over
// the embedded defaults and any pattern file.
func WithRecognizerConfigs(configs ...recognizer.RecognizerConfig) Option {
	return func(c *config) { c.extraConfigs = configs }
}

// New builds a Redactor. The embedded default recognizers are always the
// first configuration layer; a pattern file and caller-supplied definitions
// override them by name.
func New(opts ...Option) (*Redactor, error) {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.fuzzy < 0 {
		return nil, fmt.Errorf("fuzzy mapping strength must be >= 0, got %d", cfg.fuzzy)
	}

	defaults, err := recognizer.DefaultRecognizerConfigs()
	if err != nil {
		return nil, fmt.Errorf("loading default recognizers: %w", err)
	}

	layers := [][]recognizer.RecognizerConfig{defaults}
	if cfg.patternFile != "" {
		rf, err := recognizer.LoadRecognizerFile(cfg.patternFile)
		if err != nil {
			return nil, fmt.Errorf("loading pattern file: %w", err)
		}
		if rf != nil {
			layers = append(layers, rf.Recognizers)
		}
	}
	if len(cfg.extraConfigs) > 0 {
		layers = append(layers, cfg.extraConfigs)
	}

	merged := recognizer.MergeRecognizerConfigs(layers...)
	merged = recognizer.FilterByEntities(merged, cfg.enabledEntities, nil)

	compiled, err := recognizer.CompileRecognizers(merged)
	if err != nil {
		return nil, err
	}

	registry := recognizer.NewRegistry(cfg.enabledEntities)
	for _, rec := range compiled {
		registry.Register(rec)
	}

	if len(cfg.customWords) > 0 {
		var wordOpts []recognizer.WordListOption
		if cfg.foldWords {
			wordOpts = append(wordOpts, recognizer.WithCaseInsensitive())
		}
		words := recognizer.NewWordList(cfg.customWords, wordOpts...)
		registry.Register(words)
		// Configured literals are always redacted, even under an entity
		// allow-list that does not mention CUSTOM_WORD.
		registry.AllowLabel(recognizer.WordListLabel)
	}

	if cfg.det != nil {
		labels := cfg.detLabels
		if len(labels) == 0 {
			labels = detector.LLMLabels
		}
		registry.Register(detector.NewAdapter("statistical_detector", cfg.det, labels))
	}

	return &Redactor{
		registry:   registry,
		gen:        newPlaceholderGen(cfg.placeholder),
		fuzzy:      cfg.fuzzy,
		persistent: cfg.persistent,
		minScore:   cfg.minScore,
	}, nil
}

// AddRecognizer registers a caller-supplied recognizer. Its labels are
// added to the entity allow-list: explicitly added recognizers are wanted.
func (r *Redactor) AddRecognizer(rec recognizer.Recognizer) {
	r.registry.Register(rec)
	for _, l := range rec.Labels() {
		r.registry.AllowLabel(l)
	}
}

// EnabledEntities returns the sorted set of entity labels the active
// recognizers may produce.
func (r *Redactor) EnabledEntities() []string {
	return r.registry.EnabledLabels()
}

// Redact scans text, resolves overlapping candidates, consolidates
// near-duplicate mentions, and replaces each accepted span with a
// placeholder. It returns the rewritten text and the mapping that drives
// Restore. Redacting empty text returns ("", nil).
func (r *Redactor) Redact(ctx context.Context, text string) (string, Mapping, error) {
	ctx, span := tracer.Start(ctx, "redact.redact")
	defer span.End()

	if text == "" {
		return "", nil, nil
	}

	candidates := r.registry.ScanAll(ctx, text)
	if r.minScore > 0 {
		kept := candidates[:0]
		for _, c := range candidates {
			if c.Score >= r.minScore {
				kept = append(kept, c)
			}
		}
		candidates = kept
	}

	accepted := resolver.Resolve(candidates)
	assignment := cluster.Consolidate(accepted, r.fuzzy)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen.beginRun(r.persistent)

	// Placeholders and mapping entries in ascending start order.
	mapping := make(Mapping, 0, len(accepted))
	placeholders := make([]string, len(accepted))
	for i, sp := range accepted {
		placeholders[i] = r.gen.generate(assignment.EntityIDs[i], sp.Label, sp.Text)
		mapping = append(mapping, Entry{
			Placeholder: placeholders[i],
			Original:    sp.Text,
			Label:       sp.Label,
		})
	}

	// Splice back-to-front so earlier offsets stay valid while replacement
	// text of differing length goes in.
	var b strings.Builder
	redacted := text
	for i := len(accepted) - 1; i >= 0; i-- {
		b.Reset()
		b.Grow(len(redacted) - accepted[i].Len() + len(placeholders[i]))
		b.WriteString(redacted[:accepted[i].Start])
		b.WriteString(placeholders[i])
		b.WriteString(redacted[accepted[i].End:])
		redacted = b.String()
	}

	span.SetAttributes(
		attribute.Int("redact.candidates", len(candidates)),
		attribute.Int("redact.accepted", len(accepted)),
		attribute.Int("redact.entities", len(assignment.Clusters)),
	)
	return redacted, mapping, nil
}

// Restore replaces each mapping entry's placeholder with its original text.
// Placeholders absent from the text are left as-is; a mapping that does not
// originate from the paired Redact output degrades to a best-effort
// reconstruction, never an error.
func (r *Redactor) Restore(ctx context.Context, text string, mapping Mapping) string {
	_, span := tracer.Start(ctx, "redact.restore")
	defer span.End()
	return mapping.Apply(text)
}
