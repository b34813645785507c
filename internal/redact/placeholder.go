package redact

import "fmt"

// GenerateFunc produces the replacement text for an entity occurrence. A
// custom GenerateFunc fully replaces the default template; if it needs
// counters it owns them itself.
type GenerateFunc func(label, original string) string

// placeholderGen renders placeholders for consolidated entities. The same
// entity id always renders to the same text within one redaction run
// (memoized); distinct entities sharing a label get sequential 1-based
// counters with the default [LABEL_n] template.
type placeholderGen struct {
	custom   GenerateFunc
	counters map[string]int
	memo     map[int]string
}

func newPlaceholderGen(custom GenerateFunc) *placeholderGen {
	return &placeholderGen{
		custom:   custom,
		counters: make(map[string]int),
		memo:     make(map[int]string),
	}
}

// beginRun clears the per-run entity memo, and the per-label counters
// unless persistent cross-call numbering was requested.
func (g *placeholderGen) beginRun(persistent bool) {
	g.memo = make(map[int]string)
	if !persistent {
		g.counters = make(map[string]int)
	}
}

func (g *placeholderGen) generate(entityID int, label, original string) string {
	if text, ok := g.memo[entityID]; ok {
		return text
	}
	var text string
	if g.custom != nil {
		text = g.custom(label, original)
	} else {
		g.counters[label]++
		text = fmt.Sprintf("[%s_%d]", label, g.counters[label])
	}
	g.memo[entityID] = text
	return text
}
