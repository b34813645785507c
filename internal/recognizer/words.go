package recognizer

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// WordListLabel is the entity label attached to custom-word matches.
	WordListLabel = "CUSTOM_WORD"

	// WordListScore is the fixed high confidence of an exact word match.
	WordListScore = 0.95

	// WordListPriority ranks custom words above built-in pattern
	// recognizers so a configured literal always wins its offsets.
	WordListPriority = 5
)

// WordListRecognizer finds every literal occurrence of configured words.
// Matching is case-sensitive unless configured otherwise. Words are tried
// longest-first so "Operation Phoenix Two" is not shadowed by
// "Operation Phoenix" at the same offset.
type WordListRecognizer struct {
	name     string
	words    []string // longest-first
	foldCase bool
	label    string
	priority int
}

// WordListOption configures a WordListRecognizer.
type WordListOption func(*WordListRecognizer)

// WithCaseInsensitive makes word matching case-insensitive.
func WithCaseInsensitive() WordListOption {
	return func(r *WordListRecognizer) { r.foldCase = true }
}

// WithWordLabel overrides the default CUSTOM_WORD label.
func WithWordLabel(label string) WordListOption {
	return func(r *WordListRecognizer) { r.label = label }
}

// NewWordList creates an exact-match recognizer over the given words.
// Empty words are ignored.
func NewWordList(words []string, opts ...WordListOption) *WordListRecognizer {
	r := &WordListRecognizer{
		name:     "custom_word_recognizer",
		label:    WordListLabel,
		priority: WordListPriority,
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, w := range words {
		if w != "" {
			r.words = append(r.words, w)
		}
	}
	// Longest-first; stable among equal lengths.
	for i := 1; i < len(r.words); i++ {
		for j := i; j > 0 && len(r.words[j]) > len(r.words[j-1]); j-- {
			r.words[j], r.words[j-1] = r.words[j-1], r.words[j]
		}
	}
	return r
}

// Name returns the recognizer name.
func (r *WordListRecognizer) Name() string { return r.name }

// Labels returns the word-list entity label.
func (r *WordListRecognizer) Labels() []string { return []string{r.label} }

// Priority returns the conflict-resolution priority.
func (r *WordListRecognizer) Priority() int { return r.priority }

// Scan returns a span for every non-overlapping literal occurrence of each
// configured word. Offsets always index the original text: case-insensitive
// matching folds rune by rune in place rather than lowercasing the whole
// document, because lowercasing can change byte lengths (e.g. U+0130) and
// shift every later offset. The span text is the original document slice,
// so matches restore exactly.
func (r *WordListRecognizer) Scan(ctx context.Context, text string) ([]Span, error) {
	var spans []Span
	for _, word := range r.words {
		if r.foldCase {
			spans = r.scanFold(text, word, spans)
			continue
		}
		for from := 0; ; {
			idx := strings.Index(text[from:], word)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(word)
			spans = append(spans, r.span(text, start, end))
			from = end
		}
	}
	return spans, nil
}

// scanFold appends a span for every non-overlapping fold-equal occurrence
// of word, advancing rune-wise through the original text.
func (r *WordListRecognizer) scanFold(text, word string, spans []Span) []Span {
	for i := 0; i < len(text); {
		if n := foldPrefixLen(text[i:], word); n > 0 {
			spans = append(spans, r.span(text, i, i+n))
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return spans
}

func (r *WordListRecognizer) span(text string, start, end int) Span {
	return Span{
		Start:  start,
		End:    end,
		Label:  r.label,
		Text:   text[start:end],
		Score:  WordListScore,
		Source: r.name,
	}
}

// foldPrefixLen returns the byte length of the prefix of s that matches word
// rune-for-rune under Unicode simple case folding, or -1 when s does not
// start with word. The matched prefix may differ in byte length from word.
func foldPrefixLen(s, word string) int {
	n := 0
	for _, wr := range word {
		sr, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 || !runesFoldEqual(sr, wr) {
			return -1
		}
		n += size
	}
	return n
}

// runesFoldEqual reports whether two runes are equal under simple case
// folding, the same relation strings.EqualFold uses.
func runesFoldEqual(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}
