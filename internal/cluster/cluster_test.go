package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veil-sh/veil/internal/recognizer"
)

func personSpans(texts ...string) []recognizer.Candidate {
	spans := make([]recognizer.Candidate, len(texts))
	offset := 0
	for i, txt := range texts {
		spans[i] = recognizer.Candidate{Span: recognizer.Span{
			Start: offset,
			End:   offset + len(txt),
			Label: "PERSON",
			Text:  txt,
		}}
		offset += len(txt) + 2
	}
	return spans
}

func TestExactModeNormalizedIdentity(t *testing.T) {
	spans := personSpans("John Smith", "john  smith", " JOHN SMITH ", "Mary Johnson")
	got := Consolidate(spans, 0)

	require.Len(t, got.EntityIDs, 4)
	assert.Equal(t, got.EntityIDs[0], got.EntityIDs[1], "case/whitespace variants share identity")
	assert.Equal(t, got.EntityIDs[0], got.EntityIDs[2])
	assert.NotEqual(t, got.EntityIDs[0], got.EntityIDs[3])
	require.Len(t, got.Clusters, 2)
	assert.Equal(t, "John Smith", got.Clusters[0].CanonicalText, "canonical is first-seen original text")
}

func TestExactModeScopedPerLabel(t *testing.T) {
	spans := []recognizer.Candidate{
		{Span: recognizer.Span{Start: 0, End: 5, Label: "PERSON", Text: "Paris"}},
		{Span: recognizer.Span{Start: 10, End: 15, Label: "LOCATION", Text: "Paris"}},
	}
	got := Consolidate(spans, 0)
	assert.NotEqual(t, got.EntityIDs[0], got.EntityIDs[1],
		"same text under different labels stays distinct")
}

func TestExactModeDoesNotFuzzyMerge(t *testing.T) {
	got := Consolidate(personSpans("John Smith", "Jon Smyth"), 0)
	assert.NotEqual(t, got.EntityIDs[0], got.EntityIDs[1])
}

func TestFuzzyNameVariantsCollapse(t *testing.T) {
	spans := personSpans("John Smith", "Jon Smyth", "Johnny Smith", "Mary Johnson")
	got := Consolidate(spans, 1)

	assert.Equal(t, got.EntityIDs[0], got.EntityIDs[1], "John Smith ~ Jon Smyth")
	assert.Equal(t, got.EntityIDs[0], got.EntityIDs[2], "John Smith ~ Johnny Smith")
	assert.NotEqual(t, got.EntityIDs[0], got.EntityIDs[3], "Mary Johnson stays separate")

	require.Len(t, got.Clusters, 2)
	assert.Equal(t, "John Smith", got.Clusters[0].CanonicalText)
	assert.ElementsMatch(t, []string{"John Smith", "Jon Smyth", "Johnny Smith"}, got.Clusters[0].Members)
}

func TestFuzzyTransitiveClosure(t *testing.T) {
	// Jon Smyth and Johnny Smith would not merge pairwise (edit budget
	// exceeded) but both merge with John Smith, so all three share a
	// cluster through the union.
	spans := personSpans("Jon Smyth", "Johnny Smith", "John Smith")
	got := Consolidate(spans, 1)
	assert.Equal(t, got.EntityIDs[0], got.EntityIDs[2])
	assert.Equal(t, got.EntityIDs[1], got.EntityIDs[2])
	require.Len(t, got.Clusters, 1)
	assert.Equal(t, "Jon Smyth", got.Clusters[0].CanonicalText)
}

func TestFuzzyTokenSubsequence(t *testing.T) {
	spans := personSpans("John Smith", "John")
	got := Consolidate(spans, 1)
	assert.Equal(t, got.EntityIDs[0], got.EntityIDs[1],
		"a token subsequence denotes the same entity")
}

func TestFuzzyShortTokensMatchExactly(t *testing.T) {
	spans := personSpans("J R Smith", "J B Smith")
	got := Consolidate(spans, 1)
	assert.NotEqual(t, got.EntityIDs[0], got.EntityIDs[1],
		"initials are too short for edit distance")
}

func TestFuzzyDeterministicNumbering(t *testing.T) {
	spans := personSpans("Mary Johnson", "John Smith", "Jon Smyth", "Mary Johnson")
	for i := 0; i < 50; i++ {
		got := Consolidate(spans, 1)
		require.Equal(t, []int{0, 1, 1, 0}, got.EntityIDs,
			"clusters numbered by first appearance, stable across runs")
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "john smith", Normalize("  John   SMITH\t"))
	assert.Equal(t, "", Normalize("   "))
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"john", "jon", 1},
		{"smith", "smyth", 1},
		{"john", "johnny", 2},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "levenshtein(%q, %q)", tt.a, tt.b)
	}
}
