package detector

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	detections []Detection
	err        error
}

func (s *stubDetector) Detect(ctx context.Context, text string) ([]Detection, error) {
	return s.detections, s.err
}

func TestAdapterScan(t *testing.T) {
	text := "Jane Doe lives in Berlin"
	stub := &stubDetector{detections: []Detection{
		{Label: "PERSON", Start: 0, End: 8, Score: 0.9},
		{Label: "LOCATION", Start: 18, End: 24, Score: 0.7},
	}}
	a := NewAdapter("statistical_detector", stub, LLMLabels)

	assert.Equal(t, "statistical_detector", a.Name())
	assert.Equal(t, LLMLabels, a.Labels())
	assert.Equal(t, AdapterPriority, a.Priority())

	spans, err := a.Scan(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, "Jane Doe", spans[0].Text)
	assert.Equal(t, "PERSON", spans[0].Label)
	assert.Equal(t, "statistical_detector", spans[0].Source)
	assert.Equal(t, "Berlin", spans[1].Text)
}

func TestAdapterDropsInvalidDetections(t *testing.T) {
	text := "short"
	stub := &stubDetector{detections: []Detection{
		{Label: "PERSON", Start: -1, End: 3, Score: 0.9},
		{Label: "PERSON", Start: 3, End: 3, Score: 0.9},
		{Label: "PERSON", Start: 4, End: 2, Score: 0.9},
		{Label: "PERSON", Start: 0, End: 99, Score: 0.9},
		{Label: "PERSON", Start: 0, End: 5, Score: 0.9},
	}}
	a := NewAdapter("statistical_detector", stub, LLMLabels)

	spans, err := a.Scan(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "short", spans[0].Text)
}

func TestAdapterClampsScores(t *testing.T) {
	stub := &stubDetector{detections: []Detection{
		{Label: "PERSON", Start: 0, End: 2, Score: 1.7},
		{Label: "PERSON", Start: 3, End: 5, Score: -0.3},
	}}
	a := NewAdapter("statistical_detector", stub, LLMLabels)

	spans, err := a.Scan(context.Background(), "ab cd")
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, 1.0, spans[0].Score)
	assert.Equal(t, 0.0, spans[1].Score)
}

func TestAdapterPropagatesError(t *testing.T) {
	a := NewAdapter("statistical_detector", &stubDetector{err: fmt.Errorf("model offline")}, LLMLabels)

	_, err := a.Scan(context.Background(), "text")
	assert.Error(t, err)
}

func TestParseEntities(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{
			name:    "bare array",
			content: `[{"label":"PERSON","text":"Jane Doe","score":0.9}]`,
			want:    1,
		},
		{
			name: "markdown fenced",
			content: "```json\n" +
				`[{"label":"PERSON","text":"Jane Doe","score":0.9},{"label":"LOCATION","text":"Berlin","score":0.8}]` +
				"\n```",
			want: 2,
		},
		{
			name:    "surrounding prose",
			content: `Here are the entities: [{"label":"PERSON","text":"Jane Doe","score":0.9}] as requested.`,
			want:    1,
		},
		{
			name:    "empty array",
			content: `[]`,
			want:    0,
		},
		{
			name:    "no array",
			content: `I found no entities.`,
			wantErr: true,
		},
		{
			name:    "malformed array",
			content: `[{"label":}]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities, err := parseEntities(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, entities, tt.want)
		})
	}
}

func TestAnchorEntities(t *testing.T) {
	text := "Jane Doe met Jane Doe in Berlin"

	detections := anchorEntities(text, []llmEntity{
		{Label: "PERSON", Text: "Jane Doe", Score: 0.9},
		{Label: "LOCATION", Text: "Berlin", Score: 0.8},
	})

	require.Len(t, detections, 3, "every occurrence is anchored")
	assert.Equal(t, Detection{Label: "PERSON", Start: 0, End: 8, Score: 0.9}, detections[0])
	assert.Equal(t, Detection{Label: "PERSON", Start: 13, End: 21, Score: 0.9}, detections[1])
	assert.Equal(t, Detection{Label: "LOCATION", Start: 25, End: 31, Score: 0.8}, detections[2])
}

func TestAnchorEntitiesDropsHallucinations(t *testing.T) {
	detections := anchorEntities("No names here.", []llmEntity{
		{Label: "PERSON", Text: "Jane Doe", Score: 0.9},
		{Label: "PERSON", Text: "", Score: 0.9},
		{Label: "", Text: "names", Score: 0.9},
	})
	assert.Empty(t, detections, "reported values absent from the text are dropped")
}

func TestAnchorEntitiesDedupesRepeatedReports(t *testing.T) {
	detections := anchorEntities("Jane Doe spoke.", []llmEntity{
		{Label: "PERSON", Text: "Jane Doe", Score: 0.9},
		{Label: "PERSON", Text: "Jane Doe", Score: 0.4},
	})
	require.Len(t, detections, 1)
	assert.Equal(t, 0.9, detections[0].Score, "first report wins")
}

func TestAnchorEntitiesDefaultsOutOfRangeScore(t *testing.T) {
	detections := anchorEntities("Jane Doe spoke.", []llmEntity{
		{Label: "PERSON", Text: "Jane Doe", Score: 4.2},
	})
	require.Len(t, detections, 1)
	assert.Equal(t, 0.5, detections[0].Score)
}
