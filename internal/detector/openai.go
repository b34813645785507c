package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	veilotel "github.com/veil-sh/veil/internal/otel"
)

var tracer = veilotel.Tracer("github.com/veil-sh/veil/internal/detector")

// LLMLabels are the entity labels the LLM detector is prompted for. These
// cover the unstructured entities regex recognizers cannot express.
var LLMLabels = []string{"PERSON", "LOCATION", "ORGANIZATION"}

// DetectTimeout bounds a single detector call.
const DetectTimeout = 60 * time.Second

const systemPrompt = `You are a named-entity recognition engine. Given a document, list every person name, location, and organization that appears VERBATIM in it. Respond with a JSON array only, no prose:
[{"label":"PERSON|LOCATION|ORGANIZATION","text":"<exact substring>","score":0.0-1.0}]
Return [] if nothing is found.`

// LLMDetector detects entities through any OpenAI-compatible chat completion
// endpoint (OpenAI, or Ollama's /v1 surface for local models).
//
// The model reports entity surface forms, not offsets; offsets from LLMs are
// unreliable. Detections are re-anchored by locating each reported substring
// in the document, and values the model hallucinated (absent from the text)
// are dropped.
type LLMDetector struct {
	client *openai.Client
	model  string
}

// NewLLMDetector creates a detector against an OpenAI-compatible endpoint.
// baseURL may be empty for api.openai.com.
func NewLLMDetector(baseURL, apiKey, model string) *LLMDetector {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &LLMDetector{client: openai.NewClientWithConfig(cfg), model: model}
}

type llmEntity struct {
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Detect asks the model for entities and anchors them in text.
func (d *LLMDetector) Detect(ctx context.Context, text string) ([]Detection, error) {
	ctx, span := tracer.Start(ctx, "detector.llm_detect")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, DetectTimeout)
	defer cancel()

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       d.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("LLM detector call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM detector: empty response")
	}

	entities, err := parseEntities(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	detections := anchorEntities(text, entities)
	span.SetAttributes(
		attribute.Int("detector.reported", len(entities)),
		attribute.Int("detector.anchored", len(detections)),
	)
	return detections, nil
}

// parseEntities extracts the JSON array from the model output, tolerating
// surrounding prose and markdown fences.
func parseEntities(content string) ([]llmEntity, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("LLM detector: no JSON array in response")
	}
	var entities []llmEntity
	if err := json.Unmarshal([]byte(content[start:end+1]), &entities); err != nil {
		return nil, fmt.Errorf("LLM detector: decoding entities: %w", err)
	}
	return entities, nil
}

// anchorEntities locates every occurrence of each reported entity text in
// the document. Duplicate (label, offset) pairs from repeated reports are
// collapsed.
func anchorEntities(text string, entities []llmEntity) []Detection {
	type key struct {
		label string
		start int
	}
	seen := make(map[key]bool)

	var detections []Detection
	for _, e := range entities {
		if e.Text == "" || e.Label == "" {
			continue
		}
		score := e.Score
		if score <= 0 || score > 1 {
			score = 0.5
		}
		for from := 0; ; {
			idx := strings.Index(text[from:], e.Text)
			if idx < 0 {
				break
			}
			start := from + idx
			k := key{label: e.Label, start: start}
			if !seen[k] {
				seen[k] = true
				detections = append(detections, Detection{
					Label: e.Label,
					Start: start,
					End:   start + len(e.Text),
					Score: score,
				})
			}
			from = start + len(e.Text)
		}
	}
	return detections
}
