// Package detector is the boundary to the external statistical entity
// detector. The core pipeline consumes it through the narrow Detector
// interface and assumes nothing about its internal model; the Adapter
// presents any Detector as a regular recognizer.
package detector

import (
	"context"

	"github.com/veil-sh/veil/internal/recognizer"
)

// Detection is one scored entity span reported by a statistical detector.
// Offsets are byte offsets into the scanned text.
type Detection struct {
	Label string  `json:"label"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// Detector detects entities in text. Implementations may call out to an
// NLP model, an LLM endpoint, or anything else; the contract is only the
// signature below.
type Detector interface {
	Detect(ctx context.Context, text string) ([]Detection, error)
}

// AdapterPriority ranks detector spans below pattern recognizers of equal
// score so deterministic regex matches win overlapping offsets.
const AdapterPriority = -1

// Adapter presents a Detector as a recognizer. Detections with offsets
// outside the document or non-positive length are dropped at this boundary
// so the rest of the pipeline only ever sees valid spans.
type Adapter struct {
	name     string
	det      Detector
	labels   []string
	priority int
}

// NewAdapter wraps det as a recognizer. labels declares every entity label
// the detector may emit, used for registry allow-list filtering.
func NewAdapter(name string, det Detector, labels []string) *Adapter {
	return &Adapter{name: name, det: det, labels: labels, priority: AdapterPriority}
}

// Name returns the adapter name.
func (a *Adapter) Name() string { return a.name }

// Labels returns the labels the wrapped detector may emit.
func (a *Adapter) Labels() []string { return a.labels }

// Priority returns the conflict-resolution priority.
func (a *Adapter) Priority() int { return a.priority }

// Scan invokes the detector and converts its detections to spans.
func (a *Adapter) Scan(ctx context.Context, text string) ([]recognizer.Span, error) {
	detections, err := a.det.Detect(ctx, text)
	if err != nil {
		return nil, err
	}

	spans := make([]recognizer.Span, 0, len(detections))
	for _, d := range detections {
		if d.Start < 0 || d.Start >= d.End || d.End > len(text) {
			continue
		}
		score := d.Score
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		spans = append(spans, recognizer.Span{
			Start:  d.Start,
			End:    d.End,
			Label:  d.Label,
			Text:   text[d.Start:d.End],
			Score:  score,
			Source: a.name,
		})
	}
	return spans, nil
}
