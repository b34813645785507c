package cmd

import (
	"github.com/veil-sh/veil/internal/config"
	"github.com/veil-sh/veil/internal/detector"
	"github.com/veil-sh/veil/internal/redact"
)

// buildRedactor assembles a Redactor from operator config plus per-call
// overrides. entities and customWords may be nil; fuzzy 0 disables fuzzy
// consolidation.
func buildRedactor(cfg *config.Config, entities, customWords []string, fuzzy int, foldWords bool) (*redact.Redactor, error) {
	var opts []redact.Option
	if cfg.PatternFile != "" {
		opts = append(opts, redact.WithPatternFile(cfg.PatternFile))
	}
	if cfg.MinScore > 0 {
		opts = append(opts, redact.WithMinScore(cfg.MinScore))
	}
	if cfg.DetectorEnabled {
		det := detector.NewLLMDetector(cfg.DetectorBaseURL, cfg.DetectorAPIKey, cfg.DetectorModel)
		opts = append(opts, redact.WithDetector(det))
	}
	if len(entities) > 0 {
		opts = append(opts, redact.WithEnabledEntities(entities...))
	}
	if len(customWords) > 0 {
		opts = append(opts, redact.WithCustomWords(customWords...))
		if foldWords {
			opts = append(opts, redact.WithCaseInsensitiveWords())
		}
	}
	if fuzzy != 0 {
		// negative values are rejected by redact.New
		opts = append(opts, redact.WithFuzzyMapping(fuzzy))
	}
	return redact.New(opts...)
}
