package recognizer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/veil-sh/veil/patterns"
)

// RecognizerFile is the top-level YAML structure for a recognizer config
// file. Mirrors Presidio's recognizer registry YAML format with Veil
// extensions (priority, validator, flat context list).
type RecognizerFile struct {
	Recognizers []RecognizerConfig `yaml:"recognizers"`
}

// RecognizerConfig is one recognizer definition in a config file.
type RecognizerConfig struct {
	Name            string          `yaml:"name" json:"name"`
	SupportedEntity string          `yaml:"supported_entity" json:"supported_entity"`
	Enabled         *bool           `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Priority        int             `yaml:"priority,omitempty" json:"priority,omitempty"`
	Validator       string          `yaml:"validator,omitempty" json:"validator,omitempty"`
	Patterns        []PatternConfig `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	Context         []string        `yaml:"context,omitempty" json:"context,omitempty"`
}

// PatternConfig is a single regex pattern within a recognizer.
type PatternConfig struct {
	Name  string  `yaml:"name" json:"name"`
	Regex string  `yaml:"regex" json:"regex"`
	Score float64 `yaml:"score" json:"score"`
}

// isEnabled returns true if the recognizer is enabled (defaults to true when nil).
func (r *RecognizerConfig) isEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// ParseRecognizerFile parses recognizer YAML bytes into a RecognizerFile.
func ParseRecognizerFile(data []byte) (*RecognizerFile, error) {
	var rf RecognizerFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing recognizer YAML: %w", err)
	}
	return &rf, nil
}

// LoadRecognizerFile reads and parses a recognizer YAML file from disk.
// Returns nil (not an error) if the file does not exist, so callers can
// treat a missing global config as a no-op.
func LoadRecognizerFile(path string) (*RecognizerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recognizer file %s: %w", path, err)
	}
	return ParseRecognizerFile(data)
}

// DefaultRecognizerConfigs returns the built-in recognizers parsed from the
// embedded default patterns. This is the first layer in the merge chain.
func DefaultRecognizerConfigs() ([]RecognizerConfig, error) {
	rf, err := ParseRecognizerFile(patterns.PIIDefaultYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded default patterns: %w", err)
	}
	return rf.Recognizers, nil
}

// MergeRecognizerConfigs performs a layered merge: embedded defaults, then a
// global pattern file, then caller-supplied definitions. Later layers
// override earlier ones by matching on the Name field; new recognizers are
// appended in order.
func MergeRecognizerConfigs(layers ...[]RecognizerConfig) []RecognizerConfig {
	index := make(map[string]int)
	var merged []RecognizerConfig

	for _, layer := range layers {
		for _, rc := range layer {
			if idx, exists := index[rc.Name]; exists {
				merged[idx] = rc
			} else {
				index[rc.Name] = len(merged)
				merged = append(merged, rc)
			}
		}
	}

	return merged
}

// FilterByEntities applies enabled/disabled entity filters to a recognizer
// config list. If enabledEntities is non-empty, only recognizers with a
// matching supported_entity are kept (whitelist). Then any recognizer in
// disabledEntities is removed (blacklist).
func FilterByEntities(recognizers []RecognizerConfig, enabledEntities, disabledEntities []string) []RecognizerConfig {
	result := recognizers

	if len(enabledEntities) > 0 {
		allowed := make(map[string]bool, len(enabledEntities))
		for _, e := range enabledEntities {
			allowed[e] = true
		}
		var filtered []RecognizerConfig
		for _, r := range result {
			if allowed[r.SupportedEntity] {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	if len(disabledEntities) > 0 {
		blocked := make(map[string]bool, len(disabledEntities))
		for _, e := range disabledEntities {
			blocked[e] = true
		}
		var filtered []RecognizerConfig
		for _, r := range result {
			if !blocked[r.SupportedEntity] {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	return result
}

// namedValidators maps config validator names to their predicates.
var namedValidators = map[string]func(string) bool{
	"luhn": ValidateLuhn,
	"iban": ValidateIBAN,
}

// CompileRecognizers converts recognizer configs into runtime recognizers.
// Disabled recognizers are skipped. An unknown validator name or an invalid
// regex fails fast.
func CompileRecognizers(configs []RecognizerConfig) ([]Recognizer, error) {
	var recognizers []Recognizer

	for _, rc := range configs {
		if !rc.isEnabled() {
			continue
		}
		b := NewBuilder(rc.SupportedEntity).
			WithName(rc.Name).
			WithContext(rc.Context).
			WithPriority(rc.Priority)
		for _, p := range rc.Patterns {
			b.WithPatterns([]PatternSpec{{ID: p.Name, Regex: p.Regex, Score: p.Score}})
		}
		if rc.Validator != "" {
			fn, ok := namedValidators[rc.Validator]
			if !ok {
				return nil, fmt.Errorf("%w: unknown validator %q in recognizer %q", ErrInvalidPattern, rc.Validator, rc.Name)
			}
			b.WithValidator(fn)
		}
		rec, err := b.Build()
		if err != nil {
			return nil, err
		}
		recognizers = append(recognizers, rec)
	}

	return recognizers, nil
}
