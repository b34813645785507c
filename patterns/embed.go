// Package patterns provides the embedded default recognizer definitions.
// YAML files in this directory use the Presidio-compatible recognizer format
// with Veil extensions (priority, validator, flat context list).
package patterns

import _ "embed"

//go:embed pii_default.yaml
var piiDefaultYAML []byte

// PIIDefaultYAML returns the embedded default PII recognizer definitions.
func PIIDefaultYAML() []byte { return piiDefaultYAML }
