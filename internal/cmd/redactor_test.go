package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veil-sh/veil/internal/config"
)

func TestBuildRedactorDefaults(t *testing.T) {
	r, err := buildRedactor(&config.Config{}, nil, nil, 0, false)
	require.NoError(t, err)

	redacted, mapping, err := r.Redact(context.Background(), "mail jane@corp.example")
	require.NoError(t, err)
	assert.Equal(t, "mail [EMAIL_ADDRESS_1]", redacted)
	require.Len(t, mapping, 1)
}

func TestBuildRedactorOverrides(t *testing.T) {
	cfg := &config.Config{MinScore: 0.4}
	r, err := buildRedactor(cfg, []string{"PHONE_NUMBER"}, []string{"secret-project"}, 1, true)
	require.NoError(t, err)

	redacted, _, err := r.Redact(context.Background(), "SECRET-PROJECT: mail jane@corp.example")
	require.NoError(t, err)
	assert.NotContains(t, redacted, "SECRET-PROJECT")
	assert.Contains(t, redacted, "jane@corp.example")
}

func TestBuildRedactorPatternFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`recognizers:
  - name: badge_recognizer
    supported_entity: BADGE_ID
    patterns:
      - name: badge
        regex: 'BDG-\d{6}'
        score: 0.9
`), 0o600))

	r, err := buildRedactor(&config.Config{PatternFile: path}, nil, nil, 0, false)
	require.NoError(t, err)

	redacted, _, err := r.Redact(context.Background(), "badge BDG-123456 issued")
	require.NoError(t, err)
	assert.Contains(t, redacted, "[BADGE_ID_1]")
}

func TestBuildRedactorRejectsNegativeFuzzy(t *testing.T) {
	_, err := buildRedactor(&config.Config{}, nil, nil, -1, false)
	require.Error(t, err)
}

func TestReadInputFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	data, err := readInput([]string{path})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = readInput([]string{filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)
}
