package redact

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingApply(t *testing.T) {
	mapping := Mapping{
		{Placeholder: "[PERSON_1]", Original: "John Smith", Label: "PERSON"},
		{Placeholder: "[EMAIL_ADDRESS_1]", Original: "john@corp.example", Label: "EMAIL_ADDRESS"},
	}

	restored := mapping.Apply("Hi [PERSON_1], reply to [EMAIL_ADDRESS_1].")
	assert.Equal(t, "Hi John Smith, reply to john@corp.example.", restored)
}

func TestMappingApplyUnmatchedPlaceholderKept(t *testing.T) {
	mapping := Mapping{
		{Placeholder: "[PERSON_1]", Original: "John Smith", Label: "PERSON"},
	}

	restored := mapping.Apply("[PERSON_1] met [PERSON_2] at [LOCATION_1].")
	assert.Equal(t, "John Smith met [PERSON_2] at [LOCATION_1].", restored,
		"placeholders without an entry are left verbatim")
}

func TestMappingApplyPrefixPlaceholders(t *testing.T) {
	// [PERSON_1] is a prefix of [PERSON_10]; occurrence order in the
	// mapping must disambiguate, not substring replacement.
	mapping := Mapping{
		{Placeholder: "[PERSON_10]", Original: "Alice", Label: "PERSON"},
		{Placeholder: "[PERSON_1]", Original: "Bob", Label: "PERSON"},
	}

	restored := mapping.Apply("[PERSON_10] then [PERSON_1]")
	assert.Equal(t, "Alice then Bob", restored)
}

func TestMappingApplyRepeatedPlaceholderDifferentOriginals(t *testing.T) {
	// Fuzzy consolidation records one entry per occurrence, so the same
	// placeholder can restore to different surface forms in document order.
	mapping := Mapping{
		{Placeholder: "[PERSON_1]", Original: "John Smith", Label: "PERSON"},
		{Placeholder: "[PERSON_1]", Original: "Jon Smyth", Label: "PERSON"},
	}

	restored := mapping.Apply("[PERSON_1] reviewed, [PERSON_1] approved")
	assert.Equal(t, "John Smith reviewed, Jon Smyth approved", restored)
}

func TestMappingApplyEmpty(t *testing.T) {
	var mapping Mapping
	assert.Equal(t, "unchanged", mapping.Apply("unchanged"))
	assert.Equal(t, "", Mapping{{Placeholder: "[X_1]", Original: "y"}}.Apply(""))
}

func TestMappingJSONShape(t *testing.T) {
	mapping := Mapping{{Placeholder: "[PERSON_1]", Original: "John Smith", Label: "PERSON"}}

	data, err := json.Marshal(mapping)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"placeholder":"[PERSON_1]","original":"John Smith","label":"PERSON"}]`, string(data))
}
