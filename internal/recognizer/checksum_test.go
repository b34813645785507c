package recognizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLuhnValid(t *testing.T) {
	tests := []struct {
		number string
		want   bool
	}{
		{"4111111111111111", true},  // Visa test number
		{"5500005555555559", true},  // Mastercard test number
		{"4111111111111112", false}, // wrong check digit
		{"1", false},                // too short
		{"411111111111111a", false}, // non-digit
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LuhnValid(tt.number), "LuhnValid(%q)", tt.number)
	}
}

func TestValidateLuhnStripsSeparators(t *testing.T) {
	assert.True(t, ValidateLuhn("4111-1111-1111-1111"))
	assert.True(t, ValidateLuhn("4111 1111 1111 1111"))
	assert.False(t, ValidateLuhn("4111-1111-1111-1112"))
}

func TestValidateIBAN(t *testing.T) {
	tests := []struct {
		iban string
		want bool
	}{
		{"DE89370400440532013000", true},
		{"DE89 3704 0044 0532 0130 00", true}, // spaces stripped
		{"GB82WEST12345698765432", true},
		{"DE89370400440532013001", false}, // bad checksum
		{"DE8937040044053201300", false},  // wrong length for DE
		{"XX89370400440532013000", false}, // unknown country
		{"DE", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateIBAN(tt.iban), "ValidateIBAN(%q)", tt.iban)
	}
}
