package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizer_Normalize(t *testing.T) {
	tests := []struct {
		name   string
		region string
		input  string
		want   string
	}{
		{"national US number", "US", "(650) 253-0000", "+16502530000"},
		{"international with spaces", "US", "+1 650 253 0000", "+16502530000"},
		{"indian mobile", "IN", "098765 43210", "+919876543210"},
		{"unparseable kept", "US", "call me", "call me"},
		{"too short kept", "US", " 12345 ", "12345"},
		{"blank", "US", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewNormalizer(tt.region).Normalize(tt.input))
		})
	}
}

func TestNewNormalizer_DefaultsRegion(t *testing.T) {
	assert.Equal(t, "US", NewNormalizer("").region)
	assert.Equal(t, "IN", NewNormalizer("in").region)
}
