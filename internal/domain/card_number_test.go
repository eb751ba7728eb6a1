package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCardNumber(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		number, err := GenerateCardNumber("454545")
		require.NoError(t, err)
		assert.Len(t, number, 16)
		assert.True(t, strings.HasPrefix(number, "454545"))
		assert.NoError(t, ValidateCardNumber(number))
		seen[number] = struct{}{}
	}
	assert.Greater(t, len(seen), 45, "generated numbers should rarely collide")
}

func TestGenerateCardNumberRejectsBadBIN(t *testing.T) {
	for _, bin := range []string{"", "45a545", "1234567890123456"} {
		_, err := GenerateCardNumber(bin)
		assert.Error(t, err, "bin %q", bin)
	}
}

func TestValidateCardNumber(t *testing.T) {
	tests := []struct {
		number string
		valid  bool
	}{
		{"4111111111111111", true},
		{"4111111111111112", false},
		{"411111111111", false},
		{"41111111111111a1", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			err := ValidateCardNumber(tt.number)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrMalformedCardData)
			}
		})
	}
}

func TestMaskCardNumber(t *testing.T) {
	assert.Equal(t, "411111******1111", MaskCardNumber("4111111111111111"))
	assert.Equal(t, "****", MaskCardNumber("1234"))
	assert.Equal(t, "***5678", MaskCardNumber("1235678"))
	assert.Equal(t, "", MaskCardNumber(""))
}
