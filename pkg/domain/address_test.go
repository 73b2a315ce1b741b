package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "recordshare/pkg/domain-errors"
)

// TestParseAddress_SecurityInvariants validates trust-boundary parsing rules.
func TestParseAddress_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Empty string", "", true},
		{"Whitespace only", "   ", true},
		{"Oversized input", strings.Repeat("a", 257), true},
		{"Null byte injection", "0xabc\x00def", true},
		{"Embedded space", "0xabc def", true},
		{"Unicode zero-width space", "0xabc\u200Bdef", true},

		{"Wallet address", "0x8ba1f109551bD432803012645Ac136ddd64DBA72", false},
		{"Opaque identifier", "did:example:123456789abcdefghi", false},
		{"Max length", strings.Repeat("a", 256), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAddress(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseAddress_Normalization(t *testing.T) {
	t.Run("hex addresses are case-insensitive", func(t *testing.T) {
		mixed, err := ParseAddress("0x8ba1f109551bD432803012645Ac136ddd64DBA72")
		require.NoError(t, err)
		lower, err := ParseAddress("0x8ba1f109551bd432803012645ac136ddd64dba72")
		require.NoError(t, err)
		assert.Equal(t, lower, mixed)
	})

	t.Run("mixed-case account addresses must carry a valid checksum", func(t *testing.T) {
		for _, valid := range []string{
			"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
			"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
			"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
			"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
		} {
			_, err := ParseAddress(valid)
			assert.NoError(t, err, valid)
		}

		_, err := ParseAddress("0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = ParseAddress("0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED")
		assert.NoError(t, err, "single-case spellings carry no checksum")
	})

	t.Run("non-hex addresses keep their case", func(t *testing.T) {
		a, err := ParseAddress("did:example:ABC")
		require.NoError(t, err)
		assert.Equal(t, Address("did:example:ABC"), a)
	})

	t.Run("surrounding whitespace is trimmed", func(t *testing.T) {
		a, err := ParseAddress("  patient-1 \n")
		require.NoError(t, err)
		assert.Equal(t, Address("patient-1"), a)
	})
}
