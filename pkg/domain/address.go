package domain

import (
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/crypto/sha3"

	dErrors "recordshare/pkg/domain-errors"
)

// accountHexLen is the length of a 20-byte account address with its 0x prefix.
const accountHexLen = 42

// maxAddressLen bounds externally issued addresses at the trust boundary.
const maxAddressLen = 256

// Address identifies a participant. It is issued by the external identity
// provider and is opaque to the registry.
//
// Invariant: a parsed Address is non-empty, at most 256 bytes, and contains no
// whitespace or control characters. Hex addresses with a 0x prefix are
// lower-cased so checksum-cased spellings name the same identity.
//
// Usage: construct via ParseAddress at trust boundaries; direct casting
// bypasses validation and is reserved for stores reading back persisted rows.
type Address string

// ParseAddress validates and normalizes external input into an Address.
//
// Errors: returns CodeInvalidInput when the value is empty, oversized, or
// contains whitespace or control characters.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	if len(s) > maxAddressLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address too long")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == unicode.ReplacementChar || unicode.Is(unicode.Cf, r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "address contains invalid characters")
		}
	}
	if isHexAddress(s) {
		if !validChecksum(s) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "address checksum mismatch")
		}
		s = strings.ToLower(s)
	}
	return Address(s), nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func isHexAddress(s string) bool {
	if len(s) < 3 || (s[:2] != "0x" && s[:2] != "0X") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// validChecksum applies EIP-55 to mixed-case account addresses. Single-case
// spellings carry no checksum and always pass.
func validChecksum(s string) bool {
	body := s[2:]
	if len(s) != accountHexLen || body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(strings.ToLower(body)))
	digest := hex.EncodeToString(h.Sum(nil))
	for i, c := range body {
		if c < 'A' || (c > 'F' && c < 'a') || c > 'f' {
			continue
		}
		upper := digest[i] >= '8'
		if upper != (c <= 'F') {
			return false
		}
	}
	return true
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == ""
}

func (a Address) String() string {
	return string(a)
}
