package models

import (
	"strings"

	dErrors "recordshare/pkg/domain-errors"
)

// MaxContentPointerLen bounds stored pointers. IPFS CIDs are well under this.
const MaxContentPointerLen = 512

// NormalizeContentPointer trims surrounding whitespace and enforces the
// pointer invariants.
//
// Errors: returns CodeInvalidPointer when the pointer is empty or too long.
func NormalizeContentPointer(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", dErrors.New(dErrors.CodeInvalidPointer, "content pointer cannot be empty")
	}
	if len(p) > MaxContentPointerLen {
		return "", dErrors.New(dErrors.CodeInvalidPointer, "content pointer too long")
	}
	return p, nil
}
