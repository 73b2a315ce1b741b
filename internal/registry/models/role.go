package models

import (
	"strings"

	dErrors "recordshare/pkg/domain-errors"
)

// Role is the closed set of identity roles. The numeric values are the
// persisted encoding.
type Role int

const (
	RoleUnregistered Role = 0
	RoleOwner        Role = 1
	RoleConsumer     Role = 2
)

// ParseRole accepts the wire names "owner" and "consumer".
//
// Errors: returns CodeInvalidRole for anything else, including "unregistered",
// which is a state rather than a registrable role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "owner":
		return RoleOwner, nil
	case "consumer":
		return RoleConsumer, nil
	default:
		return RoleUnregistered, dErrors.New(dErrors.CodeInvalidRole, "role must be owner or consumer")
	}
}

// RoleFromCode decodes a persisted role.
func RoleFromCode(code int) (Role, bool) {
	switch Role(code) {
	case RoleUnregistered, RoleOwner, RoleConsumer:
		return Role(code), true
	default:
		return RoleUnregistered, false
	}
}

// Registrable reports whether r may be the target of a registration.
func (r Role) Registrable() bool {
	switch r {
	case RoleOwner, RoleConsumer:
		return true
	case RoleUnregistered:
		return false
	default:
		return false
	}
}

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleConsumer:
		return "consumer"
	case RoleUnregistered:
		return "unregistered"
	default:
		return "unknown"
	}
}
