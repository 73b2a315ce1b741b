package handler

import (
	"strings"

	"recordshare/internal/registry/models"
	id "recordshare/pkg/domain"
	dErrors "recordshare/pkg/domain-errors"
)

type RegisterRequest struct {
	Role string `json:"role"`
}

// Parse returns the requested role. An empty role is a malformed body rather
// than an invalid role.
func (r RegisterRequest) Parse() (models.Role, error) {
	if strings.TrimSpace(r.Role) == "" {
		return models.RoleUnregistered, dErrors.New(dErrors.CodeBadRequest, "role is required")
	}
	return models.ParseRole(r.Role)
}

// AddDocumentRequest carries the pointer verbatim; trimming and validation
// belong to the registry so every entry point behaves the same.
type AddDocumentRequest struct {
	ContentPointer string `json:"content_pointer"`
}

type GrantRequest struct {
	Consumer string `json:"consumer"`
}

func (r GrantRequest) Parse() (id.Address, error) {
	return id.ParseAddress(r.Consumer)
}
