package handler

import (
	"time"

	"recordshare/internal/registry/models"
	"recordshare/pkg/contentref"
	id "recordshare/pkg/domain"
)

type IdentityResponse struct {
	Address      string     `json:"address"`
	Role         string     `json:"role"`
	Registered   bool       `json:"registered"`
	RegisteredAt *time.Time `json:"registered_at,omitempty"`
}

type DocumentResponse struct {
	Index          int       `json:"index"`
	Owner          string    `json:"owner"`
	ContentPointer string    `json:"content_pointer"`
	CreatedAt      time.Time `json:"created_at"`
	Active         bool      `json:"active"`
	GatewayURL     string    `json:"gateway_url,omitempty"`
}

type AddDocumentResponse struct {
	Index    int              `json:"index"`
	Document DocumentResponse `json:"document"`
}

type DocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

type AddressesResponse struct {
	Addresses []string `json:"addresses"`
}

func toIdentityResponse(identity *models.Identity) IdentityResponse {
	resp := IdentityResponse{
		Address:    identity.Address.String(),
		Role:       identity.Role.String(),
		Registered: identity.Registered(),
	}
	if identity.Registered() {
		at := identity.RegisteredAt.UTC()
		resp.RegisteredAt = &at
	}
	return resp
}

func toDocumentResponse(doc models.DocumentRecord, resolver *contentref.Resolver) DocumentResponse {
	return DocumentResponse{
		Index:          doc.Index,
		Owner:          doc.Owner.String(),
		ContentPointer: doc.ContentPointer,
		CreatedAt:      doc.CreatedAt.UTC(),
		Active:         doc.Active,
		GatewayURL:     resolver.GatewayURL(doc.ContentPointer),
	}
}

// toDocumentsResponse always yields a JSON array, never null.
func toDocumentsResponse(docs []models.DocumentRecord, resolver *contentref.Resolver) DocumentsResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d, resolver))
	}
	return DocumentsResponse{Documents: out}
}

func toAddressesResponse(addrs []id.Address) AddressesResponse {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return AddressesResponse{Addresses: out}
}
