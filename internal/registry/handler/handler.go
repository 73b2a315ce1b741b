package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recordshare/internal/registry/models"
	"recordshare/pkg/contentref"
	id "recordshare/pkg/domain"
	dErrors "recordshare/pkg/domain-errors"
	"recordshare/pkg/platform/httputil"
	"recordshare/pkg/platform/middleware/auth"
	"recordshare/pkg/principal"
	"recordshare/pkg/requestcontext"
)

// maxBodyBytes bounds request bodies; every payload here is a single short
// string.
const maxBodyBytes = 16 << 10

// Service defines the registry operations the HTTP surface exposes.
type Service interface {
	Register(ctx context.Context, caller principal.Principal, role models.Role) (*models.Identity, error)
	GetIdentity(ctx context.Context, address id.Address) (*models.Identity, error)
	AddDocument(ctx context.Context, caller principal.Principal, contentPointer string) (*models.DocumentRecord, error)
	GetOwnDocuments(ctx context.Context, caller principal.Principal) ([]models.DocumentRecord, error)
	Grant(ctx context.Context, caller principal.Principal, consumer id.Address) error
	Revoke(ctx context.Context, caller principal.Principal, consumer id.Address) error
	GetMyConsumers(ctx context.Context, caller principal.Principal) ([]id.Address, error)
	GetMyOwners(ctx context.Context, caller principal.Principal) ([]id.Address, error)
	GetDocumentsAsConsumer(ctx context.Context, caller principal.Principal, owner id.Address) ([]models.DocumentRecord, error)
}

// Handler serves the registry routes.
type Handler struct {
	logger   *slog.Logger
	registry Service
	verifier auth.TokenVerifier
	resolver *contentref.Resolver
}

// New creates a registry Handler. resolver may be nil to disable gateway URLs.
func New(registry Service, verifier auth.TokenVerifier, resolver *contentref.Resolver, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		registry: registry,
		verifier: verifier,
		resolver: resolver,
	}
}

// Register registers the registry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/identities/{address}", h.handleGetIdentity)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(h.verifier, h.logger))
		r.Post("/identities", h.handleRegister)
		r.Post("/me/documents", h.handleAddDocument)
		r.Get("/me/documents", h.handleGetOwnDocuments)
		r.Post("/me/consumers", h.handleGrant)
		r.Delete("/me/consumers/{consumer}", h.handleRevoke)
		r.Get("/me/consumers", h.handleGetMyConsumers)
		r.Get("/me/owners", h.handleGetMyOwners)
		r.Get("/owners/{owner}/documents", h.handleGetDocumentsAsConsumer)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := req.Parse()
	if err != nil {
		h.fail(ctx, w, "invalid register request", err)
		return
	}

	identity, err := h.registry.Register(ctx, principal.FromContext(ctx), role)
	if err != nil {
		h.fail(ctx, w, "register failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toIdentityResponse(identity))
}

func (h *Handler) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.fail(ctx, w, "invalid address", err)
		return
	}

	identity, err := h.registry.GetIdentity(ctx, address)
	if err != nil {
		h.fail(ctx, w, "identity lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toIdentityResponse(identity))
}

func (h *Handler) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req AddDocumentRequest
	if !h.decode(w, r, &req) {
		return
	}

	doc, err := h.registry.AddDocument(ctx, principal.FromContext(ctx), req.ContentPointer)
	if err != nil {
		h.fail(ctx, w, "add document failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, AddDocumentResponse{
		Index:    doc.Index,
		Document: toDocumentResponse(*doc, h.resolver),
	})
}

func (h *Handler) handleGetOwnDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docs, err := h.registry.GetOwnDocuments(ctx, principal.FromContext(ctx))
	if err != nil {
		h.fail(ctx, w, "list own documents failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentsResponse(docs, h.resolver))
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req GrantRequest
	if !h.decode(w, r, &req) {
		return
	}
	consumer, err := req.Parse()
	if err != nil {
		h.fail(ctx, w, "invalid grant request", err)
		return
	}

	if err := h.registry.Grant(ctx, principal.FromContext(ctx), consumer); err != nil {
		h.fail(ctx, w, "grant failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consumer, err := id.ParseAddress(chi.URLParam(r, "consumer"))
	if err != nil {
		h.fail(ctx, w, "invalid consumer address", err)
		return
	}

	if err := h.registry.Revoke(ctx, principal.FromContext(ctx), consumer); err != nil {
		h.fail(ctx, w, "revoke failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetMyConsumers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consumers, err := h.registry.GetMyConsumers(ctx, principal.FromContext(ctx))
	if err != nil {
		h.fail(ctx, w, "list consumers failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAddressesResponse(consumers))
}

func (h *Handler) handleGetMyOwners(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owners, err := h.registry.GetMyOwners(ctx, principal.FromContext(ctx))
	if err != nil {
		h.fail(ctx, w, "list owners failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAddressesResponse(owners))
}

func (h *Handler) handleGetDocumentsAsConsumer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := id.ParseAddress(chi.URLParam(r, "owner"))
	if err != nil {
		h.fail(ctx, w, "invalid owner address", err)
		return
	}

	docs, err := h.registry.GetDocumentsAsConsumer(ctx, principal.FromContext(ctx), owner)
	if err != nil {
		h.fail(ctx, w, "read shared documents failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentsResponse(docs, h.resolver))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.logger.WarnContext(ctx, "invalid request body",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// fail logs at Warn for caller mistakes and Error for infrastructure faults,
// then writes the mapped response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeTimeout:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
