// Package principal models a caller identity that has already been verified by
// the external identity provider.
//
// A Principal is a capability: registry mutations accept a Principal, never a
// bare address, so an unverified string cannot be passed where a caller is
// expected by accident. Verified is exported and the package does not restrict
// who calls it; in this module the authentication middleware (after token
// verification) and test helpers are its only callers.
package principal

import (
	"context"

	id "recordshare/pkg/domain"
	dErrors "recordshare/pkg/domain-errors"
)

// Principal is a verified caller.
type Principal struct {
	address id.Address
	tokenID string
}

// Verified wraps an address whose ownership was proven by the identity
// provider. tokenID is the proof's identifier (JWT jti) kept for audit.
func Verified(address id.Address, tokenID string) Principal {
	return Principal{address: address, tokenID: tokenID}
}

// Address returns the verified caller address.
func (p Principal) Address() id.Address {
	return p.address
}

// TokenID returns the identifier of the credential that proved the identity.
func (p Principal) TokenID() string {
	return p.tokenID
}

// IsZero reports whether p was never verified.
func (p Principal) IsZero() bool {
	return p.address.IsZero()
}

// Require returns CodeUnauthorized for the zero Principal.
func (p Principal) Require() error {
	if p.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity not verified")
	}
	return nil
}

type ctxKey struct{}

// WithPrincipal stores the verified caller in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the verified caller, or the zero Principal.
func FromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(ctxKey{}).(Principal); ok {
		return p
	}
	return Principal{}
}
