package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "recordshare/pkg/domain"
	dErrors "recordshare/pkg/domain-errors"
	"recordshare/pkg/platform/httputil"
	"recordshare/pkg/principal"
	"recordshare/pkg/requestcontext"
)

// TokenVerifier checks an identity token issued by the external provider.
type TokenVerifier interface {
	VerifyToken(tokenString string) (*Claims, error)
}

// Claims are the verified facts the registry needs from a token.
type Claims struct {
	Address string
	JTI     string
}

// RequireAuth verifies the bearer token and stores a principal.Principal in
// the request context. Requests without a valid token never reach next.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := verifier.VerifyToken(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			address, err := id.ParseAddress(claims.Address)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - token subject is not an address",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
				return
			}

			ctx = principal.WithPrincipal(ctx, principal.Verified(address, claims.JTI))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
