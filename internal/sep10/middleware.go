package sep10

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"anchorgate/pkg/seperror"
)

type tokenContextKey struct{}

// ContextKeyToken is exported for tests that build contexts directly.
var ContextKeyToken = tokenContextKey{}

// TokenFromContext retrieves the verified token stored by RequireToken.
func TokenFromContext(ctx context.Context) *Token {
	if token, ok := ctx.Value(ContextKeyToken).(*Token); ok {
		return token
	}
	return nil
}

// WithToken injects a token into the context. Used by middleware and by
// service tests that skip the HTTP chain.
func WithToken(ctx context.Context, token *Token) context.Context {
	return context.WithValue(ctx, ContextKeyToken, token)
}

// RequireToken rejects requests without a valid SEP-10 bearer token and
// stores the verified identity in the request context.
func RequireToken(verifier *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "missing bearer token",
					"request_id", middleware.GetReqID(ctx),
					"path", r.URL.Path,
				)
				seperror.WriteError(w, seperror.NotAuthorized("missing or invalid authorization header"))
				return
			}

			token, err := verifier.Verify(raw)
			if err != nil {
				logger.WarnContext(ctx, "token verification failed",
					"request_id", middleware.GetReqID(ctx),
					"error", err,
				)
				seperror.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithToken(ctx, token)))
		})
	}
}
