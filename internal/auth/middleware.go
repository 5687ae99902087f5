package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-payintent/internal/common"
)

// TokenVerifier turns a bearer token into a Caller.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Caller, error)
}

// Middleware plays the role of the invocation framework: it resolves the
// caller from request credentials so handlers never parse them.
type Middleware struct {
	Verifier TokenVerifier
	Logger   zerolog.Logger
}

// Authenticate attaches the caller to the request context when a valid token
// is present. Requests without a token continue anonymously and the handler
// decides how to answer; requests with a bad token are rejected here.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Verifier == nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "authentication unavailable")
			return
		}
		caller, err := m.Verifier.Verify(r.Context(), bearerToken(r))
		if errors.Is(err, ErrNoToken) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			m.Logger.Warn().Err(err).Str("path", r.URL.Path).Msg("identity_token_rejected")
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid or expired identity token.")
			return
		}
		zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("caller_id", caller.ID)
		})
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
