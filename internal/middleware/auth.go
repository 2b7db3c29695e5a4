package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hongminglow/expense-tracker-be/internal/auth"
	"github.com/hongminglow/expense-tracker-be/internal/http/respond"
	"github.com/hongminglow/expense-tracker-be/internal/log"
)

// SessionCookie is the cookie holding the session JWT.
const SessionCookie = "session"

// TokenParser validates session tokens.
type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

type userIDKey struct{}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}

// RequireAuth rejects requests without a valid Bearer token or session cookie.
func RequireAuth(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				respond.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				log.FromContext(r.Context(), nil).Debug("rejected session token", log.FieldError, err)
				respond.Error(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}

			ctx := WithUserID(r.Context(), claims.Subject)
			ctx = log.WithContext(ctx, log.FromContext(ctx, nil).With(log.FieldUserID, claims.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
