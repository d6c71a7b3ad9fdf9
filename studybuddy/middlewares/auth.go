// studybuddy/middlewares/auth.go
package middlewares

import (
	"context"
	"net/http"
	"strings"

	"studybuddy/studybuddy/services/session"
	"studybuddy/studybuddy/sources/sessions"
)

type contextKey string

const sessionKey contextKey = "session"

// AuthMiddleware resolves the bearer token to a live session and stores it in
// the request context.
func AuthMiddleware(mgr *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			sess, err := mgr.Resolve(r.Context(), token)
			if err != nil {
				http.Error(w, "session expired or invalid", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func WithSession(ctx context.Context, sess *sessions.SessionData) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFrom returns the session put there by AuthMiddleware.
func SessionFrom(ctx context.Context) *sessions.SessionData {
	sess, _ := ctx.Value(sessionKey).(*sessions.SessionData)
	return sess
}
