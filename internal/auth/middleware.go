package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"projectadmin/internal/logging"
)

// LoginPath is where denied requests are redirected
const LoginPath = "/auth/login"

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	UserIDContextKey    ContextKey = "user_id"
	UserEmailContextKey ContextKey = "user_email"
	UserNameContextKey  ContextKey = "user_name"
)

// Middleware guards protected route groups. It is an explicit pipeline
// stage: the signed session cookie is the only identity signal it reads,
// and the Redis session record decides liveness.
type Middleware struct {
	tokens       *TokenService
	sessions     SessionStore
	sessionTTL   time.Duration
	isProduction bool
}

func NewMiddleware(tokens *TokenService, sessions SessionStore, sessionTTL time.Duration, isProduction bool) *Middleware {
	return &Middleware{
		tokens:       tokens,
		sessions:     sessions,
		sessionTTL:   sessionTTL,
		isProduction: isProduction,
	}
}

// RequireAuth validates the session cookie before the handler runs.
// Denied requests are redirected to the login page, never answered with an
// error body; the original request is discarded.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := GetSessionToken(r)
		if err != nil || token == "" {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}

		claims, err := m.tokens.VerifyToken(token)
		if err != nil {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}

		session, err := m.sessions.Get(r.Context(), claims.SessionID)
		if err != nil {
			if err != ErrSessionNotFound {
				logger := logging.GetLoggerFromContext(r.Context())
				logger.Error("session lookup failed", "error", err.Error())
			}
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}

		// Sliding window: each authenticated request resets the TTL of a
		// non-remembered session and reissues the cookie token to match,
		// otherwise the token's own expiry would cap the window at its
		// original length. Remembered sessions keep their fixed TTL.
		if !session.Remember {
			if err := m.sessions.Extend(r.Context(), session.ID, m.sessionTTL); err != nil {
				logger := logging.GetLoggerFromContext(r.Context())
				logger.Warn("failed to extend session", "error", err.Error())
			} else if fresh, err := m.tokens.CreateToken(session.ID, session.UserID, session.Email, session.Name, m.sessionTTL); err != nil {
				logger := logging.GetLoggerFromContext(r.Context())
				logger.Warn("failed to reissue session token", "error", err.Error())
			} else {
				SetSessionCookie(w, fresh, false, m.sessionTTL, m.isProduction)
			}
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, session.UserID)
		ctx = context.WithValue(ctx, UserEmailContextKey, session.Email)
		ctx = context.WithValue(ctx, UserNameContextKey, session.Name)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	return userID, ok
}

// GetUserEmailFromContext extracts the user email from the request context
func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailContextKey).(string)
	return email, ok
}

// GetUserNameFromContext extracts the user display name from the request context
func GetUserNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(UserNameContextKey).(string)
	return name, ok
}
