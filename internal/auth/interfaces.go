package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"projectadmin/internal/user"
)

// Session is the server-side session record. Its TTL is fixed for
// remembered sessions and sliding otherwise.
type Session struct {
	ID        string
	UserID    uuid.UUID
	Email     string
	Name      string
	Remember  bool
	CreatedAt time.Time
}

// SessionStore defines the interface for server-side session storage.
// Implementations include RedisSessionStore.
type SessionStore interface {
	Create(ctx context.Context, session *Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Session, error)
	Extend(ctx context.Context, id string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// UserStore is the slice of the user repository the auth service needs
type UserStore interface {
	Create(ctx context.Context, firstName, lastName, email string, passwordHash *string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	TouchLogin(ctx context.Context, id uuid.UUID) error
	UpsertFromExternalProfile(ctx context.Context, email, firstName, lastName, displayName string) (*user.User, error)
}

// OAuthProvider abstracts the external identity provider exchange
type OAuthProvider interface {
	// LoginURL builds the provider authorization redirect for a state value
	LoginURL(state string) string
	// Exchange turns a callback authorization code into a profile
	Exchange(ctx context.Context, code string) (*ExternalProfile, error)
}

// IPLimiter defines the rate limiting interface used by the handlers
type IPLimiter interface {
	CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error)
	RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error
}
