package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"projectadmin/internal/logging"
	"projectadmin/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrProviderDenied     = errors.New("external provider denied authentication")
	ErrMissingEmail       = errors.New("external profile has no email claim")
)

// IssuedSession is the result of a successful sign-in: the signed cookie
// value plus what the handler needs to set it.
type IssuedSession struct {
	Token    string
	TTL      time.Duration
	Remember bool
	User     *user.User
}

// Service handles authentication business logic
type Service struct {
	users       UserStore
	sessions    SessionStore
	tokens      *TokenService
	google      OAuthProvider
	logger      *logging.Logger
	sessionTTL  time.Duration
	rememberTTL time.Duration
}

func NewService(
	users UserStore,
	sessions SessionStore,
	tokens *TokenService,
	google OAuthProvider,
	logger *logging.Logger,
	sessionTTL time.Duration,
	rememberTTL time.Duration,
) *Service {
	return &Service{
		users:       users,
		sessions:    sessions,
		tokens:      tokens,
		google:      google,
		logger:      logger,
		sessionTTL:  sessionTTL,
		rememberTTL: rememberTTL,
	}
}

// SessionTTL returns the sliding window used for non-remembered sessions
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// Register creates a new account with a hashed password. Signup does not
// sign the user in; the caller redirects to the login page.
func (s *Service) Register(ctx context.Context, firstName, lastName, email, password string) (*user.User, error) {
	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, firstName, lastName, email, &passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return newUser, nil
}

// Login authenticates with email and password and issues a session.
// Unknown email, passwordless account and wrong password all collapse into
// ErrInvalidCredentials so the response cannot be used for enumeration.
func (s *Service) Login(ctx context.Context, email, password string, rememberMe bool) (*IssuedSession, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if existing.PasswordHash == nil || !VerifyPassword(*existing.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.TouchLogin(ctx, existing.ID); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	return s.issueSession(ctx, existing, rememberMe)
}

// LoginWithGoogle completes the OAuth challenge for a callback code,
// reconciles the returned profile with the users table and issues a
// session. External logins are always remembered.
func (s *Service) LoginWithGoogle(ctx context.Context, code string) (*IssuedSession, error) {
	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderDenied, err)
	}

	// Email is mandatory; without it there is nothing to reconcile against
	if profile.Email == "" {
		return nil, ErrMissingEmail
	}

	account, err := s.users.UpsertFromExternalProfile(ctx, profile.Email, profile.FirstName, profile.LastName, profile.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile external profile: %w", err)
	}

	return s.issueSession(ctx, account, true)
}

// Logout revokes the session behind a cookie token. Invalid or already
// revoked tokens are not errors; logging out twice must succeed.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		return nil
	}

	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// issueSession creates the server-side session record and the signed
// cookie token pointing at it. Both are written here and cleared only by
// Logout, so the two never diverge.
func (s *Service) issueSession(ctx context.Context, u *user.User, rememberMe bool) (*IssuedSession, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	ttl := s.sessionTTL
	if rememberMe {
		ttl = s.rememberTTL
	}

	session := &Session{
		ID:        sessionID,
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.DisplayName(),
		Remember:  rememberMe,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.sessions.Create(ctx, session, ttl); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	token, err := s.tokens.CreateToken(sessionID, u.ID, u.Email, u.DisplayName(), ttl)
	if err != nil {
		// Best effort rollback so a half-issued session does not linger
		if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil {
			s.logger.Warn("failed to clean up session after token error", "error", delErr)
		}
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	return &IssuedSession{
		Token:    token,
		TTL:      ttl,
		Remember: rememberMe,
		User:     u,
	}, nil
}

// generateSessionID creates a cryptographically secure session id
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
