package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"projectadmin/internal/user"
)

// fakeUserStore is an in-memory UserStore with the same email
// normalization and duplicate semantics as the real repository.
type fakeUserStore struct {
	mu      sync.Mutex
	byEmail map[string]*user.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: make(map[string]*user.User)}
}

func (f *fakeUserStore) Create(_ context.Context, firstName, lastName, email string, passwordHash *string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	normalized := user.NormalizeEmail(email)
	if _, ok := f.byEmail[normalized]; ok {
		return nil, user.ErrDuplicateEmail
	}

	u := &user.User{
		ID:           uuid.New(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        normalized,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	f.byEmail[normalized] = u
	return u, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byEmail[user.NormalizeEmail(email)]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) TouchLogin(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.byEmail {
		if u.ID == id {
			now := time.Now().UTC()
			u.LastLoginAt = &now
			return nil
		}
	}
	return user.ErrNotFound
}

func (f *fakeUserStore) UpsertFromExternalProfile(_ context.Context, email, firstName, lastName, displayName string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	normalized := user.NormalizeEmail(email)
	now := time.Now().UTC()

	if existing, ok := f.byEmail[normalized]; ok {
		existing.LastLoginAt = &now
		return existing, nil
	}

	first, last := firstName, lastName
	if first == "" || last == "" {
		parts := strings.SplitN(strings.TrimSpace(displayName), " ", 2)
		if first == "" && parts[0] != "" {
			first = parts[0]
		}
		if last == "" && len(parts) == 2 {
			last = parts[1]
		}
	}
	if first == "" {
		first = "User"
	}
	if last == "" {
		last = "User"
	}

	u := &user.User{
		ID:          uuid.New(),
		FirstName:   first,
		LastName:    last,
		Email:       normalized,
		CreatedAt:   now,
		LastLoginAt: &now,
	}
	f.byEmail[normalized] = u
	return u, nil
}

func (f *fakeUserStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byEmail)
}

// memSessionStore is an in-memory SessionStore recording TTLs so tests
// can assert on fixed vs sliding windows.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttls     map[string]time.Duration
	extends  map[string]int
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{
		sessions: make(map[string]*Session),
		ttls:     make(map[string]time.Duration),
		extends:  make(map[string]int),
	}
}

func (m *memSessionStore) Create(_ context.Context, session *Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.ID] = &copied
	m.ttls[session.ID] = ttl
	return nil
}

func (m *memSessionStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *memSessionStore) Extend(_ context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	m.ttls[id] = ttl
	m.extends[id]++
	return nil
}

func (m *memSessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.ttls, id)
	return nil
}

func (m *memSessionStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// fakeOAuthProvider returns a fixed profile or error
type fakeOAuthProvider struct {
	profile *ExternalProfile
	err     error
}

func (f *fakeOAuthProvider) LoginURL(state string) string {
	return "https://provider.example/auth?state=" + state
}

func (f *fakeOAuthProvider) Exchange(_ context.Context, _ string) (*ExternalProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

// fakeLimiter lets tests force the rate limit open or closed
type fakeLimiter struct {
	exceeded bool
	recorded int
}

func (f *fakeLimiter) CheckIPRateLimitWithPurpose(_ context.Context, _, _ string) (bool, error) {
	return f.exceeded, nil
}

func (f *fakeLimiter) RecordIPRequestWithPurpose(_ context.Context, _, _ string) error {
	f.recorded++
	return nil
}

// fakeRecorder counts metric events
type fakeRecorder struct {
	logins  map[string]int
	signups map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{logins: make(map[string]int), signups: make(map[string]int)}
}

func (f *fakeRecorder) RecordLogin(provider, result string) {
	f.logins[provider+"/"+result]++
}

func (f *fakeRecorder) RecordSignup(result string) {
	f.signups[result]++
}
