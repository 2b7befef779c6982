package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"projectadmin/internal/database"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// NormalizeEmail lowers and trims an email address. Every lookup and write
// goes through this so email uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a new user. Duplicate emails are rejected by the unique
// constraint on the users table, not by a pre-check query.
func (r *Repository) Create(ctx context.Context, firstName, lastName, email string, passwordHash *string) (*User, error) {
	dbUser := &database.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by normalized email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", NormalizeEmail(email)).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// TouchLogin updates last_login_at after a successful authentication
func (r *Repository) TouchLogin(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("last_login_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// UpsertFromExternalProfile reconciles a Google profile with the users
// table. Unknown emails create a new account with no password hash; known
// emails only get their last login touched. First and last name fall back
// to splitting the display name on the first space, then to "User".
func (r *Repository) UpsertFromExternalProfile(ctx context.Context, email, firstName, lastName, displayName string) (*User, error) {
	existing, err := r.GetByEmail(ctx, email)
	if err == nil {
		if err := r.TouchLogin(ctx, existing.ID); err != nil {
			return nil, err
		}
		return r.GetByID(ctx, existing.ID)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	first, last := splitProfileName(firstName, lastName, displayName)
	now := time.Now().UTC()
	dbUser := &database.User{
		FirstName:   first,
		LastName:    last,
		Email:       NormalizeEmail(email),
		LastLoginAt: &now,
	}

	_, err = r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		// A concurrent callback for the same email can win the insert;
		// treat that as the existing-user path.
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return r.GetByEmail(ctx, email)
		}
		return nil, fmt.Errorf("failed to create user from external profile: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// splitProfileName derives first/last names from whatever the provider
// returned. Providers are not required to send given/family names.
func splitProfileName(firstName, lastName, displayName string) (string, string) {
	first := strings.TrimSpace(firstName)
	last := strings.TrimSpace(lastName)

	if first == "" || last == "" {
		parts := strings.SplitN(strings.TrimSpace(displayName), " ", 2)
		if first == "" && parts[0] != "" {
			first = parts[0]
		}
		if last == "" && len(parts) == 2 {
			last = strings.TrimSpace(parts[1])
		}
	}

	if first == "" {
		first = "User"
	}
	if last == "" {
		last = "User"
	}

	return first, last
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:           dbu.ID,
		FirstName:    dbu.FirstName,
		LastName:     dbu.LastName,
		Email:        dbu.Email,
		PasswordHash: dbu.PasswordHash,
		CreatedAt:    dbu.CreatedAt,
		LastLoginAt:  dbu.LastLoginAt,
	}
}
