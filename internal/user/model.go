package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the domain model for an admin panel account.
// PasswordHash is nil for accounts created through Google sign-in only.
type User struct {
	ID           uuid.UUID  `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	PasswordHash *string    `json:"-"` // Never expose password hash in JSON
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// DisplayName returns the name shown in the UI and stored in session claims
func (u *User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}
