package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the bun table model for the users table.
// PasswordHash is NULL for accounts created through an external provider.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	FirstName    string     `bun:"first_name,notnull"`
	LastName     string     `bun:"last_name,notnull"`
	Email        string     `bun:"email,notnull,unique"`
	PasswordHash *string    `bun:"password_hash"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:now()"`
	LastLoginAt  *time.Time `bun:"last_login_at"`
}
