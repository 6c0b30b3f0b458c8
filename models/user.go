package models

import "github.com/uptrace/bun"

// User is a registered account with a bcrypt-hashed password.
// Username uniqueness is enforced by the database so concurrent
// registrations cannot both succeed.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int64   `bun:"id,pk,autoincrement" json:"id"`
	Username string  `bun:"username,notnull,unique" json:"username"`
	Password string  `bun:"password,notnull" json:"-"`
	Email    *string `bun:"email" json:"email,omitempty"`
}
