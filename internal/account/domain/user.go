package domain

import (
	"time"

	"github.com/tidehaven/accountd/pkg/idx"
)

// User is an account principal. Email is the login key and is unique across
// the store. PasswordHash is an argon2id PHC string and never leaves the
// service.
type User struct {
	ID           idx.ID
	Email        string
	FullName     string
	PasswordHash string
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserPatch is an explicit optional-field partial update. Only non-nil
// fields are applied. Password carries plaintext from the request and is
// hashed by the service before it ever reaches a User.
type UserPatch struct {
	Email       *string
	FullName    *string
	IsActive    *bool
	IsSuperuser *bool
	Password    *string
}
