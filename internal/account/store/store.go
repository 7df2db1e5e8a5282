package store

import (
	"context"
	"errors"

	"github.com/tidehaven/accountd/internal/account/domain"
	"github.com/tidehaven/accountd/pkg/idx"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement this. Every operation is a single statement; the auth
// core never needs multi-step transactions.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id idx.ID) (domain.User, error)

	// GetUserByEmail is used during login and collision checks. Emails
	// are compared exactly as stored.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser writes the mutable fields of u (email, full_name,
	// password_hash, flags) and bumps updated_at. Returns
	// ErrAlreadyExists on an email collision.
	UpdateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets only the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, id idx.ID, newHash string) error

	// DeleteUser removes the row.
	DeleteUser(ctx context.Context, id idx.ID) error

	// ListUsers returns a page of users ordered by id (creation order,
	// since ids are ULIDs).
	ListUsers(ctx context.Context, skip, limit int) ([]domain.User, error)

	// CountUsers returns the total number of users.
	CountUsers(ctx context.Context) (int64, error)
}
