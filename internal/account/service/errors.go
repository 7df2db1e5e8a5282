package service

import "errors"

// Service errors are per-request values. The HTTP layer translates them
// 1:1 into status codes; nothing here is fatal to the process.
var (
	// ErrInvalidCredentials covers both unknown email and wrong password
	// at login. Callers must render it uniformly so the login path cannot
	// be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrInvalidToken covers malformed, unsigned, wrong-purpose and
	// expired bearer tokens, plus tokens whose subject is not id-shaped.
	ErrInvalidToken = errors.New("invalid_token")

	// ErrUserNotFound means a valid token referenced a user that no
	// longer exists, or an admin operation targeted a missing id.
	ErrUserNotFound = errors.New("user_not_found")

	ErrInactiveUser = errors.New("inactive_user")
	ErrNotSuperuser = errors.New("not_superuser")

	ErrDuplicateEmail = errors.New("duplicate_email")

	// ErrSelfDelete is the self-protection rule: a superuser never
	// deletes their own account, on any path.
	ErrSelfDelete = errors.New("self_delete_forbidden")

	ErrIncorrectPassword = errors.New("incorrect_password")
	ErrSamePassword      = errors.New("same_password")
)
