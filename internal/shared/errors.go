package shared

import "errors"

var (
	// ErrAdminTokenMissing occurs when an admin route is called without a token.
	ErrAdminTokenMissing = errors.New("admin token missing")
	// ErrAdminTokenMismatch occurs when the supplied admin token is wrong.
	ErrAdminTokenMismatch = errors.New("admin token mismatch")
	// ErrAdminDisabled occurs when no admin token is configured.
	ErrAdminDisabled = errors.New("admin actions disabled")
)
