package auth

import "errors"

var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("auth: user not found")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("auth: email already registered")
	// ErrInvalidCredentials is returned for unknown email and wrong password
	// alike, so callers cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidToken indicates a missing, malformed, expired or wrong-kind
	// credential.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrInactiveAccount indicates valid credentials for a disabled account.
	ErrInactiveAccount = errors.New("auth: inactive account")
	// ErrInvalidInput indicates a request that violates input constraints.
	ErrInvalidInput = errors.New("auth: invalid input")
)
