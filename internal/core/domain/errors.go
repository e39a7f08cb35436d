package domain

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrSamePassword       = errors.New("new password must differ from the current one")
	ErrForbidden          = errors.New("access forbidden")

	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrConfirmationNotFound covers both unknown and expired confirmation tokens.
	ErrConfirmationNotFound = errors.New("confirmation token not found")
	ErrConfirmationConsumed = errors.New("confirmation token already used")

	ErrStore = errors.New("store failure")
)
