package usecase

import "errors"

var (
	// ErrInvalidInput indicates a required field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrWeakPassword is reported together with ErrInvalidInput when the password policy rejects a password.
	ErrWeakPassword = errors.New("password does not meet requirements")
	// ErrAccountNotFound indicates no account exists for the email.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists indicates registration for an email that already has an account.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials indicates the password does not match the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCodeInvalid indicates the supplied code does not match an outstanding challenge.
	ErrCodeInvalid = errors.New("code invalid")
	// ErrCodeExpired indicates the outstanding challenge is past its expiry.
	ErrCodeExpired = errors.New("code expired")
	// ErrDeliveryFailure indicates the mail collaborator did not accept the message.
	ErrDeliveryFailure = errors.New("delivery failure")
	// ErrSessionInvalid indicates a session token that failed verification.
	ErrSessionInvalid = errors.New("session token invalid")
	// ErrSessionExpired indicates a session token past its expiry.
	ErrSessionExpired = errors.New("session token expired")
	// ErrServiceUnavailable indicates a collaborator required by the operation is not configured.
	ErrServiceUnavailable = errors.New("service unavailable")
)
