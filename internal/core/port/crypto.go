package port

import "time"

// PasswordPolicyValidator enforces password acceptance rules.
type PasswordPolicyValidator interface {
	Validate(password string, userInputs ...string) error
}

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// CodeGenerator produces one-time numeric codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// SessionClaims is the verified content of a session token.
type SessionClaims struct {
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionTokenIssuer signs and verifies self-contained session tokens.
type SessionTokenIssuer interface {
	Issue(email string, now time.Time) (token string, expiresAt time.Time, err error)
	Parse(token string) (*SessionClaims, error)
}
