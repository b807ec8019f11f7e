package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Sampath5633/Medica-Backend/internal/core/port"
)

// DefaultSessionTTL is the lifetime of a session token.
const DefaultSessionTTL = 2 * time.Hour

var (
	// ErrSessionTokenInvalid indicates the token is malformed or its signature does not verify.
	ErrSessionTokenInvalid = errors.New("session token invalid")
	// ErrSessionTokenExpired indicates the token verified but its expiry has passed.
	ErrSessionTokenExpired = errors.New("session token expired")
)

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionTokenManager signs HS256 session tokens with a process-wide secret.
type SessionTokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokenManager builds a manager. An empty secret is rejected.
func NewSessionTokenManager(secret, issuer string, ttl time.Duration) (*SessionTokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("session token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionTokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock overrides the clock used when validating expiry.
func (m *SessionTokenManager) WithClock(now func() time.Time) *SessionTokenManager {
	if now != nil {
		m.now = now
	}
	return m
}

// TTL reports the configured token lifetime.
func (m *SessionTokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for email valid from now for the configured TTL.
func (m *SessionTokenManager) Issue(email string, now time.Time) (string, time.Time, error) {
	if email == "" {
		return "", time.Time{}, fmt.Errorf("email is required")
	}

	expiresAt := now.Add(m.ttl)
	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Parse verifies signature, issuer and expiry and returns the embedded claims.
func (m *SessionTokenManager) Parse(token string) (*port.SessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrSessionTokenInvalid
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionTokenExpired
		}
		return nil, ErrSessionTokenInvalid
	}
	if parsed == nil || !parsed.Valid || claims.Email == "" {
		return nil, ErrSessionTokenInvalid
	}

	result := &port.SessionClaims{Email: claims.Email}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	return result, nil
}

var _ port.SessionTokenIssuer = (*SessionTokenManager)(nil)
