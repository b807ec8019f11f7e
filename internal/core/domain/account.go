package domain

import "time"

// ChallengePurpose distinguishes the two independent one-time code lifecycles on an account.
type ChallengePurpose string

const (
	ChallengeVerification  ChallengePurpose = "verification"
	ChallengePasswordReset ChallengePurpose = "password_reset"
)

// Challenge is a one-time numeric code together with its expiry. Code and expiry are only ever
// stored or cleared as a pair.
type Challenge struct {
	Code      string
	ExpiresAt time.Time
}

// Expired reports whether the challenge is past its expiry at the given instant.
func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Account is the single persisted record per email address.
type Account struct {
	Email        string
	PasswordHash string
	IsVerified   bool
	Verification *Challenge
	Reset        *Challenge
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountUpdate describes a single-record mutation. Nil pointer fields are left untouched;
// the Clear flags unset the matching challenge pair.
type AccountUpdate struct {
	PasswordHash      *string
	Verified          *bool
	Verification      *Challenge
	ClearVerification bool
	Reset             *Challenge
	ClearReset        bool
	UpdatedAt         time.Time
}

// Empty reports whether the update carries no field changes.
func (u AccountUpdate) Empty() bool {
	return u.PasswordHash == nil && u.Verified == nil && u.Verification == nil &&
		!u.ClearVerification && u.Reset == nil && !u.ClearReset
}

// Apply returns a copy of the account with the update applied. In-memory stores use it to
// mirror what the database adapters do.
func (u AccountUpdate) Apply(acc Account) Account {
	if u.PasswordHash != nil {
		acc.PasswordHash = *u.PasswordHash
	}
	if u.Verified != nil {
		acc.IsVerified = *u.Verified
	}
	if u.ClearVerification {
		acc.Verification = nil
	}
	if u.Verification != nil {
		ch := *u.Verification
		acc.Verification = &ch
	}
	if u.ClearReset {
		acc.Reset = nil
	}
	if u.Reset != nil {
		ch := *u.Reset
		acc.Reset = &ch
	}
	if !u.UpdatedAt.IsZero() {
		acc.UpdatedAt = u.UpdatedAt
	}
	return acc
}
