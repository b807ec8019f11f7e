package domain

import "time"

// AccountRegisteredEvent represents the payload for medica.account.registered messages.
type AccountRegisteredEvent struct {
	EventID      string
	Email        string
	RegisteredAt time.Time
}

// AccountVerifiedEvent represents the payload for medica.account.verified messages.
type AccountVerifiedEvent struct {
	EventID    string
	Email      string
	VerifiedAt time.Time
}

// PasswordResetRequestedEvent represents the payload for medica.account.password_reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID           string
	Email             string
	MaskedDestination string
	RequestedAt       time.Time
	ExpiresAt         time.Time
}

// PasswordResetCompletedEvent represents the payload for medica.account.password_reset messages.
type PasswordResetCompletedEvent struct {
	EventID   string
	Email     string
	ChangedAt time.Time
}

// FeedbackSubmittedEvent represents the payload for medica.feedback.submitted messages.
type FeedbackSubmittedEvent struct {
	EventID     string
	FeedbackID  string
	Email       string
	SubmittedAt time.Time
}
