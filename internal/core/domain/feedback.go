package domain

import "time"

// AnonymousFeedbackEmail is stored when feedback arrives without a sender address.
const AnonymousFeedbackEmail = "anonymous"

// Feedback is a free-form message left by a visitor.
type Feedback struct {
	ID        string
	Name      string
	Email     string
	Message   string
	CreatedAt time.Time
}
