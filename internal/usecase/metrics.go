package usecase

import "github.com/Sampath5633/Medica-Backend/internal/core/domain"

// Challenge check outcomes reported to ChallengeMetrics.
const (
	OutcomeAccepted = "accepted"
	OutcomeInvalid  = "invalid"
	OutcomeExpired  = "expired"
)

// ChallengeMetrics records challenge lifecycle counters. A nil value disables recording.
type ChallengeMetrics interface {
	ChallengeIssued(purpose domain.ChallengePurpose)
	ChallengeChecked(purpose domain.ChallengePurpose, outcome string)
	DeliveryFailed(purpose domain.ChallengePurpose)
}

type noopChallengeMetrics struct{}

func (noopChallengeMetrics) ChallengeIssued(domain.ChallengePurpose)          {}
func (noopChallengeMetrics) ChallengeChecked(domain.ChallengePurpose, string) {}
func (noopChallengeMetrics) DeliveryFailed(domain.ChallengePurpose)           {}
