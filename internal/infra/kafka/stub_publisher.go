package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/core/port"
	"github.com/Sampath5633/Medica-Backend/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, email string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Debug("Stub event published",
		append([]zap.Field{
			zap.String("event_type", eventType),
			zap.String("email", logger.MaskEmail(email)),
			zap.Time("timestamp", at.UTC()),
		}, fields...)...,
	)
}

func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	p.logEvent(EventAccountRegistered, event.Email, event.RegisteredAt)
	return nil
}

func (p *StubPublisher) PublishAccountVerified(_ context.Context, event domain.AccountVerifiedEvent) error {
	p.logEvent(EventAccountVerified, event.Email, event.VerifiedAt)
	return nil
}

func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.logEvent(EventPasswordResetRequested, event.Email, event.RequestedAt, zap.Time("expires_at", event.ExpiresAt.UTC()))
	return nil
}

func (p *StubPublisher) PublishPasswordResetCompleted(_ context.Context, event domain.PasswordResetCompletedEvent) error {
	p.logEvent(EventPasswordResetCompleted, event.Email, event.ChangedAt)
	return nil
}

func (p *StubPublisher) PublishFeedbackSubmitted(_ context.Context, event domain.FeedbackSubmittedEvent) error {
	p.logEvent(EventFeedbackSubmitted, event.Email, event.SubmittedAt, zap.String("feedback_id", event.FeedbackID))
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
