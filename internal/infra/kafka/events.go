package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/core/port"
	"github.com/Sampath5633/Medica-Backend/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types, prefixed with the configured topic prefix when published.
const (
	EventAccountRegistered      = "account.registered"
	EventAccountVerified        = "account.verified"
	EventPasswordResetRequested = "account.password_reset_requested"
	EventPasswordResetCompleted = "account.password_reset"
	EventFeedbackSubmitted      = "feedback.submitted"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// publish keys messages by account email so events for one account stay ordered.
func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, key string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	bytes, err := json.Marshal(eventEnvelope{
		EventID:   eventID,
		EventType: eventType,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}
	if key != "" {
		message.Key = sarama.StringEncoder(key)
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		Email        string    `json:"email"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		Email:        event.Email,
		RegisteredAt: event.RegisteredAt.UTC(),
	}
	return p.publish(ctx, event.EventID, EventAccountRegistered, event.Email, event.RegisteredAt, payload)
}

func (p *EventPublisher) PublishAccountVerified(ctx context.Context, event domain.AccountVerifiedEvent) error {
	payload := struct {
		Email      string    `json:"email"`
		VerifiedAt time.Time `json:"verified_at"`
	}{
		Email:      event.Email,
		VerifiedAt: event.VerifiedAt.UTC(),
	}
	return p.publish(ctx, event.EventID, EventAccountVerified, event.Email, event.VerifiedAt, payload)
}

// PublishPasswordResetRequested never carries the reset code itself.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		Email             string    `json:"email"`
		MaskedDestination string    `json:"masked_destination,omitempty"`
		RequestedAt       time.Time `json:"requested_at"`
		ExpiresAt         time.Time `json:"expires_at"`
	}{
		Email:             event.Email,
		MaskedDestination: event.MaskedDestination,
		RequestedAt:       event.RequestedAt.UTC(),
		ExpiresAt:         event.ExpiresAt.UTC(),
	}
	return p.publish(ctx, event.EventID, EventPasswordResetRequested, event.Email, event.RequestedAt, payload)
}

func (p *EventPublisher) PublishPasswordResetCompleted(ctx context.Context, event domain.PasswordResetCompletedEvent) error {
	payload := struct {
		Email     string    `json:"email"`
		ChangedAt time.Time `json:"changed_at"`
	}{
		Email:     event.Email,
		ChangedAt: event.ChangedAt.UTC(),
	}
	return p.publish(ctx, event.EventID, EventPasswordResetCompleted, event.Email, event.ChangedAt, payload)
}

func (p *EventPublisher) PublishFeedbackSubmitted(ctx context.Context, event domain.FeedbackSubmittedEvent) error {
	payload := struct {
		FeedbackID  string    `json:"feedback_id"`
		Email       string    `json:"email"`
		SubmittedAt time.Time `json:"submitted_at"`
	}{
		FeedbackID:  event.FeedbackID,
		Email:       event.Email,
		SubmittedAt: event.SubmittedAt.UTC(),
	}
	return p.publish(ctx, event.EventID, EventFeedbackSubmitted, event.FeedbackID, event.SubmittedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
