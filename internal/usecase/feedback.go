package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/core/port"
)

// FeedbackInput is a visitor message.
type FeedbackInput struct {
	Name    string
	Email   string
	Message string
}

// FeedbackService stores visitor feedback.
type FeedbackService struct {
	repo   port.FeedbackRepository
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

func NewFeedbackService(repo port.FeedbackRepository, events port.EventPublisher, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{repo: repo, events: events, logger: logger, now: time.Now}
}

// WithClock allows tests to override the clock used by the service.
func (s *FeedbackService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Submit stores feedback that names its sender. Name, email and message are all required.
func (s *FeedbackService) Submit(ctx context.Context, input FeedbackInput) (*domain.Feedback, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	message := strings.TrimSpace(input.Message)
	if name == "" || email == "" || message == "" {
		return nil, fmt.Errorf("%w: name, email and message are required", ErrInvalidInput)
	}
	return s.store(ctx, name, email, message)
}

// SubmitAnonymous stores feedback where only the message is required; a missing email is
// recorded as domain.AnonymousFeedbackEmail.
func (s *FeedbackService) SubmitAnonymous(ctx context.Context, input FeedbackInput) (*domain.Feedback, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: feedback message is required", ErrInvalidInput)
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		email = domain.AnonymousFeedbackEmail
	}
	return s.store(ctx, strings.TrimSpace(input.Name), email, message)
}

func (s *FeedbackService) store(ctx context.Context, name, email, message string) (*domain.Feedback, error) {
	if s.repo == nil {
		return nil, ErrServiceUnavailable
	}

	fb := domain.Feedback{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, fb); err != nil {
		return nil, fmt.Errorf("store feedback: %w", err)
	}

	if s.events != nil {
		event := domain.FeedbackSubmittedEvent{
			EventID:     uuid.NewString(),
			FeedbackID:  fb.ID,
			Email:       fb.Email,
			SubmittedAt: fb.CreatedAt,
		}
		if err := s.events.PublishFeedbackSubmitted(ctx, event); err != nil {
			s.logger.Warn("failed to publish event", zap.String("event", "feedback submitted"), zap.Error(err))
		}
	}

	return &fb, nil
}
