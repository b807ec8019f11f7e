package port

import (
	"context"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts keyed by email.
type AccountRepository interface {
	// FindByEmail returns repository.ErrNotFound when no record exists.
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Create returns repository.ErrDuplicate when the email is taken.
	Create(ctx context.Context, account domain.Account) error
	// Update applies a single-record mutation. Without upsert a missing record yields
	// repository.ErrNotFound; with upsert a bare record is created first.
	Update(ctx context.Context, email string, update domain.AccountUpdate, upsert bool) error
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// FeedbackRepository stores visitor feedback.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback domain.Feedback) error
}
