package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/core/port"
)

// FeedbackRepository implements port.FeedbackRepository using PostgreSQL.
type FeedbackRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewFeedbackRepository wires a PostgreSQL-backed feedback repository.
func NewFeedbackRepository(db pgExecutor) *FeedbackRepository {
	return &FeedbackRepository{exec: db, builder: newBuilder()}
}

// Create inserts a feedback row.
func (r *FeedbackRepository) Create(ctx context.Context, fb domain.Feedback) error {
	var name any
	if fb.Name != "" {
		name = fb.Name
	}

	stmt, args, err := r.builder.Insert("medica.feedback").
		Columns("id", "name", "email", "message", "created_at").
		Values(fb.ID, name, fb.Email, fb.Message, fb.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert feedback sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

var _ port.FeedbackRepository = (*FeedbackRepository)(nil)
