package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/core/port"
)

// FeedbackCollection stores visitor feedback documents.
const FeedbackCollection = "feedback"

type feedbackDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name,omitempty"`
	Email     string    `bson:"email"`
	Message   string    `bson:"message"`
	Timestamp time.Time `bson:"timestamp"`
}

// FeedbackRepository implements port.FeedbackRepository on a MongoDB collection.
type FeedbackRepository struct {
	coll *mongo.Collection
}

func NewFeedbackRepository(coll *mongo.Collection) *FeedbackRepository {
	return &FeedbackRepository{coll: coll}
}

func (r *FeedbackRepository) Create(ctx context.Context, fb domain.Feedback) error {
	doc := feedbackDocument{
		ID:        fb.ID,
		Name:      fb.Name,
		Email:     fb.Email,
		Message:   fb.Message,
		Timestamp: fb.CreatedAt.UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

var _ port.FeedbackRepository = (*FeedbackRepository)(nil)
