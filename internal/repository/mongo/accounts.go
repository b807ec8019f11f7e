package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/core/port"
	"github.com/Sampath5633/Medica-Backend/internal/repository"
)

// UsersCollection is the collection holding one document per account.
const UsersCollection = "users"

// accountDocument mirrors the stored shape; the hash lives under "password".
type accountDocument struct {
	Email            string     `bson:"email"`
	Password         string     `bson:"password,omitempty"`
	IsVerified       bool       `bson:"is_verified"`
	VerificationCode *string    `bson:"verification_code,omitempty"`
	CodeExpiry       *time.Time `bson:"code_expiry,omitempty"`
	ResetCode        *string    `bson:"reset_code,omitempty"`
	ResetExpiry      *time.Time `bson:"reset_expiry,omitempty"`
	CreatedAt        time.Time  `bson:"created_at,omitempty"`
	UpdatedAt        time.Time  `bson:"updated_at,omitempty"`
}

// AccountRepository implements port.AccountRepository on a MongoDB collection.
type AccountRepository struct {
	coll *mongo.Collection
}

// NewAccountRepository wraps the users collection.
func NewAccountRepository(coll *mongo.Collection) *AccountRepository {
	return &AccountRepository{coll: coll}
}

// EnsureIndexes creates the unique email index backing duplicate detection.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

// FindByEmail loads the document for email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var doc accountDocument
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	acc := domain.Account{
		Email:        doc.Email,
		PasswordHash: doc.Password,
		IsVerified:   doc.IsVerified,
		Verification: challengeFromFields(doc.VerificationCode, doc.CodeExpiry),
		Reset:        challengeFromFields(doc.ResetCode, doc.ResetExpiry),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
	return &acc, nil
}

// Create inserts a new document; the unique index turns a taken email into repository.ErrDuplicate.
func (r *AccountRepository) Create(ctx context.Context, acc domain.Account) error {
	doc := accountDocument{
		Email:      acc.Email,
		Password:   acc.PasswordHash,
		IsVerified: acc.IsVerified,
		CreatedAt:  acc.CreatedAt.UTC(),
		UpdatedAt:  acc.UpdatedAt.UTC(),
	}
	if acc.Verification != nil {
		code, expiry := acc.Verification.Code, acc.Verification.ExpiresAt.UTC()
		doc.VerificationCode, doc.CodeExpiry = &code, &expiry
	}
	if acc.Reset != nil {
		code, expiry := acc.Reset.Code, acc.Reset.ExpiresAt.UTC()
		doc.ResetCode, doc.ResetExpiry = &code, &expiry
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Update applies update with a single updateOne using $set and $unset.
func (r *AccountRepository) Update(ctx context.Context, email string, update domain.AccountUpdate, upsert bool) error {
	doc := updateDocument(update, upsert)
	if len(doc) == 0 {
		return nil
	}

	opts := options.Update().SetUpsert(upsert)
	res, err := r.coll.UpdateOne(ctx, bson.M{"email": email}, doc, opts)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if !upsert && res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Count returns the number of account documents.
func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// Ping checks connectivity to the primary.
func (r *AccountRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func updateDocument(update domain.AccountUpdate, upsert bool) bson.D {
	set := bson.D{}
	unset := bson.D{}

	if update.PasswordHash != nil {
		set = append(set, bson.E{Key: "password", Value: *update.PasswordHash})
	}
	if update.Verified != nil {
		set = append(set, bson.E{Key: "is_verified", Value: *update.Verified})
	}
	switch {
	case update.Verification != nil:
		set = append(set,
			bson.E{Key: "verification_code", Value: update.Verification.Code},
			bson.E{Key: "code_expiry", Value: update.Verification.ExpiresAt.UTC()},
		)
	case update.ClearVerification:
		unset = append(unset, bson.E{Key: "verification_code", Value: ""}, bson.E{Key: "code_expiry", Value: ""})
	}
	switch {
	case update.Reset != nil:
		set = append(set,
			bson.E{Key: "reset_code", Value: update.Reset.Code},
			bson.E{Key: "reset_expiry", Value: update.Reset.ExpiresAt.UTC()},
		)
	case update.ClearReset:
		unset = append(unset, bson.E{Key: "reset_code", Value: ""}, bson.E{Key: "reset_expiry", Value: ""})
	}

	if len(set) == 0 && len(unset) == 0 {
		return nil
	}
	if !update.UpdatedAt.IsZero() {
		set = append(set, bson.E{Key: "updated_at", Value: update.UpdatedAt.UTC()})
	}

	doc := bson.D{}
	if len(set) > 0 {
		doc = append(doc, bson.E{Key: "$set", Value: set})
	}
	if len(unset) > 0 {
		doc = append(doc, bson.E{Key: "$unset", Value: unset})
	}
	if upsert {
		onInsert := bson.D{}
		if update.Verified == nil {
			onInsert = append(onInsert, bson.E{Key: "is_verified", Value: false})
		}
		if !update.UpdatedAt.IsZero() {
			onInsert = append(onInsert, bson.E{Key: "created_at", Value: update.UpdatedAt.UTC()})
		}
		if len(onInsert) > 0 {
			doc = append(doc, bson.E{Key: "$setOnInsert", Value: onInsert})
		}
	}
	return doc
}

func challengeFromFields(code *string, expiry *time.Time) *domain.Challenge {
	if code == nil || expiry == nil {
		return nil
	}
	return &domain.Challenge{Code: *code, ExpiresAt: expiry.UTC()}
}

var _ port.AccountRepository = (*AccountRepository)(nil)
