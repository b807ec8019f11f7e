package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/core/port"
	"github.com/Sampath5633/Medica-Backend/internal/repository"
)

const usersTable = "medica.users"

var accountColumns = []string{
	"email",
	"password_hash",
	"is_verified",
	"verification_code",
	"code_expiry",
	"reset_code",
	"reset_expiry",
	"created_at",
	"updated_at",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(db pgExecutor) *AccountRepository {
	return &AccountRepository{exec: db, builder: newBuilder()}
}

// FindByEmail loads the account row for email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From(usersTable).
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	var (
		acc              domain.Account
		verificationCode *string
		codeExpiry       *time.Time
		resetCode        *string
		resetExpiry      *time.Time
	)

	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&acc.Email,
		&acc.PasswordHash,
		&acc.IsVerified,
		&verificationCode,
		&codeExpiry,
		&resetCode,
		&resetExpiry,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select account: %w", err)
	}

	acc.Verification = challengeFromColumns(verificationCode, codeExpiry)
	acc.Reset = challengeFromColumns(resetCode, resetExpiry)

	return &acc, nil
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, acc domain.Account) error {
	verificationCode, codeExpiry := challengeColumns(acc.Verification)
	resetCode, resetExpiry := challengeColumns(acc.Reset)

	stmt, args, err := r.builder.Insert(usersTable).
		Columns(accountColumns...).
		Values(
			acc.Email,
			acc.PasswordHash,
			acc.IsVerified,
			verificationCode,
			codeExpiry,
			resetCode,
			resetExpiry,
			acc.CreatedAt.UTC(),
			acc.UpdatedAt.UTC(),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// Update applies update to the row for email in one statement. With upsert the row is
// inserted with empty credentials when absent.
func (r *AccountRepository) Update(ctx context.Context, email string, update domain.AccountUpdate, upsert bool) error {
	set := updateColumns(update)
	if len(set) == 0 {
		return nil
	}

	if upsert {
		return r.upsert(ctx, email, set, update.UpdatedAt)
	}

	stmt, args, err := r.builder.Update(usersTable).
		SetMap(set).
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update account sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) upsert(ctx context.Context, email string, set map[string]any, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	insert := map[string]any{"email": email, "created_at": at.UTC()}
	conflictSet := make([]string, 0, len(set))
	for col, val := range set {
		insert[col] = val
		conflictSet = append(conflictSet, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	sort.Strings(conflictSet)

	stmt, args, err := r.builder.Insert(usersTable).
		SetMap(insert).
		Suffix("ON CONFLICT (email) DO UPDATE SET " + strings.Join(conflictSet, ", ")).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

// Count returns the number of account rows.
func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	stmt, args, err := r.builder.Select("COUNT(*)").From(usersTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count accounts sql: %w", err)
	}

	var n int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// Ping checks database connectivity.
func (r *AccountRepository) Ping(ctx context.Context) error {
	return r.exec.Ping(ctx)
}

func updateColumns(update domain.AccountUpdate) map[string]any {
	set := make(map[string]any)
	if update.PasswordHash != nil {
		set["password_hash"] = *update.PasswordHash
	}
	if update.Verified != nil {
		set["is_verified"] = *update.Verified
	}
	if update.Verification != nil || update.ClearVerification {
		code, expiry := challengeColumns(update.Verification)
		set["verification_code"] = code
		set["code_expiry"] = expiry
	}
	if update.Reset != nil || update.ClearReset {
		code, expiry := challengeColumns(update.Reset)
		set["reset_code"] = code
		set["reset_expiry"] = expiry
	}
	if len(set) > 0 && !update.UpdatedAt.IsZero() {
		set["updated_at"] = update.UpdatedAt.UTC()
	}
	return set
}

func challengeColumns(ch *domain.Challenge) (any, any) {
	if ch == nil {
		return nil, nil
	}
	return ch.Code, ch.ExpiresAt.UTC()
}

func challengeFromColumns(code *string, expiry *time.Time) *domain.Challenge {
	if code == nil || expiry == nil {
		return nil
	}
	return &domain.Challenge{Code: *code, ExpiresAt: expiry.UTC()}
}

var _ port.AccountRepository = (*AccountRepository)(nil)
