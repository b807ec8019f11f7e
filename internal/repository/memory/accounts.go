package memory

import (
	"context"
	"sync"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/core/port"
	"github.com/Sampath5633/Medica-Backend/internal/repository"
)

// AccountRepository keeps accounts in process memory. Data is lost on restart.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]domain.Account)}
}

func (r *AccountRepository) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	acc = cloneAccount(acc)
	return &acc, nil
}

func (r *AccountRepository) Create(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.Email]; ok {
		return repository.ErrDuplicate
	}
	r.accounts[account.Email] = cloneAccount(account)
	return nil
}

func (r *AccountRepository) Update(_ context.Context, email string, update domain.AccountUpdate, upsert bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[email]
	if !ok {
		if !upsert {
			return repository.ErrNotFound
		}
		acc = domain.Account{Email: email, CreatedAt: update.UpdatedAt}
	}
	if update.Empty() && ok {
		return nil
	}
	r.accounts[email] = cloneAccount(update.Apply(acc))
	return nil
}

func (r *AccountRepository) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.accounts)), nil
}

func (r *AccountRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func cloneAccount(acc domain.Account) domain.Account {
	if acc.Verification != nil {
		ch := *acc.Verification
		acc.Verification = &ch
	}
	if acc.Reset != nil {
		ch := *acc.Reset
		acc.Reset = &ch
	}
	return acc
}

// FeedbackRepository appends feedback to an in-memory list.
type FeedbackRepository struct {
	mu    sync.Mutex
	items []domain.Feedback
}

func NewFeedbackRepository() *FeedbackRepository {
	return &FeedbackRepository{}
}

func (r *FeedbackRepository) Create(_ context.Context, feedback domain.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, feedback)
	return nil
}

// List returns a copy of the stored feedback in insertion order.
func (r *FeedbackRepository) List() []domain.Feedback {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Feedback(nil), r.items...)
}

var (
	_ port.AccountRepository  = (*AccountRepository)(nil)
	_ port.FeedbackRepository = (*FeedbackRepository)(nil)
)
