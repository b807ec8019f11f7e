package usecase

import (
	"context"
	"fmt"

	"github.com/Sampath5633/Medica-Backend/internal/core/port"
)

// StoreStatus reports account store connectivity.
type StoreStatus struct {
	accounts port.AccountRepository
}

func NewStoreStatus(accounts port.AccountRepository) *StoreStatus {
	return &StoreStatus{accounts: accounts}
}

// AccountCount pings the store and returns the number of accounts.
func (s *StoreStatus) AccountCount(ctx context.Context) (int64, error) {
	if s.accounts == nil {
		return 0, ErrServiceUnavailable
	}
	n, err := s.accounts.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// Ready reports whether the account store answers a ping.
func (s *StoreStatus) Ready(ctx context.Context) error {
	if s.accounts == nil {
		return ErrServiceUnavailable
	}
	return s.accounts.Ping(ctx)
}
