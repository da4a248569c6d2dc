// Package memory is an in-process account store for local runs and tests.
// It applies the same conditional-update rules as the Postgres store.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/pkg/clock"
	"github.com/shandysiswandi/gotp/internal/pkg/goerror"
)

type Store struct {
	clock clock.Clocker

	mu       sync.RWMutex
	accounts map[string]entity.Account
}

func NewStore(clk clock.Clocker) *Store {
	return &Store{clock: clk, accounts: map[string]entity.Account{}}
}

func (s *Store) GetAccount(ctx context.Context, identifier string) (*entity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	acc, ok := s.accounts[identifier]
	s.mu.RUnlock()
	if !ok {
		return nil, goerror.ErrNotFound
	}

	out := clone(acc)
	return &out, nil
}

func (s *Store) CreateAccount(ctx context.Context, acc entity.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[acc.Identifier]; ok {
		return goerror.ErrConflict
	}
	s.accounts[acc.Identifier] = clone(acc)
	return nil
}

// UpdateAccount stores acc if its version still matches and bumps the version.
func (s *Store) UpdateAccount(ctx context.Context, acc *entity.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[acc.Identifier]
	if !ok {
		return goerror.ErrNotFound
	}
	if current.Version != acc.Version {
		return goerror.ErrConflict
	}

	acc.Version++
	acc.UpdatedAt = s.clock.Now()
	s.accounts[acc.Identifier] = clone(*acc)
	return nil
}

func clone(acc entity.Account) entity.Account {
	acc.Secret = slices.Clone(acc.Secret)
	acc.RecoveryTokens = slices.Clone(acc.RecoveryTokens)
	return acc
}
