// Package recovery issues and consumes one-time recovery tokens.
//
// Only the HMAC digest of a token is stored on the account, most recent
// first. A token is accepted while it is younger than the configured TTL,
// and consuming it also retires every token issued before it.
package recovery

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/pkg/clock"
	"github.com/shandysiswandi/gotp/internal/pkg/hash"
)

const (
	// TokenSize is the number of random bytes in a token.
	TokenSize = 32
	// DefaultTTL is the token lifetime when none is configured.
	DefaultTTL = time.Hour
)

var (
	// ErrInvalidToken is returned by Consume for unknown and expired tokens alike.
	ErrInvalidToken = entity.ErrInvalidOrExpiredToken
	// ErrNilAccount is returned by Issue without an account.
	ErrNilAccount = errors.New("recovery: nil account")
)

type store interface {
	UpdateAccount(ctx context.Context, acc *entity.Account) error
}

// Manager issues tokens onto accounts and consumes them.
type Manager struct {
	store  store
	digest hash.Hash
	clock  clock.Clocker
	ttl    time.Duration
	rand   io.Reader
}

// New constructs a Manager. A non-positive ttl means DefaultTTL.
func New(st store, digest hash.Hash, clk clock.Clocker, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Manager{
		store:  st,
		digest: digest,
		clock:  clk,
		ttl:    ttl,
		rand:   rand.Reader,
	}
}

// TTL returns the token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a token, records its digest on acc, prunes expired entries
// and persists acc. The raw token is returned once and never stored.
func (m *Manager) Issue(ctx context.Context, acc *entity.Account) (string, error) {
	if acc == nil {
		return "", ErrNilAccount
	}

	raw := make([]byte, TokenSize)
	if _, err := io.ReadFull(m.rand, raw); err != nil {
		return "", fmt.Errorf("recovery: read random: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	digest, err := m.digest.Hash(token)
	if err != nil {
		return "", fmt.Errorf("recovery: digest token: %w", err)
	}

	now := m.clock.Now()
	live := lo.Filter(acc.RecoveryTokens, func(t entity.RecoveryToken, _ int) bool {
		return m.alive(t, now)
	})

	previous := acc.RecoveryTokens
	acc.RecoveryTokens = append([]entity.RecoveryToken{{Hash: string(digest), IssuedAt: now}}, live...)

	if err := m.store.UpdateAccount(ctx, acc); err != nil {
		acc.RecoveryTokens = previous
		return "", err
	}

	return token, nil
}

// Consume accepts submitted if it matches a live token on acc, then removes
// that token and every older one from acc. The caller persists acc.
// Every stored digest is compared so timing does not reveal the match position.
func (m *Manager) Consume(acc *entity.Account, submitted string, now time.Time) error {
	if acc == nil || submitted == "" {
		return ErrInvalidToken
	}

	matched := -1
	for i, t := range acc.RecoveryTokens {
		if m.digest.Verify(t.Hash, submitted) && matched == -1 {
			matched = i
		}
	}
	if matched == -1 {
		return ErrInvalidToken
	}

	used := acc.RecoveryTokens[matched]
	if !m.alive(used, now) {
		return ErrInvalidToken
	}

	acc.RecoveryTokens = lo.Filter(acc.RecoveryTokens, func(t entity.RecoveryToken, i int) bool {
		return i != matched && t.IssuedAt.After(used.IssuedAt)
	})

	return nil
}

func (m *Manager) alive(t entity.RecoveryToken, now time.Time) bool {
	return now.Sub(t.IssuedAt) < m.ttl
}
