package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/pkg/hash"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type fakeStore struct {
	calls int
	err   error
}

func (s *fakeStore) UpdateAccount(_ context.Context, acc *entity.Account) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	acc.Version++
	return nil
}

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newManager(st store, clk *fixedClock) *Manager {
	return New(st, hash.NewHMACSHA256("test-secret"), clk, time.Hour)
}

func TestIssue(t *testing.T) {
	st := &fakeStore{}
	clk := &fixedClock{now: t0}
	m := newManager(st, clk)

	acc := &entity.Account{Identifier: "a@example.com"}
	token, err := m.Issue(context.Background(), acc)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if len(token) != 43 {
		t.Fatalf("len(token) = %d, want 43", len(token))
	}
	if st.calls != 1 || acc.Version != 1 {
		t.Fatalf("store calls = %d version = %d, want 1/1", st.calls, acc.Version)
	}
	if len(acc.RecoveryTokens) != 1 || acc.RecoveryTokens[0].Hash == token {
		t.Fatalf("stored tokens = %+v, want one digest", acc.RecoveryTokens)
	}
	if !acc.RecoveryTokens[0].IssuedAt.Equal(t0) {
		t.Fatalf("IssuedAt = %v, want %v", acc.RecoveryTokens[0].IssuedAt, t0)
	}
}

func TestIssue_PrependsAndPrunesExpired(t *testing.T) {
	clk := &fixedClock{now: t0}
	m := newManager(&fakeStore{}, clk)
	acc := &entity.Account{}

	if _, err := m.Issue(context.Background(), acc); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clk.now = t0.Add(30 * time.Minute)
	if _, err := m.Issue(context.Background(), acc); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if len(acc.RecoveryTokens) != 2 || !acc.RecoveryTokens[0].IssuedAt.Equal(clk.now) {
		t.Fatalf("tokens = %+v, want newest first", acc.RecoveryTokens)
	}

	clk.now = t0.Add(61 * time.Minute)
	if _, err := m.Issue(context.Background(), acc); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if len(acc.RecoveryTokens) != 2 {
		t.Fatalf("tokens = %d, want 2 after pruning the expired one", len(acc.RecoveryTokens))
	}
}

func TestIssue_StoreFailureRestoresTokens(t *testing.T) {
	errStore := errors.New("store down")
	m := newManager(&fakeStore{err: errStore}, &fixedClock{now: t0})
	acc := &entity.Account{}

	if _, err := m.Issue(context.Background(), acc); !errors.Is(err, errStore) {
		t.Fatalf("Issue() error = %v, want %v", err, errStore)
	}
	if len(acc.RecoveryTokens) != 0 {
		t.Fatalf("tokens = %+v, want none", acc.RecoveryTokens)
	}

	if _, err := m.Issue(context.Background(), nil); !errors.Is(err, ErrNilAccount) {
		t.Fatalf("Issue(nil) error = %v, want ErrNilAccount", err)
	}
}

func TestConsume_Boundary(t *testing.T) {
	tests := []struct {
		name    string
		age     time.Duration
		wantErr bool
	}{
		{name: "fresh", age: 0},
		{name: "59 minutes", age: 59 * time.Minute},
		{name: "just under an hour", age: time.Hour - time.Nanosecond},
		{name: "exactly an hour", age: time.Hour, wantErr: true},
		{name: "61 minutes", age: 61 * time.Minute, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager(&fakeStore{}, &fixedClock{now: t0})
			acc := &entity.Account{}
			token, err := m.Issue(context.Background(), acc)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}

			err = m.Consume(acc, token, t0.Add(tt.age))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Consume() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, entity.ErrInvalidOrExpiredToken) {
				t.Fatalf("Consume() error = %v, want ErrInvalidOrExpiredToken", err)
			}
		})
	}
}

func TestConsume_RemovesMatchedAndOlder(t *testing.T) {
	clk := &fixedClock{now: t0}
	m := newManager(&fakeStore{}, clk)
	acc := &entity.Account{}

	oldest, _ := m.Issue(context.Background(), acc)
	clk.now = t0.Add(time.Minute)
	middle, _ := m.Issue(context.Background(), acc)
	clk.now = t0.Add(2 * time.Minute)
	newest, _ := m.Issue(context.Background(), acc)

	if err := m.Consume(acc, middle, t0.Add(3*time.Minute)); err != nil {
		t.Fatalf("Consume(middle) error = %v", err)
	}
	if len(acc.RecoveryTokens) != 1 {
		t.Fatalf("tokens = %d, want only the newest", len(acc.RecoveryTokens))
	}

	if err := m.Consume(acc, middle, t0.Add(3*time.Minute)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("second Consume(middle) error = %v, want ErrInvalidToken", err)
	}
	if err := m.Consume(acc, oldest, t0.Add(3*time.Minute)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Consume(oldest) error = %v, want ErrInvalidToken", err)
	}
	if err := m.Consume(acc, newest, t0.Add(3*time.Minute)); err != nil {
		t.Fatalf("Consume(newest) error = %v", err)
	}
	if len(acc.RecoveryTokens) != 0 {
		t.Fatalf("tokens = %d, want 0", len(acc.RecoveryTokens))
	}
}

func TestConsume_Unknown(t *testing.T) {
	m := newManager(&fakeStore{}, &fixedClock{now: t0})
	acc := &entity.Account{}
	if _, err := m.Issue(context.Background(), acc); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	for _, tok := range []string{"", "not-a-token"} {
		if err := m.Consume(acc, tok, t0); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Consume(%q) error = %v, want ErrInvalidToken", tok, err)
		}
	}
	if len(acc.RecoveryTokens) != 1 {
		t.Fatalf("failed consume changed tokens: %+v", acc.RecoveryTokens)
	}
	if err := m.Consume(nil, "x", t0); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Consume(nil) error = %v", err)
	}
}

func TestNew_DefaultTTL(t *testing.T) {
	if got := New(&fakeStore{}, hash.NewHMACSHA256("k"), &fixedClock{}, 0).TTL(); got != DefaultTTL {
		t.Fatalf("TTL() = %v, want %v", got, DefaultTTL)
	}
}
