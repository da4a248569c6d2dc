package db

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/pkg/goerror"
	"github.com/shandysiswandi/gotp/internal/pkg/instrument"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	pgContainer *postgres.PostgresContainer
	pgOnce      sync.Once
	pgDSN       string
	pgErr       error
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	pgOnce.Do(func() {
		ctr, err := postgres.Run(ctx, "postgres:17-alpine",
			postgres.WithDatabase("gotp"),
			postgres.WithUsername("gotp"),
			postgres.WithPassword("gotp"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			pgErr = err
			return
		}
		pgContainer = ctr
		pgDSN, pgErr = ctr.ConnectionString(ctx, "sslmode=disable")
	})
	if pgErr != nil {
		t.Skipf("postgres container unavailable: %v", pgErr)
	}

	pool, err := pgxpool.New(ctx, pgDSN)
	if err != nil {
		t.Fatalf("pgxpool.New() error = %v", err)
	}
	t.Cleanup(pool.Close)

	db := NewDB(pool, instrument.NewNoop())
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE otp_accounts"); err != nil {
		t.Fatalf("truncate error = %v", err)
	}

	return db
}

func testAccount(id int64, identifier string) entity.Account {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	return entity.Account{
		ID:         id,
		Identifier: identifier,
		Secret:     []byte{0x01, 0x02, 0x03},
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestDB_CreateGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.GetAccount(ctx, "alice@example.com"); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("GetAccount() error = %v, want ErrNotFound", err)
	}

	acc := testAccount(1, "alice@example.com")
	if err := db.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if err := db.CreateAccount(ctx, testAccount(2, "alice@example.com")); !errors.Is(err, goerror.ErrConflict) {
		t.Fatalf("duplicate CreateAccount() error = %v, want ErrConflict", err)
	}

	got, err := db.GetAccount(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if got.ID != 1 || string(got.Secret) != string(acc.Secret) || got.Version != 1 {
		t.Fatalf("GetAccount() = %+v", got)
	}
	if got.RecoveryTokens == nil || len(got.RecoveryTokens) != 0 {
		t.Fatalf("RecoveryTokens = %#v, want empty", got.RecoveryTokens)
	}
}

func TestDB_UpdateAccount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.CreateAccount(ctx, testAccount(1, "alice@example.com")); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	first, _ := db.GetAccount(ctx, "alice@example.com")
	stale, _ := db.GetAccount(ctx, "alice@example.com")

	issued := time.Date(2026, 3, 4, 10, 5, 0, 0, time.UTC)
	first.RecoveryTokens = []entity.RecoveryToken{{Hash: "abc", IssuedAt: issued}}
	first.Secret = []byte{0x09}
	if err := db.UpdateAccount(ctx, first); err != nil {
		t.Fatalf("UpdateAccount() error = %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("Version = %d, want 2", first.Version)
	}

	stale.Secret = []byte{0x07}
	if err := db.UpdateAccount(ctx, stale); !errors.Is(err, goerror.ErrConflict) {
		t.Fatalf("stale UpdateAccount() error = %v, want ErrConflict", err)
	}

	got, _ := db.GetAccount(ctx, "alice@example.com")
	if string(got.Secret) != "\x09" || len(got.RecoveryTokens) != 1 || !got.RecoveryTokens[0].IssuedAt.Equal(issued) {
		t.Fatalf("GetAccount() after update = %+v", got)
	}

	missing := testAccount(9, "nobody@example.com")
	if err := db.UpdateAccount(ctx, &missing); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("UpdateAccount() missing error = %v, want ErrNotFound", err)
	}
}

func TestMain(m *testing.M) {
	code := m.Run()
	if pgContainer != nil {
		_ = testcontainers.TerminateContainer(pgContainer)
	}
	os.Exit(code)
}
