package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/pkg/goerror"
)

func TestUsecase_RequestReset(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	if err := f.uc.RequestReset(ctx, RequestResetInput{Identifier: testIdentifier, AdminKey: testAdminKey}); err != nil {
		t.Fatalf("RequestReset() error = %v", err)
	}

	token := f.mail.lastToken(t)
	if len(token) != 43 {
		t.Fatalf("token length = %d, want 43", len(token))
	}

	acc, _ := f.store.GetAccount(ctx, testIdentifier)
	if len(acc.RecoveryTokens) != 1 {
		t.Fatalf("RecoveryTokens = %d, want 1", len(acc.RecoveryTokens))
	}
	if acc.RecoveryTokens[0].Hash == token {
		t.Fatal("raw token stored")
	}
	if len(f.mq.requested) != 1 || !f.mq.requested[0].Delivered {
		t.Fatalf("requested events = %+v", f.mq.requested)
	}
}

func TestUsecase_RequestReset_Errors(t *testing.T) {
	t.Run("wrong admin key", func(t *testing.T) {
		f := newFixture(t)
		f.register(t)

		err := f.uc.RequestReset(context.Background(), RequestResetInput{Identifier: testIdentifier, AdminKey: "guess"})
		assertCode(t, err, goerror.CodeUnauthorized, entity.ErrUnauthorized)
		if len(f.mail.tokens) != 0 {
			t.Fatal("token mailed without admin key")
		}
	})

	t.Run("unknown identifier", func(t *testing.T) {
		f := newFixture(t)

		err := f.uc.RequestReset(context.Background(), RequestResetInput{Identifier: "nobody@example.com", AdminKey: testAdminKey})
		assertCode(t, err, goerror.CodeNotFound, entity.ErrNotFound)
	})

	t.Run("missing admin key", func(t *testing.T) {
		f := newFixture(t)

		err := f.uc.RequestReset(context.Background(), RequestResetInput{Identifier: testIdentifier})
		assertCode(t, err, goerror.CodeInvalidInput, nil)
	})

	t.Run("store unavailable", func(t *testing.T) {
		f := newFixture(t, withStoreError(errors.New("connection refused")))

		err := f.uc.RequestReset(context.Background(), RequestResetInput{Identifier: testIdentifier, AdminKey: testAdminKey})
		assertCode(t, err, goerror.CodeInternal, entity.ErrStoreUnavailable)
	})
}

func TestUsecase_RequestReset_DeliveryFailedKeepsToken(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	f.mail.err = errors.New("smtp: 421")
	ctx := context.Background()

	err := f.uc.RequestReset(ctx, RequestResetInput{Identifier: testIdentifier, AdminKey: testAdminKey})
	assertCode(t, err, goerror.CodeUnavailable, entity.ErrDeliveryFailed)

	if len(f.mq.requested) != 1 || f.mq.requested[0].Delivered {
		t.Fatalf("requested events = %+v", f.mq.requested)
	}

	token := f.mail.lastToken(t)
	f.mail.err = nil
	if _, err := f.uc.CompleteReset(ctx, CompleteResetInput{Identifier: testIdentifier, RecoveryToken: token}); err != nil {
		t.Fatalf("CompleteReset() with undelivered token error = %v", err)
	}
}

func TestUsecase_CompleteReset(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t)
	ctx := context.Background()

	if err := f.uc.RequestReset(ctx, RequestResetInput{Identifier: testIdentifier, AdminKey: testAdminKey}); err != nil {
		t.Fatalf("RequestReset() error = %v", err)
	}
	token := f.mail.lastToken(t)
	f.clock.Advance(10 * time.Minute)

	out, err := f.uc.CompleteReset(ctx, CompleteResetInput{Identifier: testIdentifier, RecoveryToken: token})
	if err != nil {
		t.Fatalf("CompleteReset() error = %v", err)
	}
	if out.Enrollment.Secret == reg.Enrollment.Secret {
		t.Fatal("secret not rotated")
	}

	now := f.clock.Now()
	_, err = f.uc.Authenticate(ctx, AuthenticateInput{Identifier: testIdentifier, Code: f.code(t, reg.Enrollment.Secret, now)})
	assertCode(t, err, goerror.CodeUnauthorized, entity.ErrAuthenticationFailed)

	if _, err := f.uc.Authenticate(ctx, AuthenticateInput{Identifier: testIdentifier, Code: f.code(t, out.Enrollment.Secret, now)}); err != nil {
		t.Fatalf("Authenticate() with rotated secret error = %v", err)
	}

	_, err = f.uc.CompleteReset(ctx, CompleteResetInput{Identifier: testIdentifier, RecoveryToken: token})
	assertCode(t, err, goerror.CodeUnauthorized, entity.ErrInvalidOrExpiredToken)

	if len(f.mq.rotated) != 1 {
		t.Fatalf("rotated events = %d, want 1", len(f.mq.rotated))
	}
}

func TestUsecase_CompleteReset_FreshReplayClaims(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t)
	ctx := context.Background()

	if _, err := f.uc.Authenticate(ctx, AuthenticateInput{Identifier: testIdentifier, Code: f.code(t, reg.Enrollment.Secret, t0)}); err != nil {
		t.Fatalf("Authenticate() before reset error = %v", err)
	}

	if err := f.uc.RequestReset(ctx, RequestResetInput{Identifier: testIdentifier, AdminKey: testAdminKey}); err != nil {
		t.Fatalf("RequestReset() error = %v", err)
	}
	out, err := f.uc.CompleteReset(ctx, CompleteResetInput{Identifier: testIdentifier, RecoveryToken: f.mail.lastToken(t)})
	if err != nil {
		t.Fatalf("CompleteReset() error = %v", err)
	}

	// same step as the login above
	f.clock.Advance(time.Second)
	in := AuthenticateInput{Identifier: testIdentifier, Code: f.code(t, out.Enrollment.Secret, f.clock.Now())}
	if _, err := f.uc.Authenticate(ctx, in); err != nil {
		t.Fatalf("Authenticate() with rotated secret in the same step error = %v", err)
	}

	_, err = f.uc.Authenticate(ctx, in)
	assertCode(t, err, goerror.CodeUnauthorized, entity.ErrAuthenticationFailed)
}

func TestUsecase_CompleteReset_RetiresOlderTokens(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	var tokens []string
	for range 3 {
		if err := f.uc.RequestReset(ctx, RequestResetInput{Identifier: testIdentifier, AdminKey: testAdminKey}); err != nil {
			t.Fatalf("RequestReset() error = %v", err)
		}
		tokens = append(tokens, f.mail.lastToken(t))
		f.clock.Advance(time.Minute)
	}

	if _, err := f.uc.CompleteReset(ctx, CompleteResetInput{Identifier: testIdentifier, RecoveryToken: tokens[1]}); err != nil {
		t.Fatalf("CompleteReset() error = %v", err)
	}

	_, err := f.uc.CompleteReset(ctx, CompleteResetInput{Identifier: testIdentifier, RecoveryToken: tokens[0]})
	assertCode(t, err, goerror.CodeUnauthorized, entity.ErrInvalidOrExpiredToken)

	if _, err := f.uc.CompleteReset(ctx, CompleteResetInput{Identifier: testIdentifier, RecoveryToken: tokens[2]}); err != nil {
		t.Fatalf("CompleteReset() with newer token error = %v", err)
	}
}

func TestUsecase_CompleteReset_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		ok      bool
	}{
		{name: "just before one hour", elapsed: time.Hour - time.Second, ok: true},
		{name: "exactly one hour", elapsed: time.Hour, ok: false},
		{name: "after one hour", elapsed: 61 * time.Minute, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.register(t)
			ctx := context.Background()

			if err := f.uc.RequestReset(ctx, RequestResetInput{Identifier: testIdentifier, AdminKey: testAdminKey}); err != nil {
				t.Fatalf("RequestReset() error = %v", err)
			}
			f.clock.Advance(tt.elapsed)

			_, err := f.uc.CompleteReset(ctx, CompleteResetInput{Identifier: testIdentifier, RecoveryToken: f.mail.lastToken(t)})
			if tt.ok && err != nil {
				t.Fatalf("CompleteReset() error = %v", err)
			}
			if !tt.ok {
				assertCode(t, err, goerror.CodeUnauthorized, entity.ErrInvalidOrExpiredToken)
			}
		})
	}
}

func TestUsecase_CompleteReset_Opaque(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()
	token := "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

	_, errUnknownAccount := f.uc.CompleteReset(ctx, CompleteResetInput{Identifier: "nobody@example.com", RecoveryToken: token})
	_, errUnknownToken := f.uc.CompleteReset(ctx, CompleteResetInput{Identifier: testIdentifier, RecoveryToken: token})

	assertCode(t, errUnknownAccount, goerror.CodeUnauthorized, entity.ErrInvalidOrExpiredToken)
	assertCode(t, errUnknownToken, goerror.CodeUnauthorized, entity.ErrInvalidOrExpiredToken)
	if errUnknownAccount.Error() != errUnknownToken.Error() {
		t.Fatalf("errors differ: %q vs %q", errUnknownAccount, errUnknownToken)
	}

	_, err := f.uc.CompleteReset(ctx, CompleteResetInput{Identifier: testIdentifier, RecoveryToken: "short"})
	assertCode(t, err, goerror.CodeInvalidInput, nil)
}

func TestUsecase_CompleteReset_Concurrent(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	if err := f.uc.RequestReset(ctx, RequestResetInput{Identifier: testIdentifier, AdminKey: testAdminKey}); err != nil {
		t.Fatalf("RequestReset() error = %v", err)
	}
	token := f.mail.lastToken(t)

	const workers = 4
	var (
		wg   sync.WaitGroup
		errs = make([]error, workers)
	)
	for i := range workers {
		wg.Go(func() {
			_, errs[i] = f.uc.CompleteReset(ctx, CompleteResetInput{Identifier: testIdentifier, RecoveryToken: token})
		})
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, entity.ErrInvalidOrExpiredToken) && !errors.Is(err, goerror.ErrConflict) {
			t.Fatalf("unexpected error = %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("succeeded = %d, want 1", succeeded)
	}
}
