package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/pkg/goerror"
)

func TestUsecase_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.uc.Register(ctx, RegisterInput{Identifier: "  Alice@Example.com "})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if out.Identifier != testIdentifier {
		t.Fatalf("Identifier = %q, want %q", out.Identifier, testIdentifier)
	}
	if !strings.HasPrefix(out.Enrollment.URI, "otpauth://totp/gotp:") {
		t.Fatalf("URI = %q", out.Enrollment.URI)
	}
	if !strings.Contains(out.Enrollment.URI, "secret="+out.Enrollment.Secret) {
		t.Fatalf("URI %q does not carry the secret", out.Enrollment.URI)
	}
	if !strings.HasPrefix(out.Enrollment.QRCode, "data:image/png;base64,") {
		t.Fatalf("QRCode prefix = %q", out.Enrollment.QRCode[:20])
	}

	acc, err := f.store.GetAccount(ctx, testIdentifier)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if string(acc.Secret) == out.Enrollment.Secret {
		t.Fatal("secret stored in plaintext")
	}
	if len(acc.RecoveryTokens) != 0 {
		t.Fatalf("RecoveryTokens = %v, want empty", acc.RecoveryTokens)
	}
	if acc.Version != 1 || !acc.CreatedAt.Equal(t0) {
		t.Fatalf("Version = %d CreatedAt = %v", acc.Version, acc.CreatedAt)
	}

	code := f.code(t, out.Enrollment.Secret, t0)
	if !f.totp.Validate(code, out.Enrollment.Secret, t0) {
		t.Fatal("enrollment secret does not validate its own code")
	}

	if len(f.mq.registered) != 1 || f.mq.registered[0].Identifier != testIdentifier {
		t.Fatalf("registered events = %+v", f.mq.registered)
	}
}

func TestUsecase_Register_Errors(t *testing.T) {
	t.Run("already registered", func(t *testing.T) {
		f := newFixture(t)
		first := f.register(t)

		_, err := f.uc.Register(context.Background(), RegisterInput{Identifier: "ALICE@example.com"})
		assertCode(t, err, goerror.CodeConflict, entity.ErrAlreadyRegistered)

		acc, _ := f.store.GetAccount(context.Background(), testIdentifier)
		seed, err := f.uc.openSecret(acc)
		if err != nil || seed != first.Enrollment.Secret {
			t.Fatalf("secret changed after duplicate register: err = %v", err)
		}
	})

	t.Run("invalid identifier", func(t *testing.T) {
		f := newFixture(t)
		for _, id := range []string{"", "not-an-email", strings.Repeat("a", 250) + "@x.io"} {
			_, err := f.uc.Register(context.Background(), RegisterInput{Identifier: id})
			assertCode(t, err, goerror.CodeInvalidInput, nil)
		}
	})

	t.Run("store unavailable", func(t *testing.T) {
		f := newFixture(t, withStoreError(errors.New("connection refused")))

		_, err := f.uc.Register(context.Background(), RegisterInput{Identifier: testIdentifier})
		assertCode(t, err, goerror.CodeInternal, entity.ErrStoreUnavailable)
	})

	t.Run("publish failure does not fail register", func(t *testing.T) {
		f := newFixture(t)
		f.mq.err = errors.New("broker down")

		if _, err := f.uc.Register(context.Background(), RegisterInput{Identifier: testIdentifier}); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	})
}
