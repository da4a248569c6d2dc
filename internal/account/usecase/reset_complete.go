package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/account/recovery"
	"github.com/shandysiswandi/gotp/internal/pkg/goerror"
)

type CompleteResetInput struct {
	Identifier    string `validate:"required,email,max=254"`
	RecoveryToken string `validate:"required,recoverytoken"`
}

type CompleteResetOutput struct {
	Identifier string
	Enrollment entity.EnrollmentArtifact
}

// CompleteReset consumes a recovery token and rotates the OTP secret in one
// conditional write. Unknown identifiers and bad tokens fail the same way.
func (s *Usecase) CompleteReset(ctx context.Context, in CompleteResetInput) (*CompleteResetOutput, error) {
	ctx, span := s.startSpan(ctx, "CompleteReset")
	defer span.End()

	in.Identifier = normalizeIdentifier(in.Identifier)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	var (
		acc      *entity.Account
		artifact *entity.EnrollmentArtifact
	)
	err := s.withConflictRetry(ctx, func(ctx context.Context) error {
		var err error
		acc, err = s.repoDB.GetAccount(ctx, in.Identifier)
		if errors.Is(err, goerror.ErrNotFound) {
			slog.WarnContext(ctx, "reset completion for unknown account", "identifier", in.Identifier)
			return errInvalidOrExpiredToken()
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo get account", "identifier", in.Identifier, "error", err)
			return errStore(err)
		}

		if err := s.recovery.Consume(acc, in.RecoveryToken, s.clock.Now()); err != nil {
			if errors.Is(err, recovery.ErrInvalidToken) {
				slog.WarnContext(ctx, "recovery token invalid or expired", "account_id", acc.ID)
				return errInvalidOrExpiredToken()
			}
			return err
		}

		var sealed []byte
		sealed, artifact, err = s.newSecret(acc.Identifier)
		if err != nil {
			slog.ErrorContext(ctx, "failed to create otp secret", "account_id", acc.ID, "error", err)
			return goerror.NewServer(err)
		}
		acc.Secret = sealed

		return s.repoDB.UpdateAccount(ctx, acc)
	})
	if err != nil {
		var gerr *goerror.Error
		if errors.As(err, &gerr) {
			return nil, err
		}
		slog.ErrorContext(ctx, "failed to repo rotate otp secret", "identifier", in.Identifier, "error", err)
		return nil, errStoreOrConflict(err)
	}

	if err := s.repoMessaging.PublishAccountSecretRotated(ctx, entity.SecretRotatedEvent{
		AccountID:  acc.ID,
		Identifier: acc.Identifier,
		At:         s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish account secret rotated", "account_id", acc.ID, "error", err)
	}

	slog.InfoContext(ctx, "otp secret rotated", "account_id", acc.ID)

	return &CompleteResetOutput{Identifier: acc.Identifier, Enrollment: *artifact}, nil
}
