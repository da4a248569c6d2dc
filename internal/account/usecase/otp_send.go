package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/pkg/goerror"
)

type SendCodeInput struct {
	Identifier string `validate:"required,email,max=254"`
}

// SendCode mails the current code to a registered identifier. Unknown
// identifiers succeed without sending anything.
func (s *Usecase) SendCode(ctx context.Context, in SendCodeInput) error {
	ctx, span := s.startSpan(ctx, "SendCode")
	defer span.End()

	in.Identifier = normalizeIdentifier(in.Identifier)
	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	acc, err := s.repoDB.GetAccount(ctx, in.Identifier)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "otp code requested for unknown account", "identifier", in.Identifier)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account", "identifier", in.Identifier, "error", err)
		return errStore(err)
	}

	seed, err := s.openSecret(acc)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open otp secret", "account_id", acc.ID, "error", err)
		return goerror.NewServer(err)
	}

	code, err := s.totp.GenerateCode(seed, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "account_id", acc.ID, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoMail.SendCode(ctx, acc.Identifier, code); err != nil {
		slog.ErrorContext(ctx, "failed to send otp code", "account_id", acc.ID, "error", err)
		return goerror.NewUnavailable(fmt.Errorf("%w: %w", entity.ErrDeliveryFailed, err), "Failed to deliver the code, try again")
	}

	return nil
}
