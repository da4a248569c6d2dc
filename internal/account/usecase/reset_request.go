package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/pkg/goerror"
)

type RequestResetInput struct {
	Identifier string `validate:"required,email,max=254"`
	AdminKey   string `validate:"required,max=256"`
}

// RequestReset issues a recovery token for identifier and mails it. The
// caller must present the operator key. When delivery fails the issued
// token stays valid.
func (s *Usecase) RequestReset(ctx context.Context, in RequestResetInput) error {
	ctx, span := s.startSpan(ctx, "RequestReset")
	defer span.End()

	in.Identifier = normalizeIdentifier(in.Identifier)
	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if !s.credential.Verify(s.cfg.AdminKeyHash, in.AdminKey) {
		slog.WarnContext(ctx, "reset requested with invalid admin key", "identifier", in.Identifier)
		return goerror.NewBusinessCause(entity.ErrUnauthorized, "Unauthorized", goerror.CodeUnauthorized)
	}

	var (
		acc   *entity.Account
		token string
	)
	err := s.withConflictRetry(ctx, func(ctx context.Context) error {
		var err error
		acc, err = s.repoDB.GetAccount(ctx, in.Identifier)
		if errors.Is(err, goerror.ErrNotFound) {
			slog.WarnContext(ctx, "reset requested for unknown account", "identifier", in.Identifier)
			return goerror.NewBusinessCause(entity.ErrNotFound, "Account not found", goerror.CodeNotFound)
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo get account", "identifier", in.Identifier, "error", err)
			return errStore(err)
		}

		token, err = s.recovery.Issue(ctx, acc)
		return err
	})
	if err != nil {
		var gerr *goerror.Error
		if errors.As(err, &gerr) {
			return err
		}
		slog.ErrorContext(ctx, "failed to issue recovery token", "identifier", in.Identifier, "error", err)
		return errStoreOrConflict(err)
	}

	delivered := true
	if err := s.repoMail.SendRecoveryToken(ctx, acc.Identifier, token, s.recovery.TTL()); err != nil {
		delivered = false
		slog.ErrorContext(ctx, "failed to send recovery token", "account_id", acc.ID, "error", err)
		err = goerror.NewUnavailable(fmt.Errorf("%w: %w", entity.ErrDeliveryFailed, err), "Failed to deliver the recovery token")
		s.publishResetRequested(ctx, acc, delivered)
		return err
	}

	s.publishResetRequested(ctx, acc, delivered)
	slog.InfoContext(ctx, "recovery token issued", "account_id", acc.ID)

	return nil
}

func (s *Usecase) publishResetRequested(ctx context.Context, acc *entity.Account, delivered bool) {
	if err := s.repoMessaging.PublishAccountResetRequested(ctx, entity.ResetRequestedEvent{
		AccountID:  acc.ID,
		Identifier: acc.Identifier,
		Delivered:  delivered,
		At:         s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish account reset requested", "account_id", acc.ID, "error", err)
	}
}

// errStoreOrConflict maps a store failure that survived conflict retries.
func errStoreOrConflict(err error) error {
	if errors.Is(err, goerror.ErrConflict) {
		return goerror.NewBusinessCause(err, "Account is being updated, try again", goerror.CodeConflict)
	}
	return errStore(err)
}
