package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/pkg/goerror"
)

type RegisterInput struct {
	Identifier string `validate:"required,email,max=254"`
}

type RegisterOutput struct {
	Identifier string
	Enrollment entity.EnrollmentArtifact
}

func (s *Usecase) Register(ctx context.Context, in RegisterInput) (*RegisterOutput, error) {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()

	in.Identifier = normalizeIdentifier(in.Identifier)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	_, err := s.repoDB.GetAccount(ctx, in.Identifier)
	if err == nil {
		slog.WarnContext(ctx, "account already registered", "identifier", in.Identifier)
		return nil, errAlreadyRegistered()
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get account", "identifier", in.Identifier, "error", err)
		return nil, errStore(err)
	}

	sealed, artifact, err := s.newSecret(in.Identifier)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create otp secret", "identifier", in.Identifier, "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	acc := entity.Account{
		ID:             s.uid.Generate(),
		Identifier:     in.Identifier,
		Secret:         sealed,
		RecoveryTokens: []entity.RecoveryToken{},
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repoDB.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, goerror.ErrConflict) {
			slog.WarnContext(ctx, "account registered concurrently", "identifier", in.Identifier)
			return nil, errAlreadyRegistered()
		}
		slog.ErrorContext(ctx, "failed to repo create account", "identifier", in.Identifier, "error", err)
		return nil, errStore(err)
	}

	if err := s.repoMessaging.PublishAccountRegistered(ctx, entity.RegisteredEvent{
		AccountID:  acc.ID,
		Identifier: acc.Identifier,
		At:         now,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish account registered", "account_id", acc.ID, "error", err)
	}

	slog.InfoContext(ctx, "account registered", "account_id", acc.ID)

	return &RegisterOutput{Identifier: acc.Identifier, Enrollment: *artifact}, nil
}

func errAlreadyRegistered() error {
	return goerror.NewBusinessCause(entity.ErrAlreadyRegistered, "Account already registered", goerror.CodeConflict)
}

func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
