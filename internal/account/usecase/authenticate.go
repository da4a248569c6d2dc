package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/gotp/internal/pkg/goerror"
)

// decoySecret is checked against when the identifier is unknown so both
// failure paths run the same OTP verification.
const decoySecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

type AuthenticateInput struct {
	Identifier string `validate:"required,email,max=254"`
	Code       string `validate:"required,otpcode"`
}

type AuthenticateOutput struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
}

func (s *Usecase) Authenticate(ctx context.Context, in AuthenticateInput) (*AuthenticateOutput, error) {
	ctx, span := s.startSpan(ctx, "Authenticate")
	defer span.End()

	in.Identifier = normalizeIdentifier(in.Identifier)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	now := s.clock.Now()

	acc, err := s.repoDB.GetAccount(ctx, in.Identifier)
	if errors.Is(err, goerror.ErrNotFound) {
		s.totp.Validate(in.Code, decoySecret, now)
		s.recordAttempt(ctx, resultFailure)
		slog.WarnContext(ctx, "authenticate for unknown account", "identifier", in.Identifier)
		return nil, errAuthenticationFailed()
	}
	if err != nil {
		s.recordAttempt(ctx, resultError)
		slog.ErrorContext(ctx, "failed to repo get account", "identifier", in.Identifier, "error", err)
		return nil, errStore(err)
	}

	seed, err := s.openSecret(acc)
	if err != nil {
		s.recordAttempt(ctx, resultError)
		slog.ErrorContext(ctx, "failed to open otp secret", "account_id", acc.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	step, ok := s.totp.Match(in.Code, seed, now)
	if !ok {
		s.recordAttempt(ctx, resultFailure)
		slog.WarnContext(ctx, "otp code not match", "account_id", acc.ID)
		return nil, errAuthenticationFailed()
	}

	if s.cfg.ReplayGuard {
		generation, err := s.secretGeneration(acc)
		if err != nil {
			s.recordAttempt(ctx, resultError)
			slog.ErrorContext(ctx, "failed to derive secret generation", "account_id", acc.ID, "error", err)
			return nil, goerror.NewServer(err)
		}

		claimed, err := s.repoCache.ClaimOTPStep(ctx, acc.Identifier, generation, step, s.cfg.ReplayTTL)
		if err != nil {
			s.recordAttempt(ctx, resultError)
			slog.ErrorContext(ctx, "failed to claim otp step", "account_id", acc.ID, "error", err)
			return nil, goerror.NewServer(err)
		}
		if !claimed {
			s.recordAttempt(ctx, resultReplayed)
			slog.WarnContext(ctx, "otp code replayed", "account_id", acc.ID, "step", step)
			return nil, errAuthenticationFailed()
		}
	}

	token, err := s.jwt.Generate(acc.Identifier)
	if err != nil {
		s.recordAttempt(ctx, resultError)
		slog.ErrorContext(ctx, "failed to generate session token", "account_id", acc.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.recordAttempt(ctx, resultSuccess)

	return &AuthenticateOutput{
		AccessToken: token.Value,
		TokenType:   "Bearer",
		ExpiresIn:   int64(token.ExpiresAt.Sub(now).Seconds()),
	}, nil
}
