package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gotp/internal/notification/entity"
)

type ConsumeAccountSecretRotatedInput struct {
	AccountID  int64  `validate:"required,gt=0"`
	Identifier string `validate:"required,email"`
	RotatedAt  int64  `validate:"required,gt=0"`
}

func (s *Usecase) ConsumeAccountSecretRotated(ctx context.Context, in ConsumeAccountSecretRotatedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeAccountSecretRotated")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "error", err)
		return nil
	}

	return s.sendNotice(ctx, entity.Notice{
		AccountID:  in.AccountID,
		Identifier: in.Identifier,
		TriggerKey: entity.TriggerKeyAccountSecretRotated,
		At:         time.Unix(in.RotatedAt, 0),
	})
}
