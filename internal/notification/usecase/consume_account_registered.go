package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gotp/internal/notification/entity"
)

type ConsumeAccountRegisteredInput struct {
	AccountID    int64  `validate:"required,gt=0"`
	Identifier   string `validate:"required,email"`
	RegisteredAt int64  `validate:"required,gt=0"`
}

func (s *Usecase) ConsumeAccountRegistered(ctx context.Context, in ConsumeAccountRegisteredInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeAccountRegistered")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "error", err)
		return nil
	}

	return s.sendNotice(ctx, entity.Notice{
		AccountID:  in.AccountID,
		Identifier: in.Identifier,
		TriggerKey: entity.TriggerKeyAccountRegistered,
		At:         time.Unix(in.RegisteredAt, 0),
	})
}
