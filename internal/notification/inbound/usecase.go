package inbound

import (
	"context"

	"github.com/shandysiswandi/gotp/internal/notification/usecase"
)

type uc interface {
	ConsumeAccountRegistered(ctx context.Context, in usecase.ConsumeAccountRegisteredInput) error
	ConsumeAccountSecretRotated(ctx context.Context, in usecase.ConsumeAccountSecretRotatedInput) error
}
