package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/pkg/goerror"
	"github.com/shandysiswandi/gotp/internal/pkg/jwt"
)

type SessionOutput struct {
	Identifier string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Session describes the verified session token carried by ctx.
func (s *Usecase) Session(ctx context.Context) (*SessionOutput, error) {
	_, span := s.startSpan(ctx, "Session")
	defer span.End()

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusinessCause(entity.ErrUnauthorized, "Authentication required", goerror.CodeUnauthorized)
	}

	out := &SessionOutput{Identifier: clm.Identifier}
	if clm.IssuedAt != nil {
		out.IssuedAt = clm.IssuedAt.Time
	}
	if clm.ExpiresAt != nil {
		out.ExpiresAt = clm.ExpiresAt.Time
	}

	return out, nil
}
