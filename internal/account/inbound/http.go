package inbound

import (
	"context"

	"github.com/shandysiswandi/gotp/internal/account/usecase"
	"github.com/shandysiswandi/gotp/internal/pkg/router"
)

type uc interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.RegisterOutput, error)
	Authenticate(ctx context.Context, in usecase.AuthenticateInput) (*usecase.AuthenticateOutput, error)
	SendCode(ctx context.Context, in usecase.SendCodeInput) error

	RequestReset(ctx context.Context, in usecase.RequestResetInput) error
	CompleteReset(ctx context.Context, in usecase.CompleteResetInput) (*usecase.CompleteResetOutput, error)

	Session(ctx context.Context) (*usecase.SessionOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/account/register", end.Register)
	r.POST("/api/v1/account/authenticate", end.Authenticate)
	r.POST("/api/v1/account/otp/send", end.SendCode)

	// Recovery (request needs the operator key)
	r.POST("/api/v1/account/reset/request", end.RequestReset)
	r.POST("/api/v1/account/reset/complete", end.CompleteReset)

	r.GET("/api/v1/account/session", end.Session, r.RequireAuth())
}
