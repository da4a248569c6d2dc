package inbound

import (
	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/account/usecase"
	"github.com/shandysiswandi/gotp/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for registration, authentication and recovery.
type HTTPEndpoint struct {
	uc uc
}

// Register creates an account and returns its enrollment artifact.
// @Summary Register account
// @Description Creates an account and returns the otpauth URI, secret and QR code for the authenticator app.
// @Tags Account
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Register payload"
// @Success 201 {object} router.successResponse{data=RegisterResponse} "Enrollment artifact"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 409 {object} router.errorResponse "Account already registered"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/account/register [post]
func (h *HTTPEndpoint) Register(r *router.Request) (any, error) {
	var req RegisterRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Register(r.Context(), usecase.RegisterInput{Identifier: req.Identifier})
	if err != nil {
		return nil, err
	}

	return RegisterResponse{
		Identifier: resp.Identifier,
		Enrollment: toEnrollment(resp.Enrollment),
	}, nil
}

// Authenticate exchanges a one-time code for a session token.
// @Summary Authenticate with OTP
// @Description Verifies the 6 digit code and returns a bearer token valid for one hour.
// @Tags Account
// @Accept json
// @Produce json
// @Param request body AuthenticateRequest true "Authenticate payload"
// @Success 200 {object} router.successResponse{data=AuthenticateResponse} "Session token"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Authentication failed"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/account/authenticate [post]
func (h *HTTPEndpoint) Authenticate(r *router.Request) (any, error) {
	var req AuthenticateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Authenticate(r.Context(), usecase.AuthenticateInput{
		Identifier: req.Identifier,
		Code:       req.Code,
	})
	if err != nil {
		return nil, err
	}

	return AuthenticateResponse{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		ExpiresIn:   resp.ExpiresIn,
	}, nil
}

// SendCode emails the current code to the account owner.
// @Summary Send current OTP by email
// @Description Emails the code of the current step. Unknown identifiers get the same response.
// @Tags Account
// @Accept json
// @Produce json
// @Param request body SendCodeRequest true "Send code payload"
// @Success 200 {object} router.successResponse{data=SendCodeResponse} "Code sent"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 503 {object} router.errorResponse "Delivery failed"
// @Router /api/v1/account/otp/send [post]
func (h *HTTPEndpoint) SendCode(r *router.Request) (any, error) {
	var req SendCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.SendCode(r.Context(), usecase.SendCodeInput{Identifier: req.Identifier}); err != nil {
		return nil, err
	}

	return SendCodeResponse{}, nil
}

// RequestReset issues and mails a recovery token.
// @Summary Request account recovery
// @Description Operator endpoint. Issues a one hour recovery token and emails it to the account owner.
// @Tags Account, Recovery
// @Accept json
// @Produce json
// @Param X-Admin-Key header string true "Operator key"
// @Param request body ResetRequestRequest true "Reset request payload"
// @Success 200 {object} router.successResponse{data=ResetRequestResponse} "Token sent"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Account not found"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 503 {object} router.errorResponse "Delivery failed"
// @Router /api/v1/account/reset/request [post]
func (h *HTTPEndpoint) RequestReset(r *router.Request) (any, error) {
	var req ResetRequestRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.RequestReset(r.Context(), usecase.RequestResetInput{
		Identifier: req.Identifier,
		AdminKey:   r.GetHeader(headerAdminKey),
	}); err != nil {
		return nil, err
	}

	return ResetRequestResponse{}, nil
}

// CompleteReset consumes a recovery token and rotates the OTP secret.
// @Summary Complete account recovery
// @Description Consumes the recovery token and returns a new enrollment artifact. Older tokens stop working.
// @Tags Account, Recovery
// @Accept json
// @Produce json
// @Param request body ResetCompleteRequest true "Reset complete payload"
// @Success 200 {object} router.successResponse{data=ResetCompleteResponse} "New enrollment artifact"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Invalid or expired recovery token"
// @Failure 409 {object} router.errorResponse "Account is being updated"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/account/reset/complete [post]
func (h *HTTPEndpoint) CompleteReset(r *router.Request) (any, error) {
	var req ResetCompleteRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.CompleteReset(r.Context(), usecase.CompleteResetInput{
		Identifier:    req.Identifier,
		RecoveryToken: req.RecoveryToken,
	})
	if err != nil {
		return nil, err
	}

	return ResetCompleteResponse{
		Identifier: resp.Identifier,
		Enrollment: toEnrollment(resp.Enrollment),
	}, nil
}

// Session describes the bearer token of the caller.
// @Summary Current session
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=SessionResponse} "Session"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Router /api/v1/account/session [get]
func (h *HTTPEndpoint) Session(r *router.Request) (any, error) {
	resp, err := h.uc.Session(r.Context())
	if err != nil {
		return nil, err
	}

	return SessionResponse{
		Identifier: resp.Identifier,
		IssuedAt:   resp.IssuedAt,
		ExpiresAt:  resp.ExpiresAt,
	}, nil
}

func toEnrollment(a entity.EnrollmentArtifact) EnrollmentResponse {
	return EnrollmentResponse{URI: a.URI, Secret: a.Secret, QRCode: a.QRCode}
}
