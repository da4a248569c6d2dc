package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/account/recovery"
	"github.com/shandysiswandi/gotp/internal/pkg/clock"
	"github.com/shandysiswandi/gotp/internal/pkg/goerror"
	"github.com/shandysiswandi/gotp/internal/pkg/hash"
	"github.com/shandysiswandi/gotp/internal/pkg/instrument"
	"github.com/shandysiswandi/gotp/internal/pkg/jwt"
	"github.com/shandysiswandi/gotp/internal/pkg/otp"
	"github.com/shandysiswandi/gotp/internal/pkg/secret"
	"github.com/shandysiswandi/gotp/internal/pkg/uid"
	"github.com/shandysiswandi/gotp/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Config is the explicit runtime configuration of the account usecase.
type Config struct {
	ResetTTL     time.Duration `validate:"gt=0"`
	AdminKeyHash string
	ReplayGuard  bool
	ReplayTTL    time.Duration `validate:"required_if=ReplayGuard true"`
	QRSize       int           `validate:"gte=64,lte=1024"`
}

type repoDB interface {
	GetAccount(ctx context.Context, identifier string) (*entity.Account, error)
	CreateAccount(ctx context.Context, acc entity.Account) error
	UpdateAccount(ctx context.Context, acc *entity.Account) error
}

type repoCache interface {
	ClaimOTPStep(ctx context.Context, identifier, generation string, step uint64, ttl time.Duration) (bool, error)
}

type repoMail interface {
	SendCode(ctx context.Context, to, code string) error
	SendRecoveryToken(ctx context.Context, to, token string, ttl time.Duration) error
}

type repoMessaging interface {
	PublishAccountRegistered(ctx context.Context, ev entity.RegisteredEvent) error
	PublishAccountResetRequested(ctx context.Context, ev entity.ResetRequestedEvent) error
	PublishAccountSecretRotated(ctx context.Context, ev entity.SecretRotatedEvent) error
}

type Usecase struct {
	cfg           Config
	repoDB        repoDB
	repoCache     repoCache
	repoMail      repoMail
	repoMessaging repoMessaging
	recovery      *recovery.Manager
	validator     validator.Validator
	credential    hash.Hash
	hmac          hash.Hash
	sealer        secret.Sealer
	totp          otp.OTP
	jwt           jwt.JWT
	uid           uid.NumberID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	authAttempts  metric.Int64Counter
	backoff       func() retry.Backoff
}

type Dependency struct {
	Config        Config
	RepoDB        repoDB
	RepoCache     repoCache
	RepoMail      repoMail
	RepoMessaging repoMessaging
	Validator     validator.Validator
	HMAC          hash.Hash
	Credential    hash.Hash
	Sealer        secret.Sealer
	Totp          otp.OTP
	JWT           jwt.JWT
	UID           uid.NumberID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	attempts, err := dep.Instrument.Meter("account.usecase").Int64Counter(
		"account.authenticate.attempts",
		metric.WithDescription("Authentication attempts by result"),
	)
	if err != nil {
		slog.Error("failed to create authenticate attempts counter", "error", err)
	}

	return &Usecase{
		cfg:           dep.Config,
		repoDB:        dep.RepoDB,
		repoCache:     dep.RepoCache,
		repoMail:      dep.RepoMail,
		repoMessaging: dep.RepoMessaging,
		recovery:      recovery.New(dep.RepoDB, dep.HMAC, dep.Clock, dep.Config.ResetTTL),
		validator:     dep.Validator,
		credential:    dep.Credential,
		hmac:          dep.HMAC,
		sealer:        dep.Sealer,
		totp:          dep.Totp,
		jwt:           dep.JWT,
		uid:           dep.UID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		authAttempts:  attempts,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.WithJitterPercent(20, retry.NewExponential(20*time.Millisecond)))
		},
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("account.usecase").Start(ctx, name)
}

func errStore(err error) error {
	return goerror.NewServer(fmt.Errorf("%w: %w", entity.ErrStoreUnavailable, err))
}

func errAuthenticationFailed() error {
	return goerror.NewBusinessCause(entity.ErrAuthenticationFailed, "Authentication failed", goerror.CodeUnauthorized)
}

func errInvalidOrExpiredToken() error {
	return goerror.NewBusinessCause(entity.ErrInvalidOrExpiredToken, "Invalid or expired recovery token", goerror.CodeUnauthorized)
}

func scopeOf(identifier string) secret.Scope {
	return secret.Scope{Identifier: identifier, Purpose: secret.PurposeOTPSeed}
}

// openSecret returns the plaintext OTP seed of acc.
func (s *Usecase) openSecret(acc *entity.Account) (string, error) {
	plain, err := s.sealer.Open(acc.Secret, scopeOf(acc.Identifier))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// generationLen is the number of hex characters of the sealed secret digest
// kept in replay claims.
const generationLen = 16

// secretGeneration identifies the current sealed secret of acc and changes on
// every rotation.
func (s *Usecase) secretGeneration(acc *entity.Account) (string, error) {
	sum, err := s.hmac.Hash(string(acc.Secret))
	if err != nil {
		return "", err
	}
	if len(sum) > generationLen {
		sum = sum[:generationLen]
	}
	return string(sum), nil
}

// newSecret generates and seals a fresh seed for identifier.
func (s *Usecase) newSecret(identifier string) (sealed []byte, artifact *entity.EnrollmentArtifact, err error) {
	plain, uri, err := s.totp.Generate(identifier)
	if err != nil {
		return nil, nil, fmt.Errorf("generate otp secret: %w", err)
	}

	sealed, err = s.sealer.Seal([]byte(plain), scopeOf(identifier))
	if err != nil {
		return nil, nil, fmt.Errorf("seal otp secret: %w", err)
	}

	png, err := s.totp.Image(uri, s.cfg.QRSize, s.cfg.QRSize)
	if err != nil {
		return nil, nil, fmt.Errorf("render enrollment qr: %w", err)
	}

	return sealed, &entity.EnrollmentArtifact{
		URI:    uri,
		Secret: plain,
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// withConflictRetry reruns fn while it fails with goerror.ErrConflict.
func (s *Usecase) withConflictRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, goerror.ErrConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *Usecase) recordAttempt(ctx context.Context, result string) {
	if s.authAttempts == nil {
		return
	}
	s.authAttempts.Add(ctx, 1, metric.WithAttributes(resultAttr(result)))
}
