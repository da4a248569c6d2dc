package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/account/inbound"
	"github.com/shandysiswandi/gotp/internal/account/outbound/cache"
	"github.com/shandysiswandi/gotp/internal/account/outbound/db"
	"github.com/shandysiswandi/gotp/internal/account/outbound/email"
	"github.com/shandysiswandi/gotp/internal/account/outbound/memory"
	"github.com/shandysiswandi/gotp/internal/account/outbound/mq"
	"github.com/shandysiswandi/gotp/internal/account/usecase"
	"github.com/shandysiswandi/gotp/internal/pkg/clock"
	"github.com/shandysiswandi/gotp/internal/pkg/config"
	"github.com/shandysiswandi/gotp/internal/pkg/hash"
	"github.com/shandysiswandi/gotp/internal/pkg/instrument"
	"github.com/shandysiswandi/gotp/internal/pkg/jwt"
	"github.com/shandysiswandi/gotp/internal/pkg/mail"
	"github.com/shandysiswandi/gotp/internal/pkg/messaging"
	"github.com/shandysiswandi/gotp/internal/pkg/otp"
	"github.com/shandysiswandi/gotp/internal/pkg/router"
	"github.com/shandysiswandi/gotp/internal/pkg/secret"
	"github.com/shandysiswandi/gotp/internal/pkg/uid"
	"github.com/shandysiswandi/gotp/internal/pkg/validator"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

var (
	ErrUnknownStore     = errors.New("account: unknown store")
	ErrPostgresRequired = errors.New("account: postgres store requires a database connection")
	ErrRedisRequired    = errors.New("account: replay guard requires a redis connection")
	ErrAdminKeyMissing  = errors.New("account: modules.account.admin_key_hash is required")
)

type Dependency struct {
	Ctx        context.Context
	DBConn     *pgxpool.Pool
	CacheConn  redis.UniversalClient
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Credential hash.Hash                  `validate:"required"`
	Sealer     secret.Sealer              `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Totp       otp.OTP                    `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	JWT        jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	cfg := usecaseConfig(dep.Config)
	if err := dep.Validator.Validate(cfg); err != nil {
		return fmt.Errorf("account: invalid config: %w", err)
	}
	if cfg.AdminKeyHash == "" {
		return ErrAdminKeyMissing
	}

	repoDB, err := newStore(dep)
	if err != nil {
		return err
	}

	ucDep := usecase.Dependency{
		Config:        cfg,
		RepoDB:        repoDB,
		RepoMail:      email.New(dep.Mail, dep.Config.GetString("mail.from"), dep.Instrument),
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		Validator:     dep.Validator,
		HMAC:          dep.HMAC,
		Credential:    dep.Credential,
		Sealer:        dep.Sealer,
		Totp:          dep.Totp,
		JWT:           dep.JWT,
		UID:           dep.UID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
	}
	if cfg.ReplayGuard {
		if dep.CacheConn == nil {
			return ErrRedisRequired
		}
		ucDep.RepoCache = cache.NewCache(dep.CacheConn, dep.Instrument)
	}

	inbound.RegisterHTTPEndpoint(dep.Router, usecase.New(ucDep))

	return nil
}

type store interface {
	GetAccount(ctx context.Context, identifier string) (*entity.Account, error)
	CreateAccount(ctx context.Context, acc entity.Account) error
	UpdateAccount(ctx context.Context, acc *entity.Account) error
}

func newStore(dep Dependency) (store, error) {
	switch kind := dep.Config.GetString("modules.account.store"); kind {
	case StoreMemory:
		return memory.NewStore(dep.Clock), nil
	case StorePostgres:
		if dep.DBConn == nil {
			return nil, ErrPostgresRequired
		}
		pg := db.NewDB(dep.DBConn, dep.Instrument)
		if dep.Config.GetBool("database.auto_migrate") && dep.Ctx != nil {
			if err := pg.Migrate(dep.Ctx); err != nil {
				return nil, fmt.Errorf("account: migrate: %w", err)
			}
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, kind)
	}
}

// usecaseConfig reads the account settings. The replay window covers every
// step Authenticate accepts.
func usecaseConfig(cfg config.Config) usecase.Config {
	period := cfg.GetSecond("otp.period")
	skew := time.Duration(cfg.GetUint("otp.skew"))

	return usecase.Config{
		ResetTTL:     cfg.GetMinute("modules.account.reset_ttl_minutes"),
		AdminKeyHash: cfg.GetString("modules.account.admin_key_hash"),
		ReplayGuard:  cfg.GetBool("modules.account.replay_guard"),
		ReplayTTL:    (2*skew + 1) * period,
		QRSize:       cfg.GetInt("modules.account.qr_size"),
	}
}
