package app

import (
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gotp/internal/account"
	"github.com/shandysiswandi/gotp/internal/notification"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.account.enabled") {
		// a typed nil client must not reach the interface field
		var cacheConn redis.UniversalClient
		if a.cacheConn != nil {
			cacheConn = a.cacheConn
		}

		if err := account.New(account.Dependency{
			Ctx:        a.ctx,
			DBConn:     a.dbConn,
			CacheConn:  cacheConn,
			Router:     a.router,
			Messaging:  a.messaging,
			Mail:       a.mail,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			HMAC:       a.hmac,
			Credential: a.credential,
			Sealer:     a.sealer,
			Clock:      a.clock,
			Totp:       a.totp,
			Validator:  a.validator,
			JWT:        a.jwt,
		}); err != nil {
			slog.Error("failed to init module account", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.notification.enabled") {
		if err := notification.New(notification.Dependency{
			Ctx:        a.ctx,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Clock:      a.clock,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
			Mail:       a.mail,
		}); err != nil {
			slog.Error("failed to init module notification", "error", err)
			os.Exit(1)
		}
	}
}
