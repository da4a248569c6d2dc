package main

import (
	"context"
	"time"

	"github.com/shandysiswandi/gotp/internal/app"
)

// @title           gotp API
// @version         1.0
// @description     gotp registers accounts with a TOTP authenticator, issues one hour sessions and rotates secrets through operator recovery tokens.
// @license.name    MIT
// @license.url     https://mit-license.org/
// @server          http://localhost:8080
// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT.
func main() {
	application := app.New()
	wait := application.Start()
	<-wait

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	application.Stop(ctx)
}
