package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gotp/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
)

const keyPrefix = "account:otp_step:"

// Cache remembers accepted OTP steps so a code is honoured once.
type Cache struct {
	client redis.UniversalClient
	ins    instrument.Instrumentation
}

func NewCache(client redis.UniversalClient, ins instrument.Instrumentation) *Cache {
	return &Cache{client: client, ins: ins}
}

// ClaimOTPStep records step as used by identifier under the given secret
// generation. It reports false when the step was already claimed for that
// generation and the claim has not expired. A rotated secret has a new
// generation, so its codes start with no claims.
func (c *Cache) ClaimOTPStep(ctx context.Context, identifier, generation string, step uint64, ttl time.Duration) (bool, error) {
	ctx, span := c.ins.Tracer("account.outbound.cache").Start(ctx, "ClaimOTPStep")
	defer span.End()

	key := keyPrefix + identifier + ":" + generation + ":" + strconv.FormatUint(step, 10)
	claimed, err := c.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	return claimed, nil
}
