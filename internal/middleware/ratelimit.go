package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimiter enforces the ratelimit rules attached to each operation's metadata.
// Operations without rules are not limited. Clients are told apart by IP and User-Agent.
func RateLimiter(
	api huma.API,
	limiter *ratelimit.Limiter,
	proxies TrustedProxies,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()

		rules := ratelimit.RulesFor(op)
		if len(rules) == 0 {
			next(ctx)

			return
		}

		// counters are per operation, so limits on login do not eat into register
		clientIP := proxies.ClientIP(ctx)
		key := clientKey(clientIP, ctx.Header("User-Agent")) + ":" + op.OperationID

		exceeded, err := limiter.Check(ctx.Context(), key, rules)
		if err != nil {
			logger.Error("rate limit check failed", zap.String("operation", op.OperationID), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if exceeded != nil {
			logger.Warn("rate limit exceeded",
				zap.String("operation", op.OperationID),
				zap.Int64("count", exceeded.Count),
				zap.Int64("max", exceeded.Rule.Max),
				zap.Duration("window", exceeded.Rule.Window),
				zap.String("client_ip", clientIP),
			)
			ctx.SetHeader("Retry-After", strconv.Itoa(int(math.Ceil(exceeded.Rule.Window.Seconds()))))
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, exceeded.Error())

			return
		}

		next(ctx)
	}
}

// clientKey derives a rate limit key from client IP and User-Agent.
func clientKey(clientIP, userAgent string) string {
	hash := sha256.Sum256([]byte(clientIP + "|" + userAgent))

	return hex.EncodeToString(hash[:])
}
