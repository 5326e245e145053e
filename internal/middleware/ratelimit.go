package middleware

import (
	"context"
	"net/http"
	"strconv"

	"amoura-chat/internal/redis"
	"amoura-chat/internal/services"
	"amoura-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type limitCheck func(ctx context.Context, userID string) (*redis.RateLimitResult, error)

// GlobalRateLimit applies the per-user request budget to every
// authenticated route. Must run after Auth.
func GlobalRateLimit(limiter *redis.RateLimiter) gin.HandlerFunc {
	return rateLimit(limiter.AllowGlobal, "rate limit exceeded")
}

// MessageRateLimit applies the tighter per-user budget on message sends.
func MessageRateLimit(limiter *redis.RateLimiter) gin.HandlerFunc {
	return rateLimit(limiter.AllowMessage, "message rate limit exceeded")
}

// SensitiveRateLimit guards destructive routes such as delete and
// archive.
func SensitiveRateLimit(limiter *redis.RateLimiter) gin.HandlerFunc {
	return rateLimit(limiter.AllowSensitive, "rate limit exceeded")
}

// CallRateLimit guards call initiation.
func CallRateLimit(limiter *redis.RateLimiter) gin.HandlerFunc {
	return rateLimit(limiter.AllowCall, "call rate limit exceeded")
}

func rateLimit(check limitCheck, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		result, err := check(c.Request.Context(), userID.String())
		if err != nil {
			// Redis being down should not take messaging down with it.
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(message))
			c.Abort()
			return
		}
		c.Next()
	}
}
