package middlewares

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/geocoder89/garbagewatch/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimit enforces l for a key derived from the request.
func RateLimit(l ratelimit.Limiter, scope string, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		d := l.Allow(c.Request.Context(), scope+":"+key)
		if d.Allowed {
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
		if retryAfter < 0 {
			retryAfter = 0
		}

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody(c, "rate_limited", "Too many requests. Please try again shortly."))
	}
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// For authenticated endpoints: rate limit by user id if available
func KeyByUserOrIP(c *gin.Context) string {
	id, ok := UserIDFromContext(c)

	if ok {
		return "user:" + id
	}

	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
