package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"sorso/internal/shared/utils/response"
	"sorso/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware limits every request by the type derived from its route
func Middleware(rateLimiter *RateLimiter, log *logger.Logger) gin.HandlerFunc {
	return handler(rateLimiter, log, func(c *gin.Context) RateLimitType {
		return getRateLimitType(c.Request.Method, c.FullPath())
	})
}

func handler(rateLimiter *RateLimiter, log *logger.Logger, typeOf func(*gin.Context) RateLimitType) gin.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	return func(c *gin.Context) {
		clientIP := getClientIP(c)

		result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, typeOf(c))
		if err != nil {
			// Redis trouble must not take the club offline
			log.ErrorWithContext(c.Request.Context(), "rate limit check failed", err, map[string]interface{}{
				"ip": clientIP,
			})
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

		if !result.Allowed {
			log.LogRateLimitExceeded(c.Request.Context(), clientIP, c.FullPath())
			c.Header("Retry-After", strconv.FormatInt(int64(rateLimiter.config.WindowDuration.Seconds()), 10))
			response.RespondError(c, http.StatusTooManyRequests, "Rate limit exceeded", response.CodeRateLimited, map[string]interface{}{
				"limit":      result.Limit,
				"reset_time": result.ResetTime,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func getRateLimitType(method, path string) RateLimitType {
	switch {
	case strings.HasPrefix(path, "/health"),
		strings.HasPrefix(path, "/ping"),
		strings.HasPrefix(path, "/status"):
		return RateLimitTypeHealth

	case strings.Contains(path, "/staff/"):
		return RateLimitTypeStaff

	case strings.Contains(path, "/auth/"):
		return RateLimitTypeAuth

	case strings.HasSuffix(path, "/reservations") && method == http.MethodPost:
		return RateLimitTypeReservation

	case strings.Contains(path, "/events"),
		strings.Contains(path, "/packages"),
		strings.HasPrefix(path, "/storage/"):
		return RateLimitTypePublic

	default:
		return RateLimitTypeDefault
	}
}

// getClientIP prefers proxy headers, then the socket address
func getClientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xRealIP := c.GetHeader("X-Real-IP"); net.ParseIP(xRealIP) != nil {
		return xRealIP
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}
