package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"sorso/internal/shared/config"
	"sorso/internal/shared/utils/response"
	"sorso/internal/users"
	"sorso/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Context keys set by JWTAuth and RequestID
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
	ContextTokenID   = "token_id"
	ContextRequestID = "request_id"
)

// HeaderRequestID is echoed back on every response
const HeaderRequestID = "X-Request-ID"

// RequestID keeps the caller's X-Request-ID, or assigns one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger logs every request once it is served, tagged with the
// request id and, on staff routes, the signed-in user.
func RequestLogger(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		reqLog := l
		if id := c.GetString(ContextRequestID); id != "" {
			reqLog = reqLog.WithRequestID(id)
		}
		if userID := c.GetString(ContextUserID); userID != "" {
			reqLog = reqLog.WithUserID(userID)
		}
		reqLog.LogHTTPRequest(c, time.Since(start))
	}
}

// RevocationChecker reports whether a token id was signed out
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// JWTAuth creates a JWT authentication middleware with config. revoked may be nil.
func JWTAuth(cfg *config.Config, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.RespondError(c, http.StatusUnauthorized, "Authorization header must be Bearer {token}", response.CodeUnauthorized, nil)
			c.Abort()
			return
		}

		claims, err := parseAccessToken(tokenString, cfg.JWT.Secret)
		if err != nil {
			response.RespondError(c, http.StatusUnauthorized, "invalid or expired token", response.CodeUnauthorized, nil)
			c.Abort()
			return
		}

		if jti, _ := claims["jti"].(string); jti != "" && revoked != nil {
			isRevoked, err := revoked.IsRevoked(c.Request.Context(), jti)
			if err == nil && isRevoked {
				response.RespondError(c, http.StatusUnauthorized, "session has been signed out", response.CodeUnauthorized, nil)
				c.Abort()
				return
			}
			c.Set(ContextTokenID, jti)
		}

		c.Set(ContextUserID, claims["user_id"])
		c.Set(ContextUserEmail, claims["email"])
		c.Set(ContextUserRole, claims["role"])
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func parseAccessToken(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrSignatureInvalid
	}
	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(ContextUserRole)
		if !exists {
			response.RespondError(c, http.StatusUnauthorized, "user role not found in context", response.CodeUnauthorized, nil)
			c.Abort()
			return
		}

		role, _ := userRole.(string)
		for _, required := range requiredRoles {
			if role == required {
				c.Next()
				return
			}
		}

		response.RespondError(c, http.StatusForbidden, "Insufficient permissions", response.CodeForbidden, nil)
		c.Abort()
	}
}

// RequireStaff lets staff and admins through
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(string(users.RoleStaff), string(users.RoleAdmin))
}

// CurrentUserID returns the authenticated user, or nil on public routes
func CurrentUserID(c *gin.Context) *uuid.UUID {
	raw, exists := c.Get(ContextUserID)
	if !exists {
		return nil
	}
	s, _ := raw.(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
