package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gappy/pkg/utils"
)

const (
	AccountIDKey    = "account_id"
	AccountTokenKey = "account_token"
	AccessTokenKey  = "access_token"
	UserIDKey       = "user_id"
	RoleKey         = "Role"
)

// AccountVerifier checks an account id and token pair against the account store.
type AccountVerifier func(ctx context.Context, accountID, accountToken string) error

// AccountCredentialsMiddleware requires the account headers and stores them on the context.
// A bearer token is optional; when jwtSecret is set it must be a valid HS256 token.
func AccountCredentialsMiddleware(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := strings.TrimSpace(c.GetHeader(utils.AccountIDHeader))
		accountToken := strings.TrimSpace(c.GetHeader(utils.AccountTokenHeader))
		if accountID == "" || accountToken == "" {
			utils.RespondError(c, http.StatusUnauthorized, "Account credentials missing")
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				utils.RespondError(c, http.StatusUnauthorized, "Authorization header invalid")
				c.Abort()
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if len(jwtSecret) > 0 {
				claims, err := utils.ValidateToken(jwtSecret, tokenString)
				if err != nil {
					utils.RespondError(c, http.StatusUnauthorized, "Invalid or expired token")
					c.Abort()
					return
				}
				c.Set(UserIDKey, claims.Subject)
			}
			c.Set(AccessTokenKey, tokenString)
		}

		c.Set(AccountIDKey, accountID)
		c.Set(AccountTokenKey, accountToken)
		c.Next()
	}
}

// VerifiedAccountMiddleware runs after AccountCredentialsMiddleware on core routes.
func VerifiedAccountMiddleware(verify AccountVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := verify(c.Request.Context(), c.GetString(AccountIDKey), c.GetString(AccountTokenKey))
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid account credentials")
			c.Abort()
			return
		}
		c.Next()
	}
}

// JWTAuthMiddleware requires a valid bearer token and exposes its subject and role.
func JWTAuthMiddleware(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, "Authorization header missing or invalid")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ValidateToken(jwtSecret, tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

func RoleMiddleware(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(RoleKey)

		if role != requiredRole {
			utils.RespondError(c, http.StatusForbidden, "Forbidden: insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}
