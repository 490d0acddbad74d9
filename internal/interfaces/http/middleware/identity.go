// Package middleware holds the gin middleware chain for the gateway.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/opendgw/odg/internal/config"
	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/logger"
)

// extractBearer pulls the token out of an Authorization header.
func extractBearer(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// Identity resolves the caller from a bearer token signed by the external
// authentication provider. The gateway never issues tokens; it verifies the
// shared-secret signature and reads two claims: "sub" (the user id) and
// "tier" (the subscription level). Unknown tier values fall back to the most
// restrictive tier rather than being rejected.
func Identity(cfg *config.AuthConfig, tiers map[string]config.TierQuota, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractBearer(c.GetHeader("Authorization"))
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             string(constants.ErrCodeAccessDenied),
				"error_description": "missing bearer token",
			})
			return
		}

		claims := jwt.MapClaims{}
		parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
		if cfg.Issuer != "" {
			parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
		}
		_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(cfg.TokenSecret), nil
		}, parserOpts...)
		if err != nil {
			log.Warn(c.Request.Context(), "token verification failed", logger.Err(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             string(constants.ErrCodeAccessDenied),
				"error_description": "invalid token",
			})
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             string(constants.ErrCodeInvalidUserID),
				"error_description": "token carries no subject",
			})
			return
		}

		level, _ := claims["tier"].(string)
		tier := models.TierForLevel(constants.TierLevel(strings.ToUpper(level)))
		// Viper lowercases map keys, so overrides are keyed by "tier1" etc.
		if quota, ok := tiers[strings.ToLower(string(tier.Level))]; ok {
			tier = models.NewUserTier(tier.Level, quota.MaxRequests, quota.WindowSeconds)
		}

		c.Set(constants.GinKeyUser, models.AuthenticatedUser{UserID: sub, Tier: tier})
		c.Next()
	}
}

// UserFromContext reads the authenticated user placed by Identity. The bool
// reports whether the middleware ran on this request.
func UserFromContext(c *gin.Context) (models.AuthenticatedUser, bool) {
	value, exists := c.Get(constants.GinKeyUser)
	if !exists {
		return models.AuthenticatedUser{}, false
	}
	user, ok := value.(models.AuthenticatedUser)
	return user, ok
}
