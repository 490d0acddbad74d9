package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendgw/odg/internal/config"
	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/logger"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func identityRouter(cfg *config.AuthConfig, tiers map[string]config.TierQuota) (*gin.Engine, *models.AuthenticatedUser) {
	gin.SetMode(gin.TestMode)
	captured := &models.AuthenticatedUser{}

	router := gin.New()
	router.Use(Identity(cfg, tiers, logger.NewNoopLogger()))
	router.GET("/probe", func(c *gin.Context) {
		user, ok := UserFromContext(c)
		if ok {
			*captured = user
		}
		c.Status(http.StatusOK)
	})
	return router, captured
}

func TestIdentityMiddleware(t *testing.T) {
	cfg := &config.AuthConfig{TokenSecret: testSecret}

	t.Run("accepts a valid token and resolves the tier", func(t *testing.T) {
		router, captured := identityRouter(cfg, nil)
		token := signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "tier": "TIER2"})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u1", captured.UserID)
		assert.Equal(t, constants.TierLevel2, captured.Tier.Level)
	})

	t.Run("lowercase tier claim resolves the same tier", func(t *testing.T) {
		router, captured := identityRouter(cfg, nil)
		token := signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "tier": "tier3"})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, constants.TierLevel3, captured.Tier.Level)
	})

	t.Run("unknown tier falls back to the most restrictive quota", func(t *testing.T) {
		router, captured := identityRouter(cfg, nil)
		token := signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "tier": "platinum"})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, constants.TierLevel1, captured.Tier.Level)
	})

	t.Run("config overrides replace the default quota", func(t *testing.T) {
		tiers := map[string]config.TierQuota{
			"tier2": {MaxRequests: 500, WindowSeconds: 30},
		}
		router, captured := identityRouter(cfg, tiers)
		token := signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "tier": "TIER2"})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 500, captured.Tier.MaxRequests)
		assert.Equal(t, 30, captured.Tier.WindowSeconds)
	})

	t.Run("rejects missing and malformed headers", func(t *testing.T) {
		router, _ := identityRouter(cfg, nil)
		for _, header := range []string{"", "Basic abc", "Bearer", "Bearer a b"} {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code, "header=%q", header)
		}
	})

	t.Run("rejects a token signed with the wrong secret", func(t *testing.T) {
		router, _ := identityRouter(cfg, nil)
		token := signToken(t, "other-secret", jwt.MapClaims{"sub": "u1"})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a token without a subject", func(t *testing.T) {
		router, _ := identityRouter(cfg, nil)
		token := signToken(t, testSecret, jwt.MapClaims{"tier": "TIER1"})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		router, _ := identityRouter(cfg, nil)
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub": "u1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("enforces the issuer when configured", func(t *testing.T) {
		issuerCfg := &config.AuthConfig{TokenSecret: testSecret, Issuer: "idp.example.com"}
		router, _ := identityRouter(issuerCfg, nil)

		wrong := signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "iss": "other"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+wrong)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		right := signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "iss": "idp.example.com"})
		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+right)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
