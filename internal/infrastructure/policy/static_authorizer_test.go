package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/logger"
)

func endpoint(t *testing.T, path string) models.EndpointDescriptor {
	t.Helper()
	e, ok := models.ParseEndpoint(path, "GET")
	require.True(t, ok)
	return e
}

func userAt(level constants.TierLevel) models.AuthenticatedUser {
	return models.AuthenticatedUser{UserID: "u1", Tier: models.TierForLevel(level)}
}

func TestStaticAuthorizer(t *testing.T) {
	log := logger.NewNoopLogger()
	ctx := context.Background()

	t.Run("public endpoints always pass", func(t *testing.T) {
		a := NewStaticAuthorizer(nil, log)
		ok, err := a.Authorize(ctx, models.AuthenticatedUser{}, endpoint(t, "/health"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("protected endpoints require an identity", func(t *testing.T) {
		a := NewStaticAuthorizer(nil, log)
		ok, err := a.Authorize(ctx, models.AuthenticatedUser{}, endpoint(t, "/api/v1/data/a.json"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("no rules means any authenticated user passes", func(t *testing.T) {
		a := NewStaticAuthorizer(nil, log)
		ok, err := a.Authorize(ctx, userAt(constants.TierLevel1), endpoint(t, "/api/v1/data/a.json"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rules gate by minimum tier", func(t *testing.T) {
		a := NewStaticAuthorizer([]Rule{
			{PathPrefix: "/api/v1/data/premium/", MinLevel: constants.TierLevel3},
		}, log)

		ok, err := a.Authorize(ctx, userAt(constants.TierLevel1), endpoint(t, "/api/v1/data/premium/a.json"))
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = a.Authorize(ctx, userAt(constants.TierLevel3), endpoint(t, "/api/v1/data/premium/a.json"))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = a.Authorize(ctx, userAt(constants.TierLevel1), endpoint(t, "/api/v1/data/open/a.json"))
		require.NoError(t, err)
		assert.True(t, ok, "unmatched prefixes are unrestricted")
	})

	t.Run("unknown tier is denied", func(t *testing.T) {
		a := NewStaticAuthorizer(nil, log)
		user := models.AuthenticatedUser{
			UserID: "u1",
			Tier:   models.UserTier{Level: constants.TierLevel("platinum"), MaxRequests: 1, WindowSeconds: 60},
		}
		ok, err := a.Authorize(ctx, user, endpoint(t, "/api/v1/data/a.json"))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
