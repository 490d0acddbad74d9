package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendgw/odg/pkg/constants"
)

func TestParseEndpoint(t *testing.T) {
	t.Run("classifies protected api paths", func(t *testing.T) {
		e, ok := ParseEndpoint("/api/v1/data/datasets/a.json", "get")
		require.True(t, ok)
		assert.Equal(t, "GET", e.Method)
		assert.Equal(t, constants.EndpointTypeProtected, e.Type)
		assert.False(t, e.IsPublic())
	})

	t.Run("classifies allowlisted prefixes as public", func(t *testing.T) {
		for _, path := range []string{"/health", "/health/ready", "/metrics", "/docs/index.html"} {
			e, ok := ParseEndpoint(path, "GET")
			require.True(t, ok, "path=%q", path)
			assert.True(t, e.IsPublic(), "path=%q", path)
		}
	})

	t.Run("rejects malformed paths", func(t *testing.T) {
		for _, path := range []string{"", "   ", "no-leading-slash", "/has space", "/has\ttab", "/ctrl\x01"} {
			_, ok := ParseEndpoint(path, "GET")
			assert.False(t, ok, "path=%q", path)
		}
	})
}

func TestTierForLevel(t *testing.T) {
	t.Run("known levels map to their quotas", func(t *testing.T) {
		t1 := TierForLevel(constants.TierLevel1)
		t2 := TierForLevel(constants.TierLevel2)
		t3 := TierForLevel(constants.TierLevel3)
		assert.Less(t, t1.MaxRequests, t2.MaxRequests)
		assert.Less(t, t2.MaxRequests, t3.MaxRequests)
	})

	t.Run("unknown levels fall back to the most restrictive tier", func(t *testing.T) {
		tier := TierForLevel(constants.TierLevel("platinum"))
		assert.Equal(t, TierForLevel(constants.TierLevel1).MaxRequests, tier.MaxRequests)
	})

	t.Run("window is derived from seconds", func(t *testing.T) {
		tier := NewUserTier(constants.TierLevel1, 10, 30)
		assert.Equal(t, "30s", tier.Window().String())
	})
}
