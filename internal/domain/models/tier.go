package models

import (
	"time"

	"github.com/opendgw/odg/pkg/constants"
)

// UserTier is a named user class carrying a distinct request quota.
// Both quota values are strictly positive by construction.
type UserTier struct {
	Level         constants.TierLevel
	MaxRequests   int
	WindowSeconds int
}

// Window returns the sliding-window duration of the tier.
func (t UserTier) Window() time.Duration {
	return time.Duration(t.WindowSeconds) * time.Second
}

// defaultTiers maps each known level to its default quota.
var defaultTiers = map[constants.TierLevel]UserTier{
	constants.TierLevel1: {Level: constants.TierLevel1, MaxRequests: constants.DefaultTier1MaxRequests, WindowSeconds: constants.DefaultWindowSeconds},
	constants.TierLevel2: {Level: constants.TierLevel2, MaxRequests: constants.DefaultTier2MaxRequests, WindowSeconds: constants.DefaultWindowSeconds},
	constants.TierLevel3: {Level: constants.TierLevel3, MaxRequests: constants.DefaultTier3MaxRequests, WindowSeconds: constants.DefaultWindowSeconds},
}

// TierForLevel returns the default tier for a level. Unknown levels fall back
// to TIER1, the most restrictive quota.
func TierForLevel(level constants.TierLevel) UserTier {
	if tier, ok := defaultTiers[level]; ok {
		return tier
	}
	return defaultTiers[constants.TierLevel1]
}

// NewUserTier builds a tier with an explicit quota, falling back to the TIER1
// defaults when either value is not positive.
func NewUserTier(level constants.TierLevel, maxRequests, windowSeconds int) UserTier {
	if maxRequests <= 0 {
		maxRequests = constants.DefaultTier1MaxRequests
	}
	if windowSeconds <= 0 {
		windowSeconds = constants.DefaultWindowSeconds
	}
	return UserTier{Level: level, MaxRequests: maxRequests, WindowSeconds: windowSeconds}
}

// AuthenticatedUser is an already-validated identity supplied by the external
// authentication provider. It is used only as an identity key here.
type AuthenticatedUser struct {
	UserID string
	Tier   UserTier
}
