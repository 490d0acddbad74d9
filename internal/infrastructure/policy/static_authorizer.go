// Package policy implements the gateway's authorization check. The contract
// treats the authorizer as external; this static engine is the built-in
// implementation.
package policy

import (
	"context"
	"strings"

	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/internal/domain/service"
	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/logger"
)

// Rule restricts a path prefix to users at or above a minimum tier.
type Rule struct {
	PathPrefix string
	MinLevel   constants.TierLevel
}

// StaticAuthorizer evaluates a fixed rule set. PUBLIC endpoints always pass;
// PROTECTED endpoints require a non-empty identity and, where a rule matches,
// a sufficient tier.
type StaticAuthorizer struct {
	rules []Rule
	log   logger.Logger
}

// NewStaticAuthorizer creates an authorizer with an optional rule set.
func NewStaticAuthorizer(rules []Rule, log logger.Logger) *StaticAuthorizer {
	return &StaticAuthorizer{rules: rules, log: log.WithComponent("policy")}
}

var _ service.AuthorizationService = (*StaticAuthorizer)(nil)

// tierRank orders levels for minimum-tier comparison.
var tierRank = map[constants.TierLevel]int{
	constants.TierLevel1: 1,
	constants.TierLevel2: 2,
	constants.TierLevel3: 3,
}

// Authorize implements service.AuthorizationService.
func (a *StaticAuthorizer) Authorize(ctx context.Context, user models.AuthenticatedUser, endpoint models.EndpointDescriptor) (bool, error) {
	if endpoint.IsPublic() {
		return true, nil
	}
	if user.UserID == "" {
		return false, nil
	}

	userRank, ok := tierRank[user.Tier.Level]
	if !ok {
		a.log.Debug(ctx, "unknown tier level denied",
			logger.String("user_id", user.UserID),
			logger.String("level", string(user.Tier.Level)),
		)
		return false, nil
	}

	for _, rule := range a.rules {
		if strings.HasPrefix(endpoint.Path, rule.PathPrefix) {
			if userRank < tierRank[rule.MinLevel] {
				return false, nil
			}
		}
	}
	return true, nil
}
