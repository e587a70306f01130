package authz

import (
	"context"
	"log/slog"
)

// Gate is the request-time allow/deny decision point. It depends only on the
// resolver, never on the store directly, so caching stays centralised.
type Gate struct {
	resolver *Resolver
	logger   *slog.Logger
}

// NewGate constructs a Gate.
func NewGate(resolver *Resolver, logger *slog.Logger) *Gate {
	return &Gate{resolver: resolver, logger: logger}
}

// Authorize decides whether the user may perform an action guarded by the
// required permission slugs. Holding any one of them is sufficient. An empty
// required list only demands authentication. Resolution failures deny,
// never allow.
func (g *Gate) Authorize(ctx context.Context, userID int64, required ...string) Decision {
	if userID <= 0 {
		return Decision{Reason: ReasonUnauthenticated, Required: required}
	}

	view, err := g.resolver.Resolve(ctx, userID)
	if err != nil {
		if g.logger != nil {
			g.logger.Error("permission resolution failed",
				slog.Int64("user_id", userID),
				slog.Any("error", err))
		}
		return Decision{Reason: ReasonResolutionError, UserID: userID, Required: required}
	}

	if view.SuperAdmin {
		return Decision{Allowed: true, UserID: userID, Required: required}
	}
	if len(required) == 0 {
		return Decision{Allowed: true, UserID: userID}
	}
	for _, slug := range required {
		if view.Has(slug) {
			return Decision{Allowed: true, UserID: userID, Required: required}
		}
	}
	return Decision{Reason: ReasonMissingPermission, UserID: userID, Required: required}
}
