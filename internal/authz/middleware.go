package authz

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/scholaris/scholaris/internal/platform/httpx"
	"github.com/scholaris/scholaris/internal/shared"
)

// DecisionRecorder counts gate outcomes for observability.
type DecisionRecorder interface {
	RecordAuthzDecision(allowed bool, reason string)
}

// Middleware guards HTTP routes with gate checks. Denies carry a
// machine-readable list of the unmet permissions; resolution failures look
// identical to an ordinary deny from the outside.
type Middleware struct {
	Gate    *Gate
	Logger  *slog.Logger
	Audit   *shared.AuditLogger
	Metrics DecisionRecorder
}

type forbiddenResponse struct {
	Message             string   `json:"message"`
	RequiredPermissions []string `json:"required_permissions"`
}

// RequireAny allows the request through when the current user holds at least
// one of the given permission slugs. With no slugs, authentication alone is
// enough.
func (m Middleware) RequireAny(slugs ...string) func(http.Handler) http.Handler {
	required := cleanSlugs(slugs)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := shared.CurrentUserID(r.Context())
			decision := m.Gate.Authorize(r.Context(), userID, required...)
			if m.Metrics != nil {
				m.Metrics.RecordAuthzDecision(decision.Allowed, decision.Reason)
			}
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			m.deny(w, r, decision)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, decision Decision) {
	if decision.Reason == ReasonUnauthenticated {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "authentication required")
		return
	}
	if m.Logger != nil {
		m.Logger.Warn("unauthorized access attempt",
			slog.Int64("user_id", decision.UserID),
			slog.String("path", r.URL.Path),
			slog.String("reason", decision.Reason),
			slog.String("required_permissions", strings.Join(decision.Required, ",")))
	}
	if m.Audit != nil {
		if err := m.Audit.RecordDeniedAccess(r.Context(), decision.UserID, r.URL.Path, decision.Required); err != nil && m.Logger != nil {
			m.Logger.Warn("audit denied access", slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusForbidden, forbiddenResponse{
		Message:             "You do not have permission to perform this action.",
		RequiredPermissions: decision.Required,
	})
}

func cleanSlugs(slugs []string) []string {
	cleaned := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		slug = strings.TrimSpace(slug)
		if slug == "" {
			continue
		}
		cleaned = append(cleaned, slug)
	}
	return cleaned
}
