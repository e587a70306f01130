package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scholaris/scholaris/internal/platform/httpx"
	"github.com/scholaris/scholaris/internal/shared"
)

// RepositoryPort defines data access methods for user-role management.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Exists(ctx context.Context, userID int64) (bool, error)
	RoleExists(ctx context.Context, roleID int64) (bool, error)
	AssignRole(ctx context.Context, userID, roleID, actorID int64) (bool, error)
	RemoveRole(ctx context.Context, userID, roleID int64) error
	SetActive(ctx context.Context, userID int64, active bool) error
}

// InvalidatorPort makes stale permission caches unreachable after a mutation.
type InvalidatorPort interface {
	Invalidate(ctx context.Context) error
}

// Service handles user-role edge mutations. Assigning or removing a role
// changes that user's effective permissions, so each successful mutation
// invalidates the caches exactly once.
type Service struct {
	repo        RepositoryPort
	invalidator InvalidatorPort
	audit       *shared.AuditLogger
	logger      *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, invalidator InvalidatorPort, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, invalidator: invalidator, audit: audit, logger: logger}
}

// List returns all users with their active roles.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// AssignRole attaches a role to a user. Assigning an already-held role is a
// no-op and does not invalidate.
func (s *Service) AssignRole(ctx context.Context, userID, roleID, actorID int64) error {
	ok, err := s.repo.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %d: %w", userID, httpx.ErrNotFound)
	}
	ok, err = s.repo.RoleExists(ctx, roleID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("role %d: %w", roleID, httpx.ErrNotFound)
	}
	changed, err := s.repo.AssignRole(ctx, userID, roleID, actorID)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	s.recordAudit(ctx, actorID, "user.role_assigned", userID, map[string]any{"role_id": roleID})
	if err := s.invalidator.Invalidate(ctx); err != nil {
		return fmt.Errorf("role assigned but cache invalidation failed: %w", err)
	}
	return nil
}

// RemoveRole detaches a role from a user.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID, actorID int64) error {
	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user.role_removed", userID, map[string]any{"role_id": roleID})
	if err := s.invalidator.Invalidate(ctx); err != nil {
		return fmt.Errorf("role removed but cache invalidation failed: %w", err)
	}
	return nil
}

// SetActive enables or disables an account. A disabled account can no longer
// authenticate; its cached permission view is also dropped so any session
// still alive loses access on the next check.
func (s *Service) SetActive(ctx context.Context, userID int64, active bool, actorID int64) error {
	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		return err
	}
	action := "user.deactivated"
	if active {
		action = "user.activated"
	}
	s.recordAudit(ctx, actorID, action, userID, nil)
	if err := s.invalidator.Invalidate(ctx); err != nil {
		return fmt.Errorf("user updated but cache invalidation failed: %w", err)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordMutation(ctx, actorID, action, "user", entityID, meta); err != nil && s.logger != nil {
		s.logger.Warn("audit user mutation", slog.Any("error", err))
	}
}
