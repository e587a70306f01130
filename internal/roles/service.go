package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scholaris/scholaris/internal/platform/httpx"
	"github.com/scholaris/scholaris/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (Role, error)
	Create(ctx context.Context, input CreateRoleInput) (Role, error)
	Update(ctx context.Context, id int64, input UpdateRoleInput) (Role, error)
	Deactivate(ctx context.Context, id int64) error
	ListPermissionIDs(ctx context.Context, roleID int64) ([]int64, error)
	CountActivePermissions(ctx context.Context, ids []int64) (int, error)
	ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64, actorID int64) error
}

// InvalidatorPort makes stale permission caches unreachable after a mutation.
type InvalidatorPort interface {
	Invalidate(ctx context.Context) error
}

// Service handles role business logic. Mutations that can change any user's
// effective permissions invalidate the caches exactly once after committing;
// rejected mutations never do.
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

// List returns all roles.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Get returns a role with its active permission IDs.
func (s *Service) Get(ctx context.Context, id int64) (Role, []int64, error) {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return Role{}, nil, err
	}
	ids, err := s.repo.ListPermissionIDs(ctx, id)
	if err != nil {
		return Role{}, nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return role, ids, nil
}

// Create registers a new role. A bare role grants nothing, so no
// invalidation is needed until permissions are synced onto it.
func (s *Service) Create(ctx context.Context, name, description string, actorID int64) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("role name required: %w", httpx.ErrValidation)
	}
	role, err := s.repo.Create(ctx, CreateRoleInput{Name: name, Description: strings.TrimSpace(description), CreatedBy: actorID})
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, actorID, "role.created", role.ID, map[string]any{"name": role.Name})
	return role, nil
}

// Update changes name and description. Renaming matters for authorization:
// the super admin bypass matches on role name, so a rename can grant or
// revoke the bypass and must invalidate.
func (s *Service) Update(ctx context.Context, id int64, name, description string, actorID int64) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("role name required: %w", httpx.ErrValidation)
	}
	role, err := s.repo.Update(ctx, id, UpdateRoleInput{Name: name, Description: strings.TrimSpace(description)})
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, actorID, "role.updated", role.ID, nil)
	if err := s.invalidator.Invalidate(ctx); err != nil {
		return Role{}, fmt.Errorf("role updated but cache invalidation failed: %w", err)
	}
	return role, nil
}

// Deactivate soft-deletes a role, revoking its permissions from every holder.
func (s *Service) Deactivate(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "role.deactivated", id, nil)
	if err := s.invalidator.Invalidate(ctx); err != nil {
		return fmt.Errorf("role deactivated but cache invalidation failed: %w", err)
	}
	return nil
}

// SyncPermissions replaces the role's permission set. Validation runs before
// any write: a sync referencing unknown or inactive permissions is rejected
// whole and leaves both the edges and the cache epoch untouched.
func (s *Service) SyncPermissions(ctx context.Context, roleID int64, permissionIDs []int64, actorID int64) error {
	if _, err := s.repo.Get(ctx, roleID); err != nil {
		return err
	}
	ids := dedupe(permissionIDs)
	if len(ids) > 0 {
		count, err := s.repo.CountActivePermissions(ctx, ids)
		if err != nil {
			return err
		}
		if count != len(ids) {
			return fmt.Errorf("sync references %d unknown or inactive permissions: %w", len(ids)-count, httpx.ErrValidation)
		}
	}
	if err := s.repo.ReplacePermissions(ctx, roleID, ids, actorID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "role.permissions_synced", roleID, map[string]any{"permission_ids": ids})
	if err := s.invalidator.Invalidate(ctx); err != nil {
		return fmt.Errorf("permissions synced but cache invalidation failed: %w", err)
	}
	return nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordMutation(ctx, actorID, action, "role", entityID, meta); err != nil && s.logger != nil {
		s.logger.Warn("audit role mutation", slog.Any("error", err))
	}
}
