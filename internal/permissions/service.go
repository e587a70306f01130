package permissions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scholaris/scholaris/internal/platform/httpx"
	"github.com/scholaris/scholaris/internal/shared"
)

// RepositoryPort defines data access methods for permissions.
type RepositoryPort interface {
	List(ctx context.Context) ([]Permission, error)
	Get(ctx context.Context, id int64) (Permission, error)
	Create(ctx context.Context, input CreatePermissionInput) (Permission, error)
	Update(ctx context.Context, id int64, input UpdatePermissionInput) (Permission, error)
	Deactivate(ctx context.Context, id int64) error
}

// InvalidatorPort makes stale permission caches unreachable after a mutation.
type InvalidatorPort interface {
	Invalidate(ctx context.Context) error
}

// Service handles permission catalogue business logic. Every successful
// mutation invalidates the permission caches exactly once; rejected input
// never does.
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

// List returns the whole catalogue.
func (s *Service) List(ctx context.Context) ([]Permission, error) {
	return s.repo.List(ctx)
}

// Create registers a new permission, deriving its slug from the name.
func (s *Service) Create(ctx context.Context, name, module, description string, actorID int64) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, fmt.Errorf("permission name required: %w", httpx.ErrValidation)
	}
	slug := Slugify(name)
	if slug == "" {
		return Permission{}, fmt.Errorf("permission name %q yields an empty slug: %w", name, httpx.ErrValidation)
	}
	perm, err := s.repo.Create(ctx, CreatePermissionInput{
		Name:        name,
		Slug:        slug,
		Module:      strings.TrimSpace(module),
		Description: strings.TrimSpace(description),
		CreatedBy:   actorID,
	})
	if err != nil {
		return Permission{}, err
	}
	s.recordAudit(ctx, actorID, "permission.created", perm.ID, map[string]any{"slug": perm.Slug})
	if err := s.invalidator.Invalidate(ctx); err != nil {
		return Permission{}, fmt.Errorf("permission created but cache invalidation failed: %w", err)
	}
	return perm, nil
}

// Update changes the display fields of a permission.
func (s *Service) Update(ctx context.Context, id int64, name, module, description string, actorID int64) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, fmt.Errorf("permission name required: %w", httpx.ErrValidation)
	}
	perm, err := s.repo.Update(ctx, id, UpdatePermissionInput{
		Name:        name,
		Module:      strings.TrimSpace(module),
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return Permission{}, err
	}
	s.recordAudit(ctx, actorID, "permission.updated", perm.ID, nil)
	if err := s.invalidator.Invalidate(ctx); err != nil {
		return Permission{}, fmt.Errorf("permission updated but cache invalidation failed: %w", err)
	}
	return perm, nil
}

// Deactivate soft-deletes a permission. Role edges keep pointing at it but it
// stops contributing its slug to any resolved set.
func (s *Service) Deactivate(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "permission.deactivated", id, nil)
	if err := s.invalidator.Invalidate(ctx); err != nil {
		return fmt.Errorf("permission deactivated but cache invalidation failed: %w", err)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordMutation(ctx, actorID, action, "permission", entityID, meta); err != nil && s.logger != nil {
		s.logger.Warn("audit permission mutation", slog.Any("error", err))
	}
}
