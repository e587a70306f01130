package permissions

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scholaris/scholaris/internal/platform/httpx"
)

type memoryRepo struct {
	perms  map[int64]Permission
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{perms: make(map[int64]Permission), nextID: 1}
}

func (m *memoryRepo) List(ctx context.Context) ([]Permission, error) {
	out := make([]Permission, 0, len(m.perms))
	for _, p := range m.perms {
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Permission, error) {
	p, ok := m.perms[id]
	if !ok {
		return Permission{}, fmt.Errorf("permission %d: %w", id, httpx.ErrNotFound)
	}
	return p, nil
}

func (m *memoryRepo) Create(ctx context.Context, input CreatePermissionInput) (Permission, error) {
	for _, p := range m.perms {
		if p.Slug == input.Slug {
			return Permission{}, fmt.Errorf("permission %q: %w", input.Name, httpx.ErrDuplicate)
		}
	}
	p := Permission{
		ID:          m.nextID,
		Name:        input.Name,
		Slug:        input.Slug,
		Module:      input.Module,
		Description: input.Description,
		IsActive:    true,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.perms[p.ID] = p
	m.nextID++
	return p, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, input UpdatePermissionInput) (Permission, error) {
	p, ok := m.perms[id]
	if !ok {
		return Permission{}, fmt.Errorf("permission %d: %w", id, httpx.ErrNotFound)
	}
	p.Name = input.Name
	p.Module = input.Module
	p.Description = input.Description
	p.UpdatedAt = time.Now()
	m.perms[id] = p
	return p, nil
}

func (m *memoryRepo) Deactivate(ctx context.Context, id int64) error {
	p, ok := m.perms[id]
	if !ok {
		return fmt.Errorf("permission %d: %w", id, httpx.ErrNotFound)
	}
	p.IsActive = false
	m.perms[id] = p
	return nil
}

type countingInvalidator struct {
	calls int
	err   error
}

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.calls++
	return c.err
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *countingInvalidator) {
	t.Helper()
	repo := newMemoryRepo()
	inv := &countingInvalidator{}
	return NewService(repo, inv, nil, nil), repo, inv
}

func TestServiceCreateDerivesSlugAndInvalidatesOnce(t *testing.T) {
	svc, _, inv := newTestService(t)

	perm, err := svc.Create(context.Background(), "  View Students ", "Students", "list students", 7)
	require.NoError(t, err)
	require.Equal(t, "View Students", perm.Name)
	require.Equal(t, "view_students", perm.Slug)
	require.Equal(t, int64(7), perm.CreatedBy)
	require.True(t, perm.IsActive)
	require.Equal(t, 1, inv.calls)
}

func TestServiceCreateRejectsEmptyNameWithoutInvalidation(t *testing.T) {
	svc, _, inv := newTestService(t)

	_, err := svc.Create(context.Background(), "   ", "Students", "", 1)
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Zero(t, inv.calls)

	_, err = svc.Create(context.Background(), "!!!", "Students", "", 1)
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Zero(t, inv.calls)
}

func TestServiceCreateDuplicateSlugNoInvalidation(t *testing.T) {
	svc, _, inv := newTestService(t)

	_, err := svc.Create(context.Background(), "View Students", "Students", "", 1)
	require.NoError(t, err)
	require.Equal(t, 1, inv.calls)

	_, err = svc.Create(context.Background(), "view students", "Students", "", 1)
	require.ErrorIs(t, err, httpx.ErrDuplicate)
	require.Equal(t, 1, inv.calls)
}

func TestServiceUpdateKeepsSlugAndInvalidates(t *testing.T) {
	svc, repo, inv := newTestService(t)

	created, err := svc.Create(context.Background(), "View Students", "Students", "", 1)
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, "View All Students", "Students", "renamed", 2)
	require.NoError(t, err)
	require.Equal(t, "View All Students", updated.Name)
	require.Equal(t, "view_students", updated.Slug)
	require.Equal(t, 2, inv.calls)

	stored, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "View All Students", stored.Name)
}

func TestServiceUpdateMissingPermission(t *testing.T) {
	svc, _, inv := newTestService(t)

	_, err := svc.Update(context.Background(), 99, "Whatever", "", "", 1)
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Zero(t, inv.calls)
}

func TestServiceDeactivateInvalidatesOnce(t *testing.T) {
	svc, repo, inv := newTestService(t)

	created, err := svc.Create(context.Background(), "Delete Students", "Students", "", 1)
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), created.ID, 1))
	require.Equal(t, 2, inv.calls)

	stored, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.False(t, stored.IsActive)

	err = svc.Deactivate(context.Background(), 404, 1)
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Equal(t, 2, inv.calls)
}

func TestServiceSurfacesInvalidationFailure(t *testing.T) {
	repo := newMemoryRepo()
	inv := &countingInvalidator{err: errors.New("redis down")}
	svc := NewService(repo, inv, nil, nil)

	_, err := svc.Create(context.Background(), "View Students", "Students", "", 1)
	require.Error(t, err)
	require.Equal(t, 1, inv.calls)
}
