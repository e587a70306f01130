package roles

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/scholaris/scholaris/internal/authz"
	"github.com/scholaris/scholaris/internal/platform/httpx"
)

type memoryRepo struct {
	roles       map[int64]Role
	activePerms map[int64]bool
	edges       map[int64][]int64
	nextID      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		roles:       make(map[int64]Role),
		activePerms: make(map[int64]bool),
		edges:       make(map[int64][]int64),
		nextID:      1,
	}
}

func (m *memoryRepo) List(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, fmt.Errorf("role %d: %w", id, httpx.ErrNotFound)
	}
	return role, nil
}

func (m *memoryRepo) Create(ctx context.Context, input CreateRoleInput) (Role, error) {
	for _, r := range m.roles {
		if r.Name == input.Name {
			return Role{}, fmt.Errorf("role %q: %w", input.Name, httpx.ErrDuplicate)
		}
	}
	role := Role{
		ID:          m.nextID,
		Name:        input.Name,
		Description: input.Description,
		IsActive:    true,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.roles[role.ID] = role
	m.nextID++
	return role, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, input UpdateRoleInput) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, fmt.Errorf("role %d: %w", id, httpx.ErrNotFound)
	}
	role.Name = input.Name
	role.Description = input.Description
	role.UpdatedAt = time.Now()
	m.roles[id] = role
	return role, nil
}

func (m *memoryRepo) Deactivate(ctx context.Context, id int64) error {
	role, ok := m.roles[id]
	if !ok {
		return fmt.Errorf("role %d: %w", id, httpx.ErrNotFound)
	}
	role.IsActive = false
	m.roles[id] = role
	return nil
}

func (m *memoryRepo) ListPermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	return m.edges[roleID], nil
}

func (m *memoryRepo) CountActivePermissions(ctx context.Context, ids []int64) (int, error) {
	count := 0
	for _, id := range ids {
		if m.activePerms[id] {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64, actorID int64) error {
	m.edges[roleID] = append([]int64(nil), permissionIDs...)
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *authz.VersionedCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := authz.NewVersionedCache(client, time.Hour)
	inv := authz.NewInvalidator(cache, nil, slog.Default())
	repo := newMemoryRepo()
	return NewService(repo, inv, nil, nil), repo, cache
}

func epochOf(t *testing.T, cache *authz.VersionedCache) int64 {
	t.Helper()
	epoch, err := cache.Epoch(context.Background())
	require.NoError(t, err)
	return epoch
}

func TestSyncPermissionsBumpsEpochOnce(t *testing.T) {
	svc, repo, cache := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "Teacher", "classroom staff", 1)
	require.NoError(t, err)
	repo.activePerms[10] = true
	repo.activePerms[11] = true

	before := epochOf(t, cache)
	require.NoError(t, svc.SyncPermissions(ctx, role.ID, []int64{10, 11, 10}, 1))
	require.Equal(t, before+1, epochOf(t, cache))

	ids, err := repo.ListPermissionIDs(ctx, role.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{10, 11}, ids)
}

func TestSyncPermissionsRejectsUnknownIDsWithoutBump(t *testing.T) {
	svc, repo, cache := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "Teacher", "", 1)
	require.NoError(t, err)
	repo.activePerms[10] = true

	before := epochOf(t, cache)
	err = svc.SyncPermissions(ctx, role.ID, []int64{10, 999}, 1)
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Equal(t, before, epochOf(t, cache))
	require.Empty(t, repo.edges[role.ID])
}

func TestSyncPermissionsRejectsInactivePermission(t *testing.T) {
	svc, repo, cache := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "Registrar", "", 1)
	require.NoError(t, err)
	repo.activePerms[10] = false

	before := epochOf(t, cache)
	err = svc.SyncPermissions(ctx, role.ID, []int64{10}, 1)
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Equal(t, before, epochOf(t, cache))
}

func TestSyncPermissionsUnknownRole(t *testing.T) {
	svc, _, cache := newTestService(t)

	before := epochOf(t, cache)
	err := svc.SyncPermissions(context.Background(), 42, []int64{1}, 1)
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Equal(t, before, epochOf(t, cache))
}

func TestSyncPermissionsEmptySetClearsRole(t *testing.T) {
	svc, repo, cache := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "Teacher", "", 1)
	require.NoError(t, err)
	repo.activePerms[10] = true
	require.NoError(t, svc.SyncPermissions(ctx, role.ID, []int64{10}, 1))

	before := epochOf(t, cache)
	require.NoError(t, svc.SyncPermissions(ctx, role.ID, []int64{}, 1))
	require.Equal(t, before+1, epochOf(t, cache))
	require.Empty(t, repo.edges[role.ID])
}

func TestCreateRoleDoesNotBump(t *testing.T) {
	svc, _, cache := newTestService(t)

	before := epochOf(t, cache)
	_, err := svc.Create(context.Background(), "Librarian", "", 1)
	require.NoError(t, err)
	require.Equal(t, before, epochOf(t, cache))
}

func TestRenameRoleBumps(t *testing.T) {
	svc, _, cache := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "Admin", "", 1)
	require.NoError(t, err)

	before := epochOf(t, cache)
	_, err = svc.Update(ctx, role.ID, "Super Admin", "", 1)
	require.NoError(t, err)
	require.Equal(t, before+1, epochOf(t, cache))
}

func TestDeactivateRoleBumps(t *testing.T) {
	svc, repo, cache := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "Teacher", "", 1)
	require.NoError(t, err)

	before := epochOf(t, cache)
	require.NoError(t, svc.Deactivate(ctx, role.ID, 1))
	require.Equal(t, before+1, epochOf(t, cache))
	require.False(t, repo.roles[role.ID].IsActive)
}

func TestCreateRoleValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "  ", "", 1)
	require.ErrorIs(t, err, httpx.ErrValidation)
}
