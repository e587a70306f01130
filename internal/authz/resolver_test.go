package authz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scholaris/scholaris/internal/authz"
)

func TestResolveUnionsSlugsAcrossRoles(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, "Teacher")
	store.addRole(2, "Registrar")
	store.grantRole(42, 1)
	store.grantRole(42, 2)
	store.grantPermission(1, "view_students")
	store.grantPermission(1, "edit_students")
	store.grantPermission(2, "edit_students")
	store.grantPermission(2, "view_guardians")

	cache, _ := newTestCache(t)
	resolver := authz.NewResolver(store, cache)

	view, err := resolver.Resolve(context.Background(), 42)
	require.NoError(t, err)
	require.False(t, view.SuperAdmin)
	require.ElementsMatch(t, []string{"view_students", "edit_students", "view_guardians"}, view.Slugs)
	require.True(t, view.Has("view_students"))
	require.False(t, view.Has("delete_students"))
}

func TestResolveZeroRolesYieldsEmptyView(t *testing.T) {
	store := newFakeStore()
	cache, _ := newTestCache(t)
	resolver := authz.NewResolver(store, cache)

	view, err := resolver.Resolve(context.Background(), 7)
	require.NoError(t, err)
	require.False(t, view.SuperAdmin)
	require.Empty(t, view.Slugs)
	require.False(t, view.Has("view_students"))
}

func TestResolveSuperAdminShortCircuits(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, authz.SuperAdminRole)
	store.grantRole(5, 1)

	cache, _ := newTestCache(t)
	resolver := authz.NewResolver(store, cache)

	view, err := resolver.Resolve(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, view.SuperAdmin)
	require.True(t, view.Has("anything_at_all"))
	// The slug union is never fetched for super admins.
	require.Zero(t, store.roleCalls)
	require.Zero(t, store.permCalls)
}

func TestResolveCachesPerUser(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, "Teacher")
	store.grantRole(42, 1)
	store.grantPermission(1, "view_students")

	cache, _ := newTestCache(t)
	resolver := authz.NewResolver(store, cache)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, 42)
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, 1, store.roleCalls)
	require.Equal(t, 1, store.nameCalls)
}

func TestResolveSeesRevocationAfterBump(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, "Teacher")
	store.grantRole(42, 1)
	store.grantPermission(1, "view_students")

	cache, _ := newTestCache(t)
	resolver := authz.NewResolver(store, cache)
	ctx := context.Background()

	view, err := resolver.Resolve(ctx, 42)
	require.NoError(t, err)
	require.True(t, view.Has("view_students"))

	store.revokePermission(1, "view_students")

	// Without a bump the cached grant is still served.
	view, err = resolver.Resolve(ctx, 42)
	require.NoError(t, err)
	require.True(t, view.Has("view_students"))

	_, err = cache.Bump(ctx)
	require.NoError(t, err)

	view, err = resolver.Resolve(ctx, 42)
	require.NoError(t, err)
	require.False(t, view.Has("view_students"))
}

func TestResolveStoreErrorPropagatesAndIsNotCached(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, "Teacher")
	store.grantRole(42, 1)
	store.grantPermission(1, "view_students")

	cache, _ := newTestCache(t)
	resolver := authz.NewResolver(store, cache)
	ctx := context.Background()

	boom := errors.New("connection refused")
	store.failWith(boom)

	_, err := resolver.Resolve(ctx, 42)
	require.ErrorIs(t, err, boom)

	store.failWith(nil)
	view, err := resolver.Resolve(ctx, 42)
	require.NoError(t, err)
	require.True(t, view.Has("view_students"))
}

func TestResolveInactiveEdgeRevokes(t *testing.T) {
	store := newFakeStore()
	store.addRole(1, "Teacher")
	store.grantRole(42, 1)
	store.grantPermission(1, "view_students")

	cache, _ := newTestCache(t)
	resolver := authz.NewResolver(store, cache)
	ctx := context.Background()

	view, err := resolver.Resolve(ctx, 42)
	require.NoError(t, err)
	require.True(t, view.Has("view_students"))

	store.setEdgeActive(42, 1, false)
	_, err = cache.Bump(ctx)
	require.NoError(t, err)

	view, err = resolver.Resolve(ctx, 42)
	require.NoError(t, err)
	require.False(t, view.Has("view_students"))
	require.Empty(t, view.Slugs)
}
