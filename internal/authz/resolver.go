package authz

import (
	"context"
	"fmt"
)

// Resolver turns a user identity into a PermissionView, memoizing both the
// super-admin flag and the slug union in the versioned cache. A store or
// cache failure surfaces as an error; callers must treat that as deny.
type Resolver struct {
	store Store
	cache *VersionedCache
}

// NewResolver constructs a Resolver.
func NewResolver(store Store, cache *VersionedCache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

func superAdminSubject(userID int64) string {
	return fmt.Sprintf("user_is_super_admin_%d", userID)
}

func permissionsSubject(userID int64) string {
	return fmt.Sprintf("user_permissions_%d", userID)
}

// Resolve computes the effective permission view for the user. Super admins
// short-circuit: their slug set is never fetched because every check passes.
// A user with zero active roles resolves to an empty view, not an error.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (PermissionView, error) {
	var superAdmin bool
	err := r.cache.GetOrCompute(ctx, superAdminSubject(userID), &superAdmin, func(ctx context.Context) (any, error) {
		return r.store.HasRoleNamed(ctx, userID, SuperAdminRole)
	})
	if err != nil {
		return PermissionView{}, fmt.Errorf("authz: resolve super admin for user %d: %w", userID, err)
	}
	if superAdmin {
		return NewPermissionView(nil, true), nil
	}

	var slugs []string
	err = r.cache.GetOrCompute(ctx, permissionsSubject(userID), &slugs, func(ctx context.Context) (any, error) {
		roleIDs, err := r.store.ActiveRolesForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(roleIDs) == 0 {
			return []string{}, nil
		}
		return r.store.ActivePermissionsForRoles(ctx, roleIDs)
	})
	if err != nil {
		return PermissionView{}, fmt.Errorf("authz: resolve permissions for user %d: %w", userID, err)
	}
	return NewPermissionView(slugs, false), nil
}
