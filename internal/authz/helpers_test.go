package authz_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/scholaris/scholaris/internal/authz"
)

// fakeStore is an in-memory Store honouring the same active-flag semantics as
// the SQL implementation.
type fakeStore struct {
	mu sync.Mutex

	activeRoles   map[int64]bool            // roleID -> role is_active
	roleNames     map[int64]string          // roleID -> name
	userRoles     map[int64]map[int64]bool  // userID -> roleID -> edge is_active
	rolePerms     map[int64]map[string]bool // roleID -> slug -> edge+permission active
	inactiveUsers map[int64]bool            // userID -> account deactivated
	err           error

	roleCalls int
	permCalls int
	nameCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		activeRoles:   make(map[int64]bool),
		roleNames:     make(map[int64]string),
		userRoles:     make(map[int64]map[int64]bool),
		rolePerms:     make(map[int64]map[string]bool),
		inactiveUsers: make(map[int64]bool),
	}
}

func (f *fakeStore) addRole(id int64, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activeRoles[id] = true
	f.roleNames[id] = name
}

func (f *fakeStore) setRoleActive(id int64, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activeRoles[id] = active
}

func (f *fakeStore) grantRole(userID, roleID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userRoles[userID] == nil {
		f.userRoles[userID] = make(map[int64]bool)
	}
	f.userRoles[userID][roleID] = true
}

func (f *fakeStore) setEdgeActive(userID, roleID int64, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userRoles[userID] == nil {
		f.userRoles[userID] = make(map[int64]bool)
	}
	f.userRoles[userID][roleID] = active
}

func (f *fakeStore) setUserActive(userID int64, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inactiveUsers[userID] = !active
}

func (f *fakeStore) grantPermission(roleID int64, slug string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rolePerms[roleID] == nil {
		f.rolePerms[roleID] = make(map[string]bool)
	}
	f.rolePerms[roleID][slug] = true
}

func (f *fakeStore) revokePermission(roleID int64, slug string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rolePerms[roleID] != nil {
		f.rolePerms[roleID][slug] = false
	}
}

func (f *fakeStore) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeStore) ActiveRolesForUser(ctx context.Context, userID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleCalls++
	if f.err != nil {
		return nil, f.err
	}
	if f.inactiveUsers[userID] {
		return nil, nil
	}
	var ids []int64
	for roleID, edgeActive := range f.userRoles[userID] {
		if edgeActive && f.activeRoles[roleID] {
			ids = append(ids, roleID)
		}
	}
	return ids, nil
}

func (f *fakeStore) ActivePermissionsForRoles(ctx context.Context, roleIDs []int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permCalls++
	if f.err != nil {
		return nil, f.err
	}
	seen := make(map[string]struct{})
	var slugs []string
	for _, roleID := range roleIDs {
		if !f.activeRoles[roleID] {
			continue
		}
		for slug, active := range f.rolePerms[roleID] {
			if !active {
				continue
			}
			if _, ok := seen[slug]; ok {
				continue
			}
			seen[slug] = struct{}{}
			slugs = append(slugs, slug)
		}
	}
	return slugs, nil
}

func (f *fakeStore) HasRoleNamed(ctx context.Context, userID int64, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nameCalls++
	if f.err != nil {
		return false, f.err
	}
	// Deactivated accounts match nothing; role and edge active flags are
	// ignored, matching the SQL store.
	if f.inactiveUsers[userID] {
		return false, nil
	}
	for roleID := range f.userRoles[userID] {
		if f.roleNames[roleID] == name {
			return true, nil
		}
	}
	return false, nil
}

func newTestCache(t *testing.T) (*authz.VersionedCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return authz.NewVersionedCache(client, time.Hour), mr
}
