// Package authz implements role-based permission resolution with versioned
// cache invalidation and the request-time gate consumed by HTTP middleware.
package authz

// SuperAdminRole is the role name that bypasses every permission check.
const SuperAdminRole = "Super Admin"

// Deny reasons carried by Decision.
const (
	ReasonUnauthenticated   = "unauthenticated"
	ReasonResolutionError   = "resolution_error"
	ReasonMissingPermission = "missing_permission"
)

// PermissionView is the authorization-ready view of a single user: the union
// of permission slugs reachable through their active roles, plus the
// super-admin flag that short-circuits all checks.
type PermissionView struct {
	Slugs      []string
	SuperAdmin bool

	index map[string]struct{}
}

// NewPermissionView builds a view with an O(1) membership index.
func NewPermissionView(slugs []string, superAdmin bool) PermissionView {
	index := make(map[string]struct{}, len(slugs))
	for _, slug := range slugs {
		index[slug] = struct{}{}
	}
	return PermissionView{Slugs: slugs, SuperAdmin: superAdmin, index: index}
}

// Has reports whether the view contains the given permission slug.
func (v PermissionView) Has(slug string) bool {
	if v.SuperAdmin {
		return true
	}
	_, ok := v.index[slug]
	return ok
}

// Decision is the outcome of a gate check. On deny it carries enough
// structure for the caller to log an audit entry and render a 401/403 with
// the unmet permission list.
type Decision struct {
	Allowed  bool
	Reason   string
	UserID   int64
	Required []string
}
