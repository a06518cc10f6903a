package permission

import (
	"context"
	"sort"
)

// Resolver derives roles, permissions and the menu tree from a [Source]. It holds
// no state of its own and is safe for concurrent use.
type Resolver struct {
	source       Source
	superRoleKey string
}

// NewResolver creates a Resolver. An empty superRoleKey disables the super role.
func NewResolver(source Source, superRoleKey string) *Resolver {
	return &Resolver{source: source, superRoleKey: superRoleKey}
}

// Resolve returns roles and permissions for userID in one pass over the source.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (Grants, error) {
	roles, err := r.enabledRoles(ctx, userID)
	if err != nil {
		return Grants{}, err
	}

	perms, err := r.permissionsFor(ctx, roles)
	if err != nil {
		return Grants{}, err
	}

	return Grants{Roles: roleKeys(roles), Permissions: perms}, nil
}

// ResolveRoles returns the sorted keys of the enabled roles assigned to userID.
func (r *Resolver) ResolveRoles(ctx context.Context, userID int64) ([]string, error) {
	roles, err := r.enabledRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return roleKeys(roles), nil
}

// ResolvePermissions returns the sorted permission strings reachable from userID's
// enabled roles through enabled, visible pages and buttons.
func (r *Resolver) ResolvePermissions(ctx context.Context, userID int64) ([]string, error) {
	roles, err := r.enabledRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.permissionsFor(ctx, roles)
}

// ResolveMenuTree returns the enabled menus reachable from userID's enabled roles,
// arranged as a tree.
func (r *Resolver) ResolveMenuTree(ctx context.Context, userID int64) ([]*MenuNode, error) {
	roles, err := r.enabledRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return []*MenuNode{}, nil
	}

	var menus []Menu
	if lister, ok := r.source.(AllMenuLister); ok && r.isSuper(roles) {
		menus, err = lister.ListAllMenus(ctx)
	} else {
		menus, err = r.source.ListRoleMenus(ctx, roleIDs(roles))
	}
	if err != nil {
		return nil, err
	}

	enabled := menus[:0:0]
	for _, m := range menus {
		if m.Enabled {
			enabled = append(enabled, m)
		}
	}

	return BuildMenuTree(enabled), nil
}

func (r *Resolver) enabledRoles(ctx context.Context, userID int64) ([]Role, error) {
	all, err := r.source.ListUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(all))
	out := make([]Role, 0, len(all))
	for _, role := range all {
		if !role.Enabled {
			continue
		}
		if _, dup := seen[role.ID]; dup {
			continue
		}
		seen[role.ID] = struct{}{}
		out = append(out, role)
	}
	return out, nil
}

func (r *Resolver) permissionsFor(ctx context.Context, roles []Role) ([]string, error) {
	if len(roles) == 0 {
		return []string{}, nil
	}
	if r.isSuper(roles) {
		return []string{SuperPermission}, nil
	}

	menus, err := r.source.ListRoleMenus(ctx, roleIDs(roles))
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{})
	for _, m := range menus {
		if !m.Enabled || !m.Visible || m.Permission == "" {
			continue
		}
		if m.Type == MenuDirectory {
			continue
		}
		set[m.Permission] = struct{}{}
	}

	return sortedKeys(set), nil
}

func (r *Resolver) isSuper(roles []Role) bool {
	if r.superRoleKey == "" {
		return false
	}
	for _, role := range roles {
		if role.Key == r.superRoleKey {
			return true
		}
	}
	return false
}

func roleIDs(roles []Role) []int64 {
	ids := make([]int64, len(roles))
	for i, role := range roles {
		ids[i] = role.ID
	}
	return ids
}

func roleKeys(roles []Role) []string {
	set := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if role.Key != "" {
			set[role.Key] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
