package goSSO

import (
	"context"
	"errors"
	"strconv"
)

// Grants returns the cached roles and permissions of userID.
func (e *Engine) Grants(ctx context.Context, userID int64) (Grants, error) {
	if e == nil || e.permissions == nil {
		return Grants{}, ErrEngineNotReady
	}
	g, err := e.permissions.Grants(ctx, userID)
	if err != nil {
		return Grants{}, systemError(err)
	}
	return g, nil
}

// HasPermission reports whether userID holds perm. The wildcard permission
// satisfies any check.
func (e *Engine) HasPermission(ctx context.Context, userID int64, perm string) (bool, error) {
	g, err := e.Grants(ctx, userID)
	if err != nil {
		return false, err
	}
	return g.HasPermission(perm), nil
}

// RequirePermission returns [ErrPermissionDenied] unless userID holds perm.
func (e *Engine) RequirePermission(ctx context.Context, userID int64, perm string) error {
	ok, err := e.HasPermission(ctx, userID, perm)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}

// MenuTree returns the navigation tree of userID. It is resolved on every call.
func (e *Engine) MenuTree(ctx context.Context, userID int64) ([]*MenuNode, error) {
	if e == nil || e.permissions == nil {
		return nil, ErrEngineNotReady
	}
	tree, err := e.permissions.Resolver().ResolveMenuTree(ctx, userID)
	if err != nil {
		return nil, systemError(err)
	}
	return tree, nil
}

// InvalidatePermissions drops cached grants for userIDs, or for everyone when
// none are given.
func (e *Engine) InvalidatePermissions(ctx context.Context, userIDs ...int64) error {
	if e == nil || e.permissions == nil {
		return ErrEngineNotReady
	}
	var err error
	if len(userIDs) == 0 {
		err = e.permissions.InvalidateAll(ctx)
	} else {
		err = e.permissions.Invalidate(ctx, userIDs...)
	}
	if err != nil {
		e.metricInc(MetricPermissionInvalidationFailed)
		return errors.Join(ErrCacheInvalidation, err)
	}
	e.metricInc(MetricPermissionInvalidation)
	return nil
}

// mutationScope says which cached grants an RBAC mutation can affect.
type mutationScope struct {
	action string
	userID int64
	roleID int64
	menuID int64
}

// AssignUserRoles replaces the roles of userID.
func (e *Engine) AssignUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return e.mutate(ctx, mutationScope{action: "assign_user_roles", userID: userID}, func(w RBACWriter) error {
		return w.AssignUserRoles(ctx, userID, roleIDs)
	})
}

// RevokeUserRole removes one role from userID.
func (e *Engine) RevokeUserRole(ctx context.Context, userID, roleID int64) error {
	return e.mutate(ctx, mutationScope{action: "revoke_user_role", userID: userID}, func(w RBACWriter) error {
		return w.RevokeUserRole(ctx, userID, roleID)
	})
}

// SetRoleMenus replaces the menus granted to roleID.
func (e *Engine) SetRoleMenus(ctx context.Context, roleID int64, menuIDs []int64) error {
	return e.mutate(ctx, mutationScope{action: "set_role_menus", roleID: roleID}, func(w RBACWriter) error {
		return w.SetRoleMenus(ctx, roleID, menuIDs)
	})
}

// SetRoleEnabled enables or disables roleID.
func (e *Engine) SetRoleEnabled(ctx context.Context, roleID int64, enabled bool) error {
	return e.mutate(ctx, mutationScope{action: "set_role_enabled", roleID: roleID}, func(w RBACWriter) error {
		return w.SetRoleEnabled(ctx, roleID, enabled)
	})
}

// SetMenuEnabled enables or disables menuID.
func (e *Engine) SetMenuEnabled(ctx context.Context, menuID int64, enabled bool) error {
	return e.mutate(ctx, mutationScope{action: "set_menu_enabled", menuID: menuID}, func(w RBACWriter) error {
		return w.SetMenuEnabled(ctx, menuID, enabled)
	})
}

// DeleteMenu deletes menuID and its role grants.
func (e *Engine) DeleteMenu(ctx context.Context, menuID int64) error {
	return e.mutate(ctx, mutationScope{action: "delete_menu", menuID: menuID}, func(w RBACWriter) error {
		return w.DeleteMenu(ctx, menuID)
	})
}

// mutate runs write and then invalidates every cache entry it can affect, so
// a caller that sees success also sees fresh grants. A write that succeeded but
// could not be invalidated returns an error wrapping [ErrCacheInvalidation].
func (e *Engine) mutate(ctx context.Context, scope mutationScope, write func(RBACWriter) error) error {
	if e == nil || e.rbac == nil || e.permissions == nil {
		return ErrEngineNotReady
	}

	if err := write(e.rbac); err != nil {
		err = mapWriteError(err)
		e.emitAudit(ctx, auditEventPermissionChanged, false, scope.userID, "", "", err, scope.metadata)
		return err
	}

	err := e.invalidateFor(ctx, scope)
	if err != nil {
		e.logger.WithError(err).WithField("action", scope.action).Error("permission cache invalidation failed after write")
	}
	e.emitAudit(ctx, auditEventPermissionChanged, err == nil, scope.userID, "", "", err, scope.metadata)
	return err
}

func (e *Engine) invalidateFor(ctx context.Context, scope mutationScope) error {
	if e.config.Permission.Invalidation != InvalidateTargeted {
		return e.InvalidatePermissions(ctx)
	}

	switch {
	case scope.userID != 0:
		return e.InvalidatePermissions(ctx, scope.userID)
	case scope.roleID != 0:
		userIDs, err := e.rbac.ListUserIDsByRole(ctx, scope.roleID)
		if err != nil {
			e.logger.WithError(err).WithField("role_id", scope.roleID).Warn("role members unavailable, invalidating all grants")
			return e.InvalidatePermissions(ctx)
		}
		if len(userIDs) == 0 {
			return nil
		}
		return e.InvalidatePermissions(ctx, userIDs...)
	default:
		// Menu changes reach every role holding the menu; there is no cheap
		// reverse index, so drop everything.
		return e.InvalidatePermissions(ctx)
	}
}

func (s mutationScope) metadata() map[string]string {
	m := map[string]string{"action": s.action}
	if s.roleID != 0 {
		m["role_id"] = strconv.FormatInt(s.roleID, 10)
	}
	if s.menuID != 0 {
		m["menu_id"] = strconv.FormatInt(s.menuID, 10)
	}
	return m
}

func mapWriteError(err error) error {
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrAccountNotFound) {
		return err
	}
	return systemError(err)
}
