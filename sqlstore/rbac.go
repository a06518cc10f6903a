package sqlstore

import (
	"context"
	"database/sql"

	"github.com/MrEthical07/goSSO/permission"
)

// ListUserRoles returns every role assigned to userID.
func (s *Store) ListUserRoles(ctx context.Context, userID int64) ([]permission.Role, error) {
	return s.ListRoles(ctx, RoleFilter{UserID: userID})
}

// ListRoleMenus returns the distinct menus granted to any of roleIDs.
func (s *Store) ListRoleMenus(ctx context.Context, roleIDs []int64) ([]permission.Menu, error) {
	if len(roleIDs) == 0 {
		return []permission.Menu{}, nil
	}
	return s.ListMenus(ctx, MenuFilter{RoleIDs: roleIDs})
}

// ListAllMenus returns every menu.
func (s *Store) ListAllMenus(ctx context.Context) ([]permission.Menu, error) {
	return s.ListMenus(ctx, MenuFilter{})
}

// ListRoles runs a RoleFilter.
func (s *Store) ListRoles(ctx context.Context, f RoleFilter) ([]permission.Role, error) {
	query, args := f.build()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]permission.Role, 0)
	for rows.Next() {
		var (
			r         permission.Role
			dataScope sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Key, &r.Name, &dataScope, &r.OrderNum, &r.Enabled); err != nil {
			return nil, err
		}
		r.DataScope = dataScope.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListMenus runs a MenuFilter.
func (s *Store) ListMenus(ctx context.Context, f MenuFilter) ([]permission.Menu, error) {
	query, args := f.build()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]permission.Menu, 0)
	for rows.Next() {
		var (
			m        permission.Menu
			menuType string
			parentID sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &parentID, &m.Name, &m.Path, &menuType, &m.Permission, &m.OrderNum, &m.Enabled, &m.Visible); err != nil {
			return nil, err
		}
		m.ParentID = parentID.Int64
		m.Type = permission.MenuType(menuType)
		out = append(out, m)
	}
	return out, rows.Err()
}
