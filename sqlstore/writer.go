package sqlstore

import (
	"context"
	"database/sql"
)

// AssignUserRoles replaces the role set of userID.
func (s *Store) AssignUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `delete from user_roles where user_id = $1`, userID); err != nil {
			return err
		}
		for _, roleID := range dedupIDs(roleIDs) {
			if _, err := tx.ExecContext(ctx, `insert into user_roles(user_id, role_id) values ($1, $2)`, userID, roleID); err != nil {
				return err
			}
		}
		return nil
	})
}

// RevokeUserRole removes one role from userID. Revoking an absent assignment is
// not an error.
func (s *Store) RevokeUserRole(ctx context.Context, userID, roleID int64) error {
	_, err := s.db.ExecContext(ctx, `delete from user_roles where user_id = $1 and role_id = $2`, userID, roleID)
	return err
}

// SetRoleMenus replaces the menu grants of roleID.
func (s *Store) SetRoleMenus(ctx context.Context, roleID int64, menuIDs []int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `delete from role_menus where role_id = $1`, roleID); err != nil {
			return err
		}
		for _, menuID := range dedupIDs(menuIDs) {
			if _, err := tx.ExecContext(ctx, `insert into role_menus(role_id, menu_id) values ($1, $2)`, roleID, menuID); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetRoleEnabled toggles a role.
func (s *Store) SetRoleEnabled(ctx context.Context, roleID int64, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `update roles set enabled = $2 where id = $1`, roleID, enabled)
	return err
}

// SetMenuEnabled toggles a menu node.
func (s *Store) SetMenuEnabled(ctx context.Context, menuID int64, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `update menus set enabled = $2 where id = $1`, menuID, enabled)
	return err
}

// DeleteMenu removes a leaf menu and its grants.
func (s *Store) DeleteMenu(ctx context.Context, menuID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var children int
		if err := tx.QueryRowContext(ctx, `select count(*) from menus where parent_id = $1`, menuID).Scan(&children); err != nil {
			return err
		}
		if children > 0 {
			return ErrMenuHasChildren
		}
		if _, err := tx.ExecContext(ctx, `delete from role_menus where menu_id = $1`, menuID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `delete from menus where id = $1`, menuID)
		return err
	})
}

// ListUserIDsByRole returns the principals holding roleID.
func (s *Store) ListUserIDsByRole(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `select user_id from user_roles where role_id = $1 order by user_id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func dedupIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
