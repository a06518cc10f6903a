package sqlstore

import (
	"strconv"
	"strings"

	"github.com/MrEthical07/goSSO/permission"
)

// RoleFilter selects roles. Zero fields do not constrain.
type RoleFilter struct {
	UserID      int64
	IDs         []int64
	EnabledOnly bool
}

// MenuFilter selects menus. Zero fields do not constrain; RoleIDs restricts to
// menus granted to any of the roles.
type MenuFilter struct {
	RoleIDs     []int64
	IDs         []int64
	ParentID    *int64
	Types       []permission.MenuType
	EnabledOnly bool
}

// queryBuilder accumulates where-clauses and positional arguments.
type queryBuilder struct {
	sb     strings.Builder
	where  []string
	args   []any
	suffix string
}

func (q *queryBuilder) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *queryBuilder) in(column string, ids []int64) {
	ph := make([]string, len(ids))
	for i, id := range ids {
		ph[i] = q.arg(id)
	}
	q.where = append(q.where, column+" in ("+strings.Join(ph, ", ")+")")
}

func (q *queryBuilder) cond(c string) {
	q.where = append(q.where, c)
}

func (q *queryBuilder) String() string {
	out := q.sb.String()
	if len(q.where) > 0 {
		out += " where " + strings.Join(q.where, " and ")
	}
	return out + q.suffix
}

const roleSelect = `select distinct r.id, r.role_key, r.role_name, r.data_scope, r.order_num, r.enabled from roles r`

func (f RoleFilter) build() (string, []any) {
	q := &queryBuilder{}
	q.sb.WriteString(roleSelect)
	if f.UserID != 0 {
		q.sb.WriteString(" join user_roles ur on ur.role_id = r.id")
		q.cond("ur.user_id = " + q.arg(f.UserID))
	}
	if len(f.IDs) > 0 {
		q.in("r.id", f.IDs)
	}
	if f.EnabledOnly {
		q.cond("r.enabled")
	}
	q.suffix = " order by r.order_num, r.id"
	return q.String(), q.args
}

const menuSelect = `select distinct m.id, coalesce(m.parent_id, 0), m.menu_name, coalesce(m.path, ''), m.menu_type, coalesce(m.perms, ''), m.order_num, m.enabled, m.visible from menus m`

func (f MenuFilter) build() (string, []any) {
	q := &queryBuilder{}
	q.sb.WriteString(menuSelect)
	if len(f.RoleIDs) > 0 {
		q.sb.WriteString(" join role_menus rm on rm.menu_id = m.id")
		q.in("rm.role_id", f.RoleIDs)
	}
	if len(f.IDs) > 0 {
		q.in("m.id", f.IDs)
	}
	if f.ParentID != nil {
		q.cond("coalesce(m.parent_id, 0) = " + q.arg(*f.ParentID))
	}
	if len(f.Types) > 0 {
		ph := make([]string, len(f.Types))
		for i, t := range f.Types {
			ph[i] = q.arg(string(t))
		}
		q.cond("m.menu_type in (" + strings.Join(ph, ", ") + ")")
	}
	if f.EnabledOnly {
		q.cond("m.enabled")
	}
	q.suffix = " order by coalesce(m.parent_id, 0), m.order_num, m.id"
	return q.String(), q.args
}
