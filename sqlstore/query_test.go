package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrEthical07/goSSO/permission"
)

func TestRoleFilterBuild(t *testing.T) {
	q, args := RoleFilter{}.build()
	assert.Equal(t, roleSelect+" order by r.order_num, r.id", q)
	assert.Empty(t, args)

	q, args = RoleFilter{UserID: 7, IDs: []int64{1, 2}, EnabledOnly: true}.build()
	assert.Equal(t, roleSelect+" join user_roles ur on ur.role_id = r.id where ur.user_id = $1 and r.id in ($2, $3) and r.enabled order by r.order_num, r.id", q)
	assert.Equal(t, []any{int64(7), int64(1), int64(2)}, args)
}

func TestMenuFilterBuild(t *testing.T) {
	parent := int64(0)
	q, args := MenuFilter{
		RoleIDs:     []int64{10},
		ParentID:    &parent,
		Types:       []permission.MenuType{permission.MenuDirectory, permission.MenuPage},
		EnabledOnly: true,
	}.build()

	assert.Equal(t, menuSelect+" join role_menus rm on rm.menu_id = m.id where rm.role_id in ($1) and coalesce(m.parent_id, 0) = $2 and m.menu_type in ($3, $4) and m.enabled order by coalesce(m.parent_id, 0), m.order_num, m.id", q)
	assert.Equal(t, []any{int64(10), int64(0), "M", "C"}, args)
}
