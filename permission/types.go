package permission

import "context"

// SuperPermission is granted to holders of the super role and satisfies every
// permission check.
const SuperPermission = "*:*:*"

// MenuType classifies a menu node.
type MenuType string

const (
	// MenuDirectory groups other nodes and never carries a permission.
	MenuDirectory MenuType = "M"
	// MenuPage is a navigable page.
	MenuPage MenuType = "C"
	// MenuButton is an action inside a page.
	MenuButton MenuType = "F"
)

// Role is a named bundle of menu grants.
type Role struct {
	ID        int64  `json:"id"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	DataScope string `json:"dataScope"`
	OrderNum  int    `json:"orderNum"`
	Enabled   bool   `json:"enabled"`
}

// Menu is one node of the navigation/permission tree.
type Menu struct {
	ID         int64    `json:"id"`
	ParentID   int64    `json:"parentId"`
	Name       string   `json:"name"`
	Path       string   `json:"path,omitempty"`
	Type       MenuType `json:"type"`
	Permission string   `json:"permission,omitempty"`
	OrderNum   int      `json:"orderNum"`
	Enabled    bool     `json:"enabled"`
	Visible    bool     `json:"visible"`
}

// MenuNode is a Menu with its resolved children.
type MenuNode struct {
	Menu
	Children []*MenuNode `json:"children,omitempty"`
}

// Grants is the resolved, cacheable authorization state of one principal.
type Grants struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// Source reads the relational RBAC data the resolver joins over.
type Source interface {
	// ListUserRoles returns every role assigned to userID, enabled or not.
	ListUserRoles(ctx context.Context, userID int64) ([]Role, error)
	// ListRoleMenus returns the distinct menus granted to any of roleIDs.
	ListRoleMenus(ctx context.Context, roleIDs []int64) ([]Menu, error)
}

// AllMenuLister is implemented by sources that can list every menu. The resolver
// uses it to give the super role the full tree.
type AllMenuLister interface {
	ListAllMenus(ctx context.Context) ([]Menu, error)
}
