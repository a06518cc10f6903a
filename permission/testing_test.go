package permission

import (
	"context"
	"sync"
	"sync/atomic"
)

// memSource is an in-memory Source keyed like the relational tables.
type memSource struct {
	mu        sync.Mutex
	roles     map[int64]Role
	menus     map[int64]Menu
	userRoles map[int64][]int64
	roleMenus map[int64][]int64
	calls     atomic.Int32
	gate      chan struct{}
}

func newMemSource() *memSource {
	return &memSource{
		roles:     make(map[int64]Role),
		menus:     make(map[int64]Menu),
		userRoles: make(map[int64][]int64),
		roleMenus: make(map[int64][]int64),
	}
}

func (s *memSource) ListUserRoles(_ context.Context, userID int64) ([]Role, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Role, 0)
	for _, id := range s.userRoles[userID] {
		out = append(out, s.roles[id])
	}
	return out, nil
}

func (s *memSource) ListRoleMenus(_ context.Context, roleIDs []int64) ([]Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int64]struct{})
	out := make([]Menu, 0)
	for _, rid := range roleIDs {
		for _, mid := range s.roleMenus[rid] {
			if _, ok := seen[mid]; ok {
				continue
			}
			seen[mid] = struct{}{}
			out = append(out, s.menus[mid])
		}
	}
	return out, nil
}

func (s *memSource) ListAllMenus(_ context.Context) ([]Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Menu, 0, len(s.menus))
	for _, m := range s.menus {
		out = append(out, m)
	}
	return out, nil
}

func (s *memSource) setUserRoles(userID int64, roleIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userRoles[userID] = roleIDs
}

// seedReportFixture: role 10 "report" grants menu 2 (report:view); role 20
// "viewer" grants menu 3 (dash:view); user 1 holds both.
func seedReportFixture() *memSource {
	s := newMemSource()
	s.roles[10] = Role{ID: 10, Key: "report", Enabled: true}
	s.roles[20] = Role{ID: 20, Key: "viewer", Enabled: true}
	s.menus[1] = Menu{ID: 1, Type: MenuDirectory, Enabled: true, Visible: true}
	s.menus[2] = Menu{ID: 2, ParentID: 1, Type: MenuPage, Permission: "report:view", Enabled: true, Visible: true}
	s.menus[3] = Menu{ID: 3, ParentID: 1, Type: MenuPage, Permission: "dash:view", Enabled: true, Visible: true}
	s.roleMenus[10] = []int64{1, 2}
	s.roleMenus[20] = []int64{1, 3}
	s.userRoles[1] = []int64{10, 20}
	return s
}
