package goSSO

import (
	"context"
	"testing"

	"github.com/MrEthical07/goSSO/permission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationThenFreshPermissions(t *testing.T) {
	for _, strategy := range []string{InvalidateAll, InvalidateTargeted} {
		for _, backend := range []string{CacheBackendRedis, CacheBackendLocal} {
			t.Run(strategy+"/"+backend, func(t *testing.T) {
				env := testEngine(t, func(c *Config) {
					c.Permission.Invalidation = strategy
					c.Permission.CacheBackend = backend
				})
				ctx := context.Background()

				g, err := env.engine.Grants(ctx, 1)
				require.NoError(t, err)
				assert.Equal(t, []string{"report:view"}, g.Permissions)

				require.NoError(t, env.engine.AssignUserRoles(ctx, 1, []int64{10, 20}))
				g, err = env.engine.Grants(ctx, 1)
				require.NoError(t, err)
				assert.Equal(t, []string{"report:edit", "report:view"}, g.Permissions)

				require.NoError(t, env.engine.SetRoleMenus(ctx, 20, nil))
				g, err = env.engine.Grants(ctx, 1)
				require.NoError(t, err)
				assert.Equal(t, []string{"report:view"}, g.Permissions)

				require.NoError(t, env.engine.SetRoleEnabled(ctx, 10, false))
				g, err = env.engine.Grants(ctx, 1)
				require.NoError(t, err)
				assert.Equal(t, []string{"editor"}, g.Roles)
				assert.Empty(t, g.Permissions)
			})
		}
	}
}

func TestMenuMutationInvalidatesEveryone(t *testing.T) {
	env := testEngine(t, func(c *Config) {
		c.Permission.Invalidation = InvalidateTargeted
	})
	ctx := context.Background()

	g, err := env.engine.Grants(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"report:edit"}, g.Permissions)

	require.NoError(t, env.engine.SetMenuEnabled(ctx, 3, false))

	g, err = env.engine.Grants(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, g.Permissions)
}

func TestTargetedRoleMutationFallsBackWhenMembersUnknown(t *testing.T) {
	env := testEngine(t, func(c *Config) {
		c.Permission.Invalidation = InvalidateTargeted
	})
	ctx := context.Background()

	_, err := env.engine.Grants(ctx, 1)
	require.NoError(t, err)

	env.rbac.listErr = errBoom
	require.NoError(t, env.engine.SetRoleEnabled(ctx, 10, false))

	g, err := env.engine.Grants(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, g.Roles)
}

func TestDeleteMenuWithChildrenConflicts(t *testing.T) {
	env := testEngine(t, nil)

	err := env.engine.DeleteMenu(context.Background(), 1)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, CodeConflict, ErrorCode(err))

	require.NoError(t, env.engine.DeleteMenu(context.Background(), 3))
}

func TestMutationInvalidationFailure(t *testing.T) {
	env := testEngine(t, nil)
	ctx := context.Background()

	env.mr.Close()

	err := env.engine.RevokeUserRole(ctx, 1, 10)
	require.ErrorIs(t, err, ErrCacheInvalidation)
	assert.Equal(t, uint64(1), env.engine.MetricsSnapshot().Counters[MetricPermissionInvalidationFailed])

	ev := env.waitAudit(t, auditEventPermissionChanged)
	assert.False(t, ev.Success)
	assert.Equal(t, "revoke_user_role", ev.Metadata["action"])
}

func TestHasAndRequirePermission(t *testing.T) {
	env := testEngine(t, nil)
	ctx := context.Background()

	ok, err := env.engine.HasPermission(ctx, 1, "report:view")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, env.engine.RequirePermission(ctx, 1, "report:view"))
	assert.ErrorIs(t, env.engine.RequirePermission(ctx, 1, "report:edit"), ErrPermissionDenied)
}

func TestSuperRoleHoldsEverything(t *testing.T) {
	env := testEngine(t, nil)
	ctx := context.Background()
	env.rbac.roles[99] = permission.Role{ID: 99, Key: "admin", Enabled: true}

	require.NoError(t, env.engine.AssignUserRoles(ctx, 2, []int64{99}))

	ok, err := env.engine.HasPermission(ctx, 2, "anything:at:all")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMenuTree(t *testing.T) {
	env := testEngine(t, nil)

	tree, err := env.engine.MenuTree(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, int64(1), tree[0].ID)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, int64(2), tree[0].Children[0].ID)
	assert.Equal(t, int64(1), tree[0].Children[0].ParentID)
}

func TestPermissionCacheMetrics(t *testing.T) {
	env := testEngine(t, nil)
	ctx := context.Background()

	_, err := env.engine.Grants(ctx, 1)
	require.NoError(t, err)
	_, err = env.engine.Grants(ctx, 1)
	require.NoError(t, err)

	snap := env.engine.MetricsSnapshot()
	assert.Equal(t, uint64(1), snap.Counters[MetricPermissionCacheMiss])
	assert.Equal(t, uint64(1), snap.Counters[MetricPermissionCacheHit])
}
