// Package sqlstore is the Postgres-backed home of principals and RBAC data.
//
// [Store] implements goSSO.PrincipalStore, goSSO.RBACWriter and permission.Source
// over database/sql with the pgx stdlib driver. Queries that vary with their
// inputs are built by typed builders ([MenuFilter], [RoleFilter]) rather than
// string templates.
//
// Expected tables:
//
//	users(id bigint, account text, email text, phone text, password_hash text,
//	      status smallint, failed_attempts int, locked_at timestamptz null)
//	roles(id bigint, role_key text, role_name text, data_scope text, order_num int, enabled bool)
//	menus(id bigint, parent_id bigint null, menu_name text, path text, menu_type char(1),
//	      perms text, order_num int, enabled bool, visible bool)
//	user_roles(user_id bigint, role_id bigint)
//	role_menus(role_id bigint, menu_id bigint)
//
// A null menus.parent_id marks a root menu and reads back as parent 0.
package sqlstore
