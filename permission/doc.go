// Package permission resolves what an authenticated principal may do.
//
// # Resolution
//
// [Resolver] joins user→role→menu through a [Source]. Only enabled roles count.
// Permission strings come from enabled, visible pages and buttons; the menu tree
// from every enabled node. Holders of the configured super role get
// [SuperPermission], which satisfies every check.
//
// # Caching
//
// [CachedResolver] fronts the resolver with a [Cache]: [RedisCache] for shared
// deployments, [LocalCache] for a single node. A cache failure never fails a
// lookup. Callers that mutate RBAC data must invalidate before reporting success.
//
// # What this package must NOT do
//
//   - Import goSSO, session, or ticket.
//   - Write RBAC data; mutations belong to the caller's store.
package permission
