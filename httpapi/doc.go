// Package httpapi serves the SSO authority over HTTP.
//
// Every response is a JSON envelope {code, message, data} where code is the
// stable goSSO wire code ([goSSO.ErrorCode]) and the HTTP status follows
// [middleware.StatusFor]. Routes:
//
//	POST /auth               login, optionally issuing a service ticket
//	GET  /check-ticket       redeem a ticket (always 200; data.valid reports the outcome)
//	GET  /permissions        grants behind a redeemed ticket
//	POST /refresh-ticket     renew the session behind a redeemed ticket
//	POST /single-logout      end the session behind a redeemed ticket
//	GET  /session-status     is the session behind a redeemed ticket alive
//	POST /logout             end the caller's session (bearer)
//	POST /renew              renew the caller's session (bearer)
//	GET  /me/menus           caller's menu tree (bearer)
//	GET  /me/permissions     caller's grants (bearer)
//	GET  /healthz            Redis reachability
//	GET  /metrics            Prometheus exposition, when configured
//
// POST /auth is throttled per client IP.
package httpapi
