package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	goSSO "github.com/MrEthical07/goSSO"
)

type authResultContextKey struct{}

// ErrorWriter renders a rejected request. err is one of the goSSO sentinels.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// AuthResultFromContext returns the result stored by [Guard].
func AuthResultFromContext(ctx context.Context) (*goSSO.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goSSO.AuthResult)
	return res, ok
}

// WithAuthResult stores res as if [Guard] had validated it.
func WithAuthResult(ctx context.Context, res *goSSO.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// Guard rejects requests without a live session token in the Authorization
// header. onError may be nil, in which case a plain-text error is written.
func Guard(engine *goSSO.Engine, onError ErrorWriter) func(http.Handler) http.Handler {
	if onError == nil {
		onError = PlainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				onError(w, r, goSSO.ErrEngineNotReady)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				onError(w, r, goSSO.ErrTokenInvalid)
				return
			}

			ctx := ClientContext(r)
			res, err := engine.ValidateSession(ctx, token)
			if err != nil {
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthResult(ctx, res)))
		})
	}
}

// ClientContext carries the client IP and User-Agent of r into its context so
// sessions and audit events record them.
func ClientContext(r *http.Request) context.Context {
	ctx := r.Context()
	if ip := clientIP(r); ip != "" {
		ctx = goSSO.WithClientIP(ctx, ip)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = goSSO.WithUserAgent(ctx, ua)
	}
	return ctx
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

// StatusFor maps a goSSO error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, goSSO.ErrAccountNotFound),
		errors.Is(err, goSSO.ErrInvalidCredentials),
		errors.Is(err, goSSO.ErrTokenInvalid),
		errors.Is(err, goSSO.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, goSSO.ErrAccountBlocked),
		errors.Is(err, goSSO.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, goSSO.ErrTicketInvalid),
		errors.Is(err, goSSO.ErrClientInvalid):
		return http.StatusBadRequest
	case errors.Is(err, goSSO.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PlainError is the default [ErrorWriter].
func PlainError(w http.ResponseWriter, _ *http.Request, err error) {
	status := StatusFor(err)
	http.Error(w, http.StatusText(status), status)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
