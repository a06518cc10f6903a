package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	goSSO "github.com/MrEthical07/goSSO"
	"github.com/MrEthical07/goSSO/permission"
	"github.com/hashicorp/go-bexpr"
)

// RequirePermission admits a request when expr holds for the grants [Guard]
// resolved. Holders of the wildcard permission are always admitted. It must be
// mounted behind Guard; a request without an auth result is rejected.
//
// An expression that does not compile is a programming error and is returned
// here rather than denying every request at run time.
func RequirePermission(expr string, onError ErrorWriter) (func(http.Handler) http.Handler, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, errors.New("empty access expression")
	}
	evaluator, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("compile access expression %q: %w", expr, err)
	}
	return requireFunc(evaluator, onError), nil
}

// RequireAnyRole admits a request holding at least one of roles.
func RequireAnyRole(onError ErrorWriter, roles ...string) (func(http.Handler) http.Handler, error) {
	if len(roles) == 0 {
		return nil, errors.New("no roles given")
	}
	terms := make([]string, 0, len(roles))
	for _, role := range roles {
		terms = append(terms, strconv.Quote(role)+" in roles")
	}
	return RequirePermission(strings.Join(terms, " or "), onError)
}

func requireFunc(evaluator *bexpr.Evaluator, onError ErrorWriter) func(http.Handler) http.Handler {
	if onError == nil {
		onError = PlainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok || res == nil {
				onError(w, r, goSSO.ErrTokenInvalid)
				return
			}
			if !allowed(evaluator, res) {
				onError(w, r, goSSO.ErrPermissionDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func allowed(evaluator *bexpr.Evaluator, res *goSSO.AuthResult) bool {
	grants := permission.Grants{Roles: res.Roles, Permissions: res.Permissions}
	if grants.HasPermission(permission.SuperPermission) {
		return true
	}

	// Evaluation errors (unknown selectors) deny.
	ok, err := evaluator.Evaluate(map[string]any{
		"roles":       nonNil(res.Roles),
		"permissions": nonNil(res.Permissions),
		"user_id":     res.UserID,
	})
	return err == nil && ok
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
