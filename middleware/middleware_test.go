package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	goSSO "github.com/MrEthical07/goSSO"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func serveWith(t *testing.T, mw func(http.Handler) http.Handler, res *goSSO.AuthResult) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if res != nil {
		req = req.WithContext(WithAuthResult(req.Context(), res))
	}
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)
	return rec.Code
}

func TestRequirePermission(t *testing.T) {
	mw, err := RequirePermission(`"report:view" in permissions`, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, serveWith(t, mw, &goSSO.AuthResult{Permissions: []string{"report:view"}}))
	assert.Equal(t, http.StatusForbidden, serveWith(t, mw, &goSSO.AuthResult{Permissions: []string{"dash:view"}}))
	assert.Equal(t, http.StatusForbidden, serveWith(t, mw, &goSSO.AuthResult{}))
	assert.Equal(t, http.StatusUnauthorized, serveWith(t, mw, nil))
}

func TestRequirePermissionCompoundExpression(t *testing.T) {
	mw, err := RequirePermission(`"report:edit" in permissions and "auditor" not in roles`, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, serveWith(t, mw, &goSSO.AuthResult{
		Roles:       []string{"editor"},
		Permissions: []string{"report:edit"},
	}))
	assert.Equal(t, http.StatusForbidden, serveWith(t, mw, &goSSO.AuthResult{
		Roles:       []string{"editor", "auditor"},
		Permissions: []string{"report:edit"},
	}))
}

func TestRequirePermissionWildcard(t *testing.T) {
	mw, err := RequirePermission(`"anything" in permissions`, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, serveWith(t, mw, &goSSO.AuthResult{Permissions: []string{"*:*:*"}}))
}

func TestRequirePermissionRejectsBadExpression(t *testing.T) {
	_, err := RequirePermission(`"x" in (`, nil)
	assert.Error(t, err)

	_, err = RequirePermission("  ", nil)
	assert.Error(t, err)
}

func TestRequireAnyRole(t *testing.T) {
	mw, err := RequireAnyRole(nil, "admin", "report")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, serveWith(t, mw, &goSSO.AuthResult{Roles: []string{"report"}}))
	assert.Equal(t, http.StatusForbidden, serveWith(t, mw, &goSSO.AuthResult{Roles: []string{"viewer"}}))

	_, err = RequireAnyRole(nil)
	assert.Error(t, err)
}

func TestCustomErrorWriter(t *testing.T) {
	var got error
	mw, err := RequirePermission(`"x" in permissions`, func(w http.ResponseWriter, r *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, serveWith(t, mw, &goSSO.AuthResult{}))
	assert.ErrorIs(t, got, goSSO.ErrPermissionDenied)
}

func TestGuardRejectsMissingToken(t *testing.T) {
	rec := httptest.NewRecorder()
	Guard(nil, nil)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		nil:                         http.StatusOK,
		goSSO.ErrInvalidCredentials: http.StatusUnauthorized,
		goSSO.ErrAccountNotFound:    http.StatusUnauthorized,
		goSSO.ErrSessionNotFound:    http.StatusUnauthorized,
		goSSO.ErrAccountLocked:      http.StatusForbidden,
		goSSO.ErrPermissionDenied:   http.StatusForbidden,
		goSSO.ErrTicketInvalid:      http.StatusBadRequest,
		goSSO.ErrClientInvalid:      http.StatusBadRequest,
		goSSO.ErrConflict:           http.StatusConflict,
		goSSO.ErrSystem:             http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusFor(err), "%v", err)
	}
}
