package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	goSSO "github.com/MrEthical07/goSSO"
	"github.com/MrEthical07/goSSO/middleware"
)

const msgBadCredentials = "invalid account or password"

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Code: goSSO.CodeOK, Message: "ok", Data: data})
}

// writeError renders err without leaking backend detail. Unknown accounts and
// wrong passwords read the same.
func writeError(w http.ResponseWriter, _ *http.Request, err error) {
	writeJSON(w, middleware.StatusFor(err), envelope{
		Code:    goSSO.ErrorCode(err),
		Message: errorMessage(err),
	})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, envelope{Code: codeBadRequest, Message: msg})
}

// codeBadRequest tags malformed requests that never reached the engine.
const codeBadRequest = 4000

func errorMessage(err error) string {
	switch {
	case errors.Is(err, goSSO.ErrAccountNotFound), errors.Is(err, goSSO.ErrInvalidCredentials):
		return msgBadCredentials
	case errors.Is(err, goSSO.ErrAccountDisabled):
		return "account disabled"
	case errors.Is(err, goSSO.ErrAccountLocked):
		return "account locked"
	case errors.Is(err, goSSO.ErrAccountBlocked):
		return "account blocked"
	case errors.Is(err, goSSO.ErrTicketInvalid):
		return "ticket invalid"
	case errors.Is(err, goSSO.ErrClientInvalid):
		return "client invalid"
	case errors.Is(err, goSSO.ErrPermissionDenied):
		return "permission denied"
	case errors.Is(err, goSSO.ErrSessionNotFound), errors.Is(err, goSSO.ErrTokenInvalid):
		return "unauthorized"
	case errors.Is(err, goSSO.ErrConflict):
		return "conflict"
	default:
		return "internal error"
	}
}
