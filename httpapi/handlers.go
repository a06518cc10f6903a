package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	goSSO "github.com/MrEthical07/goSSO"
	"github.com/MrEthical07/goSSO/middleware"
)

type loginRequest struct {
	Account     string `json:"account"`
	Password    string `json:"password"`
	RememberMe  bool   `json:"rememberMe"`
	ClientID    string `json:"clientId"`
	RedirectURI string `json:"redirectUri"`
}

type loginResponse struct {
	Token       string   `json:"token"`
	ExpiresAt   int64    `json:"expiresAt"`
	UserID      int64    `json:"userId"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Ticket      string   `json:"ticket,omitempty"`
	RedirectURI string   `json:"redirectUri,omitempty"`
}

type checkTicketResponse struct {
	Valid     bool  `json:"valid"`
	UserID    int64 `json:"userId,omitempty"`
	Timestamp int64 `json:"timestamp"`
}

type grantsResponse struct {
	UserID      int64    `json:"userId"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

type sessionResponse struct {
	Active    bool  `json:"active"`
	UserID    int64 `json:"userId"`
	ExpiresAt int64 `json:"expiresAt,omitempty"`
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}

	res, err := h.engine.Login(middleware.ClientContext(r), goSSO.LoginRequest{
		Account:     strings.TrimSpace(req.Account),
		Password:    req.Password,
		Remember:    req.RememberMe,
		ClientID:    req.ClientID,
		RedirectURI: req.RedirectURI,
	})
	if err != nil {
		h.logSystemError(r, err)
		writeError(w, r, err)
		return
	}

	writeOK(w, loginResponse{
		Token:       res.Token,
		ExpiresAt:   res.ExpiresAt.UnixMilli(),
		UserID:      res.UserID,
		Roles:       res.Roles,
		Permissions: res.Permissions,
		Ticket:      res.Ticket,
		RedirectURI: res.RedirectURI,
	})
}

// checkTicket reports invalid tickets as data, not as an error status, so
// clients can branch on data.valid alone.
func (h *handler) checkTicket(w http.ResponseWriter, r *http.Request) {
	t, ok := ticketParam(w, r)
	if !ok {
		return
	}

	b, err := h.engine.ValidateTicket(middleware.ClientContext(r), t, r.URL.Query().Get("clientId"))
	now := h.now().UnixMilli()
	if err != nil {
		if errors.Is(err, goSSO.ErrTicketInvalid) {
			writeOK(w, checkTicketResponse{Valid: false, Timestamp: now})
			return
		}
		h.logSystemError(r, err)
		writeError(w, r, err)
		return
	}

	writeOK(w, checkTicketResponse{Valid: true, UserID: b.UserID, Timestamp: now})
}

func (h *handler) ticketPermissions(w http.ResponseWriter, r *http.Request) {
	t, ok := ticketParam(w, r)
	if !ok {
		return
	}

	uid, grants, err := h.engine.TicketPermissions(r.Context(), t)
	if err != nil {
		h.logSystemError(r, err)
		writeError(w, r, err)
		return
	}
	writeOK(w, grantsResponse{UserID: uid, Roles: grants.Roles, Permissions: grants.Permissions})
}

func (h *handler) refreshTicket(w http.ResponseWriter, r *http.Request) {
	t, ok := ticketParam(w, r)
	if !ok {
		return
	}

	st, err := h.engine.RefreshByTicket(r.Context(), t)
	if err != nil {
		h.logSystemError(r, err)
		writeError(w, r, err)
		return
	}
	writeOK(w, sessionResponse{Active: st.Active, UserID: st.UserID, ExpiresAt: st.ExpiresAt.UnixMilli()})
}

func (h *handler) singleLogout(w http.ResponseWriter, r *http.Request) {
	t, ok := ticketParam(w, r)
	if !ok {
		return
	}

	uid, err := h.engine.SingleLogoutByTicket(middleware.ClientContext(r), t)
	if err != nil {
		h.logSystemError(r, err)
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]int64{"userId": uid})
}

func (h *handler) sessionStatus(w http.ResponseWriter, r *http.Request) {
	t, ok := ticketParam(w, r)
	if !ok {
		return
	}

	st, err := h.engine.SessionStatus(r.Context(), t)
	if err != nil {
		h.logSystemError(r, err)
		writeError(w, r, err)
		return
	}
	resp := sessionResponse{Active: st.Active, UserID: st.UserID}
	if st.Active {
		resp.ExpiresAt = st.ExpiresAt.UnixMilli()
	}
	writeOK(w, resp)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.BearerToken(r.Header.Get("Authorization"))
	if err := h.engine.Logout(r.Context(), token); err != nil {
		h.logSystemError(r, err)
		writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (h *handler) renew(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.BearerToken(r.Header.Get("Authorization"))
	expiresAt, err := h.engine.RenewSession(r.Context(), token)
	if err != nil {
		h.logSystemError(r, err)
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]int64{"expiresAt": expiresAt.UnixMilli()})
}

func (h *handler) menus(w http.ResponseWriter, r *http.Request) {
	auth, _ := middleware.AuthResultFromContext(r.Context())
	tree, err := h.engine.MenuTree(r.Context(), auth.UserID)
	if err != nil {
		h.logSystemError(r, err)
		writeError(w, r, err)
		return
	}
	writeOK(w, tree)
}

func (h *handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	auth, _ := middleware.AuthResultFromContext(r.Context())
	writeOK(w, grantsResponse{UserID: auth.UserID, Roles: auth.Roles, Permissions: auth.Permissions})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Ping(r.Context()); err != nil {
		h.logSystemError(r, err)
		writeJSON(w, http.StatusServiceUnavailable, envelope{Code: goSSO.CodeSystem, Message: "unavailable"})
		return
	}
	writeOK(w, map[string]string{"status": "ok"})
}

func ticketParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	t := r.URL.Query().Get("ticket")
	if t == "" {
		writeBadRequest(w, "ticket required")
		return "", false
	}
	return t, true
}

func (h *handler) logSystemError(r *http.Request, err error) {
	if !errors.Is(err, goSSO.ErrSystem) && !errors.Is(err, goSSO.ErrEngineNotReady) {
		return
	}
	h.logger.WithError(err).WithField("path", r.URL.Path).Error("request hit a backend failure")
}
