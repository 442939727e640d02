package httptransport

import (
	"net"
	"net/http"

	"github.com/authelia/authelia-sub004/internal/audit"
	"github.com/authelia/authelia-sub004/internal/authorization"
	"github.com/authelia/authelia-sub004/internal/platform/middleware"
	"github.com/authelia/authelia-sub004/internal/platform/privacy"
	"github.com/authelia/authelia-sub004/internal/transport/http/shared"
	"github.com/authelia/authelia-sub004/internal/transport/http/shared/json"
	"github.com/authelia/authelia-sub004/pkg/validation"
)

// handleAuthzCheck runs the access control decision for one object at the
// session's current authentication level.
func (h *Handler) handleAuthzCheck(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())

	var body struct {
		Domain string `json:"domain" validate:"required"`
		Path   string `json:"path"`
	}
	if err := json.Decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := validation.Validate(&body); err != nil {
		shared.WriteError(w, err)
		return
	}

	subject := authorization.Subject{
		Username: claims.UserID,
		Groups:   claims.Groups,
		IP:       remoteIP(r),
	}
	object := authorization.Object{Domain: body.Domain, Path: body.Path}

	level := h.scope(claims.SessionID).level.Level()
	if err := authorization.CheckAuthorizations(h.evaluator, object, subject, level); err != nil {
		h.logger.Info("authorization refused",
			"domain", body.Domain,
			"path", body.Path,
			"level", level.String(),
			"ip", privacy.AnonymizeIP(subject.IP.String()),
		)
		shared.WriteError(w, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// handleState reports the session's authentication level so the UI can pick
// the next step.
func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())
	state := h.scope(claims.SessionID).level

	json.WriteJSON(w, http.StatusOK, map[string]any{
		"username":         claims.UserID,
		"level":            state.Level().String(),
		"factor_knowledge": state.FactorKnowledge(),
	})
}

// handleSignOut resets the session level and tears down all ceremony state.
func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())

	h.teardown(claims.SessionID)
	h.sessions.SignOut(claims.SessionID)

	h.record(r.Context(), claims, "", audit.ActionSignedOut, "ok")

	json.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func remoteIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}
