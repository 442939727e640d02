package httptransport

import (
	"net/http"

	"github.com/authelia/authelia-sub004/internal/platform/middleware"
	"github.com/authelia/authelia-sub004/internal/preferences"
	"github.com/authelia/authelia-sub004/internal/transport/http/shared"
	"github.com/authelia/authelia-sub004/internal/transport/http/shared/json"
	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

// handlePreferredMethodGet returns the user's chosen second-factor method,
// falling back to webauthn when none is recorded.
func (h *Handler) handlePreferredMethodGet(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())

	method, err := h.prefs.Get(r.Context(), claims.UserID)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		method = preferences.MethodWebAuthn
	} else if err != nil {
		shared.WriteError(w, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, map[string]string{"method": string(method)})
}

func (h *Handler) handlePreferredMethodSet(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())

	var body struct {
		Method string `json:"method"`
	}
	if err := json.Decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}

	method, err := preferences.ParseMethod(body.Method)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.prefs.Set(r.Context(), claims.UserID, method); err != nil {
		shared.WriteError(w, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, map[string]string{"method": string(method)})
}
