package httptransport

import (
	"net/http"

	"github.com/authelia/authelia-sub004/internal/audit"
	"github.com/authelia/authelia-sub004/internal/platform/middleware"
	"github.com/authelia/authelia-sub004/internal/totp"
	"github.com/authelia/authelia-sub004/internal/transport/http/shared"
	"github.com/authelia/authelia-sub004/internal/transport/http/shared/json"
)

func (h *Handler) passcodeController(sessionID string) *totp.Controller {
	scope := h.scope(sessionID)

	scope.mu.Lock()
	defer scope.mu.Unlock()

	if scope.passcode == nil {
		scope.passcode = totp.NewController(h.backends.TOTP, scope.level, scope.token, h.passcodeLen,
			totp.WithLogger(h.logger),
		)
	}
	return scope.passcode
}

// handlePasscodeInput mirrors the UI's input field into the controller,
// which submits on its own once the buffer is full.
func (h *Handler) handlePasscodeInput(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())

	var body struct {
		Code string `json:"code"`
	}
	if err := json.Decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}

	controller := h.passcodeController(claims.SessionID)
	controller.SetCode(r.Context(), body.Code)

	// Record only resolved submissions; partial input is not an event.
	switch status := controller.Status(); status {
	case totp.Succeeded, totp.Failed, totp.RateLimited:
		h.record(r.Context(), claims, "totp", audit.ActionPasscodeSubmitted, status.String())
	}

	json.WriteJSON(w, http.StatusOK, map[string]string{
		"status": controller.Status().String(),
	})
}

// handlePasscodePeriod marks a refresh-period boundary reported by the UI's
// countdown, re-arming the once-per-period submission.
func (h *Handler) handlePasscodePeriod(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())

	controller := h.passcodeController(claims.SessionID)
	controller.AdvancePeriod(r.Context())

	json.WriteJSON(w, http.StatusOK, map[string]string{
		"status": controller.Status().String(),
	})
}
