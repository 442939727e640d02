package httptransport

import (
	"net/http"

	"github.com/authelia/authelia-sub004/internal/audit"
	"github.com/authelia/authelia-sub004/internal/platform/device"
	"github.com/authelia/authelia-sub004/internal/platform/middleware"
	"github.com/authelia/authelia-sub004/internal/push"
	"github.com/authelia/authelia-sub004/internal/transport/http/shared"
	"github.com/authelia/authelia-sub004/internal/transport/http/shared/json"
	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
	"github.com/authelia/authelia-sub004/pkg/validation"
)

type pushState struct {
	Status  string        `json:"status"`
	Devices []push.Device `json:"devices,omitempty"`
}

// handlePushState reports the approval session so the UI can render the
// device picker or the retry affordance.
func (h *Handler) handlePushState(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())
	scope := h.scope(claims.SessionID)

	scope.mu.Lock()
	controller := scope.push
	scope.mu.Unlock()

	if controller == nil {
		json.WriteJSON(w, http.StatusOK, pushState{Status: push.Idle.String()})
		return
	}

	json.WriteJSON(w, http.StatusOK, pushState{
		Status:  controller.Status().String(),
		Devices: controller.Devices(),
	})
}

// handlePushInitiate starts the approval cycle, describing the requesting
// device from the User-Agent so the user can recognize the prompt.
func (h *Handler) handlePushInitiate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())
	scope := h.scope(claims.SessionID)

	scope.mu.Lock()
	if scope.push == nil {
		from := device.Describe(claims.SessionID, r.UserAgent())
		scope.push = push.NewController(h.backends.Push, scope.level, scope.token, from,
			push.WithLogger(h.logger),
		)
	}
	controller := scope.push
	scope.mu.Unlock()

	if err := controller.Initiate(r.Context()); err != nil {
		shared.WriteError(w, err)
		return
	}

	h.record(r.Context(), claims, "mobile_push", audit.ActionPushCycleCompleted, controller.Status().String())

	json.WriteJSON(w, http.StatusOK, pushState{
		Status:  controller.Status().String(),
		Devices: controller.Devices(),
	})
}

// handlePushRetry re-runs a failed cycle. The controller refuses retries in
// any other state.
func (h *Handler) handlePushRetry(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())
	scope := h.scope(claims.SessionID)

	scope.mu.Lock()
	controller := scope.push
	scope.mu.Unlock()

	if controller == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeConflict, "no push session to retry"))
		return
	}

	if err := controller.Retry(r.Context()); err != nil {
		shared.WriteError(w, err)
		return
	}

	h.record(r.Context(), claims, "mobile_push", audit.ActionPushCycleCompleted, controller.Status().String())

	json.WriteJSON(w, http.StatusOK, pushState{
		Status:  controller.Status().String(),
		Devices: controller.Devices(),
	})
}

// handlePushSelectDevice resubmits the user's device and method pick.
func (h *Handler) handlePushSelectDevice(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())
	scope := h.scope(claims.SessionID)

	var body struct {
		Device string `json:"device" validate:"required"`
		Method string `json:"method" validate:"required"`
	}
	if err := json.Decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := validation.Validate(&body); err != nil {
		shared.WriteError(w, err)
		return
	}

	scope.mu.Lock()
	controller := scope.push
	scope.mu.Unlock()

	if controller == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeConflict, "no push session in progress"))
		return
	}

	if err := controller.SelectDevice(r.Context(), body.Device, body.Method); err != nil {
		shared.WriteError(w, err)
		return
	}

	h.record(r.Context(), claims, "mobile_push", audit.ActionPushCycleCompleted, controller.Status().String())

	json.WriteJSON(w, http.StatusOK, pushState{Status: controller.Status().String()})
}
