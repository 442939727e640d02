package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/authelia/authelia-sub004/internal/audit"
	"github.com/authelia/authelia-sub004/internal/platform/middleware"
	"github.com/authelia/authelia-sub004/internal/transport/http/shared"
	"github.com/authelia/authelia-sub004/internal/transport/http/shared/json"
	"github.com/authelia/authelia-sub004/pkg/validation"
)

type elevationResponse struct {
	ID                   string    `json:"id"`
	DeleteID             string    `json:"delete_id"`
	ExpiresAt            time.Time `json:"expires_at"`
	RequiresSecondFactor bool      `json:"requires_second_factor"`
	CanSkipSecondFactor  bool      `json:"can_skip_second_factor"`
	HasFactorKnowledge   bool      `json:"has_factor_knowledge"`
}

// handleElevationGenerate allocates a step-up attempt and triggers
// out-of-band code delivery. The scope holds at most one outstanding
// elevation; generating a new one first revokes the old.
func (h *Handler) handleElevationGenerate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())
	scope := h.scope(claims.SessionID)

	scope.mu.Lock()
	previous := scope.elevation
	scope.elevation = nil
	scope.mu.Unlock()

	if previous != nil {
		if err := scope.workflow.Dismiss(r.Context(), previous); err != nil {
			shared.WriteError(w, err)
			return
		}
	}

	elev, err := scope.workflow.Generate(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	scope.mu.Lock()
	scope.elevation = elev
	scope.mu.Unlock()

	h.record(r.Context(), claims, "one_time_code", audit.ActionElevationGenerated, "issued")

	json.WriteJSON(w, http.StatusCreated, elevationResponse{
		ID:                   elev.ID,
		DeleteID:             elev.DeleteID,
		ExpiresAt:            elev.ExpiresAt,
		RequiresSecondFactor: elev.RequiresSecondFactor,
		CanSkipSecondFactor:  elev.CanSkipSecondFactor,
		HasFactorKnowledge:   elev.HasFactorKnowledge,
	})
}

// handleElevationVerify redeems the delivered code. A successful
// verification consumes the elevation.
func (h *Handler) handleElevationVerify(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())
	scope := h.scope(claims.SessionID)

	var body struct {
		Code string `json:"code" validate:"required,notblank"`
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
	elev := scope.elevation
	scope.mu.Unlock()

	ok, err := scope.workflow.Verify(r.Context(), elev, body.Code)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	outcome := "rejected"
	if ok {
		scope.mu.Lock()
		if scope.elevation == elev {
			scope.elevation = nil
		}
		scope.mu.Unlock()
		outcome = "consumed"
	}

	h.record(r.Context(), claims, "one_time_code", audit.ActionElevationVerified, outcome)

	json.WriteJSON(w, http.StatusOK, map[string]bool{"verified": ok})
}

// handleElevationInvalidate revokes by delete ID. This is the dismiss path:
// the UI calls it before discarding its dialog state.
func (h *Handler) handleElevationInvalidate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())
	scope := h.scope(claims.SessionID)

	deleteID := chi.URLParam(r, "deleteID")

	if err := scope.workflow.Invalidate(r.Context(), deleteID); err != nil {
		shared.WriteError(w, err)
		return
	}

	scope.mu.Lock()
	if scope.elevation != nil && scope.elevation.DeleteID == deleteID {
		scope.elevation = nil
	}
	scope.mu.Unlock()

	h.record(r.Context(), claims, "one_time_code", audit.ActionElevationDismissed, "dismissed")

	json.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
