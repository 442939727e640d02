package httptransport

import (
	"context"
	"net/http"

	"github.com/authelia/authelia-sub004/internal/audit"
	"github.com/authelia/authelia-sub004/internal/platform/middleware"
	"github.com/authelia/authelia-sub004/internal/transport/http/shared"
	"github.com/authelia/authelia-sub004/internal/transport/http/shared/json"
	"github.com/authelia/authelia-sub004/internal/webauthn"
	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
	"github.com/authelia/authelia-sub004/pkg/validation"
)

type optionsEnvelope struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

type ceremonyOutcome struct {
	Outcome  webauthn.Outcome `json:"outcome"`
	Redirect string           `json:"redirect,omitempty"`
}

// handleAssertionStart opens a sign-in ceremony: it fetches challenge options
// from the backend, parks an orchestrator behind a bridge, and returns the
// options for the browser to hand to the platform authenticator.
func (h *Handler) handleAssertionStart(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())
	scope := h.scope(claims.SessionID)

	bridge, orch, err := h.openCeremony(scope)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	options, err := orch.AssertionOptions(r.Context())
	if err != nil {
		h.closeCeremony(scope, bridge)
		shared.WriteError(w, err)
		return
	}

	go func() {
		result, err := orch.RunAssertion(context.Background(), scope.token, options)
		bridge.done <- bridgeResult{result: result, err: err}
		// The run may have concluded without a finish request (timeout,
		// abandonment); release the slot so the session can start over.
		h.closeCeremony(scope, bridge)
	}()

	json.WriteJSON(w, http.StatusOK, optionsEnvelope{
		Status: "OK",
		Data:   map[string]any{"publicKeyOptions": options},
	})
}

// handleAttestationStart is the registration counterpart. The credential
// label is supplied up front and validated before the ceremony opens.
func (h *Handler) handleAttestationStart(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())
	scope := h.scope(claims.SessionID)

	var body struct {
		Label string `json:"label" validate:"required,notblank"`
	}
	if err := json.Decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := validation.Validate(&body); err != nil {
		shared.WriteError(w, err)
		return
	}

	bridge, orch, err := h.openCeremony(scope)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	options, err := orch.AttestationOptions(r.Context())
	if err != nil {
		h.closeCeremony(scope, bridge)
		shared.WriteError(w, err)
		return
	}

	go func() {
		result, err := orch.RunAttestation(context.Background(), scope.token, options, body.Label)
		bridge.done <- bridgeResult{result: result, err: err}
		h.closeCeremony(scope, bridge)
	}()

	json.WriteJSON(w, http.StatusOK, optionsEnvelope{
		Status: "OK",
		Data:   map[string]any{"publicKeyOptions": options},
	})
}

// handleCeremonyFinish feeds the browser's report to the parked orchestrator
// and returns the taxonomy outcome. Assertion and attestation share this
// path; the scope carries at most one open ceremony.
func (h *Handler) handleCeremonyFinish(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetSession(r.Context())
	scope := h.scope(claims.SessionID)

	scope.mu.Lock()
	bridge := scope.bridge
	scope.mu.Unlock()

	if bridge == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeConflict, "no ceremony in progress"))
		return
	}

	var body finishRequest
	if err := json.Decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := bridge.deliver(body); err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := bridge.wait(r.Context())
	h.closeCeremony(scope, bridge)

	if err != nil {
		h.record(r.Context(), claims, "webauthn", audit.ActionCeremonyCompleted, "error")
		shared.WriteError(w, err)
		return
	}

	h.record(r.Context(), claims, "webauthn", audit.ActionCeremonyCompleted, string(result.Outcome))

	json.WriteJSON(w, http.StatusOK, optionsEnvelope{
		Status: "OK",
		Data:   ceremonyOutcome{Outcome: result.Outcome, Redirect: result.Redirect},
	})
}

// openCeremony claims the scope's single ceremony slot.
func (h *Handler) openCeremony(scope *sessionScope) (*ceremonyBridge, *webauthn.Orchestrator, error) {
	scope.mu.Lock()
	defer scope.mu.Unlock()

	if scope.bridge != nil {
		return nil, nil, dErrors.New(dErrors.CodeConflict, "a ceremony is already in progress")
	}

	bridge := newCeremonyBridge(h.ceremonyTimeout)
	scope.bridge = bridge

	orch := webauthn.NewOrchestrator(h.backends.WebAuthn, bridge, scope.level,
		webauthn.WithLogger(h.logger),
		webauthn.WithTracer(h.tracer),
	)
	return bridge, orch, nil
}

func (h *Handler) closeCeremony(scope *sessionScope, bridge *ceremonyBridge) {
	scope.mu.Lock()
	defer scope.mu.Unlock()
	if scope.bridge == bridge {
		scope.bridge = nil
	}
}
