package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/authelia/authelia-sub004/internal/platform/middleware"
)

// NewRouter wires all endpoints with the shared middleware stack. Everything
// except health sits behind session authentication.
func NewRouter(h *Handler, validator middleware.SessionValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	h.health.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(validator, logger))

		r.Get("/api/state", h.handleState)
		r.Post("/api/checks/authz", h.handleAuthzCheck)
		r.Post("/api/signout", h.handleSignOut)

		r.Post("/api/secondfactor/webauthn/assertion/start", h.handleAssertionStart)
		r.Post("/api/secondfactor/webauthn/attestation/start", h.handleAttestationStart)
		r.Post("/api/secondfactor/webauthn/finish", h.handleCeremonyFinish)

		r.Get("/api/secondfactor/push", h.handlePushState)
		r.Post("/api/secondfactor/push", h.handlePushInitiate)
		r.Post("/api/secondfactor/push/retry", h.handlePushRetry)
		r.Post("/api/secondfactor/push/device", h.handlePushSelectDevice)

		r.Post("/api/secondfactor/totp", h.handlePasscodeInput)
		r.Post("/api/secondfactor/totp/period", h.handlePasscodePeriod)

		r.Post("/api/elevation", h.handleElevationGenerate)
		r.Post("/api/elevation/verify", h.handleElevationVerify)
		r.Delete("/api/elevation/{deleteID}", h.handleElevationInvalidate)

		r.Get("/api/preferences/method", h.handlePreferredMethodGet)
		r.Post("/api/preferences/method", h.handlePreferredMethodSet)
	})

	return r
}
