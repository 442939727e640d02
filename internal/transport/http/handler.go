// Package httptransport exposes the ceremony controllers and the
// authorization check over HTTP for the UI. Handlers stay thin: they resolve
// the session scope, delegate to the domain controllers, and translate domain
// errors.
package httptransport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/authelia/authelia-sub004/internal/audit"
	"github.com/authelia/authelia-sub004/internal/authentication"
	"github.com/authelia/authelia-sub004/internal/authorization"
	"github.com/authelia/authelia-sub004/internal/elevation"
	"github.com/authelia/authelia-sub004/internal/platform/health"
	"github.com/authelia/authelia-sub004/internal/platform/liveness"
	"github.com/authelia/authelia-sub004/internal/platform/tracer"
	"github.com/authelia/authelia-sub004/internal/preferences"
	"github.com/authelia/authelia-sub004/internal/push"
	"github.com/authelia/authelia-sub004/internal/session"
	"github.com/authelia/authelia-sub004/internal/totp"
	"github.com/authelia/authelia-sub004/internal/webauthn"
)

// Backends bundles the per-factor backend dependencies of the handler.
type Backends struct {
	WebAuthn  webauthn.Backend
	Push      push.Backend
	TOTP      totp.Backend
	Elevation elevation.Backend
}

// Handler is the thin HTTP layer over the ceremony controllers.
type Handler struct {
	evaluator *authorization.Evaluator
	sessions  *authentication.Provider
	backends  Backends
	prefs     preferences.Store
	logger    *slog.Logger
	tracer    tracer.Tracer
	audit     *audit.Publisher
	health    *health.Handler

	passcodeLen     int
	ceremonyTimeout time.Duration

	mu     sync.Mutex
	scopes map[string]*sessionScope
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

func WithTracer(t tracer.Tracer) HandlerOption {
	return func(h *Handler) { h.tracer = t }
}

func WithPasscodeLength(digits int) HandlerOption {
	return func(h *Handler) { h.passcodeLen = digits }
}

func WithAuditPublisher(publisher *audit.Publisher) HandlerOption {
	return func(h *Handler) { h.audit = publisher }
}

func WithHealth(checker *health.Handler) HandlerOption {
	return func(h *Handler) { h.health = checker }
}

// WithCeremonyTimeout bounds how long a started ceremony waits for the
// browser's finish report.
func WithCeremonyTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) { h.ceremonyTimeout = timeout }
}

func NewHandler(evaluator *authorization.Evaluator, sessions *authentication.Provider, backends Backends, prefs preferences.Store, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		evaluator:       evaluator,
		sessions:        sessions,
		backends:        backends,
		prefs:           prefs,
		logger:          logger,
		tracer:          tracer.NewNoop(),
		audit:           audit.NewPublisher(audit.NewInMemoryStore()),
		health:          health.New("development"),
		passcodeLen:     6,
		ceremonyTimeout: ceremonyTimeout,
		scopes:          make(map[string]*sessionScope),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// record emits an audit event for a session action. Failures only log; the
// event trail never blocks a ceremony.
func (h *Handler) record(ctx context.Context, claims *session.Claims, factor string, action audit.Action, outcome string) {
	err := h.audit.Emit(ctx, audit.Event{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Factor:    factor,
		Action:    action,
		Outcome:   outcome,
	})
	if err != nil {
		h.logger.Warn("could not record audit event", "action", action, "error", err)
	}
}

// sessionScope owns all ceremony state of one session. Its liveness token is
// shared by every controller so one sign-out invalidates all outstanding
// results at once.
type sessionScope struct {
	token *liveness.Token
	level *authentication.LevelState

	mu        sync.Mutex
	bridge    *ceremonyBridge
	push      *push.Controller
	passcode  *totp.Controller
	workflow  *elevation.Workflow
	elevation *elevation.Elevation
}

// scope resolves or creates the ceremony state for a session.
func (h *Handler) scope(sessionID string) *sessionScope {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.scopes[sessionID]; ok {
		return s
	}

	level := h.sessions.State(sessionID)
	// A validated bearer session is first-factor evidence; ceremonies only
	// ever raise the level beyond this.
	level.RaiseTo(authentication.OneFactor)
	level.OnRaise(func(l authentication.Level) {
		h.logger.Info("session level raised", "session_id", sessionID, "level", l.String())
	})
	s := &sessionScope{
		token: liveness.NewToken(),
		level: level,
	}
	s.workflow = elevation.NewWorkflow(h.backends.Elevation, level,
		elevation.WithLogger(h.logger),
		elevation.WithTracer(h.tracer),
	)
	h.scopes[sessionID] = s
	return s
}

// teardown cancels the scope's token and releases its controllers. Late
// ceremony results against the old token are discarded, not applied.
func (h *Handler) teardown(sessionID string) {
	h.mu.Lock()
	s, ok := h.scopes[sessionID]
	delete(h.scopes, sessionID)
	h.mu.Unlock()

	if !ok {
		return
	}

	s.token.Cancel()

	s.mu.Lock()
	if s.push != nil {
		s.push.Close()
	}
	if s.passcode != nil {
		s.passcode.Close()
	}
	if s.bridge != nil {
		s.bridge.close()
		s.bridge = nil
	}
	abandoned := s.elevation
	s.elevation = nil
	s.mu.Unlock()

	// An elevation the owner walked away from must not stay redeemable in
	// the backend until its TTL.
	if abandoned != nil {
		if err := s.workflow.Dismiss(context.Background(), abandoned); err != nil {
			h.logger.Warn("could not dismiss abandoned elevation", "session_id", sessionID, "error", err)
		}
	}
}
