package webauthn

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/e3b0c442/warp"

	"github.com/authelia/authelia-sub004/internal/authentication"
	"github.com/authelia/authelia-sub004/internal/platform/liveness"
	"github.com/authelia/authelia-sub004/internal/platform/tracer"
	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

// ErrAbandoned is returned when the owning scope was torn down while the
// ceremony was outstanding. The attempt's late result is discarded and no
// state belonging to the torn-down owner has been touched; callers should
// drop this error rather than surface it.
var ErrAbandoned = errors.New("ceremony abandoned by its owner")

// Orchestrator runs one challenge/response exchange with a platform
// authenticator end to end. Attempts for the same factor method never
// overlap: starting a run while another is outstanding is rejected.
type Orchestrator struct {
	backend       Backend
	authenticator Authenticator
	level         *authentication.LevelState
	logger        *slog.Logger
	trace         tracer.Tracer

	mu    sync.Mutex
	busy  bool
	state CeremonyState
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger injects the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithTracer injects the tracer used to span ceremony runs.
func WithTracer(t tracer.Tracer) Option {
	return func(o *Orchestrator) { o.trace = t }
}

// NewOrchestrator wires a ceremony orchestrator. The level state is raised to
// TwoFactor on successful assertion; registration never changes the level.
func NewOrchestrator(backend Backend, authenticator Authenticator, level *authentication.LevelState, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:       backend,
		authenticator: authenticator,
		level:         level,
		trace:         tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the state of the current (or last) attempt.
func (o *Orchestrator) State() CeremonyState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// AssertionOptions fetches a fresh assertion challenge from the backend.
func (o *Orchestrator) AssertionOptions(ctx context.Context) (*warp.PublicKeyCredentialRequestOptions, error) {
	options, err := o.backend.AssertionOptions(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "fetching assertion challenge")
	}
	return options, nil
}

// AttestationOptions fetches a fresh registration challenge from the backend.
func (o *Orchestrator) AttestationOptions(ctx context.Context) (*warp.PublicKeyCredentialCreationOptions, error) {
	options, err := o.backend.AttestationOptions(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "fetching registration challenge")
	}
	return options, nil
}

// RunAssertion drives one sign-in ceremony: it suspends on the platform
// authenticator, maps any platform exception through the taxonomy, and
// confirms a signed response with the backend. On confirmation the session
// level is raised to TwoFactor.
//
// The token belongs to the invoking scope. After every suspension point the
// run re-checks it and, if the owner is gone, returns ErrAbandoned without
// committing anything.
func (o *Orchestrator) RunAssertion(ctx context.Context, token *liveness.Token, options *warp.PublicKeyCredentialRequestOptions) (Result, error) {
	if err := o.begin(); err != nil {
		return Result{}, err
	}
	defer o.finish()

	ctx, span := o.trace.Start(ctx, tracer.SpanAssertion)
	result, err := o.runAssertion(ctx, token, options)
	if errors.Is(err, ErrAbandoned) {
		span.SetAttributes(tracer.Bool(tracer.AttrCancelled, true))
	} else {
		span.SetAttributes(tracer.String(tracer.AttrOutcome, string(result.Outcome)))
	}
	span.End(err)
	return result, err
}

func (o *Orchestrator) runAssertion(ctx context.Context, token *liveness.Token, options *warp.PublicKeyCredentialRequestOptions) (Result, error) {
	o.setState(WaitingForInteraction)

	response, err := o.authenticator.Assert(ctx, options)
	if !token.Live() {
		return Result{}, ErrAbandoned
	}
	if err != nil {
		outcome := MapAssertionException(err, o.logger)
		o.fail(outcome, "assertion")
		return Result{Outcome: outcome}, nil
	}
	if len(response) == 0 {
		// The platform resolved without throwing yet supplied no
		// credential.
		o.fail(OutcomeEmptyResponse, "assertion")
		return Result{Outcome: OutcomeEmptyResponse}, nil
	}

	o.setState(InProgress)

	redirect, err := o.backend.ConfirmAssertion(ctx, response)
	if !token.Live() {
		return Result{}, ErrAbandoned
	}
	if err != nil {
		o.fail(OutcomeServerRejected, "assertion")
		return Result{Outcome: OutcomeServerRejected}, nil
	}

	o.setState(Succeeded)
	observeCeremony("assertion", OutcomeSuccess)
	o.level.RaiseTo(authentication.TwoFactor)
	return Result{Outcome: OutcomeSuccess, Redirect: redirect}, nil
}

// RunAttestation drives one registration ceremony. It is symmetric to
// RunAssertion apart from the exception family and the user-supplied label
// required before the attestation response is submitted. Registration does
// not change the authentication level.
func (o *Orchestrator) RunAttestation(ctx context.Context, token *liveness.Token, options *warp.PublicKeyCredentialCreationOptions, label string) (Result, error) {
	if label == "" {
		return Result{}, dErrors.New(dErrors.CodeInvalidInput, "a credential label is required")
	}
	if err := o.begin(); err != nil {
		return Result{}, err
	}
	defer o.finish()

	ctx, span := o.trace.Start(ctx, tracer.SpanAttestation)
	result, err := o.runAttestation(ctx, token, options, label)
	if errors.Is(err, ErrAbandoned) {
		span.SetAttributes(tracer.Bool(tracer.AttrCancelled, true))
	} else {
		span.SetAttributes(tracer.String(tracer.AttrOutcome, string(result.Outcome)))
	}
	span.End(err)
	return result, err
}

func (o *Orchestrator) runAttestation(ctx context.Context, token *liveness.Token, options *warp.PublicKeyCredentialCreationOptions, label string) (Result, error) {
	o.setState(WaitingForInteraction)

	response, err := o.authenticator.Attest(ctx, options)
	if !token.Live() {
		return Result{}, ErrAbandoned
	}
	if err != nil {
		outcome := MapRegistrationException(err, o.logger)
		o.fail(outcome, "attestation")
		return Result{Outcome: outcome}, nil
	}
	if len(response) == 0 {
		o.fail(OutcomeEmptyResponse, "attestation")
		return Result{Outcome: OutcomeEmptyResponse}, nil
	}

	o.setState(InProgress)

	err = o.backend.ConfirmAttestation(ctx, label, response)
	if !token.Live() {
		return Result{}, ErrAbandoned
	}
	if err != nil {
		o.fail(OutcomeServerRejected, "attestation")
		return Result{Outcome: OutcomeServerRejected}, nil
	}

	o.setState(Succeeded)
	observeCeremony("attestation", OutcomeSuccess)
	return Result{Outcome: OutcomeSuccess}, nil
}

// begin claims the single-attempt slot. Concurrent attempts for the same
// factor method are not supported; UI controls disable retry while busy and
// this guard backs that up.
func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return dErrors.New(dErrors.CodeConflict, "a ceremony attempt is already in progress")
	}
	o.busy = true
	o.state = WaitingForInteraction
	return nil
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	o.busy = false
	o.mu.Unlock()
}

func (o *Orchestrator) setState(state CeremonyState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

func (o *Orchestrator) fail(outcome Outcome, ceremony string) {
	o.setState(Failed)
	observeCeremony(ceremony, outcome)
	if o.logger != nil {
		o.logger.Info("ceremony failed",
			"ceremony", ceremony,
			"outcome", string(outcome),
		)
	}
}
