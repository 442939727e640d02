package elevation

import (
	"context"
	"log/slog"
	"time"

	"github.com/authelia/authelia-sub004/internal/authentication"
	"github.com/authelia/authelia-sub004/internal/platform/tracer"
	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

// Workflow drives the generate / verify / invalidate protocol around a
// Backend, enforcing the second-factor gate before any code is accepted.
type Workflow struct {
	backend Backend
	level   *authentication.LevelState
	logger  *slog.Logger
	tracer  tracer.Tracer
	now     func() time.Time
}

// Option configures a Workflow.
type Option func(*Workflow)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) { w.logger = logger }
}

func WithTracer(t tracer.Tracer) Option {
	return func(w *Workflow) { w.tracer = t }
}

func WithNow(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

func NewWorkflow(backend Backend, level *authentication.LevelState, opts ...Option) *Workflow {
	w := &Workflow{
		backend: backend,
		level:   level,
		logger:  slog.Default(),
		tracer:  tracer.NewNoop(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Generate allocates a fresh elevation and triggers out-of-band delivery of
// its one-time code.
func (w *Workflow) Generate(ctx context.Context) (*Elevation, error) {
	elev, err := w.backend.Generate(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate elevation")
	}

	elev.HasFactorKnowledge = w.level.FactorKnowledge() || w.level.Level() == authentication.TwoFactor

	w.logger.Info("elevation generated", "id", elev.ID, "expires_at", elev.ExpiresAt)
	return elev, nil
}

// Verify redeems a one-time code against an outstanding elevation. When the
// elevation demands a second factor that the session has not yet proven and
// skipping is not allowed, verification is refused before the backend is
// consulted.
func (w *Workflow) Verify(ctx context.Context, elev *Elevation, code string) (bool, error) {
	ctx, span := w.tracer.Start(ctx, tracer.SpanElevationVerify)
	ok, err := w.verify(ctx, span, elev, code)
	span.End(err)
	return ok, err
}

func (w *Workflow) verify(ctx context.Context, span tracer.Span, elev *Elevation, code string) (bool, error) {
	if elev == nil {
		return false, dErrors.New(dErrors.CodeInvalidInput, "no elevation in progress")
	}

	if elev.Expired(w.now()) {
		return false, dErrors.New(dErrors.CodeNotFound, "elevation expired")
	}

	if err := w.secondFactorGate(elev); err != nil {
		return false, err
	}

	ok, err := w.backend.Verify(ctx, code)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "could not verify elevation code")
	}

	span.SetAttributes(tracer.Bool(tracer.AttrOutcome, ok))
	if ok {
		observeVerification("success")
		w.logger.Info("elevation verified", "id", elev.ID)
	} else {
		observeVerification("failure")
	}
	return ok, nil
}

// Invalidate revokes an outstanding elevation by its private delete ID.
func (w *Workflow) Invalidate(ctx context.Context, deleteID string) error {
	if deleteID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "delete ID is required")
	}
	if err := w.backend.Invalidate(ctx, deleteID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not invalidate elevation")
	}
	return nil
}

// Dismiss abandons an elevation without verifying it. The revocation happens
// before local state may be discarded so the issued code is dead by the time
// the dialog is gone.
func (w *Workflow) Dismiss(ctx context.Context, elev *Elevation) error {
	if elev == nil {
		return nil
	}

	if err := w.Invalidate(ctx, elev.DeleteID); err != nil {
		return err
	}

	w.logger.Info("elevation dismissed", "id", elev.ID)
	return nil
}

func (w *Workflow) secondFactorGate(elev *Elevation) error {
	if !elev.RequiresSecondFactor || elev.CanSkipSecondFactor {
		return nil
	}

	if w.level.Level() == authentication.TwoFactor || w.level.FactorKnowledge() {
		return nil
	}

	return dErrors.New(dErrors.CodeSecondFactorRequired, "a second factor must be completed before verification")
}
