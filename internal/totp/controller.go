// Package totp drives one-time passcode submission aligned to the
// authenticator's refresh period. The controller owns a candidate passcode
// buffer and submits it at most once per period, suspending entirely while a
// backend rate limit is in force.
package totp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/authelia/authelia-sub004/internal/authentication"
	"github.com/authelia/authelia-sub004/internal/platform/liveness"
	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

// Status is the submission state of the controller.
type Status int

const (
	Idle Status = iota
	Submitting
	Succeeded
	Failed
	RateLimited
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case RateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Backend validates a candidate passcode. A rate-limit refusal is reported
// as a domain error with code rate_limited carrying the retry-after duration.
type Backend interface {
	Submit(ctx context.Context, code string) error
}

// Controller implements the time-windowed passcode flow. It is owned by a
// single invoking scope and is not safe for concurrent use beyond the
// internal locking it performs.
type Controller struct {
	backend Backend
	level   *authentication.LevelState
	token   *liveness.Token
	digits  int
	logger  *slog.Logger

	mu              sync.Mutex
	status          Status
	code            string
	period          uint64
	submittedPeriod uint64
	submittedAny    bool
	backoff         *time.Timer
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// NewController builds a controller expecting passcodes of the given digit
// length. The liveness token belongs to the invoking scope; results arriving
// after it is cancelled are discarded.
func NewController(backend Backend, level *authentication.LevelState, token *liveness.Token, digits int, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		level:   level,
		token:   token,
		digits:  digits,
		logger:  slog.Default(),
		status:  Idle,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Status reports the current submission state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Code reports the current passcode buffer.
func (c *Controller) Code() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

// Close cancels the owning scope and stops any pending backoff timer.
func (c *Controller) Close() {
	c.token.Cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backoff != nil {
		c.backoff.Stop()
		c.backoff = nil
	}
}

// SetCode replaces the passcode buffer with the user's current input. A
// change of input after a failed attempt re-arms the controller. When the
// buffer reaches the configured digit length and no submission has happened
// in the current period, the code is submitted.
func (c *Controller) SetCode(ctx context.Context, value string) {
	c.mu.Lock()

	c.code = value
	if c.status == Failed {
		c.status = Idle
	}

	if !c.shouldSubmitLocked() {
		c.mu.Unlock()
		return
	}

	c.beginSubmitLocked()
	code := c.code
	c.mu.Unlock()

	c.submit(ctx, code)
}

// AdvancePeriod marks a refresh-period boundary. Submission is re-armed for
// the new period; if a full-length code is already buffered and the
// controller is idle it is submitted immediately.
func (c *Controller) AdvancePeriod(ctx context.Context) {
	c.mu.Lock()

	c.period++

	if !c.shouldSubmitLocked() {
		c.mu.Unlock()
		return
	}

	c.beginSubmitLocked()
	code := c.code
	c.mu.Unlock()

	c.submit(ctx, code)
}

// shouldSubmitLocked holds the once-per-period rule: a full-length buffer,
// an idle controller, and no prior submission within the current period.
func (c *Controller) shouldSubmitLocked() bool {
	if c.status != Idle || len(c.code) != c.digits {
		return false
	}
	if c.submittedAny && c.submittedPeriod == c.period {
		return false
	}
	return true
}

func (c *Controller) beginSubmitLocked() {
	c.status = Submitting
	c.submittedPeriod = c.period
	c.submittedAny = true
}

func (c *Controller) submit(ctx context.Context, code string) {
	err := c.backend.Submit(ctx, code)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.token.Live() {
		c.logger.Debug("discarding passcode result for cancelled scope")
		return
	}

	switch {
	case err == nil:
		c.status = Succeeded
		c.code = ""
		c.level.RaiseTo(authentication.TwoFactor)
		observeSubmission("success")

	case dErrors.HasCode(err, dErrors.CodeRateLimited):
		c.enterRateLimitedLocked(dErrors.RetryAfter(err))
		observeSubmission("rate_limited")

	default:
		c.status = Failed
		c.code = ""
		c.logger.Info("passcode rejected", "error", err)
		observeSubmission("failure")
	}
}

// enterRateLimitedLocked suspends submissions until retryAfter elapses,
// superseding any pending timer so at most one is ever outstanding.
func (c *Controller) enterRateLimitedLocked(retryAfter time.Duration) {
	c.status = RateLimited

	if c.backoff != nil {
		c.backoff.Stop()
	}

	c.logger.Info("passcode submission rate limited", "retry_after", retryAfter)
	c.backoff = time.AfterFunc(retryAfter, c.resume)
}

func (c *Controller) resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != RateLimited || !c.token.Live() {
		return
	}

	c.status = Idle
	c.backoff = nil
}
