package push

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/authelia/authelia-sub004/internal/authentication"
	"github.com/authelia/authelia-sub004/internal/platform/device"
	"github.com/authelia/authelia-sub004/internal/platform/liveness"
	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

// Controller runs the device-selection and poll/approve cycle for push-based
// approval.
//
// Transitions: Pushing -> {SelectingDevice, Succeeded, Failed, RateLimited};
// SelectingDevice -> Pushing | Failed; RateLimited -> Pushing once the
// backoff timer elapses. The controller owns its session exclusively; a
// second controller is created for a new attempt, never shared.
type Controller struct {
	backend Backend
	level   *authentication.LevelState
	token   *liveness.Token
	from    device.Description
	logger  *slog.Logger

	mu      sync.Mutex
	status  Status
	devices []Device
	busy    bool
	backoff *time.Timer
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger injects the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// NewController wires a push approval controller for one owning scope. The
// token marks that scope; once cancelled, late poll results and pending
// backoff timers are discarded.
func NewController(backend Backend, level *authentication.LevelState, token *liveness.Token, from device.Description, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		level:   level,
		token:   token,
		from:    from,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the current session status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Devices returns the candidate devices offered for selection. Only
// meaningful in SelectingDevice.
func (c *Controller) Devices() []Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	devices := make([]Device, len(c.devices))
	copy(devices, c.devices)
	return devices
}

// Close tears the controller down: cancels the owning token and stops any
// pending backoff timer.
func (c *Controller) Close() {
	c.token.Cancel()
	c.mu.Lock()
	if c.backoff != nil {
		c.backoff.Stop()
		c.backoff = nil
	}
	c.mu.Unlock()
}

// Initiate starts the push cycle from Idle.
func (c *Controller) Initiate(ctx context.Context) error {
	if err := c.begin(Idle); err != nil {
		return err
	}
	c.poll(ctx, func(ctx context.Context) (*PollResponse, error) {
		return c.backend.Initiate(ctx, c.from)
	})
	return nil
}

// Retry re-runs the push cycle. It is only legal while Failed: retrying
// during Pushing would overlap polls and retrying during RateLimited would
// defeat the backoff.
func (c *Controller) Retry(ctx context.Context) error {
	if err := c.begin(Failed); err != nil {
		return err
	}
	c.poll(ctx, func(ctx context.Context) (*PollResponse, error) {
		return c.backend.Initiate(ctx, c.from)
	})
	return nil
}

// SelectDevice submits the user's device and method choice, then restarts
// the push cycle against the chosen device.
func (c *Controller) SelectDevice(ctx context.Context, deviceID, method string) error {
	if err := c.begin(SelectingDevice); err != nil {
		return err
	}
	c.poll(ctx, func(ctx context.Context) (*PollResponse, error) {
		return c.backend.SelectDevice(ctx, deviceID, method)
	})
	return nil
}

// begin validates the transition out of the expected status and claims the
// single in-flight poll slot.
func (c *Controller) begin(expected Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return dErrors.New(dErrors.CodeConflict, "a push approval is already in flight")
	}
	if c.status != expected {
		return dErrors.New(dErrors.CodeConflict, "push approval is in state "+c.status.String())
	}
	c.busy = true
	c.status = Pushing
	return nil
}

// poll performs one suspension against the backend and folds the response
// into the session. Late results against a cancelled token are ignored.
func (c *Controller) poll(ctx context.Context, call func(context.Context) (*PollResponse, error)) {
	response, err := call(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	if !c.token.Live() {
		return
	}

	if err != nil {
		if retryAfter := dErrors.RetryAfter(err); retryAfter > 0 {
			c.enterRateLimitedLocked(retryAfter)
			return
		}
		c.status = Failed
		observePush("error")
		if c.logger != nil {
			c.logger.Warn("push approval poll failed", "error", err)
		}
		return
	}

	switch response.Result {
	case ResultAllow:
		c.status = Succeeded
		observePush(string(ResultAllow))
		c.level.RaiseTo(authentication.TwoFactor)
	case ResultAuth:
		c.status = SelectingDevice
		c.devices = response.Devices
		observePush(string(ResultAuth))
	case ResultDeny:
		c.status = Failed
		observePush(string(ResultDeny))
	case ResultEnroll:
		// No enrolled device; nothing the ceremony can do about it.
		c.status = Failed
		observePush(string(ResultEnroll))
	default:
		c.status = Failed
		observePush("unknown")
		if c.logger != nil {
			c.logger.Warn("unknown push poll result", "result", string(response.Result))
		}
	}
}

// enterRateLimitedLocked suspends the cycle for retryAfter. Any pending
// backoff timer is superseded, never stacked: at most one timer is pending.
func (c *Controller) enterRateLimitedLocked(retryAfter time.Duration) {
	c.status = RateLimited
	observePush("rate_limited")
	if c.backoff != nil {
		c.backoff.Stop()
	}
	c.backoff = time.AfterFunc(retryAfter, c.resume)
}

// resume re-enters the push cycle when the backoff elapses.
func (c *Controller) resume() {
	c.mu.Lock()
	if !c.token.Live() || c.status != RateLimited || c.busy {
		c.mu.Unlock()
		return
	}
	c.backoff = nil
	c.busy = true
	c.status = Pushing
	c.mu.Unlock()

	c.poll(context.Background(), func(ctx context.Context) (*PollResponse, error) {
		return c.backend.Initiate(ctx, c.from)
	})
}

// RateLimitFor is called when an out-of-band rate-limit signal arrives, such
// as a sibling submission sharing the same quota. It supersedes any pending
// backoff timer with the new duration.
func (c *Controller) RateLimitFor(retryAfter time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.token.Live() {
		return
	}
	c.enterRateLimitedLocked(retryAfter)
}
