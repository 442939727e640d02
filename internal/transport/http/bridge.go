package httptransport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/e3b0c442/warp"

	"github.com/authelia/authelia-sub004/internal/webauthn"
	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

// ceremonyTimeout bounds how long a started ceremony waits for the browser
// to deliver the authenticator's response.
const ceremonyTimeout = 5 * time.Minute

// finishRequest is the browser's report of how the platform ceremony ended:
// either a signed response or a named exception, never both.
type finishRequest struct {
	Response  json.RawMessage `json:"response,omitempty"`
	Exception *struct {
		Name   string `json:"name"`
		Detail string `json:"detail,omitempty"`
	} `json:"exception,omitempty"`
}

type bridgeResult struct {
	result webauthn.Result
	err    error
}

// ceremonyBridge adapts the split start/finish HTTP exchange onto the
// orchestrator's blocking Authenticator calls. The orchestrator runs in its
// own goroutine; Assert and Attest park it until the finish request arrives.
type ceremonyBridge struct {
	response chan finishRequest
	done     chan bridgeResult
	quit     chan struct{}
	timeout  time.Duration
}

func newCeremonyBridge(timeout time.Duration) *ceremonyBridge {
	return &ceremonyBridge{
		response: make(chan finishRequest, 1),
		done:     make(chan bridgeResult, 1),
		quit:     make(chan struct{}),
		timeout:  timeout,
	}
}

func (b *ceremonyBridge) close() {
	close(b.quit)
}

// await parks the orchestrator until the browser reports back.
func (b *ceremonyBridge) await(ctx context.Context) (json.RawMessage, error) {
	select {
	case req := <-b.response:
		if req.Exception != nil {
			return nil, &webauthn.CeremonyException{Name: req.Exception.Name, Detail: req.Exception.Detail}
		}
		return req.Response, nil
	case <-time.After(b.timeout):
		return nil, &webauthn.CeremonyException{Name: "NotAllowedError", Detail: "ceremony timed out"}
	case <-b.quit:
		return nil, dErrors.New(dErrors.CodeConflict, "ceremony abandoned")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *ceremonyBridge) Assert(ctx context.Context, _ *warp.PublicKeyCredentialRequestOptions) (json.RawMessage, error) {
	return b.await(ctx)
}

func (b *ceremonyBridge) Attest(ctx context.Context, _ *warp.PublicKeyCredentialCreationOptions) (json.RawMessage, error) {
	return b.await(ctx)
}

// deliver hands the browser's finish report to the parked orchestrator.
func (b *ceremonyBridge) deliver(req finishRequest) error {
	select {
	case b.response <- req:
		return nil
	default:
		return dErrors.New(dErrors.CodeConflict, "ceremony response already delivered")
	}
}

// wait blocks until the orchestrator goroutine publishes its result.
func (b *ceremonyBridge) wait(ctx context.Context) (webauthn.Result, error) {
	select {
	case r := <-b.done:
		return r.result, r.err
	case <-ctx.Done():
		return webauthn.Result{}, dErrors.Wrap(ctx.Err(), dErrors.CodeInternal, "ceremony result not available")
	}
}
