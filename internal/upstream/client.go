// Package upstream implements the per-factor backend interfaces against the
// authentication backend's REST API. Rejection bodies are deliberately not
// parsed for detail: a non-OK confirmation is reported as a bare rejection.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/e3b0c442/warp"

	"github.com/authelia/authelia-sub004/internal/elevation"
	"github.com/authelia/authelia-sub004/internal/platform/device"
	"github.com/authelia/authelia-sub004/internal/push"
	"github.com/authelia/authelia-sub004/internal/webauthn"
	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

// Client calls the backend REST API. One client serves all factor backends.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var (
	_ webauthn.Backend  = (*Client)(nil)
	_ push.Backend      = (*Client)(nil)
	_ totpBackend       = (*Client)(nil)
	_ elevation.Backend = (*Client)(nil)
)

type totpBackend interface {
	Submit(ctx context.Context, code string) error
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not create request")
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "could not encode request")
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not create request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "backend unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return dErrors.RateLimited(retryAfterOf(resp))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// No detail: the backend's reason must not leak through this layer.
		return dErrors.New(dErrors.CodeCeremonyRejected, "the backend rejected the request")
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "malformed backend response")
	}
	return nil
}

func retryAfterOf(resp *http.Response) time.Duration {
	if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 30 * time.Second
}

// AssertionOptions fetches a sign-in challenge.
func (c *Client) AssertionOptions(ctx context.Context) (*warp.PublicKeyCredentialRequestOptions, error) {
	var env envelope
	if err := c.get(ctx, "/api/v1/webauthn/assertion", &env); err != nil {
		return nil, err
	}

	var data struct {
		PublicKeyOptions *warp.PublicKeyCredentialRequestOptions `json:"publicKeyOptions"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.PublicKeyOptions == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "backend sent no assertion options")
	}
	return data.PublicKeyOptions, nil
}

// ConfirmAssertion submits the signed response. Any backend refusal comes
// back as a bare rejection.
func (c *Client) ConfirmAssertion(ctx context.Context, response json.RawMessage) (string, error) {
	var env envelope
	if err := c.post(ctx, "/api/v1/webauthn/assertion", json.RawMessage(response), &env); err != nil {
		return "", err
	}

	var data struct {
		Redirect string `json:"redirect"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return "", nil
		}
	}
	return data.Redirect, nil
}

// AttestationOptions fetches a registration challenge.
func (c *Client) AttestationOptions(ctx context.Context) (*warp.PublicKeyCredentialCreationOptions, error) {
	var env envelope
	if err := c.get(ctx, "/api/v1/webauthn/attestation", &env); err != nil {
		return nil, err
	}

	var data struct {
		PublicKeyOptions *warp.PublicKeyCredentialCreationOptions `json:"publicKeyOptions"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.PublicKeyOptions == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "backend sent no attestation options")
	}
	return data.PublicKeyOptions, nil
}

// ConfirmAttestation submits a registration response with its label.
func (c *Client) ConfirmAttestation(ctx context.Context, label string, response json.RawMessage) error {
	body := struct {
		Label    string          `json:"label"`
		Response json.RawMessage `json:"response"`
	}{Label: label, Response: response}
	return c.post(ctx, "/api/v1/webauthn/attestation", body, nil)
}

// Initiate starts one push approval poll.
func (c *Client) Initiate(ctx context.Context, from device.Description) (*push.PollResponse, error) {
	body := struct {
		DeviceID    string `json:"device_id"`
		DisplayName string `json:"display_name"`
		Fingerprint string `json:"fingerprint"`
	}{DeviceID: from.ID, DisplayName: from.DisplayName, Fingerprint: from.Fingerprint}

	var out push.PollResponse
	if err := c.post(ctx, "/api/v1/push", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SelectDevice resubmits the user's device and method pick.
func (c *Client) SelectDevice(ctx context.Context, deviceID, method string) (*push.PollResponse, error) {
	body := struct {
		Device string `json:"device"`
		Method string `json:"method"`
	}{Device: deviceID, Method: method}

	var out push.PollResponse
	if err := c.post(ctx, "/api/v1/push/device", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit validates a one-time passcode.
func (c *Client) Submit(ctx context.Context, code string) error {
	body := struct {
		Code string `json:"code"`
	}{Code: code}

	var out struct {
		Limited    bool `json:"limited"`
		RetryAfter int  `json:"retryAfter"`
	}
	if err := c.post(ctx, "/api/v1/totp", body, &out); err != nil {
		return err
	}
	if out.Limited {
		return dErrors.RateLimited(time.Duration(out.RetryAfter) * time.Second)
	}
	return nil
}

// Generate allocates a step-up elevation; the backend delivers the code
// out-of-band.
func (c *Client) Generate(ctx context.Context) (*elevation.Elevation, error) {
	var out struct {
		ID                   string    `json:"id"`
		DeleteID             string    `json:"deleteId"`
		ExpiresAt            time.Time `json:"expiresAt"`
		RequiresSecondFactor bool      `json:"requiresSecondFactor"`
		CanSkipSecondFactor  bool      `json:"canSkipSecondFactor"`
	}
	if err := c.post(ctx, "/api/v1/elevation", nil, &out); err != nil {
		return nil, err
	}

	return &elevation.Elevation{
		ID:                   out.ID,
		DeleteID:             out.DeleteID,
		ExpiresAt:            out.ExpiresAt,
		RequiresSecondFactor: out.RequiresSecondFactor,
		CanSkipSecondFactor:  out.CanSkipSecondFactor,
	}, nil
}

// Verify redeems a one-time code.
func (c *Client) Verify(ctx context.Context, code string) (bool, error) {
	body := struct {
		Code string `json:"code"`
	}{Code: code}

	var out struct {
		Verified bool `json:"verified"`
	}
	if err := c.post(ctx, "/api/v1/elevation/verify", body, &out); err != nil {
		if dErrors.HasCode(err, dErrors.CodeCeremonyRejected) {
			return false, nil
		}
		return false, err
	}
	return out.Verified, nil
}

// Invalidate revokes an elevation by its private delete ID.
func (c *Client) Invalidate(ctx context.Context, deleteID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/api/v1/elevation/%s", c.baseURL, deleteID), nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not create request")
	}
	return c.do(req, nil)
}
