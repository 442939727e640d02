package httptransport

//go:generate mockgen -source=../../webauthn/models.go -destination=../../webauthn/mocks/backend_mock.go -package=mocks Backend

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/e3b0c442/warp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/authelia/authelia-sub004/internal/authentication"
	"github.com/authelia/authelia-sub004/internal/authorization"
	"github.com/authelia/authelia-sub004/internal/elevation"
	"github.com/authelia/authelia-sub004/internal/platform/device"
	"github.com/authelia/authelia-sub004/internal/preferences"
	"github.com/authelia/authelia-sub004/internal/push"
	"github.com/authelia/authelia-sub004/internal/session"
	webauthnmocks "github.com/authelia/authelia-sub004/internal/webauthn/mocks"
)

const rulesYAML = `
default_policy: deny
rules:
  - domain: public.example.com
    policy: bypass
  - domain: app.example.com
    policy: one_factor
  - domain: admin.example.com
    policy: two_factor
`

type staticPushBackend struct {
	response push.PollResponse
}

func (b *staticPushBackend) Initiate(context.Context, device.Description) (*push.PollResponse, error) {
	r := b.response
	return &r, nil
}

func (b *staticPushBackend) SelectDevice(context.Context, string, string) (*push.PollResponse, error) {
	r := b.response
	return &r, nil
}

type staticTOTPBackend struct {
	accept string
}

func (b *staticTOTPBackend) Submit(_ context.Context, code string) error {
	if code == b.accept {
		return nil
	}
	return assert.AnError
}

type HandlerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	backend  *webauthnmocks.MockBackend
	sessions *authentication.Provider
	tokens   *session.Service
	server   *httptest.Server
	token    string

	deliveredCodes []string
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.backend = webauthnmocks.NewMockBackend(s.ctrl)
	s.sessions = authentication.NewProvider(slog.Default())
	s.tokens = session.NewService("test-key", "https://auth.example.com", time.Minute)
	s.deliveredCodes = nil

	s.startServer()

	var err error
	s.token, err = s.tokens.Issue("john", "sess-1", []string{"dev"})
	require.NoError(s.T(), err)
}

func (s *HandlerSuite) startServer(opts ...HandlerOption) {
	rules, defaultPolicy, err := authorization.ParseConfig([]byte(rulesYAML))
	require.NoError(s.T(), err)
	evaluator := authorization.NewEvaluator(rules, defaultPolicy, slog.Default())

	backends := Backends{
		WebAuthn: s.backend,
		Push:     &staticPushBackend{response: push.PollResponse{Result: push.ResultAllow}},
		TOTP:     &staticTOTPBackend{accept: "123456"},
		Elevation: elevation.NewMemoryBackend(time.Minute, elevation.WithDelivery(func(code string) {
			s.deliveredCodes = append(s.deliveredCodes, code)
		})),
	}

	h := NewHandler(evaluator, s.sessions, backends, preferences.NewInMemoryStore(), slog.Default(), opts...)
	s.server = httptest.NewServer(NewRouter(h, s.tokens, slog.Default()))
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, path string, body any) *http.Response {
	s.T().Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	require.NoError(s.T(), err)
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.server.Client().Do(req)
	require.NoError(s.T(), err)
	return resp
}

func (s *HandlerSuite) decode(resp *http.Response, v any) {
	s.T().Helper()
	defer resp.Body.Close()
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(v))
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) TestAuthzCheck() {
	cases := []struct {
		domain string
		status int
	}{
		{"public.example.com", http.StatusOK},
		{"app.example.com", http.StatusOK},
		{"admin.example.com", http.StatusUnauthorized},
		{"unknown.example.com", http.StatusForbidden},
	}

	for _, tc := range cases {
		resp := s.do(http.MethodPost, "/api/checks/authz", map[string]string{
			"domain": tc.domain,
			"path":   "/",
		})
		resp.Body.Close()
		assert.Equal(s.T(), tc.status, resp.StatusCode, tc.domain)
	}
}

func (s *HandlerSuite) TestStateReportsLevel() {
	var state struct {
		Username string `json:"username"`
		Level    string `json:"level"`
	}
	s.decode(s.do(http.MethodGet, "/api/state", nil), &state)

	assert.Equal(s.T(), "john", state.Username)
	assert.Equal(s.T(), "one_factor", state.Level)
}

func (s *HandlerSuite) TestAssertionCeremonyRaisesLevel() {
	s.backend.EXPECT().AssertionOptions(gomock.Any()).Return(&warp.PublicKeyCredentialRequestOptions{}, nil)
	s.backend.EXPECT().ConfirmAssertion(gomock.Any(), gomock.Any()).Return("https://app.example.com/", nil)

	resp := s.do(http.MethodPost, "/api/secondfactor/webauthn/assertion/start", nil)
	resp.Body.Close()
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)

	var finish struct {
		Data struct {
			Outcome  string `json:"outcome"`
			Redirect string `json:"redirect"`
		} `json:"data"`
	}
	s.decode(s.do(http.MethodPost, "/api/secondfactor/webauthn/finish", map[string]any{
		"response": map[string]string{"id": "credential"},
	}), &finish)

	assert.Equal(s.T(), "success", finish.Data.Outcome)
	assert.Equal(s.T(), "https://app.example.com/", finish.Data.Redirect)
	assert.Equal(s.T(), authentication.TwoFactor, s.sessions.State("sess-1").Level())

	// The gate that demanded two factors now passes.
	authz := s.do(http.MethodPost, "/api/checks/authz", map[string]string{"domain": "admin.example.com"})
	authz.Body.Close()
	assert.Equal(s.T(), http.StatusOK, authz.StatusCode)
}

func (s *HandlerSuite) TestAssertionExceptionMapsToOutcome() {
	s.backend.EXPECT().AssertionOptions(gomock.Any()).Return(&warp.PublicKeyCredentialRequestOptions{}, nil)

	resp := s.do(http.MethodPost, "/api/secondfactor/webauthn/assertion/start", nil)
	resp.Body.Close()
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)

	var finish struct {
		Data struct {
			Outcome string `json:"outcome"`
		} `json:"data"`
	}
	s.decode(s.do(http.MethodPost, "/api/secondfactor/webauthn/finish", map[string]any{
		"exception": map[string]string{"name": "NotAllowedError"},
	}), &finish)

	assert.Equal(s.T(), "user_cancelled", finish.Data.Outcome)
	assert.Equal(s.T(), authentication.OneFactor, s.sessions.State("sess-1").Level())
}

func (s *HandlerSuite) TestFinishWithoutStartConflicts() {
	resp := s.do(http.MethodPost, "/api/secondfactor/webauthn/finish", map[string]any{
		"response": map[string]string{"id": "credential"},
	})
	resp.Body.Close()
	assert.Equal(s.T(), http.StatusConflict, resp.StatusCode)
}

func (s *HandlerSuite) TestAttestationRequiresLabel() {
	resp := s.do(http.MethodPost, "/api/secondfactor/webauthn/attestation/start", map[string]string{})
	resp.Body.Close()
	assert.Equal(s.T(), http.StatusBadRequest, resp.StatusCode)
}

func (s *HandlerSuite) TestPushApproval() {
	var state pushState
	s.decode(s.do(http.MethodPost, "/api/secondfactor/push", nil), &state)

	assert.Equal(s.T(), "succeeded", state.Status)
	assert.Equal(s.T(), authentication.TwoFactor, s.sessions.State("sess-1").Level())
}

func (s *HandlerSuite) TestPasscodeAutoSubmit() {
	var out struct {
		Status string `json:"status"`
	}
	s.decode(s.do(http.MethodPost, "/api/secondfactor/totp", map[string]string{"code": "123456"}), &out)

	assert.Equal(s.T(), "succeeded", out.Status)
	assert.Equal(s.T(), authentication.TwoFactor, s.sessions.State("sess-1").Level())
}

func (s *HandlerSuite) TestElevationRoundTrip() {
	var elev elevationResponse
	s.decode(s.do(http.MethodPost, "/api/elevation", nil), &elev)
	require.NotEmpty(s.T(), elev.ID)
	require.Len(s.T(), s.deliveredCodes, 1)

	var verified struct {
		Verified bool `json:"verified"`
	}
	s.decode(s.do(http.MethodPost, "/api/elevation/verify", map[string]string{
		"code": s.deliveredCodes[0],
	}), &verified)
	assert.True(s.T(), verified.Verified)
}

func (s *HandlerSuite) TestElevationDismiss() {
	var elev elevationResponse
	s.decode(s.do(http.MethodPost, "/api/elevation", nil), &elev)

	resp := s.do(http.MethodDelete, "/api/elevation/"+elev.DeleteID, nil)
	resp.Body.Close()
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)

	// The abandoned code is dead.
	verify := s.do(http.MethodPost, "/api/elevation/verify", map[string]string{
		"code": s.deliveredCodes[0],
	})
	verify.Body.Close()
	assert.Equal(s.T(), http.StatusBadRequest, verify.StatusCode)
}

func (s *HandlerSuite) TestPreferredMethod() {
	var got struct {
		Method string `json:"method"`
	}
	s.decode(s.do(http.MethodGet, "/api/preferences/method", nil), &got)
	assert.Equal(s.T(), "webauthn", got.Method)

	resp := s.do(http.MethodPost, "/api/preferences/method", map[string]string{"method": "mobile_push"})
	resp.Body.Close()
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)

	s.decode(s.do(http.MethodGet, "/api/preferences/method", nil), &got)
	assert.Equal(s.T(), "mobile_push", got.Method)

	bad := s.do(http.MethodPost, "/api/preferences/method", map[string]string{"method": "fax"})
	bad.Body.Close()
	assert.Equal(s.T(), http.StatusBadRequest, bad.StatusCode)
}

func (s *HandlerSuite) TestSignOutDismissesOutstandingElevation() {
	var first elevationResponse
	s.decode(s.do(http.MethodPost, "/api/elevation", nil), &first)

	resp := s.do(http.MethodPost, "/api/signout", nil)
	resp.Body.Close()
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)

	// A fresh scope holds its own elevation; the code abandoned by the
	// sign-out must not redeem against it.
	var second elevationResponse
	s.decode(s.do(http.MethodPost, "/api/elevation", nil), &second)
	require.Len(s.T(), s.deliveredCodes, 2)

	var out struct {
		Verified bool `json:"verified"`
	}
	s.decode(s.do(http.MethodPost, "/api/elevation/verify", map[string]string{
		"code": s.deliveredCodes[0],
	}), &out)
	assert.False(s.T(), out.Verified)
}

func (s *HandlerSuite) TestAbandonedCeremonySlotReopens() {
	s.server.Close()
	s.startServer(WithCeremonyTimeout(100 * time.Millisecond))

	s.backend.EXPECT().AssertionOptions(gomock.Any()).Return(&warp.PublicKeyCredentialRequestOptions{}, nil).Times(2)

	resp := s.do(http.MethodPost, "/api/secondfactor/webauthn/assertion/start", nil)
	resp.Body.Close()
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)

	// No finish request ever arrives. Once the parked run concludes on its
	// own, the session can start over instead of seeing conflicts forever.
	require.Eventually(s.T(), func() bool {
		again := s.do(http.MethodPost, "/api/secondfactor/webauthn/assertion/start", nil)
		again.Body.Close()
		return again.StatusCode == http.StatusOK
	}, 2*time.Second, 50*time.Millisecond)
}

func (s *HandlerSuite) TestSignOutResetsLevel() {
	s.sessions.State("sess-1").RaiseTo(authentication.TwoFactor)

	resp := s.do(http.MethodPost, "/api/signout", nil)
	resp.Body.Close()
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)

	var state struct {
		Level string `json:"level"`
	}
	s.decode(s.do(http.MethodGet, "/api/state", nil), &state)
	assert.Equal(s.T(), "one_factor", state.Level)
}
