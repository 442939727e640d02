package webauthn

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/e3b0c442/warp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/authelia/authelia-sub004/internal/authentication"
	"github.com/authelia/authelia-sub004/internal/platform/liveness"
	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

// fakeAuthenticator scripts the platform authenticator.
type fakeAuthenticator struct {
	response json.RawMessage
	err      error

	// onSuspend runs while the ceremony is outstanding, before the
	// response is returned. Used to tear the owner down mid-flight.
	onSuspend func()
}

func (f *fakeAuthenticator) Assert(_ context.Context, _ *warp.PublicKeyCredentialRequestOptions) (json.RawMessage, error) {
	if f.onSuspend != nil {
		f.onSuspend()
	}
	return f.response, f.err
}

func (f *fakeAuthenticator) Attest(_ context.Context, _ *warp.PublicKeyCredentialCreationOptions) (json.RawMessage, error) {
	if f.onSuspend != nil {
		f.onSuspend()
	}
	return f.response, f.err
}

// fakeBackend scripts challenge issuance and confirmation.
type fakeBackend struct {
	confirmErr   error
	redirect     string
	confirmCalls int
	onConfirm    func()
}

func (f *fakeBackend) AssertionOptions(context.Context) (*warp.PublicKeyCredentialRequestOptions, error) {
	return &warp.PublicKeyCredentialRequestOptions{}, nil
}

func (f *fakeBackend) ConfirmAssertion(context.Context, json.RawMessage) (string, error) {
	f.confirmCalls++
	if f.onConfirm != nil {
		f.onConfirm()
	}
	return f.redirect, f.confirmErr
}

func (f *fakeBackend) AttestationOptions(context.Context) (*warp.PublicKeyCredentialCreationOptions, error) {
	return &warp.PublicKeyCredentialCreationOptions{}, nil
}

func (f *fakeBackend) ConfirmAttestation(context.Context, string, json.RawMessage) error {
	f.confirmCalls++
	if f.onConfirm != nil {
		f.onConfirm()
	}
	return f.confirmErr
}

type OrchestratorSuite struct {
	suite.Suite
	level *authentication.LevelState
}

func (s *OrchestratorSuite) SetupTest() {
	s.level = authentication.NewLevelState(nil)
	s.level.RaiseTo(authentication.OneFactor)
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) run(auth *fakeAuthenticator, backend *fakeBackend, token *liveness.Token) (Result, error) {
	o := NewOrchestrator(backend, auth, s.level)
	options, err := o.AssertionOptions(context.Background())
	require.NoError(s.T(), err)
	return o.RunAssertion(context.Background(), token, options)
}

func (s *OrchestratorSuite) TestAssertionSuccessRaisesLevel() {
	auth := &fakeAuthenticator{response: json.RawMessage(`{"id":"cred"}`)}
	backend := &fakeBackend{redirect: "https://app.example.com/"}

	result, err := s.run(auth, backend, nil)
	require.NoError(s.T(), err)

	assert.True(s.T(), result.Ok())
	assert.Equal(s.T(), "https://app.example.com/", result.Redirect)
	assert.Equal(s.T(), authentication.TwoFactor, s.level.Level())
}

func (s *OrchestratorSuite) TestPlatformExceptionMapsWithoutRetry() {
	auth := &fakeAuthenticator{err: &CeremonyException{Name: "NotAllowedError"}}
	backend := &fakeBackend{}

	result, err := s.run(auth, backend, nil)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), OutcomeUserCancelled, result.Outcome)
	// The response never reaches the backend and the level is untouched.
	assert.Zero(s.T(), backend.confirmCalls)
	assert.Equal(s.T(), authentication.OneFactor, s.level.Level())
}

func (s *OrchestratorSuite) TestEmptyResponseWithoutExceptionFails() {
	auth := &fakeAuthenticator{response: nil}
	backend := &fakeBackend{}

	result, err := s.run(auth, backend, nil)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), OutcomeEmptyResponse, result.Outcome)
	assert.Zero(s.T(), backend.confirmCalls)
}

func (s *OrchestratorSuite) TestServerRejectionIsGeneric() {
	auth := &fakeAuthenticator{response: json.RawMessage(`{"id":"cred"}`)}
	backend := &fakeBackend{confirmErr: errors.New("credential revoked for user bob")}

	result, err := s.run(auth, backend, nil)
	require.NoError(s.T(), err)

	// The backend's specific reason must not leak into the outcome.
	assert.Equal(s.T(), OutcomeServerRejected, result.Outcome)
	assert.Equal(s.T(), authentication.OneFactor, s.level.Level())
}

func (s *OrchestratorSuite) TestTeardownDuringPlatformCeremony() {
	token := liveness.NewToken()
	auth := &fakeAuthenticator{
		response:  json.RawMessage(`{"id":"cred"}`),
		onSuspend: token.Cancel,
	}
	backend := &fakeBackend{}

	_, err := s.run(auth, backend, token)
	assert.ErrorIs(s.T(), err, ErrAbandoned)
	assert.Zero(s.T(), backend.confirmCalls)
	assert.Equal(s.T(), authentication.OneFactor, s.level.Level())
}

func (s *OrchestratorSuite) TestTeardownDuringConfirmation() {
	token := liveness.NewToken()
	auth := &fakeAuthenticator{response: json.RawMessage(`{"id":"cred"}`)}
	backend := &fakeBackend{onConfirm: token.Cancel}

	_, err := s.run(auth, backend, token)
	assert.ErrorIs(s.T(), err, ErrAbandoned)
	// A late confirmation must not mutate the shared level state.
	assert.Equal(s.T(), authentication.OneFactor, s.level.Level())
}

func (s *OrchestratorSuite) TestAttestationRequiresLabel() {
	o := NewOrchestrator(&fakeBackend{}, &fakeAuthenticator{}, s.level)
	_, err := o.RunAttestation(context.Background(), nil, &warp.PublicKeyCredentialCreationOptions{}, "")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *OrchestratorSuite) TestAttestationSuccessDoesNotRaiseLevel() {
	auth := &fakeAuthenticator{response: json.RawMessage(`{"id":"cred"}`)}
	backend := &fakeBackend{}
	o := NewOrchestrator(backend, auth, s.level)

	options, err := o.AttestationOptions(context.Background())
	require.NoError(s.T(), err)
	result, err := o.RunAttestation(context.Background(), nil, options, "YubiKey 5C")
	require.NoError(s.T(), err)

	assert.True(s.T(), result.Ok())
	assert.Equal(s.T(), 1, backend.confirmCalls)
	assert.Equal(s.T(), authentication.OneFactor, s.level.Level())
}

func (s *OrchestratorSuite) TestAttestationExceptionUsesRegistrationFamily() {
	auth := &fakeAuthenticator{err: &CeremonyException{Name: "InvalidStateError"}}
	o := NewOrchestrator(&fakeBackend{}, auth, s.level)

	result, err := o.RunAttestation(context.Background(), nil, &warp.PublicKeyCredentialCreationOptions{}, "YubiKey 5C")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), OutcomeAlreadyRegistered, result.Outcome)
}

func (s *OrchestratorSuite) TestConcurrentAttemptsRejected() {
	started := make(chan struct{})
	release := make(chan struct{})
	auth := &fakeAuthenticator{
		response: json.RawMessage(`{"id":"cred"}`),
		onSuspend: func() {
			close(started)
			<-release
		},
	}
	o := NewOrchestrator(&fakeBackend{}, auth, s.level)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := o.RunAssertion(context.Background(), nil, &warp.PublicKeyCredentialRequestOptions{})
		assert.NoError(s.T(), err)
	}()

	<-started
	_, err := o.RunAssertion(context.Background(), nil, &warp.PublicKeyCredentialRequestOptions{})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))

	close(release)
	<-done
}

func (s *OrchestratorSuite) TestStateTransitions() {
	auth := &fakeAuthenticator{response: json.RawMessage(`{"id":"cred"}`)}
	backend := &fakeBackend{}
	o := NewOrchestrator(backend, auth, s.level)

	var during CeremonyState
	backend.onConfirm = func() { during = o.State() }

	_, err := o.RunAssertion(context.Background(), nil, &warp.PublicKeyCredentialRequestOptions{})
	require.NoError(s.T(), err)

	// InProgress is entered only between the platform returning and the
	// backend confirming.
	assert.Equal(s.T(), InProgress, during)
	assert.Equal(s.T(), Succeeded, o.State())
}
