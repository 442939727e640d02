package webauthn

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/e3b0c442/warp"
)

// CeremonyState tracks one ceremony attempt. A fresh state is created for
// every attempt and discarded when the attempt concludes or its owner is torn
// down; it is never persisted.
type CeremonyState int

const (
	WaitingForInteraction CeremonyState = iota
	InProgress
	Succeeded
	Failed
)

// String returns a log-friendly name for the state.
func (s CeremonyState) String() string {
	switch s {
	case WaitingForInteraction:
		return "waiting_for_interaction"
	case InProgress:
		return "in_progress"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Outcome is the closed set of ceremony result codes. Platform exceptions are
// mapped into it by the taxonomy (taxonomy.go); EmptyResponse and
// ServerRejected arise from the orchestrator itself.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"

	// Shared by both exception families.
	OutcomeSyntax        Outcome = "syntax"
	OutcomeUserCancelled Outcome = "user_cancelled"
	OutcomeUnknown       Outcome = "unknown"

	// Registration (attestation) family.
	OutcomeUnsupportedConfiguration Outcome = "unsupported_configuration"
	OutcomeAlreadyRegistered        Outcome = "already_registered"
	OutcomeVerificationUnsupported  Outcome = "verification_or_resident_key_unsupported"

	// Assertion family.
	OutcomeUnrecognizedCredential Outcome = "unrecognized_credential"
	OutcomeOriginMismatch         Outcome = "origin_mismatch"
	OutcomeUnknownSecurity        Outcome = "unknown_security"

	// A platform that resolved without throwing but supplied no credential.
	OutcomeEmptyResponse Outcome = "empty_response"

	// The backend refused to confirm the ceremony. Deliberately generic so
	// callers cannot learn which factor failed.
	OutcomeServerRejected Outcome = "server_rejected"
)

// Result is produced exactly once per ceremony attempt.
type Result struct {
	Outcome  Outcome
	Redirect string
}

// Ok reports a successful attempt.
func (r Result) Ok() bool {
	return r.Outcome == OutcomeSuccess
}

// CeremonyException is the named failure a platform authenticator raises, in
// the DOMException style. Only the name participates in taxonomy mapping; the
// detail is for logs.
type CeremonyException struct {
	Name   string
	Detail string
}

// Error implements the error interface.
func (e *CeremonyException) Error() string {
	if e.Detail == "" {
		return e.Name
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Detail)
}

// Authenticator is the platform authenticator surface this core drives. Both
// calls suspend until the user interacts with an authenticator, the ceremony
// times out, or the platform raises a CeremonyException.
type Authenticator interface {
	Assert(ctx context.Context, options *warp.PublicKeyCredentialRequestOptions) (json.RawMessage, error)
	Attest(ctx context.Context, options *warp.PublicKeyCredentialCreationOptions) (json.RawMessage, error)
}

// Backend issues ceremony challenges and confirms signed responses. The
// Confirm methods must collapse every backend rejection into an error without
// detail; the orchestrator reports all of them as OutcomeServerRejected.
type Backend interface {
	AssertionOptions(ctx context.Context) (*warp.PublicKeyCredentialRequestOptions, error)
	ConfirmAssertion(ctx context.Context, response json.RawMessage) (redirect string, err error)
	AttestationOptions(ctx context.Context) (*warp.PublicKeyCredentialCreationOptions, error)
	ConfirmAttestation(ctx context.Context, label string, response json.RawMessage) error
}
