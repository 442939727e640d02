// Package preferences persists the user's preferred second-factor method.
// The store is injected and explicitly scoped so ceremony controllers never
// reach into ambient session state.
package preferences

import (
	"context"

	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

// Method is a second-factor method the UI can preselect.
type Method string

const (
	MethodWebAuthn   Method = "webauthn"
	MethodTOTP       Method = "totp"
	MethodMobilePush Method = "mobile_push"
)

// ParseMethod validates a raw method string.
func ParseMethod(raw string) (Method, error) {
	switch Method(raw) {
	case MethodWebAuthn, MethodTOTP, MethodMobilePush:
		return Method(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown second-factor method: "+raw)
	}
}

// Store persists per-user method preferences. Get returns a not_found error
// when the user has never chosen; callers apply their own default.
type Store interface {
	Get(ctx context.Context, userID string) (Method, error)
	Set(ctx context.Context, userID string, method Method) error

	// Subscribe registers a callback invoked after every successful Set.
	Subscribe(notify func(userID string, method Method))
}
