package push

import (
	"context"

	"github.com/authelia/authelia-sub004/internal/platform/device"
)

// Status is the state of a push approval session.
type Status int

const (
	// Idle means no session has been initiated yet.
	Idle Status = iota
	Pushing
	SelectingDevice
	Succeeded
	Failed
	RateLimited
)

// String returns a log-friendly name for the status.
func (s Status) String() string {
	switch s {
	case Pushing:
		return "pushing"
	case SelectingDevice:
		return "selecting_device"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case RateLimited:
		return "rate_limited"
	default:
		return "idle"
	}
}

// Result discriminates a backend poll response.
type Result string

const (
	// ResultAllow is an immediate approval.
	ResultAllow Result = "allow"
	// ResultAuth asks the user to pick one of several enrolled devices.
	ResultAuth Result = "auth"
	// ResultDeny is a categorical denial by policy.
	ResultDeny Result = "deny"
	// ResultEnroll means the user has no enrolled device.
	ResultEnroll Result = "enroll"
)

// Device is one enrolled approval target offered for selection.
type Device struct {
	ID          string   `json:"device"`
	DisplayName string   `json:"display_name"`
	Methods     []string `json:"capabilities"`
}

// PollResponse is the backend's answer to an initiate or select call.
type PollResponse struct {
	Result  Result   `json:"result"`
	Devices []Device `json:"devices,omitempty"`
}

// Backend is the push approval service this controller drives. A rate-limited
// request is reported as a domain error with CodeRateLimited carrying the
// retry-after duration.
type Backend interface {
	Initiate(ctx context.Context, from device.Description) (*PollResponse, error)
	SelectDevice(ctx context.Context, deviceID, method string) (*PollResponse, error)
}
