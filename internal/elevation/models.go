// Package elevation runs the step-up re-verification ceremony that gates
// sensitive account operations. An elevation is transient: it never changes
// the session's authentication level, and it must be explicitly invalidated
// when abandoned so an undelivered code can never later be redeemed.
package elevation

import (
	"context"
	"time"
)

// Elevation is one step-up attempt. ID is public; DeleteID is the private
// capability used to invalidate an abandoned attempt.
type Elevation struct {
	ID                   string    `json:"id"`
	DeleteID             string    `json:"delete_id"`
	ExpiresAt            time.Time `json:"expires_at"`
	RequiresSecondFactor bool      `json:"requires_second_factor"`
	CanSkipSecondFactor  bool      `json:"can_skip_second_factor"`
	HasFactorKnowledge   bool      `json:"has_factor_knowledge"`
}

// Expired reports whether the elevation can no longer be redeemed.
func (e *Elevation) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Backend issues and redeems one-time codes. Generate triggers out-of-band
// delivery of the code; the code itself never travels back through this
// interface.
type Backend interface {
	Generate(ctx context.Context) (*Elevation, error)
	Verify(ctx context.Context, code string) (bool, error)
	Invalidate(ctx context.Context, deleteID string) error
}
