package audit

import "time"

// Event records one second-factor action. Keep it transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	UserID    string
	SessionID string
	Factor    string
	Action    Action
	Outcome   string
}

// Action enumerates the recorded second-factor actions.
type Action string

const (
	ActionCeremonyCompleted   Action = "ceremony_completed"
	ActionPushCycleCompleted  Action = "push_cycle_completed"
	ActionPasscodeSubmitted   Action = "passcode_submitted"
	ActionElevationGenerated  Action = "elevation_generated"
	ActionElevationVerified   Action = "elevation_verified"
	ActionElevationDismissed  Action = "elevation_dismissed"
	ActionSignedOut           Action = "signed_out"
)
