package authentication

import (
	"log/slog"
	"sync"
)

// LevelState tracks the authentication level of one session together with
// factor knowledge (whether a password has been verified this session).
//
// It is the single shared object of the ceremony core: ceremony controllers
// mutate it only on successful completion, everything else reads it. Raising
// the level is the trigger that unlocks navigation past the login flow, which
// subscribers observe through OnRaise callbacks.
type LevelState struct {
	mu              sync.RWMutex
	level           Level
	factorKnowledge bool
	subscribers     []func(Level)
	logger          *slog.Logger
}

// NewLevelState returns a LevelState at NotAuthenticated with no factor
// knowledge.
func NewLevelState(logger *slog.Logger) *LevelState {
	return &LevelState{logger: logger}
}

// Level returns the current authentication level.
func (s *LevelState) Level() Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.level
}

// FactorKnowledge reports whether a knowledge factor (password) has been
// verified in this session. It is independent of the level: a session can
// reach OneFactor through a possession factor without ever supplying a
// password. It only resets on sign-out.
func (s *LevelState) FactorKnowledge() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.factorKnowledge
}

// MarkFactorKnowledge records that a password has been verified this session.
func (s *LevelState) MarkFactorKnowledge() {
	s.mu.Lock()
	s.factorKnowledge = true
	s.mu.Unlock()
}

// RaiseTo raises the level. A call with the same or a lower level is a no-op:
// the level never lowers through this method, only through Reset. Attempting
// to lower is a programming error on the caller's side, so it is logged
// rather than returned.
func (s *LevelState) RaiseTo(level Level) {
	s.mu.Lock()
	if level <= s.level {
		if level < s.level && s.logger != nil {
			s.logger.Warn("refusing to lower authentication level",
				"current", s.level.String(),
				"requested", level.String(),
			)
		}
		s.mu.Unlock()
		return
	}
	s.level = level
	subscribers := make([]func(Level), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, notify := range subscribers {
		notify(level)
	}
}

// Reset returns the session to NotAuthenticated and clears factor knowledge.
// This is the sign-out path and the only way the level lowers.
func (s *LevelState) Reset() {
	s.mu.Lock()
	s.level = NotAuthenticated
	s.factorKnowledge = false
	s.mu.Unlock()
}

// OnRaise registers a callback invoked after every successful level raise.
// Callbacks run outside the state lock, on the raising goroutine.
func (s *LevelState) OnRaise(notify func(Level)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, notify)
	s.mu.Unlock()
}
