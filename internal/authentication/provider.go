package authentication

import (
	"log/slog"
	"sync"
)

// Provider hands out the LevelState for a session. The transport layer
// resolves a session identifier from the bearer token and every ceremony
// component for that session shares the one LevelState instance.
type Provider struct {
	mu       sync.Mutex
	sessions map[string]*LevelState
	logger   *slog.Logger
}

// NewProvider returns an empty session provider.
func NewProvider(logger *slog.Logger) *Provider {
	return &Provider{
		sessions: make(map[string]*LevelState),
		logger:   logger,
	}
}

// State returns the LevelState for the session, creating it at
// NotAuthenticated on first sight.
func (p *Provider) State(sessionID string) *LevelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.sessions[sessionID]
	if !ok {
		state = NewLevelState(p.logger)
		p.sessions[sessionID] = state
	}
	return state
}

// SignOut resets and forgets the session's state.
func (p *Provider) SignOut(sessionID string) {
	p.mu.Lock()
	state, ok := p.sessions[sessionID]
	delete(p.sessions, sessionID)
	p.mu.Unlock()
	if ok {
		state.Reset()
	}
}
