package authentication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type LevelStateSuite struct {
	suite.Suite
	state *LevelState
}

func (s *LevelStateSuite) SetupTest() {
	s.state = NewLevelState(nil)
}

func TestLevelStateSuite(t *testing.T) {
	suite.Run(t, new(LevelStateSuite))
}

func (s *LevelStateSuite) TestStartsUnauthenticated() {
	assert.Equal(s.T(), NotAuthenticated, s.state.Level())
	assert.False(s.T(), s.state.FactorKnowledge())
}

func (s *LevelStateSuite) TestRaiseIsMonotonic() {
	s.state.RaiseTo(OneFactor)
	assert.Equal(s.T(), OneFactor, s.state.Level())

	s.state.RaiseTo(TwoFactor)
	assert.Equal(s.T(), TwoFactor, s.state.Level())

	// Same or lower level never changes the state.
	s.state.RaiseTo(TwoFactor)
	assert.Equal(s.T(), TwoFactor, s.state.Level())
	s.state.RaiseTo(OneFactor)
	assert.Equal(s.T(), TwoFactor, s.state.Level())
	s.state.RaiseTo(NotAuthenticated)
	assert.Equal(s.T(), TwoFactor, s.state.Level())
}

func (s *LevelStateSuite) TestRaiseIsIdempotent() {
	s.state.RaiseTo(OneFactor)
	s.state.RaiseTo(OneFactor)
	assert.Equal(s.T(), OneFactor, s.state.Level())
}

func (s *LevelStateSuite) TestResetIsTheOnlyWayDown() {
	s.state.MarkFactorKnowledge()
	s.state.RaiseTo(TwoFactor)

	s.state.Reset()
	assert.Equal(s.T(), NotAuthenticated, s.state.Level())
	assert.False(s.T(), s.state.FactorKnowledge())
}

func (s *LevelStateSuite) TestFactorKnowledgeSurvivesLevelChanges() {
	s.state.MarkFactorKnowledge()
	s.state.RaiseTo(OneFactor)
	s.state.RaiseTo(TwoFactor)
	assert.True(s.T(), s.state.FactorKnowledge())
}

func (s *LevelStateSuite) TestOnRaiseNotifiesEveryIncrease() {
	var seen []Level
	s.state.OnRaise(func(l Level) { seen = append(seen, l) })

	s.state.RaiseTo(OneFactor)
	s.state.RaiseTo(OneFactor) // no-op, no notification
	s.state.RaiseTo(TwoFactor)

	require.Equal(s.T(), []Level{OneFactor, TwoFactor}, seen)
}

func TestProviderSharesStatePerSession(t *testing.T) {
	p := NewProvider(nil)

	a := p.State("session-a")
	a.RaiseTo(OneFactor)

	assert.Same(t, a, p.State("session-a"))
	assert.Equal(t, OneFactor, p.State("session-a").Level())
	assert.Equal(t, NotAuthenticated, p.State("session-b").Level())

	p.SignOut("session-a")
	assert.Equal(t, NotAuthenticated, a.Level())
	assert.NotSame(t, a, p.State("session-a"))
}
