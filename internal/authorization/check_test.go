package authorization

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/authelia/authelia-sub004/internal/authentication"
	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

func evaluatorWith(policy Policy) *Evaluator {
	rules := []AccessControlRule{{Domains: []string{"*.example.com"}, Policy: policy}}
	return NewEvaluator(rules, Deny, nil)
}

var secureObject = Object{Domain: "app.example.com", Path: "/"}

func TestCheckAuthorizationsBypass(t *testing.T) {
	e := NewEvaluator([]AccessControlRule{
		{Domains: []string{"public.example.com"}, Policy: Bypass},
	}, Deny, nil)
	public := Object{Domain: "public.example.com", Path: "/"}

	// Bypass allows unconditionally, including anonymous subjects.
	for _, level := range []authentication.Level{
		authentication.NotAuthenticated,
		authentication.OneFactor,
		authentication.TwoFactor,
	} {
		assert.NoError(t, CheckAuthorizations(e, public, Subject{}, level), "level %s", level)
	}
}

func TestCheckAuthorizationsOneFactor(t *testing.T) {
	e := evaluatorWith(OneFactor)
	bob := Subject{Username: "bob"}

	err := CheckAuthorizations(e, secureObject, Subject{}, authentication.NotAuthenticated)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthenticated))

	assert.NoError(t, CheckAuthorizations(e, secureObject, bob, authentication.OneFactor))
	assert.NoError(t, CheckAuthorizations(e, secureObject, bob, authentication.TwoFactor))
}

func TestCheckAuthorizationsTwoFactor(t *testing.T) {
	e := evaluatorWith(TwoFactor)
	bob := Subject{Username: "bob"}

	// An insufficient level that another factor can cure yields
	// "authenticate", not "forbidden".
	err := CheckAuthorizations(e, secureObject, bob, authentication.OneFactor)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthenticated))

	assert.NoError(t, CheckAuthorizations(e, secureObject, bob, authentication.TwoFactor))
}

func TestCheckAuthorizationsDeny(t *testing.T) {
	e := evaluatorWith(Deny)

	t.Run("authenticated subjects get forbidden", func(t *testing.T) {
		for _, level := range []authentication.Level{authentication.OneFactor, authentication.TwoFactor} {
			err := CheckAuthorizations(e, secureObject, Subject{Username: "bob"}, level)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized), "level %s", level)
		}
	})

	t.Run("anonymous subjects are told to authenticate", func(t *testing.T) {
		// Never confirm resource existence to anonymous probes.
		err := CheckAuthorizations(e, secureObject, Subject{}, authentication.NotAuthenticated)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthenticated))
	})
}

// CheckAuthorizations must never answer "forbidden" to an unauthenticated
// subject, whatever the required policy.
func TestCheckAuthorizationsNeverForbidsAnonymous(t *testing.T) {
	for _, policy := range []Policy{OneFactor, TwoFactor, Deny} {
		err := CheckAuthorizations(evaluatorWith(policy), secureObject, Subject{}, authentication.NotAuthenticated)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthenticated), "policy %s", policy)
		assert.False(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized), "policy %s", policy)
	}
}

func TestRequiredLevel(t *testing.T) {
	assert.Equal(t, authentication.TwoFactor, RequiredLevel(TwoFactor))
	assert.Equal(t, authentication.OneFactor, RequiredLevel(OneFactor))
	assert.Equal(t, authentication.NotAuthenticated, RequiredLevel(Bypass))
}
