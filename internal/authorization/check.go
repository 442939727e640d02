package authorization

import (
	"github.com/authelia/authelia-sub004/internal/authentication"
	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

// RequiredLevel maps a policy to the minimum authentication level it demands.
// Bypass and Deny do not translate to a level; callers must branch on them
// before comparing levels.
func RequiredLevel(policy Policy) authentication.Level {
	switch policy {
	case TwoFactor:
		return authentication.TwoFactor
	case OneFactor:
		return authentication.OneFactor
	default:
		return authentication.NotAuthenticated
	}
}

// CheckAuthorizations evaluates the policy for the object and decides whether
// the subject may proceed at its current level. It returns nil to allow, a
// CodeNotAuthenticated error when authenticating (or raising the level) would
// help, and a CodeNotAuthorized error when it would not.
//
// The branch ordering is load-bearing: an anonymous subject is always told to
// authenticate, never "forbidden", so probes cannot learn whether a resource
// exists. An authenticated subject hitting a Deny policy is told "forbidden",
// not "authenticate", because re-authenticating cannot help.
func CheckAuthorizations(evaluator *Evaluator, object Object, subject Subject, currentLevel authentication.Level) error {
	required := evaluator.Evaluate(object, subject)

	err := decide(required, currentLevel)
	switch {
	case err == nil:
		ObserveDecision(required, "allow")
	case dErrors.HasCode(err, dErrors.CodeNotAuthorized):
		ObserveDecision(required, "not_authorized")
	default:
		ObserveDecision(required, "not_authenticated")
	}
	return err
}

func decide(required Policy, currentLevel authentication.Level) error {
	switch {
	case required == Bypass:
		return nil
	case required == Deny:
		if currentLevel != authentication.NotAuthenticated {
			return dErrors.New(dErrors.CodeNotAuthorized, "access to this resource is forbidden")
		}
		return dErrors.New(dErrors.CodeNotAuthenticated, "authentication required")
	case currentLevel >= RequiredLevel(required):
		return nil
	case currentLevel == authentication.NotAuthenticated:
		return dErrors.New(dErrors.CodeNotAuthenticated, "authentication required")
	default:
		// Known subject with an insufficient level that a further factor can
		// still cure.
		return dErrors.New(dErrors.CodeNotAuthenticated, "additional authentication factor required")
	}
}
