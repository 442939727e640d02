package authorization

import (
	"log/slog"
	"net"
	"regexp"
	"strings"
)

// AccessControlRule is one compiled rule of the access control list.
// A rule matches when every non-empty predicate matches; rules are evaluated
// in declaration order and the first matching rule decides the policy.
type AccessControlRule struct {
	Domains   []string
	Resources []*regexp.Regexp
	Subjects  []SubjectMatcher
	Networks  []*net.IPNet
	Policy    Policy
}

// Evaluator decides the policy required for a request. It is a pure function
// over its rule list: evaluation never mutates state and is safe for
// concurrent use.
type Evaluator struct {
	rules         []AccessControlRule
	defaultPolicy Policy
	logger        *slog.Logger
}

// NewEvaluator builds an evaluator over rules in declaration order, falling
// back to defaultPolicy when no rule matches.
func NewEvaluator(rules []AccessControlRule, defaultPolicy Policy, logger *slog.Logger) *Evaluator {
	return &Evaluator{rules: rules, defaultPolicy: defaultPolicy, logger: logger}
}

// Evaluate returns the policy of the first rule matching the object and
// subject. First match wins: a later, narrower rule never overrides an
// earlier match.
func (e *Evaluator) Evaluate(object Object, subject Subject) Policy {
	for i, rule := range e.rules {
		if rule.Matches(object, subject) {
			if e.logger != nil {
				e.logger.Debug("access control rule matched",
					"rule", i,
					"domain", object.Domain,
					"path", object.Path,
					"policy", rule.Policy.String(),
				)
			}
			return rule.Policy
		}
	}
	return e.defaultPolicy
}

// DefaultPolicy returns the configured fallback policy.
func (e *Evaluator) DefaultPolicy() Policy {
	return e.defaultPolicy
}

// Matches reports whether every predicate of the rule accepts the request.
// Empty predicates match everything.
func (r AccessControlRule) Matches(object Object, subject Subject) bool {
	return r.matchesDomain(object.Domain) &&
		r.matchesResource(object.Path) &&
		r.matchesSubject(subject) &&
		r.matchesNetwork(subject.IP)
}

func (r AccessControlRule) matchesDomain(domain string) bool {
	if len(r.Domains) == 0 {
		return true
	}
	for _, pattern := range r.Domains {
		if matchDomain(pattern, domain) {
			return true
		}
	}
	return false
}

// matchDomain supports a leading "*." wildcard covering exactly one or more
// subdomain labels; anything else is an exact, case-insensitive match.
func matchDomain(pattern, domain string) bool {
	pattern = strings.ToLower(pattern)
	domain = strings.ToLower(domain)
	if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
		return domain != suffix && strings.HasSuffix(domain, "."+suffix)
	}
	return pattern == domain
}

func (r AccessControlRule) matchesResource(path string) bool {
	if len(r.Resources) == 0 {
		return true
	}
	for _, re := range r.Resources {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// matchesSubject accepts when the rule carries no subject constraints, or
// when at least one listed matcher is satisfied by the subject.
func (r AccessControlRule) matchesSubject(subject Subject) bool {
	if len(r.Subjects) == 0 {
		return true
	}
	for _, m := range r.Subjects {
		switch m.Kind {
		case SubjectUser:
			if subject.Username != "" && subject.Username == m.Value {
				return true
			}
		case SubjectGroup:
			for _, group := range subject.Groups {
				if group == m.Value {
					return true
				}
			}
		case SubjectClient:
			if subject.ClientID != "" && subject.ClientID == m.Value {
				return true
			}
		}
	}
	return false
}

func (r AccessControlRule) matchesNetwork(ip net.IP) bool {
	if len(r.Networks) == 0 {
		return true
	}
	if ip == nil {
		return false
	}
	for _, network := range r.Networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
