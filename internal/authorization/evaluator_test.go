package authorization

import (
	"net"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRule(t *testing.T, rc RuleConfig) AccessControlRule {
	t.Helper()
	rule, err := compileRule(rc)
	require.NoError(t, err)
	return rule
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	// The second rule is the narrower match; first-match-wins means the
	// broad one_factor rule still decides.
	rules := []AccessControlRule{
		{Domains: []string{"*.example.com"}, Policy: OneFactor},
		{Domains: []string{"admin.example.com"}, Policy: TwoFactor},
	}
	e := NewEvaluator(rules, Deny, nil)

	policy := e.Evaluate(Object{Domain: "admin.example.com", Path: "/"}, Subject{Username: "bob"})
	assert.Equal(t, OneFactor, policy)
}

func TestEvaluateDefaultPolicyOnNoMatch(t *testing.T) {
	rules := []AccessControlRule{
		{Domains: []string{"app.example.com"}, Policy: Bypass},
	}
	e := NewEvaluator(rules, TwoFactor, nil)

	policy := e.Evaluate(Object{Domain: "other.example.com"}, Subject{})
	assert.Equal(t, TwoFactor, policy)
}

func TestDomainMatching(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		domain  string
		want    bool
	}{
		{"exact match", "public.example.com", "public.example.com", true},
		{"exact is case insensitive", "Public.Example.Com", "public.example.com", true},
		{"exact mismatch", "public.example.com", "private.example.com", false},
		{"wildcard matches subdomain", "*.example.com", "app.example.com", true},
		{"wildcard matches nested subdomain", "*.example.com", "a.b.example.com", true},
		{"wildcard does not match apex", "*.example.com", "example.com", false},
		{"wildcard does not match suffix trick", "*.example.com", "evilexample.com", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, matchDomain(tc.pattern, tc.domain))
		})
	}
}

func TestResourceMatching(t *testing.T) {
	rule := AccessControlRule{
		Resources: []*regexp.Regexp{regexp.MustCompile(`^/api/.*$`)},
		Policy:    TwoFactor,
	}

	assert.True(t, rule.Matches(Object{Path: "/api/users"}, Subject{}))
	assert.False(t, rule.Matches(Object{Path: "/public/api/users"}, Subject{}))
	assert.False(t, rule.Matches(Object{Path: "/"}, Subject{}))
}

func TestSubjectMatching(t *testing.T) {
	rule := mustRule(t, RuleConfig{
		Policy:  "one_factor",
		Subject: OneOrMany{"user:bob", "group:admins", "client:cli"},
	})

	t.Run("no constraints matches anyone", func(t *testing.T) {
		open := AccessControlRule{Policy: OneFactor}
		assert.True(t, open.Matches(Object{}, Subject{}))
	})

	t.Run("matches listed user", func(t *testing.T) {
		assert.True(t, rule.matchesSubject(Subject{Username: "bob"}))
	})

	t.Run("matches listed group", func(t *testing.T) {
		assert.True(t, rule.matchesSubject(Subject{Username: "alice", Groups: []string{"dev", "admins"}}))
	})

	t.Run("matches listed client", func(t *testing.T) {
		assert.True(t, rule.matchesSubject(Subject{ClientID: "cli"}))
	})

	t.Run("anonymous subject never matches a user constraint", func(t *testing.T) {
		assert.False(t, rule.matchesSubject(Subject{}))
	})

	t.Run("unlisted subject does not match", func(t *testing.T) {
		assert.False(t, rule.matchesSubject(Subject{Username: "mallory", Groups: []string{"guests"}}))
	})
}

func TestNetworkMatching(t *testing.T) {
	rule := mustRule(t, RuleConfig{
		Policy:   "bypass",
		Networks: OneOrMany{"10.0.0.0/8", "192.168.1.20"},
	})

	assert.True(t, rule.matchesNetwork(net.ParseIP("10.1.2.3")))
	assert.True(t, rule.matchesNetwork(net.ParseIP("192.168.1.20")))
	assert.False(t, rule.matchesNetwork(net.ParseIP("192.168.1.21")))
	assert.False(t, rule.matchesNetwork(nil))
}

func TestParseConfig(t *testing.T) {
	raw := []byte(`
default_policy: deny
rules:
  - domain: public.example.com
    policy: bypass
  - domain:
      - "*.example.com"
    policy: one_factor
    resources:
      - "/api/.*"
    subject: "group:admins"
    networks:
      - 10.0.0.0/8
`)

	rules, defaultPolicy, err := ParseConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, Deny, defaultPolicy)
	require.Len(t, rules, 2)

	assert.Equal(t, Bypass, rules[0].Policy)
	assert.Equal(t, []string{"public.example.com"}, rules[0].Domains)

	assert.Equal(t, OneFactor, rules[1].Policy)
	require.Len(t, rules[1].Resources, 1)
	assert.Equal(t, "^/api/.*$", rules[1].Resources[0].String())
	require.Len(t, rules[1].Subjects, 1)
	assert.Equal(t, SubjectMatcher{Kind: SubjectGroup, Value: "admins"}, rules[1].Subjects[0])
	require.Len(t, rules[1].Networks, 1)
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown policy", "rules:\n  - domain: a.example.com\n    policy: maybe\n"},
		{"bad subject", "rules:\n  - domain: a.example.com\n    policy: deny\n    subject: bob\n"},
		{"bad network", "rules:\n  - domain: a.example.com\n    policy: deny\n    networks: [not-a-network]\n"},
		{"bad regex", "rules:\n  - domain: a.example.com\n    policy: deny\n    resources: ['[']\n"},
		{"bad default policy", "default_policy: sometimes\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseConfig([]byte(tc.raw))
			assert.Error(t, err)
		})
	}
}
