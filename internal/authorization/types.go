package authorization

import (
	"fmt"
	"net"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy is the outcome an access control rule assigns to a request.
type Policy int

const (
	Bypass Policy = iota
	OneFactor
	TwoFactor
	Deny
)

// ParsePolicy maps the configuration spelling of a policy to its value.
func ParsePolicy(raw string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "bypass":
		return Bypass, nil
	case "one_factor":
		return OneFactor, nil
	case "two_factor":
		return TwoFactor, nil
	case "deny":
		return Deny, nil
	}
	return Deny, fmt.Errorf("unknown policy %q", raw)
}

// String returns the configuration spelling of the policy.
func (p Policy) String() string {
	switch p {
	case Bypass:
		return "bypass"
	case OneFactor:
		return "one_factor"
	case TwoFactor:
		return "two_factor"
	default:
		return "deny"
	}
}

// SubjectKind discriminates the subject matchers a rule may carry.
type SubjectKind int

const (
	SubjectUser SubjectKind = iota
	SubjectGroup
	SubjectClient
)

// SubjectMatcher matches one aspect of the requesting subject.
// The configuration spelling is "user:name", "group:name" or "client:id".
type SubjectMatcher struct {
	Kind  SubjectKind
	Value string
}

// ParseSubjectMatcher parses the "kind:value" configuration form.
func ParseSubjectMatcher(raw string) (SubjectMatcher, error) {
	kind, value, found := strings.Cut(raw, ":")
	if !found || value == "" {
		return SubjectMatcher{}, fmt.Errorf("invalid subject %q: want kind:value", raw)
	}
	switch kind {
	case "user":
		return SubjectMatcher{Kind: SubjectUser, Value: value}, nil
	case "group":
		return SubjectMatcher{Kind: SubjectGroup, Value: value}, nil
	case "client":
		return SubjectMatcher{Kind: SubjectClient, Value: value}, nil
	}
	return SubjectMatcher{}, fmt.Errorf("invalid subject kind %q", kind)
}

// Subject describes who is making the request. The zero value is an anonymous
// subject.
type Subject struct {
	Username string
	Groups   []string
	ClientID string
	IP       net.IP
}

// IsAnonymous reports whether no identity has been established for the
// subject.
func (s Subject) IsAnonymous() bool {
	return s.Username == "" && s.ClientID == ""
}

// Object describes what is being requested.
type Object struct {
	Domain string
	Path   string
}

// OneOrMany lets a YAML field hold either a scalar or a sequence of strings,
// which keeps single-domain rules terse in the rules file.
type OneOrMany []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *OneOrMany) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*o = OneOrMany{single}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*o = OneOrMany(many)
		return nil
	}
	return fmt.Errorf("line %d: expected scalar or sequence", node.Line)
}
