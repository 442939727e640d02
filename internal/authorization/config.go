package authorization

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleConfig is the YAML shape of one access control rule.
type RuleConfig struct {
	Domain    OneOrMany `yaml:"domain"`
	Policy    string    `yaml:"policy"`
	Resources OneOrMany `yaml:"resources"`
	Subject   OneOrMany `yaml:"subject"`
	Networks  OneOrMany `yaml:"networks"`
}

// Config is the YAML shape of the access control section.
type Config struct {
	DefaultPolicy string       `yaml:"default_policy"`
	Rules         []RuleConfig `yaml:"rules"`
}

// ParseConfig decodes and compiles an access control configuration document.
// Compilation fails on the first invalid policy, subject, regex or CIDR so a
// bad rules file is rejected at startup rather than silently skipped at
// evaluation time.
func ParseConfig(raw []byte) ([]AccessControlRule, Policy, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, Deny, fmt.Errorf("parsing access control config: %w", err)
	}

	defaultPolicy := Deny
	if cfg.DefaultPolicy != "" {
		var err error
		if defaultPolicy, err = ParsePolicy(cfg.DefaultPolicy); err != nil {
			return nil, Deny, fmt.Errorf("default_policy: %w", err)
		}
	}

	rules := make([]AccessControlRule, 0, len(cfg.Rules))
	for i, rc := range cfg.Rules {
		rule, err := compileRule(rc)
		if err != nil {
			return nil, Deny, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}

	return rules, defaultPolicy, nil
}

// LoadFile reads and compiles the rules file at path.
func LoadFile(path string) ([]AccessControlRule, Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, Deny, fmt.Errorf("reading access control config: %w", err)
	}
	return ParseConfig(raw)
}

func compileRule(rc RuleConfig) (AccessControlRule, error) {
	policy, err := ParsePolicy(rc.Policy)
	if err != nil {
		return AccessControlRule{}, err
	}

	rule := AccessControlRule{
		Domains: []string(rc.Domain),
		Policy:  policy,
	}

	for _, expr := range rc.Resources {
		// Resource patterns are anchored so a rule for /api/ cannot
		// accidentally match /public/api/.
		if !strings.HasPrefix(expr, "^") {
			expr = "^" + expr
		}
		if !strings.HasSuffix(expr, "$") {
			expr += "$"
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return AccessControlRule{}, fmt.Errorf("resource %q: %w", expr, err)
		}
		rule.Resources = append(rule.Resources, re)
	}

	for _, raw := range rc.Subject {
		matcher, err := ParseSubjectMatcher(raw)
		if err != nil {
			return AccessControlRule{}, err
		}
		rule.Subjects = append(rule.Subjects, matcher)
	}

	for _, raw := range rc.Networks {
		_, network, err := net.ParseCIDR(raw)
		if err != nil {
			// Allow bare addresses as /32 (or /128) convenience.
			ip := net.ParseIP(raw)
			if ip == nil {
				return AccessControlRule{}, fmt.Errorf("network %q: %w", raw, err)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			network = &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
		}
		rule.Networks = append(rule.Networks, network)
	}

	return rule, nil
}
