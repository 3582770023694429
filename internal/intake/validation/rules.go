package validation

import (
	"embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed rules_email.yaml rules_phone.yaml
var defaultRules embed.FS

// Rule constrains a single input field. Length limits count runes; Regex is a
// search, not a full match, so patterns anchor themselves when they need to.
type Rule struct {
	Name      string `yaml:"name"                 json:"name"`
	Required  bool   `yaml:"required"             json:"required"`
	MinLength *int   `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	MaxLength *int   `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	Regex     string `yaml:"regex,omitempty"      json:"regex,omitempty"`

	re *regexp.Regexp
}

// Provider supplies the ordered rule list the validator runs.
type Provider interface {
	Rules() []Rule
}

// RuleSet is a loaded, compiled and read-only list of rules.
type RuleSet struct {
	rules []Rule
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Rules returns a copy of the rule list in configuration order.
func (s RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Len reports how many rules the set holds.
func (s RuleSet) Len() int { return len(s.rules) }

// NewRuleSet compiles rules built in code.
func NewRuleSet(rules ...Rule) (RuleSet, error) {
	compiled := make([]Rule, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for i, rule := range rules {
		if rule.Name == "" {
			return RuleSet{}, fmt.Errorf("rule %d: name is required", i)
		}
		if _, dup := seen[rule.Name]; dup {
			return RuleSet{}, fmt.Errorf("rule %q: declared more than once", rule.Name)
		}
		seen[rule.Name] = struct{}{}

		if rule.MinLength != nil && *rule.MinLength < 0 {
			return RuleSet{}, fmt.Errorf("rule %q: min_length must not be negative", rule.Name)
		}
		if rule.MaxLength != nil && *rule.MaxLength < 0 {
			return RuleSet{}, fmt.Errorf("rule %q: max_length must not be negative", rule.Name)
		}
		if rule.MinLength != nil && rule.MaxLength != nil && *rule.MinLength > *rule.MaxLength {
			return RuleSet{}, fmt.Errorf("rule %q: min_length %d exceeds max_length %d", rule.Name, *rule.MinLength, *rule.MaxLength)
		}
		if rule.Regex != "" {
			re, err := regexp.Compile(rule.Regex)
			if err != nil {
				return RuleSet{}, fmt.Errorf("rule %q: compile regex: %w", rule.Name, err)
			}
			rule.re = re
		}
		compiled = append(compiled, rule)
	}
	return RuleSet{rules: compiled}, nil
}

// ParseRules decodes a YAML rule document.
func ParseRules(data []byte) (RuleSet, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return RuleSet{}, fmt.Errorf("decode rules: %w", err)
	}
	if len(file.Rules) == 0 {
		return RuleSet{}, fmt.Errorf("rules document declares no rules")
	}
	return NewRuleSet(file.Rules...)
}

// LoadRules reads a YAML rule document from disk.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// DefaultRules returns the embedded rule set for an identity attribute
// ("email" or "phone").
func DefaultRules(identityAttribute string) (RuleSet, error) {
	data, err := defaultRules.ReadFile("rules_" + identityAttribute + ".yaml")
	if err != nil {
		return RuleSet{}, fmt.Errorf("no default rules for identity attribute %q", identityAttribute)
	}
	return ParseRules(data)
}

// Resolve picks the rules file when one is configured and the embedded
// defaults otherwise.
func Resolve(path, identityAttribute string) (RuleSet, error) {
	if path != "" {
		return LoadRules(path)
	}
	return DefaultRules(identityAttribute)
}

// IntPtr is a small helper for building rules in code.
func IntPtr(n int) *int { return &n }
