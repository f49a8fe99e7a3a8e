// Package rules holds the catalog-side model: rule identities, their
// parameter definitions, severities, and the active rules that bind a rule
// to a quality profile.
package rules

import (
	"cmp"
	"strings"
)

// RuleKey identifies a rule across the catalog. Keys are namespaced by the
// repository (plugin) that declares the rule and render as "repository:rule".
type RuleKey struct {
	Repository string
	Rule       string
}

// ParseRuleKey parses "repository:rule". The rule part may itself contain colons.
func ParseRuleKey(s string) (RuleKey, error) {
	repo, rule, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || repo == "" || rule == "" {
		return RuleKey{}, &ParseError{Type: "RuleKey", Value: s}
	}
	return RuleKey{Repository: repo, Rule: rule}, nil
}

// MustParseRuleKey is like ParseRuleKey but panics on error.
func MustParseRuleKey(s string) RuleKey {
	k, err := ParseRuleKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

func (k RuleKey) String() string {
	return k.Repository + ":" + k.Rule
}

// IsZero reports whether k is the empty key.
func (k RuleKey) IsZero() bool {
	return k.Repository == "" && k.Rule == ""
}

// Compare orders keys by repository, then by rule. This is the order the
// profile database returns active rules in.
func (k RuleKey) Compare(other RuleKey) int {
	if c := cmp.Compare(k.Repository, other.Repository); c != 0 {
		return c
	}
	return cmp.Compare(k.Rule, other.Rule)
}

func (k RuleKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *RuleKey) UnmarshalText(text []byte) error {
	parsed, err := ParseRuleKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParameterDefinition is a configuration slot declared by a rule.
type ParameterDefinition struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Rule is an immutable catalog entry. Rules are shared between profiles and
// must not be mutated once handed to a Catalog.
type Rule struct {
	Key    RuleKey               `json:"key"`
	Name   string                `json:"name"`
	Params []ParameterDefinition `json:"params,omitempty"`
}

// Param returns the parameter definition with the given name.
func (r *Rule) Param(name string) (ParameterDefinition, bool) {
	for _, p := range r.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterDefinition{}, false
}

// ParamByID returns the parameter definition with the given id.
func (r *Rule) ParamByID(id int) (ParameterDefinition, bool) {
	for _, p := range r.Params {
		if p.ID == id {
			return p, true
		}
	}
	return ParameterDefinition{}, false
}
