package rules

import (
	"encoding/json"
	"maps"
	"slices"
)

// ActiveRule binds a Rule to exactly one profile with a severity and
// parameter overrides keyed by parameter id. A parameter missing from Params
// is "not set", which is distinct from being set to the empty string.
type ActiveRule struct {
	Rule     *Rule
	Severity Severity
	Params   map[int]string
}

// Value returns the value of parameter id and whether it is set.
func (a *ActiveRule) Value(id int) (string, bool) {
	if a == nil || a.Params == nil {
		return "", false
	}
	v, ok := a.Params[id]
	return v, ok
}

// SetValue sets parameter id to v.
func (a *ActiveRule) SetValue(id int, v string) {
	if a.Params == nil {
		a.Params = make(map[int]string)
	}
	a.Params[id] = v
}

// Key returns the key of the bound rule, or the zero key when unbound.
func (a *ActiveRule) Key() RuleKey {
	if a == nil || a.Rule == nil {
		return RuleKey{}
	}
	return a.Rule.Key
}

// Clone returns a copy that shares the Rule but not the parameter map.
func (a ActiveRule) Clone() ActiveRule {
	a.Params = maps.Clone(a.Params)
	return a
}

type activeRuleJSON struct {
	Rule     RuleKey          `json:"rule"`
	Severity Severity         `json:"severity"`
	Params   []paramValueJSON `json:"params,omitempty"`
}

type paramValueJSON struct {
	ID    int    `json:"id"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value"`
}

// MarshalJSON renders the rule by key and the parameters in definition
// order, followed by any values whose id the rule does not declare.
func (a ActiveRule) MarshalJSON() ([]byte, error) {
	out := activeRuleJSON{Severity: a.Severity}
	seen := make(map[int]bool, len(a.Params))
	if a.Rule != nil {
		out.Rule = a.Rule.Key
		for _, p := range a.Rule.Params {
			if v, ok := a.Params[p.ID]; ok {
				out.Params = append(out.Params, paramValueJSON{ID: p.ID, Name: p.Name, Value: v})
				seen[p.ID] = true
			}
		}
	}
	for _, id := range slices.Sorted(maps.Keys(a.Params)) {
		if !seen[id] {
			out.Params = append(out.Params, paramValueJSON{ID: id, Value: a.Params[id]})
		}
	}
	return json.Marshal(out)
}
