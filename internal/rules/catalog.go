package rules

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Catalog is a read-only lookup of rules by key.
type Catalog struct {
	rules map[RuleKey]*Rule
}

// NewCatalog builds a catalog from rules. Keys must be unique.
func NewCatalog(rs ...*Rule) (*Catalog, error) {
	c := &Catalog{rules: make(map[RuleKey]*Rule, len(rs))}
	for _, r := range rs {
		if _, exists := c.rules[r.Key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.Key)
		}
		c.rules[r.Key] = r
	}
	return c, nil
}

// Get returns the rule with the given key.
func (c *Catalog) Get(key RuleKey) (*Rule, bool) {
	r, ok := c.rules[key]
	return r, ok
}

// Lookup is like Get but parses key first and returns ErrUnknownRule when absent.
func (c *Catalog) Lookup(key string) (*Rule, error) {
	k, err := ParseRuleKey(key)
	if err != nil {
		return nil, err
	}
	r, ok := c.rules[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, k)
	}
	return r, nil
}

// Rules returns every rule in key order.
func (c *Catalog) Rules() []*Rule {
	keys := slices.SortedFunc(maps.Keys(c.rules), RuleKey.Compare)
	out := make([]*Rule, len(keys))
	for i, k := range keys {
		out[i] = c.rules[k]
	}
	return out
}

// Len returns the number of rules in the catalog.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// catalogFile is the YAML layout of a rule catalog.
type catalogFile struct {
	Rules []catalogEntry `yaml:"rules"`
}

type catalogEntry struct {
	Key    string       `yaml:"key"`
	Name   string       `yaml:"name"`
	Params []paramEntry `yaml:"params,omitempty"`
}

type paramEntry struct {
	ID   int    `yaml:"id,omitempty"`
	Name string `yaml:"name"`
}

// ParseCatalog parses a YAML rule catalog. Parameter ids left at zero are
// assigned after the highest explicit id, in file order.
func ParseCatalog(content []byte) (*Catalog, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(content, &cf); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	nextID := 0
	seenIDs := make(map[int]string)
	for _, e := range cf.Rules {
		for _, p := range e.Params {
			if p.ID < 0 {
				return nil, fmt.Errorf("rule '%s': parameter '%s' has negative id", e.Key, p.Name)
			}
			if p.ID == 0 {
				continue
			}
			if owner, dup := seenIDs[p.ID]; dup {
				return nil, fmt.Errorf("rule '%s': parameter id %d already used by '%s'", e.Key, p.ID, owner)
			}
			seenIDs[p.ID] = e.Key
			nextID = max(nextID, p.ID)
		}
	}

	rs := make([]*Rule, 0, len(cf.Rules))
	for _, e := range cf.Rules {
		key, err := ParseRuleKey(e.Key)
		if err != nil {
			return nil, err
		}
		if e.Name == "" {
			return nil, fmt.Errorf("rule '%s': name is required", e.Key)
		}

		r := &Rule{Key: key, Name: e.Name}
		names := make(map[string]bool, len(e.Params))
		for _, p := range e.Params {
			if p.Name == "" {
				return nil, fmt.Errorf("rule '%s': parameter name is required", e.Key)
			}
			if names[p.Name] {
				return nil, fmt.Errorf("rule '%s': duplicate parameter '%s'", e.Key, p.Name)
			}
			names[p.Name] = true

			id := p.ID
			if id == 0 {
				nextID++
				id = nextID
			}
			r.Params = append(r.Params, ParameterDefinition{ID: id, Name: p.Name})
		}
		rs = append(rs, r)
	}

	return NewCatalog(rs...)
}

// LoadCatalog reads and parses a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(content)
}
