// Package profile reads quality profile documents and binds them to a rule
// catalog.
//
// A [Document] is the on-disk form: rules are named by key and parameters by
// name. A [Profile] is the resolved form the comparison engine consumes.
package profile

import (
	"errors"
	"fmt"

	"qpdiff/internal/rules"
)

var (
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrDuplicateEntry   = errors.New("duplicate rule entry")
	ErrUnresolvedParent = errors.New("profile has an unresolved parent")
	ErrInheritanceCycle = errors.New("inheritance cycle")
)

// Document is a profile as written in a YAML or JSON file.
type Document struct {
	Key      string      `json:"key" yaml:"key"`
	Name     string      `json:"name" yaml:"name"`
	Language string      `json:"language" yaml:"language"`
	Parent   string      `json:"parent,omitempty" yaml:"parent,omitempty"`
	Rules    []RuleEntry `json:"rules" yaml:"rules"`
}

// RuleEntry activates one rule. An empty Severity is only meaningful in a
// child document, where it keeps the parent's severity.
type RuleEntry struct {
	Rule     string            `json:"rule" yaml:"rule"`
	Severity string            `json:"severity,omitempty" yaml:"severity,omitempty"`
	Params   map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Profile is a document bound to a catalog. Rules are sorted by key.
type Profile struct {
	Key      string
	Name     string
	Language string
	Rules    []rules.ActiveRule
}

// Resolve binds doc to the catalog, converting parameter names to ids and
// sorting active rules by key. It stops at the first problem; run the
// validator first for a complete report. Documents with a parent must be
// flattened first.
func Resolve(doc Document, catalog *rules.Catalog) (Profile, error) {
	if doc.Parent != "" {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnresolvedParent, doc.Parent)
	}

	p := Profile{
		Key:      doc.Key,
		Name:     doc.Name,
		Language: doc.Language,
		Rules:    make([]rules.ActiveRule, 0, len(doc.Rules)),
	}
	seen := make(map[rules.RuleKey]bool, len(doc.Rules))

	for i, entry := range doc.Rules {
		rule, err := catalog.Lookup(entry.Rule)
		if err != nil {
			return Profile{}, fmt.Errorf("rules[%d]: %w", i, err)
		}
		if seen[rule.Key] {
			return Profile{}, fmt.Errorf("rules[%d]: %w: %s", i, ErrDuplicateEntry, rule.Key)
		}
		seen[rule.Key] = true

		sev, err := rules.ParseSeverity(entry.Severity)
		if err != nil {
			return Profile{}, fmt.Errorf("rules[%d]: %w", i, err)
		}

		ar := rules.ActiveRule{Rule: rule, Severity: sev}
		for name, value := range entry.Params {
			def, ok := rule.Param(name)
			if !ok {
				return Profile{}, fmt.Errorf("rules[%d]: %w %q for %s", i, ErrUnknownParameter, name, rule.Key)
			}
			ar.SetValue(def.ID, value)
		}
		p.Rules = append(p.Rules, ar)
	}

	rules.SortActiveRules(p.Rules, rules.ByKey)
	return p, nil
}

// FromProfile converts p back to a document. Values of parameter ids the
// rule does not declare are dropped.
func FromProfile(p Profile) Document {
	doc := Document{
		Key:      p.Key,
		Name:     p.Name,
		Language: p.Language,
		Rules:    make([]RuleEntry, 0, len(p.Rules)),
	}
	for i := range p.Rules {
		ar := &p.Rules[i]
		entry := RuleEntry{Rule: ar.Key().String(), Severity: ar.Severity.String()}
		if ar.Rule != nil {
			for _, def := range ar.Rule.Params {
				if v, ok := ar.Value(def.ID); ok {
					if entry.Params == nil {
						entry.Params = make(map[string]string)
					}
					entry.Params[def.Name] = v
				}
			}
		}
		doc.Rules = append(doc.Rules, entry)
	}
	return doc
}
