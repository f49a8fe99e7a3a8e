package profile

import (
	"fmt"
	"maps"
	"strings"

	"qpdiff/internal/rules"
)

// Lookup returns the document of the parent profile with the given key.
type Lookup func(key string) (Document, error)

// Flatten folds doc's ancestors into a single document without a parent.
// Rules inherited from a parent keep their position; a child entry for the
// same rule overrides the severity when set and each parameter it names.
// Rules new in the child follow in child order.
func Flatten(doc Document, lookup Lookup) (Document, error) {
	chain := []Document{doc}
	visited := map[string]bool{doc.Key: true}
	path := []string{doc.Key}

	for cur := doc; cur.Parent != ""; {
		if visited[cur.Parent] {
			path = append(path, cur.Parent)
			return Document{}, fmt.Errorf("%w: %s", ErrInheritanceCycle, strings.Join(path, " -> "))
		}
		parent, err := lookup(cur.Parent)
		if err != nil {
			return Document{}, fmt.Errorf("parent %q of %q: %w", cur.Parent, cur.Key, err)
		}
		visited[cur.Parent] = true
		path = append(path, cur.Parent)
		chain = append(chain, parent)
		cur = parent
	}

	out := Document{Key: doc.Key, Name: doc.Name, Language: doc.Language}
	index := make(map[string]int)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, entry := range chain[i].Rules {
			id := ruleIdentity(entry.Rule)
			pos, ok := index[id]
			if !ok {
				index[id] = len(out.Rules)
				out.Rules = append(out.Rules, RuleEntry{
					Rule:     entry.Rule,
					Severity: entry.Severity,
					Params:   maps.Clone(entry.Params),
				})
				continue
			}
			merged := &out.Rules[pos]
			if entry.Severity != "" {
				merged.Severity = entry.Severity
			}
			if len(entry.Params) > 0 && merged.Params == nil {
				merged.Params = make(map[string]string, len(entry.Params))
			}
			maps.Copy(merged.Params, entry.Params)
		}
	}
	return out, nil
}

// ruleIdentity is the canonical form of a rule reference, so that entries
// written differently for the same rule merge. Unparsable references are
// kept as written and left to the validator.
func ruleIdentity(ref string) string {
	if k, err := rules.ParseRuleKey(ref); err == nil {
		return k.String()
	}
	return ref
}
