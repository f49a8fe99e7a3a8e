package rules

import "slices"

// Order is a total order on rules. It returns a negative number when a sorts
// before b, zero when they are the same rule, and a positive number otherwise.
type Order func(a, b *Rule) int

// ByKey orders rules by key (repository, then rule).
func ByKey(a, b *Rule) int {
	return a.Key.Compare(b.Key)
}

// ByName orders rules by name, falling back to key so that rules sharing a
// name still have a stable position.
func ByName(a, b *Rule) int {
	if a.Name < b.Name {
		return -1
	}
	if a.Name > b.Name {
		return 1
	}
	return ByKey(a, b)
}

// SortActiveRules sorts ars in place by the rule order. A nil order means ByKey.
func SortActiveRules(ars []ActiveRule, order Order) {
	if order == nil {
		order = ByKey
	}
	slices.SortStableFunc(ars, func(a, b ActiveRule) int {
		return order(a.Rule, b.Rule)
	})
}
