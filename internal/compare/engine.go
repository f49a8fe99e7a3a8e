package compare

import (
	"slices"

	"qpdiff/internal/rules"
)

// Compare classifies the active rules of two profiles with the given
// strategy. Rule order is rules.ByKey.
func Compare(left, right []rules.ActiveRule, strategy Strategy) (Result, error) {
	s, err := ParseStrategy(string(strategy))
	if err != nil {
		return Result{}, err
	}
	if s == StrategyIndex {
		return CompareIndexed(left, right)
	}
	return CompareSorted(left, right, rules.ByKey)
}

// CompareSorted pairs the two collections in a single merge pass.
//
// Both collections must be sorted under order with at most one active rule
// per rule; otherwise an *InvalidInputError is returned and nothing is
// classified. A nil order means rules.ByKey.
func CompareSorted(left, right []rules.ActiveRule, order rules.Order) (Result, error) {
	if order == nil {
		order = rules.ByKey
	}
	if err := checkSorted(SideLeft, left, order); err != nil {
		return Result{}, err
	}
	if err := checkSorted(SideRight, right, order); err != nil {
		return Result{}, err
	}

	b := newBuilder(len(left) + len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		a1, a2 := &left[i], &right[j]
		c := order(a1.Rule, a2.Rule)
		switch {
		case c < 0:
			b.add(a1.Rule, a1, nil)
			i++
		case c > 0:
			b.add(a2.Rule, nil, a2)
			j++
		default:
			b.add(a1.Rule, a1, a2)
			i++
			j++
		}
	}

	// One side is exhausted; the rest of the other is unmatched.
	for ; i < len(left); i++ {
		b.add(left[i].Rule, &left[i], nil)
	}
	for ; j < len(right); j++ {
		b.add(right[j].Rule, nil, &right[j])
	}

	return b.result(), nil
}

// CompareIndexed pairs the two collections through a map keyed by rule key,
// so input order does not matter. Each side must still hold at most one
// active rule per rule. The result is identical to CompareSorted with
// rules.ByKey on the same rules.
func CompareIndexed(left, right []rules.ActiveRule) (Result, error) {
	type pair struct {
		rule        *rules.Rule
		left, right *rules.ActiveRule
	}

	index := make(map[rules.RuleKey]*pair, len(left)+len(right))
	for i := range left {
		ar := &left[i]
		if ar.Rule == nil {
			return Result{}, &InvalidInputError{Side: SideLeft, Index: i, Reason: ReasonMissingRule}
		}
		if _, dup := index[ar.Rule.Key]; dup {
			return Result{}, &InvalidInputError{Side: SideLeft, Index: i, Key: ar.Rule.Key, Reason: ReasonDuplicate}
		}
		index[ar.Rule.Key] = &pair{rule: ar.Rule, left: ar}
	}
	for i := range right {
		ar := &right[i]
		if ar.Rule == nil {
			return Result{}, &InvalidInputError{Side: SideRight, Index: i, Reason: ReasonMissingRule}
		}
		p, ok := index[ar.Rule.Key]
		if !ok {
			index[ar.Rule.Key] = &pair{rule: ar.Rule, right: ar}
			continue
		}
		if p.right != nil {
			return Result{}, &InvalidInputError{Side: SideRight, Index: i, Key: ar.Rule.Key, Reason: ReasonDuplicate}
		}
		p.right = ar
	}

	pairs := make([]*pair, 0, len(index))
	for _, p := range index {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(a, b *pair) int {
		return a.rule.Key.Compare(b.rule.Key)
	})

	b := newBuilder(len(pairs))
	for _, p := range pairs {
		b.add(p.rule, p.left, p.right)
	}
	return b.result(), nil
}

// checkSorted verifies the merge precondition for one side.
func checkSorted(side Side, ars []rules.ActiveRule, order rules.Order) error {
	for i := range ars {
		if ars[i].Rule == nil {
			return &InvalidInputError{Side: side, Index: i, Reason: ReasonMissingRule}
		}
		if i == 0 {
			continue
		}
		c := order(ars[i-1].Rule, ars[i].Rule)
		if c > 0 {
			return &InvalidInputError{Side: side, Index: i, Key: ars[i].Rule.Key, Reason: ReasonUnsorted}
		}
		if c == 0 {
			return &InvalidInputError{Side: side, Index: i, Key: ars[i].Rule.Key, Reason: ReasonDuplicate}
		}
	}
	return nil
}

// builder accumulates classified rules in the order they are added.
type builder struct {
	r Result
}

func newBuilder(capacity int) *builder {
	return &builder{r: Result{
		OnlyLeft:  []*rules.Rule{},
		OnlyRight: []*rules.Rule{},
		Modified:  []RuleDiff{},
		Identical: []*rules.Rule{},
		modIndex:  make(map[rules.RuleKey]int),
		status:    make(map[rules.RuleKey]Status, capacity),
	}}
}

func (b *builder) add(rule *rules.Rule, a1, a2 *rules.ActiveRule) {
	status, diff := DiffActiveRule(rule, a1, a2)
	switch status {
	case StatusOnlyLeft:
		b.r.OnlyLeft = append(b.r.OnlyLeft, rule)
	case StatusOnlyRight:
		b.r.OnlyRight = append(b.r.OnlyRight, rule)
	case StatusModified:
		b.r.modIndex[rule.Key] = len(b.r.Modified)
		b.r.Modified = append(b.r.Modified, *diff)
	case StatusIdentical:
		b.r.Identical = append(b.r.Identical, rule)
	default:
		return
	}
	b.r.status[rule.Key] = status
}

func (b *builder) result() Result {
	b.r.byName = make([]int, len(b.r.Modified))
	for i := range b.r.byName {
		b.r.byName[i] = i
	}
	slices.SortStableFunc(b.r.byName, func(x, y int) int {
		return rules.ByName(b.r.Modified[x].Rule, b.r.Modified[y].Rule)
	})
	return b.r
}
