// Package compare computes the classified difference between the active
// rules of two quality profiles.
package compare

import (
	"encoding/json"
	"errors"
	"fmt"

	"qpdiff/internal/rules"
)

// ErrUnknownStrategy is returned for a strategy name Compare does not know.
var ErrUnknownStrategy = errors.New("unknown comparison strategy")

// Status is the bucket a rule lands in.
type Status int

const (
	StatusUnknown   Status = iota // Neither side has the rule
	StatusOnlyLeft                // Active in the left profile only
	StatusOnlyRight               // Active in the right profile only
	StatusModified                // Active in both, severity or parameters differ
	StatusIdentical               // Active in both with the same settings
)

func (s Status) String() string {
	switch s {
	case StatusOnlyLeft:
		return "only-left"
	case StatusOnlyRight:
		return "only-right"
	case StatusModified:
		return "modified"
	case StatusIdentical:
		return "identical"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Strategy selects the pairing algorithm.
type Strategy string

const (
	// StrategyMerge walks both sorted inputs once with two cursors.
	StrategyMerge Strategy = "merge"
	// StrategyIndex pairs rules through a map keyed by rule key and does not
	// need sorted input.
	StrategyIndex Strategy = "index"
)

// ParseStrategy returns the strategy with the given name. The empty string
// selects StrategyMerge.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyMerge:
		return StrategyMerge, nil
	case StrategyIndex:
		return StrategyIndex, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// RuleDiff details how a rule active in both profiles differs.
// RemovedParameters holds parameters whose left value was changed or unset;
// AddedParameters holds parameters whose right value is new or changed. Both
// follow the rule's parameter definition order.
type RuleDiff struct {
	Rule              *rules.Rule                 `json:"rule"`
	Left              *rules.ActiveRule           `json:"left"`
	Right             *rules.ActiveRule           `json:"right"`
	SeverityChanged   bool                        `json:"severityChanged"`
	RemovedParameters []rules.ParameterDefinition `json:"removedParameters"`
	AddedParameters   []rules.ParameterDefinition `json:"addedParameters"`
}

// ParameterChange is the before/after value of one parameter.
type ParameterChange struct {
	Param    rules.ParameterDefinition
	Old      string
	OldIsSet bool
	New      string
	NewIsSet bool
}

// ParameterChanges lists every parameter that appears in RemovedParameters
// or AddedParameters, once, in definition order.
func (d RuleDiff) ParameterChanges() []ParameterChange {
	if d.Rule == nil {
		return nil
	}
	changed := make(map[int]bool, len(d.RemovedParameters)+len(d.AddedParameters))
	for _, p := range d.RemovedParameters {
		changed[p.ID] = true
	}
	for _, p := range d.AddedParameters {
		changed[p.ID] = true
	}

	var out []ParameterChange
	for _, p := range d.Rule.Params {
		if !changed[p.ID] {
			continue
		}
		pc := ParameterChange{Param: p}
		pc.Old, pc.OldIsSet = d.Left.Value(p.ID)
		pc.New, pc.NewIsSet = d.Right.Value(p.ID)
		out = append(out, pc)
	}
	return out
}

// Counts holds the cardinality of each bucket.
type Counts struct {
	OnlyLeft  int `json:"onlyLeft"`
	OnlyRight int `json:"onlyRight"`
	Modified  int `json:"modified"`
	Identical int `json:"identical"`
}

// Total returns the number of distinct rules compared.
func (c Counts) Total() int {
	return c.OnlyLeft + c.OnlyRight + c.Modified + c.Identical
}

// Result is the outcome of comparing two profiles. Every rule active on
// either side appears in exactly one bucket; buckets are in rule order.
// A Result must not be modified after it is returned.
type Result struct {
	OnlyLeft  []*rules.Rule `json:"onlyLeft"`
	OnlyRight []*rules.Rule `json:"onlyRight"`
	Modified  []RuleDiff    `json:"modified"`
	Identical []*rules.Rule `json:"identical"`

	byName   []int // Modified indexes ordered by rule name
	modIndex map[rules.RuleKey]int
	status   map[rules.RuleKey]Status
}

// Counts returns the size of every bucket.
func (r Result) Counts() Counts {
	return Counts{
		OnlyLeft:  len(r.OnlyLeft),
		OnlyRight: len(r.OnlyRight),
		Modified:  len(r.Modified),
		Identical: len(r.Identical),
	}
}

// HasDifferences reports whether any rule is outside the identical bucket.
func (r Result) HasDifferences() bool {
	return len(r.OnlyLeft) > 0 || len(r.OnlyRight) > 0 || len(r.Modified) > 0
}

// ModifiedByName returns the modified rules ordered by rule name, for display.
func (r Result) ModifiedByName() []RuleDiff {
	out := make([]RuleDiff, len(r.byName))
	for i, idx := range r.byName {
		out[i] = r.Modified[idx]
	}
	return out
}

// Diff returns the diff of a modified rule.
func (r Result) Diff(key rules.RuleKey) (RuleDiff, bool) {
	idx, ok := r.modIndex[key]
	if !ok {
		return RuleDiff{}, false
	}
	return r.Modified[idx], true
}

// Status returns the bucket of the rule with the given key.
func (r Result) Status(key rules.RuleKey) Status {
	return r.status[key]
}

// MarshalJSON adds the bucket counts to the serialized buckets.
func (r Result) MarshalJSON() ([]byte, error) {
	type buckets Result
	return json.Marshal(struct {
		Counts Counts `json:"counts"`
		buckets
	}{Counts: r.Counts(), buckets: buckets(r)})
}
