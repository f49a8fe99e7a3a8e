package compare

import "qpdiff/internal/rules"

// DiffActiveRule classifies one rule given its active rule on each side.
// Either side may be nil. A RuleDiff is returned only for StatusModified.
//
// Parameters are matched by the rule's definitions: a value set on both sides
// but different counts as removed and added, a value set on the left only as
// removed, and a value set on the right only as added.
func DiffActiveRule(rule *rules.Rule, a1, a2 *rules.ActiveRule) (Status, *RuleDiff) {
	switch {
	case a1 == nil && a2 == nil:
		return StatusUnknown, nil
	case a2 == nil:
		return StatusOnlyLeft, nil
	case a1 == nil:
		return StatusOnlyRight, nil
	}

	d := &RuleDiff{
		Rule:              rule,
		SeverityChanged:   a1.Severity != a2.Severity,
		RemovedParameters: []rules.ParameterDefinition{},
		AddedParameters:   []rules.ParameterDefinition{},
	}

	if rule != nil {
		for _, p := range rule.Params {
			v1, ok1 := a1.Value(p.ID)
			v2, ok2 := a2.Value(p.ID)

			switch {
			case ok1 && ok2:
				if v1 != v2 {
					d.RemovedParameters = append(d.RemovedParameters, p)
					d.AddedParameters = append(d.AddedParameters, p)
				}
			case ok1:
				d.RemovedParameters = append(d.RemovedParameters, p)
			case ok2:
				d.AddedParameters = append(d.AddedParameters, p)
			}
		}
	}

	if !d.SeverityChanged && len(d.RemovedParameters) == 0 && len(d.AddedParameters) == 0 {
		return StatusIdentical, nil
	}

	// Copies keep the result independent of later changes to the inputs.
	left, right := a1.Clone(), a2.Clone()
	d.Left, d.Right = &left, &right
	return StatusModified, d
}
