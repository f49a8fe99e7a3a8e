package compare

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aymanbagabas/go-udiff"

	"qpdiff/internal/rules"
)

const unset = "(unset)"

// FormatCLI formats a comparison for terminal output. Modified rules are
// listed by name with their severity and parameter changes.
func FormatCLI(r Result, leftName, rightName string) string {
	var sb strings.Builder
	c := r.Counts()

	if !r.HasDifferences() {
		sb.WriteString(fmt.Sprintf("✓ Profiles '%s' and '%s' are identical (%d rule(s))\n", leftName, rightName, c.Identical))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Comparing '%s' with '%s':\n", leftName, rightName))
	sb.WriteString(fmt.Sprintf("  %d only in '%s', %d only in '%s', %d modified, %d identical\n",
		c.OnlyLeft, leftName, c.OnlyRight, rightName, c.Modified, c.Identical))

	if c.OnlyLeft > 0 {
		sb.WriteString(fmt.Sprintf("\nOnly in '%s':\n", leftName))
		for _, rule := range r.OnlyLeft {
			sb.WriteString(fmt.Sprintf("  - %s (%s)\n", rule.Name, rule.Key))
		}
	}

	if c.OnlyRight > 0 {
		sb.WriteString(fmt.Sprintf("\nOnly in '%s':\n", rightName))
		for _, rule := range r.OnlyRight {
			sb.WriteString(fmt.Sprintf("  + %s (%s)\n", rule.Name, rule.Key))
		}
	}

	if c.Modified > 0 {
		sb.WriteString("\nModified:\n")
		for _, d := range r.ModifiedByName() {
			sb.WriteString(fmt.Sprintf("  ~ %s (%s)\n", d.Rule.Name, d.Rule.Key))
			if d.SeverityChanged {
				sb.WriteString(fmt.Sprintf("      severity: %s → %s\n", d.Left.Severity, d.Right.Severity))
			}
			for _, pc := range d.ParameterChanges() {
				sb.WriteString(fmt.Sprintf("      %s: %s → %s\n", pc.Param.Name, showValue(pc.Old, pc.OldIsSet), showValue(pc.New, pc.NewIsSet)))
			}
		}
	}

	return sb.String()
}

// FormatCI formats a comparison as GitHub Actions notice annotations.
func FormatCI(r Result, leftName, rightName string) string {
	if !r.HasDifferences() {
		return ""
	}

	var sb strings.Builder
	for _, rule := range r.OnlyLeft {
		sb.WriteString(fmt.Sprintf("::notice title=Only in %s::%s (%s)\n", leftName, rule.Key, rule.Name))
	}
	for _, rule := range r.OnlyRight {
		sb.WriteString(fmt.Sprintf("::notice title=Only in %s::%s (%s)\n", rightName, rule.Key, rule.Name))
	}
	for _, d := range r.ModifiedByName() {
		var changes []string
		if d.SeverityChanged {
			changes = append(changes, fmt.Sprintf("severity %s → %s", d.Left.Severity, d.Right.Severity))
		}
		for _, pc := range d.ParameterChanges() {
			changes = append(changes, fmt.Sprintf("%s %s → %s", pc.Param.Name, showValue(pc.Old, pc.OldIsSet), showValue(pc.New, pc.NewIsSet)))
		}
		sb.WriteString(fmt.Sprintf("::notice title=Modified rule::%s (%s): %s\n", d.Rule.Key, d.Rule.Name, strings.Join(changes, ", ")))
	}

	c := r.Counts()
	sb.WriteString(fmt.Sprintf("\nProfiles differ: %d only in '%s', %d only in '%s', %d modified\n",
		c.OnlyLeft, leftName, c.OnlyRight, rightName, c.Modified))
	return sb.String()
}

// Report is the JSON envelope produced by FormatJSON.
type Report struct {
	Left      string `json:"left"`
	Right     string `json:"right"`
	Identical bool   `json:"identical"`
	Result    Result `json:"result"`
}

// FormatJSON formats a comparison as JSON.
func FormatJSON(r Result, leftName, rightName string) (string, error) {
	data, err := json.MarshalIndent(Report{
		Left:      leftName,
		Right:     rightName,
		Identical: !r.HasDifferences(),
		Result:    r,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatUnified renders both sides with rules.Listing and returns a unified
// diff of the two listings, or "" when they are equal.
func FormatUnified(leftName string, left []rules.ActiveRule, rightName string, right []rules.ActiveRule) string {
	return udiff.Unified(leftName, rightName, rules.Listing(left), rules.Listing(right))
}

func showValue(v string, isSet bool) string {
	if !isSet {
		return unset
	}
	return fmt.Sprintf("%q", v)
}
