package compare

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qpdiff/internal/rules"
)

func scenarioResult(t *testing.T) Result {
	t.Helper()
	left, right := scenario()
	// Add a rule only on the right and a changed parameter value.
	r5 := &rules.Rule{Key: rules.MustParseRuleKey("squid:R5"), Name: "Echo rule", Params: []rules.ParameterDefinition{p1}}
	right = append(right, active(r5, rules.SeverityInfo, nil))
	left[1].SetValue(1, "5")
	right[0].SetValue(1, "7")

	res, err := Compare(left, right, StrategyMerge)
	require.NoError(t, err)
	return res
}

func TestFormatCLI(t *testing.T) {
	out := FormatCLI(scenarioResult(t), "Sonar way", "Team")

	assert.Contains(t, out, "Comparing 'Sonar way' with 'Team':")
	assert.Contains(t, out, "1 only in 'Sonar way', 1 only in 'Team', 3 modified, 0 identical")
	assert.Contains(t, out, "  - Delta rule (squid:R1)\n")
	assert.Contains(t, out, "  + Echo rule (squid:R5)\n")
	assert.Contains(t, out, "  ~ Charlie rule (squid:R2)\n      p1: \"5\" → \"7\"\n")
	assert.Contains(t, out, "  ~ Bravo rule (squid:R3)\n      severity: MAJOR → CRITICAL\n")
	assert.Contains(t, out, "      p2: \"foo\" → (unset)\n")

	// Modified rules are listed by name.
	alpha := strings.Index(out, "Alpha rule")
	bravo := strings.Index(out, "Bravo rule")
	charlie := strings.Index(out, "Charlie rule")
	assert.True(t, alpha < bravo && bravo < charlie, "modified rules should be ordered by name:\n%s", out)
}

func TestFormatCLIIdentical(t *testing.T) {
	_, right := scenario()
	res, err := Compare(right, right, StrategyMerge)
	require.NoError(t, err)

	out := FormatCLI(res, "a", "b")
	assert.Equal(t, "✓ Profiles 'a' and 'b' are identical (3 rule(s))\n", out)
	assert.Empty(t, FormatCI(res, "a", "b"))
}

func TestFormatCI(t *testing.T) {
	out := FormatCI(scenarioResult(t), "left", "right")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	var annotations int
	for _, l := range lines {
		if strings.HasPrefix(l, "::notice ") {
			annotations++
		}
	}
	assert.Equal(t, 5, annotations)
	assert.Contains(t, out, "::notice title=Only in left::squid:R1 (Delta rule)\n")
	assert.Contains(t, out, "::notice title=Only in right::squid:R5 (Echo rule)\n")
	assert.Contains(t, out, "::notice title=Modified rule::squid:R4 (Alpha rule): p2 \"foo\" → (unset)\n")
	assert.Contains(t, out, "Profiles differ: 1 only in 'left', 1 only in 'right', 3 modified")
}

func TestFormatJSON(t *testing.T) {
	out, err := FormatJSON(scenarioResult(t), "left", "right")
	require.NoError(t, err)

	var report struct {
		Left      string `json:"left"`
		Right     string `json:"right"`
		Identical bool   `json:"identical"`
		Result    struct {
			Counts    Counts            `json:"counts"`
			OnlyLeft  []json.RawMessage `json:"onlyLeft"`
			OnlyRight []json.RawMessage `json:"onlyRight"`
			Modified  []json.RawMessage `json:"modified"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.Equal(t, "left", report.Left)
	assert.Equal(t, "right", report.Right)
	assert.False(t, report.Identical)
	assert.Equal(t, Counts{OnlyLeft: 1, OnlyRight: 1, Modified: 3}, report.Result.Counts)
	assert.Len(t, report.Result.Modified, 3)
	assert.JSONEq(t, `{"key":"squid:R1","name":"Delta rule","params":[{"id":1,"name":"p1"}]}`, string(report.Result.OnlyLeft[0]))
}

func TestFormatUnified(t *testing.T) {
	left, right := scenario()

	out := FormatUnified("left", left, "right", right)
	assert.Contains(t, out, "--- left")
	assert.Contains(t, out, "+++ right")
	assert.Contains(t, out, "-squid:R1 BLOCKER\n")
	assert.Contains(t, out, "-squid:R3 MAJOR\n")
	assert.Contains(t, out, "+squid:R3 CRITICAL\n")
	assert.Contains(t, out, "-  p2=\"foo\"\n")

	assert.Empty(t, FormatUnified("left", right, "right", right))
}
