package rules

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseSeverity(t *testing.T) {
	tests := map[string]struct {
		input string
		want  Severity
		err   bool
	}{
		"upper":      {input: "BLOCKER", want: SeverityBlocker},
		"lower":      {input: "major", want: SeverityMajor},
		"mixed":      {input: "Critical", want: SeverityCritical},
		"whitespace": {input: "  minor ", want: SeverityMinor},
		"info":       {input: "INFO", want: SeverityInfo},
		"unknown":    {input: "URGENT", err: true},
		"empty":      {input: "", err: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseSeverity(tc.input)
			if tc.err {
				var perr *ParseError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, "Severity", perr.Type)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSeverityOrdering(t *testing.T) {
	for i := 1; i < len(AllSeverities); i++ {
		assert.Less(t, AllSeverities[i-1], AllSeverities[i])
	}
	assert.Equal(t, 4, int(SeverityBlocker))
}

func TestSeverityJSON(t *testing.T) {
	data, err := json.Marshal(SeverityCritical)
	require.NoError(t, err)
	assert.JSONEq(t, `"CRITICAL"`, string(data))

	var s Severity
	require.NoError(t, json.Unmarshal([]byte(`"minor"`), &s))
	assert.Equal(t, SeverityMinor, s)

	require.NoError(t, json.Unmarshal([]byte(`3`), &s))
	assert.Equal(t, SeverityCritical, s)

	var uerr *UnmarshalError
	require.ErrorAs(t, json.Unmarshal([]byte(`9`), &s), &uerr)

	_, err = json.Marshal(Severity(42))
	var merr *MarshalError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, 42, merr.Value)
}

func TestSeverityYAML(t *testing.T) {
	var doc struct {
		Severity Severity `yaml:"severity"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("severity: blocker\n"), &doc))
	assert.Equal(t, SeverityBlocker, doc.Severity)

	out, err := yaml.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, "severity: BLOCKER\n", string(out))

	err = yaml.Unmarshal([]byte("severity: nope\n"), &doc)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

// TestSeverityTextRoundTrip checks that every valid severity survives
// MarshalText/UnmarshalText unchanged.
func TestSeverityTextRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("text round trip preserves severity", prop.ForAll(
		func(i int) bool {
			s := Severity(i)
			text, err := s.MarshalText()
			if err != nil {
				return false
			}
			var back Severity
			if err := back.UnmarshalText(text); err != nil {
				return false
			}
			return back == s
		},
		gen.IntRange(int(SeverityInfo), int(SeverityBlocker)),
	))

	properties.TestingRun(t)
}
