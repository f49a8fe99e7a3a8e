package rules

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity is the ordinal importance of an active rule within a profile.
// The ordinals match the persisted failure_level column.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityMinor
	SeverityMajor
	SeverityCritical
	SeverityBlocker
)

var severityNames = [...]string{"INFO", "MINOR", "MAJOR", "CRITICAL", "BLOCKER"}

// AllSeverities lists every severity from lowest to highest.
var AllSeverities = []Severity{SeverityInfo, SeverityMinor, SeverityMajor, SeverityCritical, SeverityBlocker}

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return SeverityInfo, &ParseError{Type: "Severity", Value: s}
}

func (s Severity) String() string {
	if !s.Valid() {
		return "UNKNOWN"
	}
	return severityNames[s]
}

// Valid reports whether s is one of the declared severities.
func (s Severity) Valid() bool {
	return s >= SeverityInfo && s <= SeverityBlocker
}

func (s Severity) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, &MarshalError{Type: "Severity", Value: int(s)}
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either the severity name or its ordinal.
func (s *Severity) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return &UnmarshalError{Type: "Severity", Data: data, Reason: "empty data"}
	}

	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return &UnmarshalError{Type: "Severity", Data: data, Reason: err.Error()}
		}
		parsed, err := ParseSeverity(str)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}

	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return &UnmarshalError{Type: "Severity", Data: data, Reason: err.Error()}
	}
	if !Severity(i).Valid() {
		return &UnmarshalError{Type: "Severity", Data: data, Reason: "invalid numeric value"}
	}
	*s = Severity(i)
	return nil
}

func (s Severity) MarshalYAML() (any, error) {
	if !s.Valid() {
		return nil, &MarshalError{Type: "Severity", Value: int(s)}
	}
	return s.String(), nil
}

func (s *Severity) UnmarshalYAML(node *yaml.Node) error {
	var str string
	if err := node.Decode(&str); err != nil {
		return &UnmarshalError{Type: "Severity", Data: []byte(node.Value), Reason: err.Error()}
	}
	parsed, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, &MarshalError{Type: "Severity", Value: int(s)}
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
