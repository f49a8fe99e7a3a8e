package rules

import (
	"errors"
	"strconv"
)

// ErrUnknownRule is returned when a rule key is not present in a catalog.
var ErrUnknownRule = errors.New("unknown rule")

// ErrDuplicateRule is returned when a catalog receives the same rule key twice.
var ErrDuplicateRule = errors.New("duplicate rule")

// ParseError is returned when a string cannot be parsed into a typed value
// such as a Severity or a RuleKey.
type ParseError struct {
	Type  string // Logical type name, e.g. "Severity"
	Value string // The rejected input
}

func (e *ParseError) Error() string {
	return "rules: invalid " + e.Type + " value: " + strconv.Quote(e.Value)
}

// MarshalError is returned when an out-of-range enum value is serialized.
type MarshalError struct {
	Type  string
	Value int
}

func (e *MarshalError) Error() string {
	return "rules: cannot marshal invalid " + e.Type + " value: " + strconv.Itoa(e.Value)
}

// UnmarshalError is returned when decoding into a typed value fails.
type UnmarshalError struct {
	Type   string
	Data   []byte
	Reason string
}

func (e *UnmarshalError) Error() string {
	return "rules: cannot unmarshal " + e.Type + ": " + e.Reason
}
