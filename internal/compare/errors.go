package compare

import (
	"errors"
	"fmt"

	"qpdiff/internal/rules"
)

// ErrInvalidInput matches every *InvalidInputError through errors.Is.
var ErrInvalidInput = errors.New("invalid comparison input")

// Side names one of the two compared collections.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

const (
	ReasonUnsorted    = "not sorted in rule order"
	ReasonDuplicate   = "duplicate rule"
	ReasonMissingRule = "active rule has no rule"
)

// InvalidInputError reports a collection that breaks the engine's
// precondition: sorted in rule order, one active rule per rule, and every
// active rule bound to a rule. It is a caller bug and should not be retried.
type InvalidInputError struct {
	Side   Side
	Index  int
	Key    rules.RuleKey
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Key.IsZero() {
		return fmt.Sprintf("invalid %s input at index %d: %s", e.Side, e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid %s input at index %d (%s): %s", e.Side, e.Index, e.Key, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}
