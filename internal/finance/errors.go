// Package finance turns ledger snapshots into derived financial state:
// budget usage tiers, debt payoff timelines and savings goal projections.
//
// Every function here is pure. Callers pass the reference day explicitly;
// nothing reads the wall clock.
package finance

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks values that indicate upstream data corruption.
	// It is always returned to the caller, never coerced away.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidDebtParameters is returned for debts whose payoff cannot be computed.
	ErrInvalidDebtParameters = fmt.Errorf("%w: invalid debt parameters", ErrInvalidInput)
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}

func invalidDebtf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidDebtParameters}, args...)...)
}
