// Package flowctl implements the single bounds-checked arithmetic
// primitive guarding HTTP/2 flow-control window updates. It is pure
// and holds no state: every check lives in one function call.
package flowctl

//go:generate errtrace -w .

import "github.com/quietloop/h2core/internal/xerr"

// MaxWindowSize is the upper bound of an HTTP/2 flow-control window:
// 2^31 - 1, the largest value a 31-bit unsigned field can carry.
const MaxWindowSize = 1<<31 - 1

// GuardIncrement returns current+increment when that sum does not
// exceed MaxWindowSize. It performs no lower-bound check on current or
// increment: a negative increment (or a negative current, which the
// core never produces but also never rejects) is accepted as-is —
// callers enforcing protocol rules on SETTINGS-induced window
// shrinkage must do so themselves.
func GuardIncrement(current, increment int64) (int64, error) {
	next := current + increment
	if next > MaxWindowSize {
		return 0, xerr.NewFlowControlError(
			"window increment overflow: %d + %d exceeds %d", current, increment, int64(MaxWindowSize))
	}
	return next, nil
}
