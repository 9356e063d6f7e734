// Package xerr defines the two error families that escape the h2core
// core: protocol errors and flow-control errors. Both are sentinel-rooted
// so callers can match them with errors.Is/errors.As regardless of the
// formatted reason attached at the call site.
package xerr

//go:generate errtrace -w .

import (
	"errors"
	"fmt"

	"braces.dev/errtrace"
)

// sentinel is a string-backed error, cheap to compare and to wrap.
type sentinel string

func (s sentinel) Error() string { return string(s) }

// ErrProtocol is the sentinel every ProtocolError wraps.
const ErrProtocol sentinel = "http2: protocol error"

// ErrFlowControl is the sentinel every FlowControlError wraps.
const ErrFlowControl sentinel = "http2: flow control error"

// ProtocolError reports a peer violation, a locally attempted illegal
// operation, or a malformed header block. The connection state machine,
// the header validator, and the h2conn façade's stream bookkeeping
// produce it.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return ErrProtocol.Error() + ": " + e.Reason }

func (e *ProtocolError) Unwrap() error { return ErrProtocol }

// NewProtocolError builds a ProtocolError from a formatted reason and
// wraps it with an errtrace call-site record.
func NewProtocolError(format string, args ...any) error {
	return errtrace.Wrap(&ProtocolError{Reason: fmt.Sprintf(format, args...)})
}

// FlowControlError reports an attempted flow-control window update that
// would overflow the upper bound flowctl enforces.
type FlowControlError struct {
	Reason string
}

func (e *FlowControlError) Error() string { return ErrFlowControl.Error() + ": " + e.Reason }

func (e *FlowControlError) Unwrap() error { return ErrFlowControl }

// NewFlowControlError builds a FlowControlError from a formatted reason
// and wraps it with an errtrace call-site record.
func NewFlowControlError(format string, args ...any) error {
	return errtrace.Wrap(&FlowControlError{Reason: fmt.Sprintf(format, args...)})
}

// IsProtocolError reports whether err is, or wraps, a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsFlowControlError reports whether err is, or wraps, a FlowControlError.
func IsFlowControlError(err error) bool {
	var fe *FlowControlError
	return errors.As(err, &fe)
}
