package xerr_test

import (
	"errors"
	"testing"

	"github.com/quietloop/h2core/internal/xerr"
)

func TestNewProtocolError_WrapsSentinel(t *testing.T) {
	t.Parallel()

	err := xerr.NewProtocolError("bad input %s", "FOO")
	if !errors.Is(err, xerr.ErrProtocol) {
		t.Errorf("NewProtocolError() does not wrap ErrProtocol")
	}
	if !xerr.IsProtocolError(err) {
		t.Errorf("IsProtocolError() = false, want true")
	}
	if xerr.IsFlowControlError(err) {
		t.Errorf("IsFlowControlError() = true, want false")
	}
}

func TestNewFlowControlError_WrapsSentinel(t *testing.T) {
	t.Parallel()

	err := xerr.NewFlowControlError("window overflow")
	if !errors.Is(err, xerr.ErrFlowControl) {
		t.Errorf("NewFlowControlError() does not wrap ErrFlowControl")
	}
	if !xerr.IsFlowControlError(err) {
		t.Errorf("IsFlowControlError() = false, want true")
	}
	if xerr.IsProtocolError(err) {
		t.Errorf("IsProtocolError() = true, want false")
	}
}

func TestIsProtocolError_FalseForUnrelatedError(t *testing.T) {
	t.Parallel()

	if xerr.IsProtocolError(errors.New("some other error")) {
		t.Errorf("IsProtocolError(unrelated) = true, want false")
	}
}
