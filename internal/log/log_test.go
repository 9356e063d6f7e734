package log_test

import (
	"context"
	"os"
	"testing"

	"go.uber.org/goleak"

	"github.com/quietloop/h2core/internal/log"
)

func TestMain(m *testing.M) {
	os.Exit(goleak.VerifyTestMain(m))
}

func TestDefault_StartsNoop(t *testing.T) {
	// Not t.Parallel(): this asserts the package-level default before any
	// other test in this file has a chance to call SetDefault.
	if log.Default() != log.Noop() {
		t.Errorf("Default() did not start as Noop()")
	}
}

func TestSetDefault_NilResetsToNoop(t *testing.T) {
	log.SetDefault(log.Console())
	if log.Default() != log.Console() {
		t.Fatalf("SetDefault(Console()) did not take effect")
	}

	log.SetDefault(nil)
	if log.Default() != log.Noop() {
		t.Errorf("SetDefault(nil) = %v, want Noop()", log.Default())
	}
}

func TestContextWithLogger_RoundTrips(t *testing.T) {
	t.Parallel()

	custom := log.Develop()
	ctx := log.ContextWithLogger(context.Background(), custom)
	if got := log.FromContext(ctx); got != custom {
		t.Errorf("FromContext() = %v, want the logger stored by ContextWithLogger", got)
	}
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	t.Parallel()

	if got := log.FromContext(context.Background()); got != log.Default() {
		t.Errorf("FromContext(no logger in context) = %v, want Default()", got)
	}
}
