package errors

import (
	"fmt"
	"testing"
)

func TestKindMapsCodes(t *testing.T) {
	cases := map[string]error{
		"validation_error":      New(CodeUsage, "missing recipient"),
		"insufficient_resource": New(CodeInsufficient, "balance too low"),
		"policy_rejection":      New(CodeBlocked, "price impact too high"),
		"collaborator_failure":  fmt.Errorf("rpc down"),
	}
	for want, err := range cases {
		if got := Kind(err); got != want {
			t.Fatalf("Kind(%v) = %s, want %s", err, got, want)
		}
	}
}

func TestWrapUnwrapAndExitCode(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := fmt.Errorf("context: %w", Wrap(CodeUnavailable, "chain rpc unavailable", cause))
	if ExitCode(err) != int(CodeUnavailable) {
		t.Fatalf("unexpected exit code %d", ExitCode(err))
	}
	typed, ok := As(err)
	if !ok || typed.Unwrap() != cause {
		t.Fatalf("expected wrapped cause, got %+v", typed)
	}
	if ExitCode(nil) != 0 || ExitCode(fmt.Errorf("x")) != int(CodeInternal) {
		t.Fatal("unexpected exit code mapping for nil/untyped")
	}
}
