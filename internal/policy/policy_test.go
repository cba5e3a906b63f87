package policy

import (
	"testing"

	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/intent"
)

func TestCheckIntentAllowed(t *testing.T) {
	if err := CheckIntentAllowed(nil, intent.SendTokens); err != nil {
		t.Fatalf("unexpected error with empty allowlist: %v", err)
	}
	if err := CheckIntentAllowed([]string{"balance-check", "send_tokens"}, intent.SendTokens); err != nil {
		t.Fatalf("expected intent to be allowed: %v", err)
	}
	err := CheckIntentAllowed([]string{"BalanceCheck"}, intent.SymphonySwap)
	if err == nil {
		t.Fatal("expected intent to be blocked")
	}
	if clierr.ExitCode(err) != int(clierr.CodeBlocked) {
		t.Fatalf("expected blocked code, got %v", err)
	}
	if err := CheckIntentAllowed([]string{"BalanceCheck"}, intent.Help); err != nil {
		t.Fatalf("help must stay available: %v", err)
	}
}

func TestValidateAllowlist(t *testing.T) {
	if err := ValidateAllowlist([]string{"symphony_swap", "TodoList"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateAllowlist([]string{"rugpull"}); err == nil {
		t.Fatal("expected unknown intent to be rejected")
	}
}
