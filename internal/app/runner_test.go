package app

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ggonzalez94/seichat/internal/version"
)

const recipient = "0x1111111111111111111111111111111111111111"

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SEICHAT_LLM_API_KEY", "")
	t.Setenv("SEICHAT_BACKEND", "")
	t.Setenv("SEICHAT_STORE", "")
	t.Setenv("SEICHAT_ENABLE_INTENTS", "")
}

func run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	r := NewRunnerWithIO(strings.NewReader(stdin), &stdout, &stderr)
	code := r.Run(args)
	return code, stdout.String(), stderr.String()
}

func decodeEnvelope(t *testing.T, raw string) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("failed to parse envelope: %v\n%s", err, raw)
	}
	return env
}

func TestRunnerAskBalanceJSON(t *testing.T) {
	isolate(t)
	code, stdout, stderr := run(t, "", "--json", "--store", "memory", "--no-llm", "ask", "what's my balance")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, stderr)
	}
	env := decodeEnvelope(t, stdout)
	if env["success"] != true {
		t.Fatalf("expected success envelope, got %+v", env)
	}
	data, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %T", env["data"])
	}
	if data["intent"] != "BalanceCheck" {
		t.Fatalf("unexpected intent %v", data["intent"])
	}
	if msg, _ := data["message"].(string); !strings.Contains(msg, "1000 SEI") {
		t.Fatalf("unexpected message %q", msg)
	}
	meta, _ := env["meta"].(map[string]any)
	if meta["command"] != "ask" {
		t.Fatalf("unexpected meta command %v", meta["command"])
	}
}

func TestRunnerWarnsWhenModelUnusable(t *testing.T) {
	isolate(t)
	t.Setenv("SEICHAT_LLM_API_KEY", "test-key")
	t.Setenv("SEICHAT_LLM_MODEL", " ")
	code, stdout, stderr := run(t, "", "--json", "--store", "memory", "ask", "help")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, stderr)
	}
	env := decodeEnvelope(t, stdout)
	warnings, _ := env["warnings"].([]any)
	if len(warnings) != 1 || !strings.Contains(warnings[0].(string), "language model unavailable") {
		t.Fatalf("unexpected warnings %+v", env["warnings"])
	}
}

func TestRunnerAskSendWithYes(t *testing.T) {
	isolate(t)
	code, stdout, stderr := run(t, "", "--store", "memory", "--no-llm", "ask", "--yes", "send 10 SEI to "+recipient)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, stderr)
	}
	if !strings.Contains(stdout, "Please confirm") {
		t.Fatalf("expected confirmation prompt, got %s", stdout)
	}
	if !strings.Contains(stdout, "Sent 10 SEI to "+recipient) {
		t.Fatalf("expected executed transfer, got %s", stdout)
	}
}

func TestRunnerAskSendWithoutYesLeavesPrompt(t *testing.T) {
	isolate(t)
	code, stdout, _ := run(t, "", "--store", "memory", "--no-llm", "ask", "send 10 SEI to "+recipient)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if strings.Contains(stdout, "Sent 10 SEI") {
		t.Fatalf("transfer must not run without confirmation: %s", stdout)
	}
	if !strings.Contains(stdout, `try: "yes" | "no"`) {
		t.Fatalf("expected yes/no suggestions, got %s", stdout)
	}
}

func TestRunnerChatREPL(t *testing.T) {
	isolate(t)
	input := strings.Join([]string{
		"what's my balance",
		"send 5 SEI to " + recipient,
		"no",
		"/stats",
		"/quit",
		"this line is never read",
	}, "\n")
	code, stdout, stderr := run(t, input, "--store", "memory", "--no-llm", "--session", "repl", "chat")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, stderr)
	}
	for _, want := range []string{"session repl", "Your balance is 1000 SEI.", "Please confirm", "hasPending=false", "messageCount=3"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "never read") {
		t.Fatalf("chat kept reading after /quit")
	}
}

func TestRunnerTodoPersistsAcrossRuns(t *testing.T) {
	isolate(t)
	if code, _, stderr := run(t, "", "--no-llm", "todo", "add", "check", "staking", "rewards"); code != 0 {
		t.Fatalf("todo add failed: %d %s", code, stderr)
	}
	code, stdout, stderr := run(t, "", "--no-llm", "todo", "list")
	if code != 0 {
		t.Fatalf("todo list failed: %d %s", code, stderr)
	}
	if !strings.Contains(stdout, "1. check staking rewards") {
		t.Fatalf("expected persisted todo, got %s", stdout)
	}
}

func TestRunnerAuditListsExecutedActions(t *testing.T) {
	isolate(t)
	if code, _, stderr := run(t, "", "--no-llm", "--session", "s1", "ask", "--yes", "send 1 SEI to "+recipient); code != 0 {
		t.Fatalf("ask failed: %d %s", code, stderr)
	}
	code, stdout, stderr := run(t, "", "--json", "audit", "--type", "action.executed")
	if code != 0 {
		t.Fatalf("audit failed: %d %s", code, stderr)
	}
	env := decodeEnvelope(t, stdout)
	events, ok := env["data"].([]any)
	if !ok || len(events) != 1 {
		t.Fatalf("expected one executed event, got %+v", env["data"])
	}
	event := events[0].(map[string]any)
	if event["session_id"] != "s1" || event["intent"] != "SendTokens" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestRunnerAuditNeedsPersistentStore(t *testing.T) {
	isolate(t)
	code, _, stderr := run(t, "", "--json", "--store", "memory", "audit")
	if code != 13 {
		t.Fatalf("expected unsupported exit 13, got %d", code)
	}
	env := decodeEnvelope(t, stderr)
	errBody := env["error"].(map[string]any)
	if errBody["type"] != "unsupported" {
		t.Fatalf("unexpected error type %v", errBody["type"])
	}
}

func TestRunnerHistoryRequiresSession(t *testing.T) {
	isolate(t)
	code, _, _ := run(t, "", "--store", "memory", "history")
	if code != 2 {
		t.Fatalf("expected usage exit 2, got %d", code)
	}
}

func TestRunnerRemoteRequiresSession(t *testing.T) {
	isolate(t)
	code, _, stderr := run(t, "", "--json", "--store", "memory", "remote", "hello")
	if code != 2 {
		t.Fatalf("expected usage exit 2, got %d stderr=%s", code, stderr)
	}
	if !strings.Contains(stderr, "--session is required") {
		t.Fatalf("expected session error, got %s", stderr)
	}
}

func TestRunnerHistoryAcrossRuns(t *testing.T) {
	isolate(t)
	if code, _, stderr := run(t, "", "--no-llm", "--session", "h1", "ask", "help"); code != 0 {
		t.Fatalf("ask failed: %d %s", code, stderr)
	}
	code, stdout, stderr := run(t, "", "--json", "--session", "h1", "history")
	if code != 0 {
		t.Fatalf("history failed: %d %s", code, stderr)
	}
	env := decodeEnvelope(t, stdout)
	msgs, ok := env["data"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("expected user and assistant messages, got %+v", env["data"])
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "user" || first["content"] != "help" {
		t.Fatalf("unexpected first message %+v", first)
	}

	if code, _, stderr := run(t, "", "--session", "h1", "history", "clear"); code != 0 {
		t.Fatalf("history clear failed: %d %s", code, stderr)
	}
	_, stdout, _ = run(t, "", "--json", "--session", "h1", "history")
	env = decodeEnvelope(t, stdout)
	if msgs, _ := env["data"].([]any); len(msgs) != 0 {
		t.Fatalf("expected cleared history, got %+v", env["data"])
	}
}

func TestRunnerRejectsUnknownAllowlistIntent(t *testing.T) {
	isolate(t)
	code, _, stderr := run(t, "", "--json", "--enable-intents", "SendTokens,Teleport", "ask", "hello")
	if code != 2 {
		t.Fatalf("expected usage exit 2, got %d", code)
	}
	env := decodeEnvelope(t, stderr)
	if env["success"] != false {
		t.Fatalf("expected failure envelope")
	}
	errBody := env["error"].(map[string]any)
	if !strings.Contains(errBody["message"].(string), "Teleport") {
		t.Fatalf("unexpected error %+v", errBody)
	}
}

func TestRunnerAllowlistBlocksIntent(t *testing.T) {
	isolate(t)
	code, stdout, _ := run(t, "", "--store", "memory", "--no-llm", "--enable-intents", "BalanceCheck", "ask", "send 1 SEI to "+recipient)
	if code != 0 {
		t.Fatalf("a blocked intent is a chat reply, not a process failure; got %d", code)
	}
	if !strings.Contains(stdout, "blocked") {
		t.Fatalf("expected policy rejection, got %s", stdout)
	}
}

func TestRunnerRejectsPlainHTTPProviderOverride(t *testing.T) {
	isolate(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "providers:\n  binance:\n    base_url: http://binance.example.com\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	code, _, stderr := run(t, "", "--json", "--config", cfgPath, "--store", "memory", "ask", "price of SEI")
	if code != 2 {
		t.Fatalf("expected usage exit 2, got %d stderr=%s", code, stderr)
	}
	if !strings.Contains(stderr, "must use https") {
		t.Fatalf("unexpected stderr %s", stderr)
	}
}

func TestRunnerUnknownCommandIsUsageError(t *testing.T) {
	isolate(t)
	code, _, stderr := run(t, "", "teleport")
	if code != 2 {
		t.Fatalf("expected usage exit 2, got %d", code)
	}
	env := decodeEnvelope(t, stderr)
	errBody := env["error"].(map[string]any)
	if errBody["type"] != "validation_error" {
		t.Fatalf("unexpected error type %v", errBody["type"])
	}
}

func TestRunnerSchemaIncludesIntents(t *testing.T) {
	isolate(t)
	code, stdout, stderr := run(t, "", "--json", "schema")
	if code != 0 {
		t.Fatalf("schema failed: %d %s", code, stderr)
	}
	env := decodeEnvelope(t, stdout)
	data := env["data"].(map[string]any)
	intents, ok := data["intents"].([]any)
	if !ok || len(intents) == 0 {
		t.Fatalf("expected intents in schema, got %+v", data["intents"])
	}
	command := data["command"].(map[string]any)
	if command["use"] != version.CLIName {
		t.Fatalf("unexpected root use %v", command["use"])
	}
}

func TestRunnerSchemaSubcommandOmitsIntents(t *testing.T) {
	isolate(t)
	code, stdout, _ := run(t, "", "--json", "schema", "todo", "add")
	if code != 0 {
		t.Fatalf("schema failed: %d", code)
	}
	data := decodeEnvelope(t, stdout)["data"].(map[string]any)
	if _, ok := data["intents"]; ok {
		t.Fatalf("intents belong to the root schema only")
	}
}

func TestRunnerVersion(t *testing.T) {
	isolate(t)
	code, stdout, _ := run(t, "", "version")
	if code != 0 || strings.TrimSpace(stdout) != version.CLIVersion {
		t.Fatalf("unexpected version output %d %q", code, stdout)
	}
	_, stdout, _ = run(t, "", "version", "--long")
	if !strings.Contains(stdout, "commit:") {
		t.Fatalf("expected long version, got %q", stdout)
	}
}

func TestTrimRootPath(t *testing.T) {
	tests := map[string]string{
		"seichat":               "seichat",
		"seichat ask":           "ask",
		"seichat history clear": "history clear",
	}
	for in, want := range tests {
		if got := trimRootPath(in); got != want {
			t.Fatalf("trimRootPath(%q) = %q, want %q", in, got, want)
		}
	}
}
