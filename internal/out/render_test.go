package out

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ggonzalez94/seichat/internal/model"
)

func TestRenderJSONEnvelope(t *testing.T) {
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: true,
		Data:    map[string]any{"message": "hi"},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now(), SessionID: "s1", Command: "ask"},
	}
	var buf bytes.Buffer
	if err := Render(&buf, env, ModeJSON); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var decoded model.Envelope
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if decoded.Meta.SessionID != "s1" || !decoded.Success {
		t.Fatalf("unexpected envelope: %s", buf.String())
	}
}

func TestRenderPlain(t *testing.T) {
	env := model.Envelope{
		Success: true,
		Data:    []map[string]any{{"text": "buy milk", "done": false}},
	}
	var buf bytes.Buffer
	if err := Render(&buf, env, ModePlain); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "done=false text=buy milk") {
		t.Fatalf("unexpected plain output: %s", buf.String())
	}
}

func TestRenderPlainError(t *testing.T) {
	env := model.Envelope{Error: &model.ErrorBody{Code: 16, Type: "policy_rejection", Message: "blocked"}}
	var buf bytes.Buffer
	if err := Render(&buf, env, ModePlain); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.String() != "error (policy_rejection): blocked\n" {
		t.Fatalf("unexpected error output: %q", buf.String())
	}
}

func TestReply(t *testing.T) {
	var buf bytes.Buffer
	if err := Reply(&buf, "Balance: 10 SEI\n", []string{"swap 1 SEI for USDC", "help"}); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	want := "Balance: 10 SEI\n  try: \"swap 1 SEI for USDC\" | \"help\"\n"
	if buf.String() != want {
		t.Fatalf("unexpected reply %q", buf.String())
	}
}
