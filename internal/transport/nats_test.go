package transport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ggonzalez94/seichat/internal/chain/chaintest"
	"github.com/ggonzalez94/seichat/internal/chat"
	"github.com/ggonzalez94/seichat/internal/dispatch"
	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	fake := chaintest.New()
	d := dispatch.New(fake)
	manager := chat.NewManager(func(ctx context.Context, id string) (*chat.Pipeline, error) {
		return chat.New(ctx, d, chat.WithSessionID(id))
	})
	return NewServer(Config{Subject: "seichat.test"}, manager, nil)
}

type reply struct {
	model.Envelope
	Data json.RawMessage `json:"data"`
}

func decode(t *testing.T, buf []byte) reply {
	t.Helper()
	var r reply
	if err := json.Unmarshal(buf, &r); err != nil {
		t.Fatalf("decode reply: %v (%s)", err, buf)
	}
	return r
}

func TestHandleMessageAndStats(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	r := decode(t, s.Handle(ctx, []byte(`{"session_id":"abc","message":"what's my balance"}`)))
	if !r.Success || r.Meta.SessionID != "abc" || r.Meta.Command != OpMessage {
		t.Fatalf("unexpected envelope %+v", r.Envelope)
	}
	var resp chat.Response
	if err := json.Unmarshal(r.Data, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Intent != "BalanceCheck" || !resp.Success {
		t.Fatalf("unexpected chat response %+v", resp)
	}

	r = decode(t, s.Handle(ctx, []byte(`{"session_id":"abc","op":"stats"}`)))
	var stats chat.Stats
	if err := json.Unmarshal(r.Data, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.MessageCount != 1 || stats.SessionID != "abc" {
		t.Fatalf("unexpected stats %+v", stats)
	}

	r = decode(t, s.Handle(ctx, []byte(`{"session_id":"abc","op":"history"}`)))
	var history []model.HistoryMessage
	if err := json.Unmarshal(r.Data, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected user+assistant history, got %d", len(history))
	}

	r = decode(t, s.Handle(ctx, []byte(`{"session_id":"abc","op":"clear"}`)))
	if !r.Success {
		t.Fatalf("clear failed: %+v", r.Envelope)
	}
}

func TestHandleSessionsAreIsolated(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	s.Handle(ctx, []byte(`{"session_id":"a","message":"help"}`))
	s.Handle(ctx, []byte(`{"session_id":"a","message":"help"}`))
	s.Handle(ctx, []byte(`{"session_id":"b","message":"help"}`))

	r := decode(t, s.Handle(ctx, []byte(`{"session_id":"b","op":"stats"}`)))
	var stats chat.Stats
	if err := json.Unmarshal(r.Data, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.MessageCount != 1 {
		t.Fatalf("session b should see only its own message, got %d", stats.MessageCount)
	}
}

func TestHandleErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	r := decode(t, s.Handle(ctx, []byte(`not json`)))
	if r.Success || r.Error == nil || r.Error.Code != int(clierr.CodeUsage) || r.Error.Type != "validation_error" {
		t.Fatalf("expected validation error, got %+v", r.Envelope)
	}

	r = decode(t, s.Handle(ctx, []byte(`{"session_id":"x","op":"dance"}`)))
	if r.Success || r.Error == nil || r.Meta.SessionID != "x" {
		t.Fatalf("expected unknown op error, got %+v", r.Envelope)
	}
}

func TestHandleRequiresSessionID(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	for _, body := range []string{`{"message":"help"}`, `{"session_id":"  ","op":"stats"}`} {
		r := decode(t, s.Handle(ctx, []byte(body)))
		if r.Success || r.Error == nil || r.Error.Code != int(clierr.CodeUsage) {
			t.Fatalf("expected usage error for %s, got %+v", body, r.Envelope)
		}
	}
	if n := s.sessions.Len(); n != 0 {
		t.Fatalf("requests without a session id must not create sessions, got %d", n)
	}
}

func TestStartUnreachable(t *testing.T) {
	s := newTestServer(t)
	s.cfg.URL = "nats://127.0.0.1:1"
	s.cfg.ConnectTimeout = 200 * time.Millisecond
	err := s.Start()
	if clierr.ExitCode(err) != int(clierr.CodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close on unstarted server: %v", err)
	}
}
