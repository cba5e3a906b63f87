// Package audit is the append-only sink for policy and execution events.
package audit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityCaution Severity = "caution"
	SeverityError   Severity = "error"
)

// Event types recorded by the chat pipeline.
const (
	EventPriceImpactRejected = "swap.price_impact_rejected"
	EventActionConfirmed     = "action.confirmed"
	EventActionCancelled     = "action.cancelled"
	EventActionExecuted      = "action.executed"
	EventActionFailed        = "action.failed"
	EventIntentBlocked       = "intent.blocked"
)

type Event struct {
	EventID   string         `json:"event_id"`
	Type      string         `json:"type"`
	Severity  Severity       `json:"severity"`
	SessionID string         `json:"session_id,omitempty"`
	Intent    string         `json:"intent,omitempty"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Sink records events. Implementations never rewrite a recorded event.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

func NewEventID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "evt-unknown"
	}
	return fmt.Sprintf("evt_%s", hex.EncodeToString(b))
}

// normalize fills the id and timestamp when the caller left them empty.
func normalize(e Event, now time.Time) Event {
	if e.EventID == "" {
		e.EventID = NewEventID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now.UTC()
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	return e
}

// Memory keeps events in process; used by tests and the memory store mode.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, normalize(event, time.Now()))
	return nil
}

// Events returns a copy of everything recorded so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Discard drops every event.
type Discard struct{}

func (Discard) Record(context.Context, Event) error { return nil }

type sessionSink struct {
	sink      Sink
	sessionID string
}

// WithSession stamps sessionID on events that do not carry one.
func WithSession(sink Sink, sessionID string) Sink {
	return sessionSink{sink: sink, sessionID: sessionID}
}

func (s sessionSink) Record(ctx context.Context, event Event) error {
	if event.SessionID == "" {
		event.SessionID = s.sessionID
	}
	return s.sink.Record(ctx, event)
}
