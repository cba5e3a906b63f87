package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestJournalRecordAndList(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	j, err := OpenJournal(filepath.Join(dir, "audit.db"), filepath.Join(dir, "audit.lock"))
	if err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	base := time.Now().UTC()
	first := Event{Type: EventPriceImpactRejected, Severity: SeverityCaution, Message: "price impact 6.00% exceeds 5%", CreatedAt: base}
	second := Event{Type: EventActionExecuted, Message: "transfer sent", Data: map[string]any{"txHash": "0xabc"}, CreatedAt: base.Add(time.Second)}
	for _, e := range []Event{first, second} {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	all, err := j.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 || all[0].Type != EventActionExecuted {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if all[0].EventID == "" || all[0].Severity != SeverityInfo {
		t.Fatalf("expected defaults to be filled, got %+v", all[0])
	}

	rejected, err := j.List(ctx, EventPriceImpactRejected, 10)
	if err != nil {
		t.Fatalf("List by type failed: %v", err)
	}
	if len(rejected) != 1 || rejected[0].Severity != SeverityCaution {
		t.Fatalf("unexpected filtered events %+v", rejected)
	}
}

func TestJournalRejectsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	j, err := OpenJournal(filepath.Join(dir, "audit.db"), filepath.Join(dir, "audit.lock"))
	if err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	e := Event{EventID: "evt_fixed", Type: EventActionConfirmed, Message: "confirmed"}
	if err := j.Record(ctx, e); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := j.Record(ctx, e); err == nil {
		t.Fatal("expected append-only journal to reject rewriting an event")
	}
}

func TestMemorySink(t *testing.T) {
	m := NewMemory()
	_ = m.Record(context.Background(), Event{Type: EventActionCancelled, Message: "cancelled"})
	events := m.Events()
	if len(events) != 1 || events[0].EventID == "" || events[0].CreatedAt.IsZero() {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestWithSessionStampsEvents(t *testing.T) {
	m := NewMemory()
	sink := WithSession(m, "sess-1")
	_ = sink.Record(context.Background(), Event{Type: EventActionExecuted})
	_ = sink.Record(context.Background(), Event{Type: EventActionExecuted, SessionID: "other"})
	events := m.Events()
	if events[0].SessionID != "sess-1" || events[1].SessionID != "other" {
		t.Fatalf("unexpected session ids %q %q", events[0].SessionID, events[1].SessionID)
	}
}
