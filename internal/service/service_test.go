package service_test

import (
	"context"
	"testing"
	"time"

	"gedcom2csv/internal/service"
)

// ─────────────────────────────────────────────────────────────
// runningGuard tests
// ─────────────────────────────────────────────────────────────

func TestRunningGuard_TryLock(t *testing.T) {
	var g service.ExportedRunningGuard

	if !g.TryLock("gedcom_file:a.ged") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("gedcom_file:a.ged") {
		t.Fatal("expected second TryLock for same input to fail")
	}
	if !g.TryLock("gedcom_file:b.ged") {
		t.Fatal("expected TryLock for different input to succeed")
	}
	g.Unlock("gedcom_file:a.ged")
	g.Unlock("gedcom_file:b.ged")

	if !g.TryLock("gedcom_file:a.ged") {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("gedcom_file:a.ged")
}

func TestRunningGuard_WaitAll(t *testing.T) {
	var g service.ExportedRunningGuard

	if !g.TryLock("a") {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("a")
	}()

	select {
	case <-done:
		// success
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "test:event", map[string]string{"foo": "bar"})
	m.Emit(ctx, "test:event2", nil)

	if len(m.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(m.Events))
	}
	if m.Events[0].Event != "test:event" {
		t.Errorf("expected 'test:event', got %q", m.Events[0].Event)
	}
	if m.Count("test:event2") != 1 {
		t.Errorf("expected one 'test:event2', got %d", m.Count("test:event2"))
	}
}
