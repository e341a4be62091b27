package service

import (
	"fmt"
	"testing"

	"github.com/Strob0t/Gatekeeper/internal/domain/session"
)

func TestTouchCreatesAndCountsTurns(t *testing.T) {
	tr := NewSessionTracker(256, 100)

	first := tr.Touch("t-1", "s-1")
	if first.TurnCount != 1 {
		t.Fatalf("TurnCount = %d, want 1", first.TurnCount)
	}

	second := tr.Touch("t-1", "s-1")
	if second.TurnCount != 2 {
		t.Fatalf("TurnCount = %d, want 2", second.TurnCount)
	}
	if tr.Len() != 1 {
		t.Errorf("Len = %d, want 1", tr.Len())
	}
}

func TestSessionsKeyedByTenantAndSession(t *testing.T) {
	tr := NewSessionTracker(256, 100)

	tr.Touch("t-1", "shared-id")
	tr.Touch("t-2", "shared-id")

	if tr.Len() != 2 {
		t.Fatalf("Len = %d, want 2: same session id under different tenants must not collide", tr.Len())
	}

	s, ok := tr.Get(session.Key("t-1", "shared-id"))
	if !ok {
		t.Fatal("t-1 session missing")
	}
	if s.TurnCount != 1 {
		t.Errorf("TurnCount = %d, want 1", s.TurnCount)
	}
}

func TestSessionCapEvictsOldest(t *testing.T) {
	tr := NewSessionTracker(4, 3)

	for i := range 8 {
		tr.Touch("t", fmt.Sprintf("s-%d", i))
	}

	if tr.Len() > 4 {
		t.Errorf("Len = %d, expected the sweep to keep the map near the cap", tr.Len())
	}
}
