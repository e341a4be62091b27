package ratelimit

import (
	"fmt"
	"testing"
	"time"
)

func newTestLimiter(cfgs map[Scope]Config, maxBuckets int) (*Limiter, *time.Time) {
	l := New(cfgs, maxBuckets)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAdmitUnderLimit(t *testing.T) {
	l, _ := newTestLimiter(map[Scope]Config{
		ScopeSession: {Window: time.Minute, Max: 3},
	}, 0)

	for i := range 3 {
		res := l.Admit(ScopeSession, "t1/s1")
		if !res.Allowed {
			t.Fatalf("attempt %d: expected allowed", i+1)
		}
	}
}

func TestAdmitAtAndOverLimit(t *testing.T) {
	l, _ := newTestLimiter(map[Scope]Config{
		ScopeIP: {Window: 15 * time.Minute, Max: 50},
	}, 0)

	for i := range 50 {
		res := l.Admit(ScopeIP, "203.0.113.7")
		if !res.Allowed {
			t.Fatalf("attempt %d: expected allowed", i+1)
		}
	}

	res := l.Admit(ScopeIP, "203.0.113.7")
	if res.Allowed {
		t.Fatal("attempt 51: expected denied")
	}
	if res.RetryAfter <= 0 {
		t.Errorf("expected positive RetryAfter, got %s", res.RetryAfter)
	}
}

func TestDeniedAttemptsExtendDenial(t *testing.T) {
	l, now := newTestLimiter(map[Scope]Config{
		ScopeSession: {Window: time.Minute, Max: 2},
	}, 0)

	l.Admit(ScopeSession, "k")
	l.Admit(ScopeSession, "k")

	*now = now.Add(30 * time.Second)
	first := l.Admit(ScopeSession, "k")
	if first.Allowed {
		t.Fatal("expected denial")
	}

	// Hammering while denied keeps pushing the retry horizon out.
	*now = now.Add(10 * time.Second)
	second := l.Admit(ScopeSession, "k")
	if second.Allowed {
		t.Fatal("expected continued denial")
	}
	if second.RetryAfter <= 0 {
		t.Errorf("expected positive RetryAfter, got %s", second.RetryAfter)
	}
}

func TestWindowSlides(t *testing.T) {
	l, now := newTestLimiter(map[Scope]Config{
		ScopeSession: {Window: time.Minute, Max: 2},
	}, 0)

	l.Admit(ScopeSession, "k")
	l.Admit(ScopeSession, "k")

	*now = now.Add(61 * time.Second)
	if res := l.Admit(ScopeSession, "k"); !res.Allowed {
		t.Fatal("expected admission after window elapsed")
	}
}

func TestScopesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(map[Scope]Config{
		ScopeSession: {Window: time.Minute, Max: 1},
		ScopeTool:    {Window: time.Minute, Max: 1},
	}, 0)

	l.Admit(ScopeSession, "k")
	if res := l.Admit(ScopeSession, "k"); res.Allowed {
		t.Fatal("session scope should be exhausted")
	}
	if res := l.Admit(ScopeTool, "k"); !res.Allowed {
		t.Fatal("tool scope should be unaffected by session scope")
	}
}

func TestUnconfiguredScopeAdmitsEverything(t *testing.T) {
	l, _ := newTestLimiter(map[Scope]Config{}, 0)

	for range 1000 {
		if res := l.Admit(ScopeIP, "k"); !res.Allowed {
			t.Fatal("unconfigured scope must admit")
		}
	}
}

func TestBucketCapEvictsOldest(t *testing.T) {
	l, now := newTestLimiter(map[Scope]Config{
		ScopeSession: {Window: time.Minute, Max: 10},
	}, 3)

	for i := range 3 {
		l.Admit(ScopeSession, fmt.Sprintf("k%d", i))
		*now = now.Add(time.Second)
	}
	if l.Len() != 3 {
		t.Fatalf("expected 3 buckets, got %d", l.Len())
	}

	l.Admit(ScopeSession, "k3")
	if l.Len() != 3 {
		t.Errorf("expected cap to hold at 3 buckets, got %d", l.Len())
	}
}

func TestNormalizeOrigin(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"192.0.2.10", "192.0.2.10"},
		{"::ffff:192.0.2.10", "192.0.2.10"},
		{"2001:db8:abcd:12:1:2:3:4", "2001:db8:abcd:12::/64"},
		{"2001:db8:abcd:12:ffff:eeee:dddd:cccc", "2001:db8:abcd:12::/64"},
		{"not-an-ip", "not-an-ip"},
	}

	for _, tt := range tests {
		if got := NormalizeOrigin(tt.in); got != tt.want {
			t.Errorf("NormalizeOrigin(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIPv6PrefixSharesOneBucket(t *testing.T) {
	l, _ := newTestLimiter(map[Scope]Config{
		ScopeIP: {Window: time.Minute, Max: 2},
	}, 0)

	l.Admit(ScopeIP, NormalizeOrigin("2001:db8:abcd:12:1:2:3:4"))
	l.Admit(ScopeIP, NormalizeOrigin("2001:db8:abcd:12:5:6:7:8"))

	res := l.Admit(ScopeIP, NormalizeOrigin("2001:db8:abcd:12:9:a:b:c"))
	if res.Allowed {
		t.Fatal("addresses within one /64 must share a bucket")
	}
}
