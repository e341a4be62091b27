// Package ratelimit implements sliding-window admission control keyed by
// (scope, key). Each scope carries its own window and budget so network-level
// and session-level limits never interfere with each other.
package ratelimit

import (
	"net/netip"
	"sync"
	"time"
)

// Scope separates independent rate-limit namespaces. Buckets are never
// shared across scopes or keys.
type Scope string

const (
	// ScopeIP guards public endpoints by normalized network origin.
	ScopeIP Scope = "ip"
	// ScopeSession caps turns per (tenant, session) pair.
	ScopeSession Scope = "session"
	// ScopeTool caps mutating actions of a given kind per session.
	ScopeTool Scope = "tool"
)

// Config is the window policy for one scope.
type Config struct {
	Window time.Duration
	Max    int
}

// Result is the outcome of an admission check. Denial is a value, not an
// error, so callers can always branch on Allowed.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type bucket struct {
	hits     []time.Time
	lastSeen time.Time
}

// Limiter tracks sliding-window counters per (scope, key).
// The bucket map is bounded: past the cap the oldest-idle bucket is evicted,
// so key churn cannot exhaust memory.
type Limiter struct {
	mu         sync.Mutex
	cfgs       map[Scope]Config
	buckets    map[string]*bucket
	maxBuckets int
	now        func() time.Time // for testing
}

// New creates a Limiter with per-scope configurations and a bound on the
// total number of tracked buckets.
func New(cfgs map[Scope]Config, maxBuckets int) *Limiter {
	if maxBuckets < 1 {
		maxBuckets = 100000
	}
	return &Limiter{
		cfgs:       cfgs,
		buckets:    make(map[string]*bucket),
		maxBuckets: maxBuckets,
		now:        time.Now,
	}
}

// Admit records an admission attempt for (scope, key) and reports whether it
// is allowed. The counter is incremented whether or not the attempt is
// allowed, so hammering a denied key extends the denial.
func (l *Limiter) Admit(scope Scope, key string) Result {
	cfg, ok := l.cfgs[scope]
	if !ok || cfg.Max <= 0 || cfg.Window <= 0 {
		// Unconfigured scopes admit everything.
		return Result{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := string(scope) + ":" + key

	b, exists := l.buckets[k]
	if !exists {
		if len(l.buckets) >= l.maxBuckets {
			l.evictOldest()
		}
		b = &bucket{}
		l.buckets[k] = b
	}
	b.lastSeen = now

	// Drop hits that have aged out of the window.
	cutoff := now.Add(-cfg.Window)
	i := 0
	for i < len(b.hits) && !b.hits[i].After(cutoff) {
		i++
	}
	b.hits = append(b.hits[i:], now)

	if len(b.hits) <= cfg.Max {
		return Result{Allowed: true, Remaining: cfg.Max - len(b.hits)}
	}

	// The attempt that must age out before another admission can succeed.
	oldest := b.hits[len(b.hits)-cfg.Max]
	return Result{
		Allowed:    false,
		RetryAfter: oldest.Add(cfg.Window).Sub(now),
	}
}

// Len returns the number of tracked buckets (for metrics and testing).
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// evictOldest removes the least recently seen bucket. Must be called with
// l.mu held.
func (l *Limiter) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, b := range l.buckets {
		if oldestKey == "" || b.lastSeen.Before(oldest) {
			oldestKey = k
			oldest = b.lastSeen
		}
	}
	if oldestKey != "" {
		delete(l.buckets, oldestKey)
	}
}

// NormalizeOrigin collapses an IPv6 address to its /64 prefix so an attacker
// rotating through a delegated prefix cannot reset the counter. IPv4
// addresses (including 4-in-6 mapped forms) are returned as plain IPv4.
// Unparseable input is returned unchanged and rate-limited as an opaque key.
func NormalizeOrigin(addr string) string {
	a, err := netip.ParseAddr(addr)
	if err != nil {
		return addr
	}
	if a.Is4() {
		return a.String()
	}
	if a.Is4In6() {
		return a.Unmap().String()
	}
	prefix, err := a.Prefix(64)
	if err != nil {
		return a.String()
	}
	return prefix.String()
}
