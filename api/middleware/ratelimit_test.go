package middleware

import (
	"testing"
	"time"

	"github.com/use-agent/filmcard/config"
)

func TestLimiterStore_PerIdentityBuckets(t *testing.T) {
	s := newLimiterStore(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})
	now := time.Now()

	if !s.get("a", now).Allow() {
		t.Fatal("first request for a should pass")
	}
	if s.get("a", now).Allow() {
		t.Error("second request for a should be limited")
	}
	if !s.get("b", now).Allow() {
		t.Error("b has its own bucket")
	}
}

func TestLimiterStore_Sweep(t *testing.T) {
	s := newLimiterStore(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 0})
	if s.burst != 1 {
		t.Errorf("burst = %d, want clamp to 1", s.burst)
	}

	now := time.Now()
	s.get("old", now.Add(-2*time.Hour))
	s.get("fresh", now)
	s.sweep(now.Add(-time.Hour))

	if _, ok := s.limiters["old"]; ok {
		t.Error("stale identity not swept")
	}
	if _, ok := s.limiters["fresh"]; !ok {
		t.Error("fresh identity swept")
	}
}
