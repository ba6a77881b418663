package ratelimit

import "testing"

func TestNew_AllowsWithinBurst(t *testing.T) {
	l := New(600) // 10/sec, burst 60
	if !l.Allow() {
		t.Fatal("expected first request to be allowed")
	}
}

func TestNewWithBurst_TokensDecrease(t *testing.T) {
	l := NewWithBurst(1, 1)
	if !l.Allow() {
		t.Fatal("expected first request to consume the single burst token")
	}
	if l.Allow() {
		t.Fatal("expected second immediate request to be denied once burst is exhausted")
	}
}

func TestSetBurst(t *testing.T) {
	l := NewWithBurst(1, 1)
	l.SetBurst(2)
	if !l.Allow() || !l.Allow() {
		t.Fatal("expected both requests to be allowed after raising burst to 2")
	}
}
