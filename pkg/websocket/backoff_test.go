package websocket

import (
	"testing"
	"time"
)

func TestDefaultBackoffSequence(t *testing.T) {
	b := DefaultBackoff()
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second, 30 * time.Second}
	for i, w := range want {
		if got := b.Next(i + 1); got != w {
			t.Fatalf("attempt %d: got %v want %v", i+1, got, w)
		}
	}
}

func TestBackoffDefaultsAndClamp(t *testing.T) {
	if got := (Backoff{}).Next(0); got != 100*time.Millisecond {
		t.Fatalf("zero backoff: got %v", got)
	}
	if got := (Backoff{Min: time.Minute, Max: time.Second}).Next(3); got != time.Second {
		t.Fatalf("min above max: got %v", got)
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	b := Backoff{Min: time.Second, Max: 10 * time.Second, Factor: 2, Jitter: 0.5}
	for i := 0; i < 100; i++ {
		got := b.Next(2)
		if got < time.Second || got > 3*time.Second {
			t.Fatalf("jitter out of range: %v", got)
		}
	}
}
