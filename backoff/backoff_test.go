package backoff_test

import (
	"testing"
	"time"

	"github.com/BetoIII/docledger/backoff"
)

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := backoff.NewConstant(2 * time.Second)
	for attempt := 1; attempt <= 8; attempt++ {
		if got := c.Delay(attempt); got != 2*time.Second {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, 2*time.Second)
		}
	}
}

func TestExponential_DoublesEachAttempt(t *testing.T) {
	e := backoff.NewExponential(time.Second, time.Hour)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
	}
	for _, tt := range tests {
		if got := e.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_CapsAtMax(t *testing.T) {
	e := backoff.NewExponential(time.Second, 10*time.Second)

	if got := e.Delay(5); got != 10*time.Second {
		t.Errorf("Delay(5) = %v, want %v (capped at Max)", got, 10*time.Second)
	}
	if got := e.Delay(30); got != 10*time.Second {
		t.Errorf("Delay(30) = %v, want %v (capped at Max)", got, 10*time.Second)
	}
}

func TestJittered_WithinBounds(t *testing.T) {
	j := backoff.NewJittered(time.Second, 8*time.Second)

	for attempt := 1; attempt <= 6; attempt++ {
		base := time.Second * time.Duration(1<<(attempt-1))
		if base > 8*time.Second {
			base = 8 * time.Second
		}
		for range 50 {
			got := j.Delay(attempt)
			if got < base/2 {
				t.Errorf("Delay(%d) = %v, want >= %v (half-base floor)", attempt, got, base/2)
			}
			if got > base {
				t.Errorf("Delay(%d) = %v, want <= %v", attempt, got, base)
			}
		}
	}
}

func TestJittered_ProducesVariance(t *testing.T) {
	j := backoff.NewJittered(time.Second, time.Minute)

	seen := make(map[time.Duration]bool)
	for range 100 {
		seen[j.Delay(4)] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected variance in jitter, got only %d distinct values", len(seen))
	}
}

func TestDefaultReconnect(t *testing.T) {
	s := backoff.DefaultReconnect()
	if s == nil {
		t.Fatal("DefaultReconnect() returned nil")
	}

	d := s.Delay(1)
	if d < 250*time.Millisecond || d > 500*time.Millisecond {
		t.Errorf("Delay(1) = %v, want within [250ms, 500ms]", d)
	}
}
