package chain

import (
	"testing"
	"time"
)

func TestManualClock_Advance(t *testing.T) {
	c := NewManualClock(5)
	if got := c.Height(); got != 5 {
		t.Fatalf("expected height 5, got %d", got)
	}
	if got := c.Advance(3); got != 8 {
		t.Fatalf("expected height 8 after advance, got %d", got)
	}
	if got := c.Height(); got != 8 {
		t.Fatalf("expected height 8, got %d", got)
	}
}

func TestManualClock_SetNeverMovesBackwards(t *testing.T) {
	c := NewManualClock(10)
	c.Set(7)
	if got := c.Height(); got != 10 {
		t.Errorf("height moved backwards to %d", got)
	}
	c.Set(12)
	if got := c.Height(); got != 12 {
		t.Errorf("expected height 12, got %d", got)
	}
}

func TestIntervalClock_Monotone(t *testing.T) {
	c := NewIntervalClock(time.Millisecond)
	h1 := c.Height()
	time.Sleep(5 * time.Millisecond)
	h2 := c.Height()
	if h2 < h1 {
		t.Errorf("height went backwards: %d -> %d", h1, h2)
	}
	if h2 == 0 {
		t.Error("expected height to advance after sleeping")
	}
}
