package pricing

import (
	"errors"
	"math"
	"testing"
)

func mustCurve(t *testing.T, reserve, decrement, numTicks, start uint64) *Curve {
	t.Helper()
	c, err := NewCurve(reserve, decrement, numTicks, start)
	if err != nil {
		t.Fatalf("NewCurve failed: %v", err)
	}
	return c
}

func TestNewCurve_InitialPrice(t *testing.T) {
	c := mustCurve(t, 100, 10, 10, 0)
	if got := c.InitialPrice(); got != 200 {
		t.Errorf("expected initial price 200, got %d", got)
	}
}

func TestNewCurve_ZeroDuration(t *testing.T) {
	if _, err := NewCurve(100, 10, 0, 0); !errors.Is(err, ErrZeroDuration) {
		t.Errorf("expected ErrZeroDuration, got %v", err)
	}
}

func TestNewCurve_Overflow(t *testing.T) {
	// decrement * numTicks wraps.
	if _, err := NewCurve(0, math.MaxUint64, 2, 0); !errors.Is(err, ErrPriceOverflow) {
		t.Errorf("expected ErrPriceOverflow on product, got %v", err)
	}
	// reserve + span wraps.
	if _, err := NewCurve(math.MaxUint64, 1, 1, 0); !errors.Is(err, ErrPriceOverflow) {
		t.Errorf("expected ErrPriceOverflow on sum, got %v", err)
	}
	// Exactly representable is fine.
	if _, err := NewCurve(math.MaxUint64-10, 1, 10, 0); err != nil {
		t.Errorf("expected exact fit to succeed, got %v", err)
	}
}

func TestPriceAt_StepsDownToReserve(t *testing.T) {
	c := mustCurve(t, 100, 10, 10, 0)

	if got := c.PriceAt(0); got != 200 {
		t.Errorf("price at start: expected 200, got %d", got)
	}
	if got := c.PriceAt(3); got != 170 {
		t.Errorf("price at 3: expected 170, got %d", got)
	}
	if got := c.PriceAt(10); got != 100 {
		t.Errorf("price at expiry: expected reserve 100, got %d", got)
	}
	if got := c.PriceAt(10_000); got != 100 {
		t.Errorf("price far beyond expiry: expected reserve 100, got %d", got)
	}
}

func TestPriceAt_NonIncreasingAndBounded(t *testing.T) {
	c := mustCurve(t, 1000, 100, 10, 50)

	prev := c.PriceAt(50)
	if prev != c.InitialPrice() {
		t.Fatalf("price at start should equal initial %d, got %d", c.InitialPrice(), prev)
	}
	for now := uint64(50); now <= 70; now++ {
		p := c.PriceAt(now)
		if p > prev {
			t.Fatalf("price increased at height %d: %d -> %d", now, prev, p)
		}
		if p < c.Reserve() || p > c.InitialPrice() {
			t.Fatalf("price %d at height %d outside [%d, %d]", p, now, c.Reserve(), c.InitialPrice())
		}
		prev = p
	}
}

func TestPriceAt_BeforeStartClampsToInitial(t *testing.T) {
	c := mustCurve(t, 100, 10, 10, 500)
	if got := c.PriceAt(3); got != c.InitialPrice() {
		t.Errorf("price before start should clamp to initial, got %d", got)
	}
}

func TestExpired(t *testing.T) {
	c := mustCurve(t, 100, 10, 10, 5)

	cases := []struct {
		now  uint64
		want bool
	}{
		{0, false},
		{5, false},
		{14, false},
		{15, true},
		{1000, true},
	}
	for _, tc := range cases {
		if got := c.Expired(tc.now); got != tc.want {
			t.Errorf("Expired(%d) = %v, want %v", tc.now, got, tc.want)
		}
	}
}

func TestZeroDecrement_FlatAtReserve(t *testing.T) {
	c := mustCurve(t, 500, 0, 20, 0)
	if c.InitialPrice() != 500 {
		t.Fatalf("expected flat initial 500, got %d", c.InitialPrice())
	}
	if got := c.PriceAt(7); got != 500 {
		t.Errorf("flat curve should stay at 500, got %d", got)
	}
}
