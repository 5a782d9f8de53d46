// Package pricing implements the descending-price curve for Dutch auctions.
//
// The asking price is a step function of block height: it starts at
//
//	initial = reserve + decrement * numTicks
//
// and loses one decrement per elapsed block until it reaches the reserve,
// where it stays. All amounts are unsigned integer base units of the payment
// asset, never float64 for money.
//
// Arithmetic is overflow-checked: a curve whose initial price cannot be
// represented in uint64 is a configuration error and is rejected at
// construction rather than wrapping silently.
package pricing

import (
	"errors"
	"math/bits"
)

var (
	// ErrZeroDuration is returned when numTicks is zero.
	ErrZeroDuration = errors.New("pricing: auction must be open for at least one tick")

	// ErrPriceOverflow is returned when reserve + decrement*numTicks does
	// not fit in uint64.
	ErrPriceOverflow = errors.New("pricing: initial price overflows uint64")
)

// Curve is the immutable price schedule of one auction. It is stateless
// beyond its configuration; the current height is passed as an argument.
type Curve struct {
	reserve   uint64
	decrement uint64
	numTicks  uint64
	start     uint64
	initial   uint64 // reserve + decrement*numTicks, fixed at construction
}

// NewCurve validates the configuration and fixes the initial price.
// start is the height at which the auction opened.
func NewCurve(reserve, decrement, numTicks, start uint64) (*Curve, error) {
	if numTicks == 0 {
		return nil, ErrZeroDuration
	}
	span, err := checkedMul(decrement, numTicks)
	if err != nil {
		return nil, err
	}
	initial, err := checkedAdd(reserve, span)
	if err != nil {
		return nil, err
	}
	return &Curve{
		reserve:   reserve,
		decrement: decrement,
		numTicks:  numTicks,
		start:     start,
		initial:   initial,
	}, nil
}

// Reserve returns the price floor.
func (c *Curve) Reserve() uint64 { return c.reserve }

// Decrement returns the per-tick price drop.
func (c *Curve) Decrement() uint64 { return c.decrement }

// NumTicks returns the number of blocks the auction is open for.
func (c *Curve) NumTicks() uint64 { return c.numTicks }

// Start returns the opening height.
func (c *Curve) Start() uint64 { return c.start }

// InitialPrice returns the asking price at the opening height.
func (c *Curve) InitialPrice() uint64 { return c.initial }

// PriceAt returns the asking price at the given height.
//
// Elapsed ticks are clamped to [0, numTicks], so the result is initial at
// now <= start, non-increasing in now, and equal to the reserve for every
// now >= start + numTicks. Safe to call any number of times at any state.
func (c *Curve) PriceAt(now uint64) uint64 {
	elapsed := c.elapsed(now)
	// decrement*elapsed <= decrement*numTicks, which was overflow-checked
	// at construction, so plain arithmetic cannot wrap here.
	return c.initial - c.decrement*elapsed
}

// Expired reports whether the bidding window has closed at the given height.
// The price at and beyond expiry equals the reserve; expiry must be checked
// before the price so a stale reserve-price bid is not accepted spuriously.
func (c *Curve) Expired(now uint64) bool {
	return now >= c.start && now-c.start >= c.numTicks
}

func (c *Curve) elapsed(now uint64) uint64 {
	if now <= c.start {
		return 0
	}
	e := now - c.start
	if e > c.numTicks {
		return c.numTicks
	}
	return e
}

func checkedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrPriceOverflow
	}
	return lo, nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrPriceOverflow
	}
	return sum, nil
}
