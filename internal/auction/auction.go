// Package auction owns the lifecycle of one descending-price auction: Open
// until the first accepted bid, then Settled, forever.
//
// The host environment (the service layer) serializes all mutating calls
// into a strict total order, so this package takes no locks of its own.
// What serialization does not remove is reentrancy: settlement calls out to
// payment and asset collaborators, and a collaborator may call back into
// SubmitBid before the original call returns. The engine therefore commits
// the Settled state and winner before any external call, so a reentrant bid
// observes a closed auction. If settlement then fails, the commit is rolled
// back and the whole operation is a no-op.
package auction

import (
	"context"
	"errors"
	"fmt"

	"github.com/auctionhaus/dutch-engine/internal/escrow"
	"github.com/auctionhaus/dutch-engine/internal/pricing"
)

var (
	// ErrNotInitialized is returned when a method is called before the
	// one-shot initialization ran.
	ErrNotInitialized = errors.New("auction: not initialized")

	// ErrAlreadyInitialized is returned on a second initialization attempt.
	ErrAlreadyInitialized = errors.New("auction: already initialized")

	// ErrAuctionClosed is returned once a winner has been determined.
	ErrAuctionClosed = errors.New("auction: auction has closed, winner already chosen")

	// ErrAuctionExpired is returned when the bidding window has elapsed
	// without a winner.
	ErrAuctionExpired = errors.New("auction: bidding window has elapsed")

	// ErrSellerCannotBid is returned when the seller bids on their own item.
	ErrSellerCannotBid = errors.New("auction: seller cannot bid on own item")

	// ErrInsufficientBid is returned when the offer is below the current price.
	ErrInsufficientBid = errors.New("auction: bid below current price")

	// ErrNoWinnerYet is returned by Winner while the auction is open.
	ErrNoWinnerYet = errors.New("auction: no winner yet")

	// ErrNotSeller is returned when an administrative operation is
	// attempted by anyone but the seller.
	ErrNotSeller = errors.New("auction: caller is not the seller")

	// ErrAlreadyBound is returned on a second asset registry binding.
	ErrAlreadyBound = errors.New("auction: asset registry already bound")

	// ErrNoSeller is returned when the configuration names no seller.
	ErrNoSeller = errors.New("auction: seller identity required")
)

// State is the auction lifecycle state.
type State int

const (
	// Open accepts bids.
	Open State = iota
	// Settled is terminal: winner and amount are fixed.
	Settled
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// Settler executes the atomic exchange once a bid is accepted. Implemented
// by escrow.Escrow; test doubles stand in for misbehaving collaborators.
type Settler interface {
	Settle(ctx context.Context, seller, bidder string, offered, clearing uint64, ref *escrow.AssetRef) error
}

// Config are the immutable auction parameters, fixed at initialization.
type Config struct {
	Seller    string
	Reserve   uint64
	Decrement uint64
	NumTicks  uint64
	Start     uint64
	AssetRef  *escrow.AssetRef // optional; may be bound later, once
}

// Auction is the state machine for a single item. The zero value is
// uninitialized; Initialize must run exactly once before any other method.
type Auction struct {
	curve    *pricing.Curve
	seller   string
	settler  Settler
	assetRef *escrow.AssetRef

	initialized   bool
	state         State
	winner        string
	winningAmount uint64
}

// New allocates and initializes an auction in one step.
func New(cfg Config, settler Settler) (*Auction, error) {
	a := &Auction{}
	if err := a.Initialize(cfg, settler); err != nil {
		return nil, err
	}
	return a, nil
}

// Initialize is the one-shot construction step. A second call fails with
// ErrAlreadyInitialized regardless of arguments, mirroring a proxy
// initializer guard. Configuration errors (zero duration, price overflow)
// surface from the pricing curve.
func (a *Auction) Initialize(cfg Config, settler Settler) error {
	if a.initialized {
		return ErrAlreadyInitialized
	}
	if cfg.Seller == "" {
		return ErrNoSeller
	}
	curve, err := pricing.NewCurve(cfg.Reserve, cfg.Decrement, cfg.NumTicks, cfg.Start)
	if err != nil {
		return err
	}
	a.curve = curve
	a.seller = cfg.Seller
	a.settler = settler
	a.assetRef = cfg.AssetRef
	a.state = Open
	a.initialized = true
	return nil
}

// SubmitBid evaluates an offer at the given height and, if it clears,
// settles the auction. The order of checks is fixed: closed, expired,
// seller, price. Expiry is checked before the price because the price at
// expiry equals the reserve and could otherwise satisfy a stale bid.
//
// On acceptance the state flips to Settled before the settler runs; any
// reentrant SubmitBid during settlement is rejected with ErrAuctionClosed.
// A settlement failure rolls the state back to Open, all or nothing.
func (a *Auction) SubmitBid(ctx context.Context, bidder string, offered uint64, now uint64) error {
	if !a.initialized {
		return ErrNotInitialized
	}
	if a.state != Open {
		return ErrAuctionClosed
	}
	if a.curve.Expired(now) {
		return ErrAuctionExpired
	}
	if bidder == a.seller {
		return ErrSellerCannotBid
	}
	price := a.curve.PriceAt(now)
	if offered < price {
		return fmt.Errorf("%w: offered %d, current price %d", ErrInsufficientBid, offered, price)
	}

	// Commit before the external call-out.
	a.state = Settled
	a.winner = bidder
	a.winningAmount = offered

	if err := a.settler.Settle(ctx, a.seller, bidder, offered, price, a.assetRef); err != nil {
		a.state = Open
		a.winner = ""
		a.winningAmount = 0
		return err
	}
	return nil
}

// CurrentPrice returns the asking price at the given height. Read-only and
// callable at any state; after settlement it is informational.
func (a *Auction) CurrentPrice(now uint64) (uint64, error) {
	if !a.initialized {
		return 0, ErrNotInitialized
	}
	return a.curve.PriceAt(now), nil
}

// Winner returns the settled winner and accepted amount, or ErrNoWinnerYet
// while the auction is open.
func (a *Auction) Winner() (string, uint64, error) {
	if !a.initialized {
		return "", 0, ErrNotInitialized
	}
	if a.state != Settled {
		return "", 0, ErrNoWinnerYet
	}
	return a.winner, a.winningAmount, nil
}

// BindAssetRegistry attaches the unique-asset reference after creation.
// Seller-only, exactly once, and only while the auction is open.
func (a *Auction) BindAssetRegistry(caller string, ref *escrow.AssetRef) error {
	if !a.initialized {
		return ErrNotInitialized
	}
	if caller != a.seller {
		return ErrNotSeller
	}
	if a.state != Open {
		return ErrAuctionClosed
	}
	if a.assetRef != nil {
		return ErrAlreadyBound
	}
	a.assetRef = ref
	return nil
}

// State returns the lifecycle state.
func (a *Auction) State() State { return a.state }

// Seller returns the seller identity.
func (a *Auction) Seller() string { return a.seller }

// Reserve returns the price floor.
func (a *Auction) Reserve() uint64 { return a.curve.Reserve() }

// Decrement returns the per-tick price drop.
func (a *Auction) Decrement() uint64 { return a.curve.Decrement() }

// NumTicksOpen returns the bidding window length in blocks.
func (a *Auction) NumTicksOpen() uint64 { return a.curve.NumTicks() }

// StartHeight returns the opening block height.
func (a *Auction) StartHeight() uint64 { return a.curve.Start() }

// InitialPrice returns the asking price at the opening height.
func (a *Auction) InitialPrice() uint64 { return a.curve.InitialPrice() }

// AssetRef returns the bound asset reference, if any.
func (a *Auction) AssetRef() *escrow.AssetRef { return a.assetRef }
