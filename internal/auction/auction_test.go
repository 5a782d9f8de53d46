package auction_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/auctionhaus/dutch-engine/internal/auction"
	"github.com/auctionhaus/dutch-engine/internal/escrow"
	"github.com/auctionhaus/dutch-engine/internal/pricing"
)

// recordingSettler captures settle calls and can fail or call back into the
// auction, standing in for a misbehaving collaborator.
type recordingSettler struct {
	err      error
	calls    int
	seller   string
	bidder   string
	offered  uint64
	clearing uint64
	onSettle func()
}

func (s *recordingSettler) Settle(_ context.Context, seller, bidder string, offered, clearing uint64, _ *escrow.AssetRef) error {
	s.calls++
	s.seller = seller
	s.bidder = bidder
	s.offered = offered
	s.clearing = clearing
	if s.onSettle != nil {
		s.onSettle()
	}
	return s.err
}

func newTestAuction(t *testing.T, settler auction.Settler) *auction.Auction {
	t.Helper()
	a, err := auction.New(auction.Config{
		Seller:    "seller",
		Reserve:   100,
		Decrement: 10,
		NumTicks:  10,
		Start:     0,
	}, settler)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

func TestInitialize_Once(t *testing.T) {
	a := newTestAuction(t, &recordingSettler{})
	err := a.Initialize(auction.Config{Seller: "other", Reserve: 1, NumTicks: 1}, &recordingSettler{})
	if !errors.Is(err, auction.ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestInitialize_ConfigErrors(t *testing.T) {
	if _, err := auction.New(auction.Config{Reserve: 1, NumTicks: 1}, &recordingSettler{}); !errors.Is(err, auction.ErrNoSeller) {
		t.Errorf("expected ErrNoSeller, got %v", err)
	}
	if _, err := auction.New(auction.Config{Seller: "s", NumTicks: 0}, &recordingSettler{}); !errors.Is(err, pricing.ErrZeroDuration) {
		t.Errorf("expected ErrZeroDuration, got %v", err)
	}
	_, err := auction.New(auction.Config{Seller: "s", Decrement: math.MaxUint64, NumTicks: 2}, &recordingSettler{})
	if !errors.Is(err, pricing.ErrPriceOverflow) {
		t.Errorf("expected ErrPriceOverflow, got %v", err)
	}
}

func TestUninitialized_Rejected(t *testing.T) {
	var a auction.Auction
	if err := a.SubmitBid(context.Background(), "bidder", 100, 0); !errors.Is(err, auction.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

// reserve=100, ticks=10, decrement=10 → initial=200. A bid of 150 at the
// start is rejected; a bid of 200 settles at 200.
func TestSubmitBid_AtInitialPrice(t *testing.T) {
	settler := &recordingSettler{}
	a := newTestAuction(t, settler)

	if got := a.InitialPrice(); got != 200 {
		t.Fatalf("expected initial price 200, got %d", got)
	}
	err := a.SubmitBid(context.Background(), "bidder", 150, 0)
	if !errors.Is(err, auction.ErrInsufficientBid) {
		t.Fatalf("expected ErrInsufficientBid, got %v", err)
	}
	if a.State() != auction.Open {
		t.Fatal("rejected bid must not change state")
	}
	if settler.calls != 0 {
		t.Fatal("rejected bid must not settle")
	}

	if err := a.SubmitBid(context.Background(), "bidder", 200, 0); err != nil {
		t.Fatalf("bid at current price should be accepted: %v", err)
	}
	winner, amount, err := a.Winner()
	if err != nil {
		t.Fatalf("Winner failed: %v", err)
	}
	if winner != "bidder" || amount != 200 {
		t.Errorf("expected winner=bidder amount=200, got %s %d", winner, amount)
	}
	if settler.clearing != 200 || settler.offered != 200 {
		t.Errorf("settler got offered=%d clearing=%d", settler.offered, settler.clearing)
	}
}

// At the last open block the price has decayed to the reserve and a
// reserve-price bid clears.
func TestSubmitBid_AtReserveBeforeExpiry(t *testing.T) {
	settler := &recordingSettler{}
	a := newTestAuction(t, settler)

	price, err := a.CurrentPrice(9)
	if err != nil {
		t.Fatalf("CurrentPrice failed: %v", err)
	}
	if price != 110 {
		t.Fatalf("expected price 110 at height 9, got %d", price)
	}
	if err := a.SubmitBid(context.Background(), "bidder", 110, 9); err != nil {
		t.Fatalf("reserve-adjacent bid should clear: %v", err)
	}
	if settler.clearing != 110 {
		t.Errorf("expected clearing 110, got %d", settler.clearing)
	}
}

func TestSubmitBid_ExpiredBeforePriceCheck(t *testing.T) {
	settler := &recordingSettler{}
	a := newTestAuction(t, settler)

	// At height 10 the window has elapsed; even an over-reserve offer must
	// be rejected as expired, not evaluated against the reserve price.
	err := a.SubmitBid(context.Background(), "bidder", 1_000, 10)
	if !errors.Is(err, auction.ErrAuctionExpired) {
		t.Fatalf("expected ErrAuctionExpired, got %v", err)
	}
	if settler.calls != 0 {
		t.Error("expired bid must not settle")
	}
}

func TestSubmitBid_SellerExcluded(t *testing.T) {
	a := newTestAuction(t, &recordingSettler{})

	err := a.SubmitBid(context.Background(), "seller", 10_000, 0)
	if !errors.Is(err, auction.ErrSellerCannotBid) {
		t.Errorf("expected ErrSellerCannotBid, got %v", err)
	}
}

func TestSubmitBid_SecondBidRejected(t *testing.T) {
	a := newTestAuction(t, &recordingSettler{})

	if err := a.SubmitBid(context.Background(), "first", 220, 0); err != nil {
		t.Fatalf("first bid failed: %v", err)
	}
	err := a.SubmitBid(context.Background(), "second", 10_000, 0)
	if !errors.Is(err, auction.ErrAuctionClosed) {
		t.Errorf("expected ErrAuctionClosed, got %v", err)
	}
	winner, amount, _ := a.Winner()
	if winner != "first" || amount != 220 {
		t.Errorf("winner must stay first/220, got %s/%d", winner, amount)
	}
}

// The central correctness property: a collaborator that re-enters SubmitBid
// mid-settlement observes a closed auction.
func TestSubmitBid_ReentrantBidSeesClosed(t *testing.T) {
	settler := &recordingSettler{}
	a := newTestAuction(t, settler)

	var reentrantErr error
	settler.onSettle = func() {
		reentrantErr = a.SubmitBid(context.Background(), "attacker", 10_000, 0)
	}

	if err := a.SubmitBid(context.Background(), "bidder", 200, 0); err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	if !errors.Is(reentrantErr, auction.ErrAuctionClosed) {
		t.Errorf("reentrant bid should see ErrAuctionClosed, got %v", reentrantErr)
	}
	winner, _, _ := a.Winner()
	if winner != "bidder" {
		t.Errorf("winner must be the original bidder, got %s", winner)
	}
}

func TestSubmitBid_SettlementFailureRollsBack(t *testing.T) {
	boom := errors.New("collaborator rejected transfer")
	settler := &recordingSettler{err: boom}
	a := newTestAuction(t, settler)

	err := a.SubmitBid(context.Background(), "bidder", 200, 0)
	if !errors.Is(err, boom) {
		t.Fatalf("expected settlement error to propagate, got %v", err)
	}
	if a.State() != auction.Open {
		t.Error("failed settlement must roll the state back to open")
	}
	if _, _, err := a.Winner(); !errors.Is(err, auction.ErrNoWinnerYet) {
		t.Errorf("winner must be unset after rollback, got %v", err)
	}

	// A corrected retry succeeds.
	settler.err = nil
	if err := a.SubmitBid(context.Background(), "bidder", 200, 0); err != nil {
		t.Fatalf("retry after rollback failed: %v", err)
	}
}

func TestWinner_OpenAuction(t *testing.T) {
	a := newTestAuction(t, &recordingSettler{})
	if _, _, err := a.Winner(); !errors.Is(err, auction.ErrNoWinnerYet) {
		t.Errorf("expected ErrNoWinnerYet, got %v", err)
	}
}

func TestBindAssetRegistry(t *testing.T) {
	a := newTestAuction(t, &recordingSettler{})
	ref := &escrow.AssetRef{TokenID: 0}

	if err := a.BindAssetRegistry("stranger", ref); !errors.Is(err, auction.ErrNotSeller) {
		t.Errorf("expected ErrNotSeller, got %v", err)
	}
	if err := a.BindAssetRegistry("seller", ref); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if err := a.BindAssetRegistry("seller", ref); !errors.Is(err, auction.ErrAlreadyBound) {
		t.Errorf("expected ErrAlreadyBound, got %v", err)
	}
}

func TestBindAssetRegistry_AfterSettlement(t *testing.T) {
	a := newTestAuction(t, &recordingSettler{})
	if err := a.SubmitBid(context.Background(), "bidder", 200, 0); err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	err := a.BindAssetRegistry("seller", &escrow.AssetRef{})
	if !errors.Is(err, auction.ErrAuctionClosed) {
		t.Errorf("expected ErrAuctionClosed, got %v", err)
	}
}

func TestGetters(t *testing.T) {
	a := newTestAuction(t, &recordingSettler{})
	if a.Seller() != "seller" {
		t.Errorf("unexpected seller %s", a.Seller())
	}
	if a.Reserve() != 100 || a.Decrement() != 10 || a.NumTicksOpen() != 10 || a.StartHeight() != 0 {
		t.Error("unexpected auction parameters")
	}
}
