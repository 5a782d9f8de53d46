package store

import (
	"context"
	"testing"
	"time"

	"github.com/auctionhaus/dutch-engine/internal/model"
)

func seedAuction(t *testing.T, s *MemoryStore, id string, createdAt time.Time) *model.AuctionRecord {
	t.Helper()
	a := &model.AuctionRecord{
		ID:           id,
		Seller:       "seller",
		Reserve:      100,
		Decrement:    10,
		NumTicks:     10,
		InitialPrice: 200,
		PaymentRail:  model.RailNative,
		State:        model.StateOpen,
		CreatedAt:    createdAt,
	}
	if err := s.CreateAuction(context.Background(), a); err != nil {
		t.Fatalf("seed auction %s: %v", id, err)
	}
	return a
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	seedAuction(t, s, "a1", time.Now().UTC())

	got, err := s.GetAuction(context.Background(), "a1")
	if err != nil {
		t.Fatalf("GetAuction failed: %v", err)
	}
	if got.Seller != "seller" || got.InitialPrice != 200 {
		t.Errorf("unexpected record %+v", got)
	}

	if _, err := s.GetAuction(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing auction")
	}
}

func TestMemoryStore_DuplicateCreate(t *testing.T) {
	s := NewMemoryStore()
	seedAuction(t, s, "a1", time.Now().UTC())

	err := s.CreateAuction(context.Background(), &model.AuctionRecord{ID: "a1"})
	if err == nil {
		t.Error("expected duplicate create to fail")
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	seedAuction(t, s, "a1", time.Now().UTC())

	got, _ := s.GetAuction(context.Background(), "a1")
	got.Winner = "tampered"

	again, _ := s.GetAuction(context.Background(), "a1")
	if again.Winner != "" {
		t.Error("store must not expose internal state to mutation")
	}
}

func TestMemoryStore_MarkSettled(t *testing.T) {
	s := NewMemoryStore()
	seedAuction(t, s, "a1", time.Now().UTC())

	settledAt := time.Now().UTC()
	if err := s.MarkSettled(context.Background(), "a1", "winner", 200, settledAt); err != nil {
		t.Fatalf("MarkSettled failed: %v", err)
	}

	got, _ := s.GetAuction(context.Background(), "a1")
	if got.State != model.StateSettled || got.Winner != "winner" || got.WinningBid != 200 {
		t.Errorf("settlement not recorded: %+v", got)
	}
	if got.SettledAt == nil {
		t.Error("expected settled_at to be set")
	}

	if err := s.MarkSettled(context.Background(), "missing", "w", 1, settledAt); err == nil {
		t.Error("expected error for missing auction")
	}
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now().UTC()
	seedAuction(t, s, "old", base.Add(-time.Hour))
	seedAuction(t, s, "new", base)

	auctions, err := s.ListAuctions(context.Background())
	if err != nil {
		t.Fatalf("ListAuctions failed: %v", err)
	}
	if len(auctions) != 2 {
		t.Fatalf("expected 2 auctions, got %d", len(auctions))
	}
	if auctions[0].ID != "new" {
		t.Errorf("expected newest first, got %s", auctions[0].ID)
	}
}

func TestMemoryStore_BindAsset(t *testing.T) {
	s := NewMemoryStore()
	seedAuction(t, s, "a1", time.Now().UTC())

	if err := s.BindAsset(context.Background(), "a1", 3); err != nil {
		t.Fatalf("BindAsset failed: %v", err)
	}
	got, _ := s.GetAuction(context.Background(), "a1")
	if got.AssetTokenID == nil || *got.AssetTokenID != 3 {
		t.Errorf("asset binding not recorded: %+v", got.AssetTokenID)
	}
}

func TestMemoryStore_BidLedger(t *testing.T) {
	s := NewMemoryStore()
	seedAuction(t, s, "a1", time.Now().UTC())

	bids := []model.BidRecord{
		{ID: "b1", AuctionID: "a1", Bidder: "alice", Amount: 150, Asking: 200, Accepted: false, Reason: "bid below current price"},
		{ID: "b2", AuctionID: "a1", Bidder: "bob", Amount: 200, Asking: 200, Accepted: true},
		{ID: "b3", AuctionID: "other", Bidder: "alice", Amount: 10, Asking: 10, Accepted: true},
	}
	for i := range bids {
		if err := s.InsertBid(context.Background(), &bids[i]); err != nil {
			t.Fatalf("InsertBid failed: %v", err)
		}
	}

	byAuction, _ := s.GetBidsByAuction(context.Background(), "a1")
	if len(byAuction) != 2 {
		t.Fatalf("expected 2 bids for a1, got %d", len(byAuction))
	}
	if byAuction[0].ID != "b1" || byAuction[1].ID != "b2" {
		t.Error("bids should be returned in insertion order")
	}

	byBidder, _ := s.GetBidsByBidder(context.Background(), "alice")
	if len(byBidder) != 2 {
		t.Fatalf("expected 2 bids by alice, got %d", len(byBidder))
	}
}
