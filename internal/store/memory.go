package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/auctionhaus/dutch-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	auctions map[string]*model.AuctionRecord
	bids     []model.BidRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions: make(map[string]*model.AuctionRecord),
	}
}

func (s *MemoryStore) CreateAuction(_ context.Context, a *model.AuctionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.auctions[a.ID]; exists {
		return fmt.Errorf("auction %s already exists", a.ID)
	}

	// Store a copy to avoid external mutation.
	copy := *a
	s.auctions[a.ID] = &copy
	return nil
}

func (s *MemoryStore) GetAuction(_ context.Context, id string) (*model.AuctionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[id]
	if !ok {
		return nil, fmt.Errorf("auction %s not found", id)
	}
	copy := *a
	return &copy, nil
}

func (s *MemoryStore) ListAuctions(_ context.Context) ([]model.AuctionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auctions := make([]model.AuctionRecord, 0, len(s.auctions))
	for _, a := range s.auctions {
		auctions = append(auctions, *a)
	}
	sort.Slice(auctions, func(i, j int) bool {
		return auctions[i].CreatedAt.After(auctions[j].CreatedAt)
	})
	return auctions, nil
}

func (s *MemoryStore) MarkSettled(_ context.Context, id, winner string, winningBid uint64, settledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[id]
	if !ok {
		return fmt.Errorf("auction %s not found", id)
	}
	a.State = model.StateSettled
	a.Winner = winner
	a.WinningBid = winningBid
	a.SettledAt = &settledAt
	return nil
}

func (s *MemoryStore) BindAsset(_ context.Context, id string, tokenID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[id]
	if !ok {
		return fmt.Errorf("auction %s not found", id)
	}
	a.AssetTokenID = &tokenID
	return nil
}

func (s *MemoryStore) InsertBid(_ context.Context, b *model.BidRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bids = append(s.bids, *b)
	return nil
}

func (s *MemoryStore) GetBidsByAuction(_ context.Context, auctionID string) ([]model.BidRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.BidRecord
	for _, b := range s.bids {
		if b.AuctionID == auctionID {
			result = append(result, b)
		}
	}
	return result, nil
}

func (s *MemoryStore) GetBidsByBidder(_ context.Context, bidder string) ([]model.BidRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.BidRecord
	for _, b := range s.bids {
		if b.Bidder == bidder {
			result = append(result, b)
		}
	}
	return result, nil
}
