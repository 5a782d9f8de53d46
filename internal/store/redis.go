package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/auctionhaus/dutch-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateAuction(ctx context.Context, a *model.AuctionRecord) error {
	if err := s.primary.CreateAuction(ctx, a); err != nil {
		return err
	}
	s.cacheAuction(ctx, a)
	return nil
}

func (s *CachedStore) MarkSettled(ctx context.Context, id, winner string, winningBid uint64, settledAt time.Time) error {
	if err := s.primary.MarkSettled(ctx, id, winner, winningBid, settledAt); err != nil {
		return err
	}
	// Invalidate cache; next read will re-populate.
	s.rdb.Del(ctx, auctionKey(id))
	return nil
}

func (s *CachedStore) BindAsset(ctx context.Context, id string, tokenID uint64) error {
	if err := s.primary.BindAsset(ctx, id, tokenID); err != nil {
		return err
	}
	s.rdb.Del(ctx, auctionKey(id))
	return nil
}

func (s *CachedStore) InsertBid(ctx context.Context, b *model.BidRecord) error {
	if err := s.primary.InsertBid(ctx, b); err != nil {
		return err
	}
	// Invalidate the bid history for this auction.
	s.rdb.Del(ctx, bidsKey(b.AuctionID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetAuction(ctx context.Context, id string) (*model.AuctionRecord, error) {
	data, err := s.rdb.Get(ctx, auctionKey(id)).Bytes()
	if err == nil {
		var a model.AuctionRecord
		if json.Unmarshal(data, &a) == nil {
			return &a, nil
		}
	}

	// Cache miss: read from primary.
	a, err := s.primary.GetAuction(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheAuction(ctx, a)
	return a, nil
}

func (s *CachedStore) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.BidRecord, error) {
	data, err := s.rdb.Get(ctx, bidsKey(auctionID)).Bytes()
	if err == nil {
		var bids []model.BidRecord
		if json.Unmarshal(data, &bids) == nil {
			return bids, nil
		}
	}

	// Cache miss.
	bids, err := s.primary.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(bids); err == nil {
		s.rdb.Set(ctx, bidsKey(auctionID), data, s.ttl)
	}
	return bids, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListAuctions(ctx context.Context) ([]model.AuctionRecord, error) {
	return s.primary.ListAuctions(ctx)
}

func (s *CachedStore) GetBidsByBidder(ctx context.Context, bidder string) ([]model.BidRecord, error) {
	return s.primary.GetBidsByBidder(ctx, bidder)
}

// --- Cache helpers ---

func (s *CachedStore) cacheAuction(ctx context.Context, a *model.AuctionRecord) {
	if data, err := json.Marshal(a); err == nil {
		s.rdb.Set(ctx, auctionKey(a.ID), data, s.ttl)
	}
}

func auctionKey(id string) string { return fmt.Sprintf("auction:%s", id) }
func bidsKey(id string) string    { return fmt.Sprintf("auction:%s:bids", id) }
