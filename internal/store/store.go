// Package store defines the persistence interface for the auction engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"time"

	"github.com/auctionhaus/dutch-engine/internal/model"
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Auction snapshots ---

	// CreateAuction persists a newly initialized auction.
	CreateAuction(ctx context.Context, a *model.AuctionRecord) error

	// GetAuction retrieves an auction by its ID.
	GetAuction(ctx context.Context, id string) (*model.AuctionRecord, error)

	// ListAuctions returns all auctions, newest first.
	ListAuctions(ctx context.Context) ([]model.AuctionRecord, error)

	// MarkSettled records the one-time Open→Settled transition: winner,
	// winning bid, and settlement time are set together.
	MarkSettled(ctx context.Context, id, winner string, winningBid uint64, settledAt time.Time) error

	// BindAsset records the one-shot asset registry binding.
	BindAsset(ctx context.Context, id string, tokenID uint64) error

	// --- Immutable bid ledger ---

	// InsertBid appends an immutable bid-attempt record.
	InsertBid(ctx context.Context, b *model.BidRecord) error

	// GetBidsByAuction returns all bid attempts for an auction, oldest first.
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.BidRecord, error)

	// GetBidsByBidder returns all bid attempts by one identity, oldest first.
	GetBidsByBidder(ctx context.Context, bidder string) ([]model.BidRecord, error)
}
