// Package model defines the persisted domain types shared across the
// engine. All amounts are unsigned integer base units of the payment
// asset, never float64 for money.
package model

import "time"

// Payment rail names as persisted and served.
const (
	RailNative = "native"
	RailToken  = "token"
)

// Auction lifecycle states as persisted and served.
const (
	StateOpen    = "open"
	StateSettled = "settled"
)

// AuctionRecord is the persisted snapshot of one auction instance.
// Configuration fields are immutable after creation; state, winner, and
// winning bid change exactly once, together, on settlement.
type AuctionRecord struct {
	ID           string     `json:"id" db:"id"`
	Seller       string     `json:"seller" db:"seller"`
	Reserve      uint64     `json:"reserve_price" db:"reserve_price"`
	Decrement    uint64     `json:"price_decrement" db:"price_decrement"`
	NumTicks     uint64     `json:"num_ticks_open" db:"num_ticks_open"`
	StartHeight  uint64     `json:"start_height" db:"start_height"`
	InitialPrice uint64     `json:"initial_price" db:"initial_price"`
	PaymentRail  string     `json:"payment_rail" db:"payment_rail"` // "native" or "token"
	AssetTokenID *uint64    `json:"asset_token_id,omitempty" db:"asset_token_id"`
	State        string     `json:"state" db:"state"` // "open" or "settled"
	Winner       string     `json:"winner,omitempty" db:"winner"`
	WinningBid   uint64     `json:"winning_bid,omitempty" db:"winning_bid"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	SettledAt    *time.Time `json:"settled_at,omitempty" db:"settled_at"`
}

// BidRecord is an immutable record of one bid attempt, accepted or not.
// Once created, these are never modified or deleted.
type BidRecord struct {
	ID        string    `json:"id" db:"id"`
	AuctionID string    `json:"auction_id" db:"auction_id"`
	Bidder    string    `json:"bidder" db:"bidder"`
	Amount    uint64    `json:"amount" db:"amount"`
	Height    uint64    `json:"height" db:"height"` // block height at evaluation
	Asking    uint64    `json:"asking" db:"asking"` // price in effect at evaluation
	Accepted  bool      `json:"accepted" db:"accepted"`
	Reason    string    `json:"reason,omitempty" db:"reason"` // reject reason, empty when accepted
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
