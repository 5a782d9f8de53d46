package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auctionhaus/dutch-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// uint64 amounts and heights are stored as NUMERIC and round-tripped
// through strings so values above the int64 range survive intact.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateAuction(ctx context.Context, a *model.AuctionRecord) error {
	var assetID *string
	if a.AssetTokenID != nil {
		v := strconv.FormatUint(*a.AssetTokenID, 10)
		assetID = &v
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO auctions (id, seller, reserve_price, price_decrement, num_ticks_open, start_height,
		                       initial_price, payment_rail, asset_token_id, state, winner, winning_bid, created_at)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8, $9::NUMERIC, $10, $11, $12::NUMERIC, $13)`,
		a.ID, a.Seller,
		u64(a.Reserve), u64(a.Decrement), u64(a.NumTicks), u64(a.StartHeight), u64(a.InitialPrice),
		a.PaymentRail, assetID, a.State, a.Winner, u64(a.WinningBid), a.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetAuction(ctx context.Context, id string) (*model.AuctionRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, seller,
		        reserve_price::TEXT, price_decrement::TEXT, num_ticks_open::TEXT, start_height::TEXT,
		        initial_price::TEXT, payment_rail, asset_token_id::TEXT,
		        state, winner, winning_bid::TEXT, created_at, settled_at
		 FROM auctions WHERE id = $1`, id)

	a, err := scanAuction(row)
	if err != nil {
		return nil, fmt.Errorf("get auction %s: %w", id, err)
	}
	return a, nil
}

func (s *PostgresStore) ListAuctions(ctx context.Context) ([]model.AuctionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, seller,
		        reserve_price::TEXT, price_decrement::TEXT, num_ticks_open::TEXT, start_height::TEXT,
		        initial_price::TEXT, payment_rail, asset_token_id::TEXT,
		        state, winner, winning_bid::TEXT, created_at, settled_at
		 FROM auctions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []model.AuctionRecord
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, *a)
	}
	return auctions, rows.Err()
}

func (s *PostgresStore) MarkSettled(ctx context.Context, id, winner string, winningBid uint64, settledAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE auctions
		 SET state = $2, winner = $3, winning_bid = $4::NUMERIC, settled_at = $5
		 WHERE id = $1 AND state = $6`,
		id, model.StateSettled, winner, u64(winningBid), settledAt, model.StateOpen,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("auction %s not found or already settled", id)
	}
	return nil
}

func (s *PostgresStore) BindAsset(ctx context.Context, id string, tokenID uint64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE auctions SET asset_token_id = $2::NUMERIC WHERE id = $1 AND asset_token_id IS NULL`,
		id, u64(tokenID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("auction %s not found or asset already bound", id)
	}
	return nil
}

func (s *PostgresStore) InsertBid(ctx context.Context, b *model.BidRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bids (id, auction_id, bidder, amount, height, asking, accepted, reason, timestamp)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7, $8, $9)`,
		b.ID, b.AuctionID, b.Bidder,
		u64(b.Amount), u64(b.Height), u64(b.Asking),
		b.Accepted, b.Reason, b.Timestamp,
	)
	return err
}

func (s *PostgresStore) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.BidRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, auction_id, bidder, amount::TEXT, height::TEXT, asking::TEXT, accepted, reason, timestamp
		 FROM bids WHERE auction_id = $1 ORDER BY timestamp`, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBids(rows)
}

func (s *PostgresStore) GetBidsByBidder(ctx context.Context, bidder string) ([]model.BidRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, auction_id, bidder, amount::TEXT, height::TEXT, asking::TEXT, accepted, reason, timestamp
		 FROM bids WHERE bidder = $1 ORDER BY timestamp`, bidder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBids(rows)
}

// pgxRow is satisfied by both pgx.Row and pgx.Rows.
type pgxRow interface {
	Scan(dest ...interface{}) error
}

type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanAuction(row pgxRow) (*model.AuctionRecord, error) {
	var a model.AuctionRecord
	var reserve, decrement, numTicks, start, initial, winningBid string
	var assetID *string

	if err := row.Scan(&a.ID, &a.Seller,
		&reserve, &decrement, &numTicks, &start,
		&initial, &a.PaymentRail, &assetID,
		&a.State, &a.Winner, &winningBid, &a.CreatedAt, &a.SettledAt); err != nil {
		return nil, err
	}

	for _, f := range []struct {
		dst *uint64
		src string
	}{
		{&a.Reserve, reserve},
		{&a.Decrement, decrement},
		{&a.NumTicks, numTicks},
		{&a.StartHeight, start},
		{&a.InitialPrice, initial},
		{&a.WinningBid, winningBid},
	} {
		v, err := parseU64(f.src)
		if err != nil {
			return nil, fmt.Errorf("auction %s: %w", a.ID, err)
		}
		*f.dst = v
	}
	if assetID != nil {
		v, err := parseU64(*assetID)
		if err != nil {
			return nil, fmt.Errorf("auction %s: %w", a.ID, err)
		}
		a.AssetTokenID = &v
	}
	return &a, nil
}

func scanBids(rows pgxRows) ([]model.BidRecord, error) {
	var bids []model.BidRecord
	for rows.Next() {
		var b model.BidRecord
		var amount, height, asking string

		if err := rows.Scan(&b.ID, &b.AuctionID, &b.Bidder,
			&amount, &height, &asking,
			&b.Accepted, &b.Reason, &b.Timestamp); err != nil {
			return nil, err
		}

		for _, f := range []struct {
			dst *uint64
			src string
		}{
			{&b.Amount, amount},
			{&b.Height, height},
			{&b.Asking, asking},
		} {
			v, err := parseU64(f.src)
			if err != nil {
				return nil, fmt.Errorf("bid %s: %w", b.ID, err)
			}
			*f.dst = v
		}

		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

// parseU64 reads back a NUMERIC column round-tripped as text. A value that
// does not parse is corrupt data and must surface, not turn into 0.
func parseU64(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed numeric %q: %w", s, err)
	}
	return v, nil
}
