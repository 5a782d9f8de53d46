// Package service provides the HTTP handlers and hosting glue for the
// auction engine: creating auctions, serving prices, accepting bids, and
// recording the immutable bid ledger.
//
// All amounts are unsigned integer base units, never float64 for money.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/auctionhaus/dutch-engine/internal/auction"
	"github.com/auctionhaus/dutch-engine/internal/chain"
	"github.com/auctionhaus/dutch-engine/internal/escrow"
	"github.com/auctionhaus/dutch-engine/internal/events"
	"github.com/auctionhaus/dutch-engine/internal/metrics"
	"github.com/auctionhaus/dutch-engine/internal/model"
	"github.com/auctionhaus/dutch-engine/internal/nft"
	"github.com/auctionhaus/dutch-engine/internal/pricing"
	"github.com/auctionhaus/dutch-engine/internal/store"
	"github.com/auctionhaus/dutch-engine/internal/token"
)

// EngineAgent is the identity collaborators see as the engine's transfer
// agent. Sellers approve it on the asset registry; token bidders grant it
// a payment allowance.
const EngineAgent = "dutch-engine"

// Collaborators are the external contracts the engine settles against,
// hosted in-process: the native bank, the fungible payment token, and the
// unique-asset registry.
type Collaborators struct {
	Bank  *escrow.NativeLedger
	Token *token.Ledger
	NFT   *nft.Registry
}

// engine pairs a live state machine with its escrow.
type engine struct {
	auction *auction.Auction
	escrow  *escrow.Escrow
	rail    string
}

// Service hosts auction engines behind HTTP. The mutex serializes all
// state-mutating operations into the strict total order the engine's
// concurrency model assumes.
type Service struct {
	store  store.Store
	clock  chain.Clock
	collab Collaborators
	wsHub  *WSHub            // optional WebSocket hub for real-time broadcasts
	pub    *events.Publisher // optional redis stream publisher

	mu      sync.Mutex
	engines map[string]*engine
}

// NewService creates an auction service. Pass nil for hub and pub if
// broadcasting is not needed.
func NewService(st store.Store, clock chain.Clock, collab Collaborators, hub *WSHub, pub *events.Publisher) *Service {
	return &Service{
		store:   st,
		clock:   clock,
		collab:  collab,
		wsHub:   hub,
		pub:     pub,
		engines: make(map[string]*engine),
	}
}

// --- Request/Response types ---

// CreateAuctionRequest is the JSON body for auction creation.
type CreateAuctionRequest struct {
	Seller         string  `json:"seller"`
	ReservePrice   uint64  `json:"reserve_price"`
	PriceDecrement uint64  `json:"price_decrement"`
	NumTicksOpen   uint64  `json:"num_ticks_open"`
	PaymentRail    string  `json:"payment_rail"`             // "native" (default) or "token"
	AssetTokenID   *uint64 `json:"asset_token_id,omitempty"` // optional; may be bound later
}

// BidRequest is the JSON body for POST /auctions/{id}/bid. For native
// auctions amount is the value attached to the call; for token auctions it
// is the offer the asking price is compared against, and the engine pulls
// only the clearing price from the bidder's allowance.
type BidRequest struct {
	Bidder string `json:"bidder"`
	Amount uint64 `json:"amount"`
}

// BidResponse is returned for an accepted bid.
type BidResponse struct {
	BidID         string `json:"bid_id"`
	AuctionID     string `json:"auction_id"`
	Bidder        string `json:"bidder"`
	Amount        uint64 `json:"amount"`
	ClearingPrice uint64 `json:"clearing_price"`
	Refund        uint64 `json:"refund"`
	Height        uint64 `json:"height"`
	State         string `json:"state"`
}

// BindRegistryRequest is the JSON body for the seller-only asset binding.
type BindRegistryRequest struct {
	Caller  string `json:"caller"`
	TokenID uint64 `json:"token_id"`
}

// --- HTTP Handlers ---

// CreateAuction handles POST /api/v1/auctions
func (s *Service) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var req CreateAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rail := req.PaymentRail
	if rail == "" {
		rail = model.RailNative
	}
	if rail != model.RailNative && rail != model.RailToken {
		writeError(w, "payment_rail must be native or token", http.StatusBadRequest)
		return
	}

	var esc *escrow.Escrow
	switch rail {
	case model.RailNative:
		esc = escrow.New(EngineAgent, escrow.NativeRail(s.collab.Bank))
	case model.RailToken:
		esc = escrow.New(EngineAgent, escrow.TokenRail(s.collab.Token))
	}

	var ref *escrow.AssetRef
	if req.AssetTokenID != nil {
		ref = &escrow.AssetRef{Registry: s.collab.NFT, TokenID: *req.AssetTokenID}
	}

	start := s.clock.Height()
	a, err := auction.New(auction.Config{
		Seller:    req.Seller,
		Reserve:   req.ReservePrice,
		Decrement: req.PriceDecrement,
		NumTicks:  req.NumTicksOpen,
		Start:     start,
		AssetRef:  ref,
	}, esc)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	record := &model.AuctionRecord{
		ID:           uuid.New().String(),
		Seller:       req.Seller,
		Reserve:      req.ReservePrice,
		Decrement:    req.PriceDecrement,
		NumTicks:     req.NumTicksOpen,
		StartHeight:  start,
		InitialPrice: a.InitialPrice(),
		PaymentRail:  rail,
		AssetTokenID: req.AssetTokenID,
		State:        model.StateOpen,
		CreatedAt:    time.Now().UTC(),
	}

	ctx := r.Context()
	if err := s.store.CreateAuction(ctx, record); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	s.mu.Lock()
	s.engines[record.ID] = &engine{auction: a, escrow: esc, rail: rail}
	s.mu.Unlock()

	metrics.OpenAuctions.Inc()
	slog.Info("auction created",
		"id", record.ID,
		"seller", req.Seller,
		"initial_price", record.InitialPrice,
		"rail", rail,
		"start_height", start,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:      "auction_created",
			AuctionID: record.ID,
			Price:     record.InitialPrice,
			Height:    start,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(record)
}

// ListAuctions handles GET /api/v1/auctions
func (s *Service) ListAuctions(w http.ResponseWriter, r *http.Request) {
	auctions, err := s.store.ListAuctions(r.Context())
	if err != nil {
		writeError(w, "failed to list auctions", http.StatusInternalServerError)
		return
	}
	if auctions == nil {
		auctions = []model.AuctionRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(auctions)
}

// GetAuction handles GET /api/v1/auctions/{auctionID}
func (s *Service) GetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID := chi.URLParam(r, "auctionID")

	record, err := s.store.GetAuction(r.Context(), auctionID)
	if err != nil {
		writeError(w, "auction not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// GetPrice handles GET /api/v1/auctions/{auctionID}/price
// The price is recomputed from the persisted parameters, so it is
// available even for auctions not hosted by this process.
func (s *Service) GetPrice(w http.ResponseWriter, r *http.Request) {
	auctionID := chi.URLParam(r, "auctionID")

	record, err := s.store.GetAuction(r.Context(), auctionID)
	if err != nil {
		writeError(w, "auction not found", http.StatusNotFound)
		return
	}

	curve, err := pricing.NewCurve(record.Reserve, record.Decrement, record.NumTicks, record.StartHeight)
	if err != nil {
		writeError(w, "invalid auction configuration", http.StatusInternalServerError)
		return
	}
	now := s.clock.Height()

	resp := map[string]any{
		"auction_id": auctionID,
		"height":     now,
		"price":      curve.PriceAt(now),
		"expired":    curve.Expired(now),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetWinner handles GET /api/v1/auctions/{auctionID}/winner
func (s *Service) GetWinner(w http.ResponseWriter, r *http.Request) {
	auctionID := chi.URLParam(r, "auctionID")

	record, err := s.store.GetAuction(r.Context(), auctionID)
	if err != nil {
		writeError(w, "auction not found", http.StatusNotFound)
		return
	}
	winner, winningBid := record.Winner, record.WinningBid
	if record.State != model.StateSettled {
		// The live engine is authoritative: a failed settlement write can
		// leave the row open after the auction settled. Serve from the
		// engine and retry the write.
		w2, amount, ok := s.engineWinner(auctionID)
		if !ok {
			writeError(w, auction.ErrNoWinnerYet.Error(), http.StatusConflict)
			return
		}
		winner, winningBid = w2, amount
		if err := s.store.MarkSettled(r.Context(), auctionID, winner, winningBid, time.Now().UTC()); err != nil {
			slog.Warn("settlement row still stale", "auction", auctionID, "err", err)
		}
	}

	resp := map[string]any{
		"auction_id":  auctionID,
		"winner":      winner,
		"winning_bid": winningBid,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetBids handles GET /api/v1/auctions/{auctionID}/bids
// Returns the immutable bid-attempt ledger, accepted and rejected alike.
func (s *Service) GetBids(w http.ResponseWriter, r *http.Request) {
	auctionID := chi.URLParam(r, "auctionID")

	bids, err := s.store.GetBidsByAuction(r.Context(), auctionID)
	if err != nil {
		writeError(w, "failed to get bids", http.StatusInternalServerError)
		return
	}
	if bids == nil {
		bids = []model.BidRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bids)
}

// GetBidderBids handles GET /api/v1/bidders/{bidder}/bids
func (s *Service) GetBidderBids(w http.ResponseWriter, r *http.Request) {
	bidder := chi.URLParam(r, "bidder")

	bids, err := s.store.GetBidsByBidder(r.Context(), bidder)
	if err != nil {
		writeError(w, "failed to get bids", http.StatusInternalServerError)
		return
	}
	if bids == nil {
		bids = []model.BidRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bids)
}

// SubmitBid handles POST /api/v1/auctions/{auctionID}/bid
// Executes the full bid path: hold attached value (native rail), evaluate
// against the current price, settle, and record the attempt.
func (s *Service) SubmitBid(w http.ResponseWriter, r *http.Request) {
	auctionID := chi.URLParam(r, "auctionID")

	var req BidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Bidder == "" {
		writeError(w, "bidder is required", http.StatusBadRequest)
		return
	}
	// No lower bound on the amount here: an auction configured down to a
	// zero clearing price legitimately accepts a zero bid, and anything
	// short is rejected by the price check inside the engine.

	ctx := r.Context()

	// Serialize bid execution: the engine's reentrancy guarantee assumes
	// mutating calls form a strict total order.
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, ok := s.engines[auctionID]
	if !ok {
		writeError(w, "auction not found", http.StatusNotFound)
		return
	}

	now := s.clock.Height()
	asking, err := eng.auction.CurrentPrice(now)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Native rail: take custody of the attached value before evaluation.
	if err := eng.escrow.Hold(req.Bidder, req.Amount); err != nil {
		reason := reasonFor(err)
		s.recordBid(ctx, auctionID, req, now, asking, false, reason)
		metrics.BidsTotal.WithLabelValues(reason).Inc()
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	settleStart := time.Now()
	if err := eng.auction.SubmitBid(ctx, req.Bidder, req.Amount, now); err != nil {
		// Rejected or failed settlement: give the attached value back.
		if relErr := eng.escrow.Release(req.Bidder, req.Amount); relErr != nil {
			slog.Error("failed to release held bid value",
				"auction", auctionID, "bidder", req.Bidder, "err", relErr)
		}
		reason := reasonFor(err)
		s.recordBid(ctx, auctionID, req, now, asking, false, reason)
		metrics.BidsTotal.WithLabelValues(reason).Inc()
		writeError(w, err.Error(), statusFor(err))
		return
	}
	metrics.SettlementLatency.Observe(time.Since(settleStart).Seconds())

	winner, winningBid, err := eng.auction.Winner()
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	settledAt := time.Now().UTC()
	if err := s.store.MarkSettled(ctx, auctionID, winner, winningBid, settledAt); err != nil {
		slog.Error("failed to persist settlement", "auction", auctionID, "err", err)
	}
	bidID := s.recordBid(ctx, auctionID, req, now, asking, true, "")

	metrics.BidsTotal.WithLabelValues("accepted").Inc()
	metrics.OpenAuctions.Dec()
	metrics.SettledAuctions.Inc()

	slog.Info("bid accepted",
		"auction", auctionID,
		"bidder", req.Bidder,
		"amount", req.Amount,
		"clearing_price", asking,
		"height", now,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:      "bid_accepted",
			AuctionID: auctionID,
			Bidder:    req.Bidder,
			Amount:    req.Amount,
			Price:     asking,
			Height:    now,
		})
	}
	if s.pub != nil {
		if err := s.pub.Publish(events.BidEvent{
			AuctionID: auctionID,
			Bidder:    req.Bidder,
			Amount:    req.Amount,
			Clearing:  asking,
			Height:    now,
		}); err != nil {
			slog.Warn("failed to publish bid event", "auction", auctionID, "err", err)
		}
	}

	refund := uint64(0)
	if eng.rail == model.RailNative {
		refund = req.Amount - asking
	}
	resp := BidResponse{
		BidID:         bidID,
		AuctionID:     auctionID,
		Bidder:        req.Bidder,
		Amount:        req.Amount,
		ClearingPrice: asking,
		Refund:        refund,
		Height:        now,
		State:         model.StateSettled,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// BindRegistry handles POST /api/v1/auctions/{auctionID}/registry
// Seller-only, one-shot binding of the unique asset.
func (s *Service) BindRegistry(w http.ResponseWriter, r *http.Request) {
	auctionID := chi.URLParam(r, "auctionID")

	var req BindRegistryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	eng, ok := s.engines[auctionID]
	if !ok {
		writeError(w, "auction not found", http.StatusNotFound)
		return
	}

	ref := &escrow.AssetRef{Registry: s.collab.NFT, TokenID: req.TokenID}
	if err := eng.auction.BindAssetRegistry(req.Caller, ref); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	if err := s.store.BindAsset(ctx, auctionID, req.TokenID); err != nil {
		slog.Error("failed to persist asset binding", "auction", auctionID, "err", err)
	}

	slog.Info("asset registry bound", "auction", auctionID, "token_id", req.TokenID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"auction_id": auctionID,
		"token_id":   req.TokenID,
	})
}

// engineWinner reports the settled winner from the hosted state machine,
// if this process hosts the auction and it has settled.
func (s *Service) engineWinner(auctionID string) (string, uint64, bool) {
	s.mu.Lock()
	eng, ok := s.engines[auctionID]
	s.mu.Unlock()
	if !ok {
		return "", 0, false
	}
	winner, amount, err := eng.auction.Winner()
	if err != nil {
		return "", 0, false
	}
	return winner, amount, true
}

// recordBid appends to the immutable bid ledger and returns the record ID.
// Ledger failures are logged, never surfaced: the attempt outcome already
// happened and must not be rolled back for bookkeeping.
func (s *Service) recordBid(ctx context.Context, auctionID string, req BidRequest, height, asking uint64, accepted bool, reason string) string {
	record := &model.BidRecord{
		ID:        uuid.New().String(),
		AuctionID: auctionID,
		Bidder:    req.Bidder,
		Amount:    req.Amount,
		Height:    height,
		Asking:    asking,
		Accepted:  accepted,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.InsertBid(ctx, record); err != nil {
		slog.Error("failed to record bid attempt", "auction", auctionID, "err", err)
	}
	return record.ID
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// reasonFor maps engine errors to stable ledger/metric labels.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, auction.ErrAuctionClosed):
		return "auction_closed"
	case errors.Is(err, auction.ErrAuctionExpired):
		return "auction_expired"
	case errors.Is(err, auction.ErrSellerCannotBid):
		return "seller_cannot_bid"
	case errors.Is(err, auction.ErrInsufficientBid):
		return "insufficient_bid"
	case errors.Is(err, escrow.ErrAllowanceInsufficient):
		return "allowance_insufficient"
	case errors.Is(err, escrow.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, escrow.ErrTransferFailed):
		return "transfer_failed"
	default:
		return "error"
	}
}

// statusFor maps engine errors to HTTP statuses: domain rejections are
// conflicts, everything else is a bad request.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auction.ErrAuctionClosed),
		errors.Is(err, auction.ErrAuctionExpired),
		errors.Is(err, auction.ErrSellerCannotBid),
		errors.Is(err, auction.ErrInsufficientBid),
		errors.Is(err, auction.ErrAlreadyBound),
		errors.Is(err, auction.ErrNotSeller),
		errors.Is(err, escrow.ErrAllowanceInsufficient),
		errors.Is(err, escrow.ErrTransferFailed):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
