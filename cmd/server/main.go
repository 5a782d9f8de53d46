package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/auctionhaus/dutch-engine/internal/chain"
	"github.com/auctionhaus/dutch-engine/internal/escrow"
	"github.com/auctionhaus/dutch-engine/internal/events"
	"github.com/auctionhaus/dutch-engine/internal/metrics"
	"github.com/auctionhaus/dutch-engine/internal/nft"
	"github.com/auctionhaus/dutch-engine/internal/service"
	"github.com/auctionhaus/dutch-engine/internal/store"
	"github.com/auctionhaus/dutch-engine/internal/token"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	args := ParseArgs()
	if !args.Validate() {
		slog.Error("invalid configuration", "args", fmt.Sprintf("%+v", args))
		os.Exit(1)
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()
	var rdb *redis.Client

	if args.RedisURL != "" {
		opt, err := redis.ParseURL(args.RedisURL)
		if err != nil {
			slog.Error("invalid redis URL", "err", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
	}

	if args.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), args.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if rdb != nil && args.CacheTTL > 0 {
			st = store.NewCachedStore(st, rdb, args.CacheTTL)
			slog.Info("Redis cache enabled", "ttl", args.CacheTTL)
		}
	} else {
		slog.Warn("database-url not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Block clock ---
	var clock chain.Clock
	switch args.ClockMode {
	case "interval":
		clock = chain.NewIntervalClock(args.TickInterval)
		slog.Info("interval clock", "tick", args.TickInterval)
	default:
		clock = chain.NewManualClock(0)
		slog.Info("manual clock, advance via POST /api/v1/chain/mine")
	}

	// --- Collaborators ---
	bank := escrow.NewNativeLedger()
	vtoken, err := token.NewLedger("Auction Coin", "AUC", args.TokenSupplyCap)
	if err != nil {
		slog.Error("token ledger init failed", "err", err)
		os.Exit(1)
	}
	registry, err := nft.NewRegistry("Auction Lots", args.NFTSupplyCap)
	if err != nil {
		slog.Error("asset registry init failed", "err", err)
		os.Exit(1)
	}

	// --- Bid event publisher ---
	var pub *events.Publisher
	if rdb != nil {
		pub, err = events.NewPublisher(rdb, args.BidStreamKey, logger)
		if err != nil {
			slog.Error("event publisher init failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pub.Close)
		slog.Info("bid event stream enabled", "stream", args.BidStreamKey)
	}

	// --- WebSocket hub ---
	wsHub := service.NewWSHub()
	go wsHub.Run()

	// --- Auction service ---
	svc := service.NewService(st, clock, service.Collaborators{
		Bank:  bank,
		Token: vtoken,
		NFT:   registry,
	}, wsHub, pub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"dutch-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time auction updates.
		r.Get("/ws", wsHub.HandleWS)

		// Auction lifecycle.
		r.Get("/auctions", svc.ListAuctions)
		r.Post("/auctions", svc.CreateAuction)
		r.Get("/auctions/{auctionID}", svc.GetAuction)
		r.Get("/auctions/{auctionID}/price", svc.GetPrice)
		r.Get("/auctions/{auctionID}/winner", svc.GetWinner)
		r.Get("/auctions/{auctionID}/bids", svc.GetBids)
		r.Post("/auctions/{auctionID}/bid", svc.SubmitBid)
		r.Post("/auctions/{auctionID}/registry", svc.BindRegistry)

		// Bid history per bidder.
		r.Get("/bidders/{bidder}/bids", svc.GetBidderBids)

		// Collaborator administration.
		r.Post("/bank/deposit", svc.Deposit)
		r.Get("/bank/{account}", svc.GetBalance)
		r.Post("/token/mint", svc.MintToken)
		r.Post("/token/approve", svc.ApproveToken)
		r.Post("/nft/mint", svc.MintNFT)
		r.Post("/nft/approve", svc.ApproveNFT)

		// Block clock.
		r.Get("/chain/height", svc.GetHeight)
		r.Post("/chain/mine", svc.Mine)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         args.ListenAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("dutch-engine listening", "addr", args.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down dutch-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("dutch-engine stopped")
}
