package main

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ParseArgs reads configuration from flags and DUTCH_* environment
// variables, flags winning.
func ParseArgs() Args {
	// server config
	pflag.String("listen-addr", ":8080", "")

	// clock config
	pflag.String("clock", "manual", "manual or interval")
	pflag.Duration("tick-interval", 0, "tick length for the interval clock")

	// collaborator config
	pflag.Uint64("token-supply-cap", 10_000_000, "")
	pflag.Uint64("nft-supply-cap", 10_000, "")

	// db config
	pflag.String("database-url", "", "")

	// redis config
	pflag.String("redis-url", "", "")
	pflag.Duration("cache-ttl", 0, "read-through cache TTL, 0 disables")
	pflag.String("redis-stream-key-for-bids", "dutch-bid-events", "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("DUTCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	return Args{
		ListenAddr:     viper.GetString("listen-addr"),
		ClockMode:      viper.GetString("clock"),
		TickInterval:   viper.GetDuration("tick-interval"),
		TokenSupplyCap: viper.GetUint64("token-supply-cap"),
		NFTSupplyCap:   viper.GetUint64("nft-supply-cap"),
		DatabaseURL:    viper.GetString("database-url"),
		RedisURL:       viper.GetString("redis-url"),
		CacheTTL:       viper.GetDuration("cache-ttl"),
		BidStreamKey:   viper.GetString("redis-stream-key-for-bids"),
	}
}

type Args struct {
	ListenAddr     string
	ClockMode      string
	TickInterval   time.Duration
	TokenSupplyCap uint64
	NFTSupplyCap   uint64
	DatabaseURL    string
	RedisURL       string
	CacheTTL       time.Duration
	BidStreamKey   string
}

func (args Args) Validate() bool {
	if args.ListenAddr == "" {
		return false
	}
	if args.ClockMode != "manual" && args.ClockMode != "interval" {
		return false
	}
	if args.ClockMode == "interval" && args.TickInterval <= 0 {
		return false
	}
	return true
}
