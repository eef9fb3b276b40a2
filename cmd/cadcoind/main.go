// Command cadcoind runs the CAD-COIN ledger service: parses configuration,
// connects the durable store and hot cache, ensures the genesis block
// exists, and serves the HTTP surface until an interrupt signal arrives.
// Grounded on apiserver/main.go's "parse config, connect collaborators,
// start server, wait on interrupt" bootstrap sequence.
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

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/authsvc"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/cache/rediscache"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/config"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/difficulty"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/httpapi"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledger"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/logging"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/mempool"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/miner"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ratelimit"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/stablecoin"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	log := logging.New(slogLevel())

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return fmt.Errorf("parsing configuration: %w", err)
	}

	dbStore, err := postgres.Connect(cfg.DatabaseURL, logging.Subsystem(log, "store"))
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer dbStore.Close()

	hotCache, err := rediscache.Connect(cfg.RedisURL, logging.Subsystem(log, "cache"))
	if err != nil {
		return fmt.Errorf("connecting to cache: %w", err)
	}
	defer hotCache.Close()

	minFee, err := ledgertypes.NewAmountFromFloat(cfg.MinTransactionFee)
	if err != nil {
		return fmt.Errorf("invalid MIN_TRANSACTION_FEE: %w", err)
	}

	pool := mempool.New(dbStore, minFee, cfg.MaxPendingTransactions)
	stable := stablecoin.New(dbStore, minFee)
	diffEngine := &difficulty.Engine{
		BaseDifficulty:               cfg.BaseDifficulty,
		MaxDifficulty:                cfg.MaxDifficulty,
		DifficultyAdjustmentInterval: cfg.DifficultyAdjustmentInterval,
		HalvingInterval:              int64(cfg.HalvingInterval),
		TargetBlockTime:              cfg.TargetBlockTime.Seconds(),
		BaseMiningReward:             cfg.BaseMiningReward,
	}
	blockMiner := miner.New(dbStore, hotCache, pool, diffEngine, cfg.MaxBlockSize, cfg.MiningTimeout, logging.Subsystem(log, "miner"))

	coreLedger := ledger.New(ledger.Deps{
		Store: dbStore, Cache: hotCache, Pool: pool, Miner: blockMiner, Stable: stable, Difficulty: diffEngine,
		BaseDifficulty: cfg.BaseDifficulty, BaseMiningReward: cfg.BaseMiningReward,
		MaxPendingTx: cfg.MaxPendingTransactions, MinTxFee: minFee,
		MaxBlockSize: cfg.MaxBlockSize, BlockValidationDepth: cfg.BlockValidationDepth,
		Log: logging.Subsystem(log, "ledger"),
	})

	ctx := context.Background()
	if err := coreLedger.EnsureGenesis(ctx); err != nil {
		return fmt.Errorf("ensuring genesis block: %w", err)
	}

	authService := authsvc.New(dbStore, cfg.JWTSecretKey, cfg.JWTExpiresHours)
	limiter := ratelimit.New(cfg.RatelimitPerHour)

	server := httpapi.New(coreLedger, authService, limiter, logging.Subsystem(log, "httpapi"))

	httpServer := &http.Server{
		Addr:    cfg.HTTPListen,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPListen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-interrupt:
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func slogLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
