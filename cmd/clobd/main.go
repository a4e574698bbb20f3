// Command clobd runs a single clobcore market behind a REST/WebSocket API,
// grounded on the reference node's wiring (params -> logger -> app -> API
// server -> signal-driven shutdown) with the consensus/p2p/bridge layers
// dropped — this module has no validator set to drive a block loop, so the
// market façade is driven directly by API requests instead of by committed
// blocks.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/orderscript/clobcore/params"
	"github.com/orderscript/clobcore/pkg/api"
	"github.com/orderscript/clobcore/pkg/auth"
	"github.com/orderscript/clobcore/pkg/kv"
	"github.com/orderscript/clobcore/pkg/market"
	"github.com/orderscript/clobcore/pkg/token"
	"github.com/orderscript/clobcore/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.API.LogPath)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.API.LogPath)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		sugar.Fatalw("data_dir_failed", "err", err)
	}

	store, err := kv.NewPebbleStore(cfg.Storage.DataDir)
	if err != nil {
		sugar.Fatalw("pebble_open_failed", "err", err)
	}
	defer store.Close()

	contractAddr := auth.ParseAddress(envOr("CLOBCORE_CONTRACT_ADDR", "0x0000000000000000000000000000000000000c10"))
	baseTokenAddr := auth.ParseAddress(envOr("CLOBCORE_BASE_TOKEN", "0x0000000000000000000000000000000000000b01"))
	quoteTokenAddr := auth.ParseAddress(envOr("CLOBCORE_QUOTE_TOKEN", "0x0000000000000000000000000000000000000b02"))

	// Demo token clients: a real deployment swaps these for clients that
	// call out to the host's actual token contracts. The mock in-memory
	// implementation is the same "demonstration" collaborator the spec
	// describes test-token contracts as.
	baseToken := token.NewMock()
	quoteToken := token.NewMock()

	m := market.New(store, 1, contractAddr, baseToken, quoteToken, auth.TrustingAuthorizer{}, logger)

	if loadErr := m.Load(); loadErr != nil {
		sugar.Infow("market_not_yet_initialized, provisioning defaults")
		if err := m.Init(market.Config{
			BaseToken:        baseTokenAddr,
			QuoteToken:       quoteTokenAddr,
			MinBaseOrderSize: cfg.DefaultMarket.MinBaseOrderSize,
			TickSize:         cfg.DefaultMarket.TickSize,
			LotSize:          cfg.DefaultMarket.LotSize,
			Status:           market.StatusActive,
		}); err != nil {
			sugar.Fatalw("market_init_failed", "err", err)
		}
	}

	apiServer := api.NewServer(m, baseToken, quoteToken, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.API.ListenAddr)
		if err := apiServer.Start(cfg.API.ListenAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("clobd_started",
		"data_dir", cfg.Storage.DataDir,
		"listen_addr", cfg.API.ListenAddr,
	)

	<-ctx.Done()
	sugar.Infow("clobd_shutting_down")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
