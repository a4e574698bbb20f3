// Package params loads runtime configuration for a clobcore node, adapted
// from the reference stack's consensus-timing config to this module's
// actual knobs: storage location, API bind address, and the default market
// parameters a freshly provisioned market is initialized with.
package params

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Storage configures the persistent KV backend.
type Storage struct {
	DataDir string
}

// API configures the HTTP/WebSocket façade in pkg/api.
type API struct {
	ListenAddr string
	LogPath    string
}

// DefaultMarket seeds the market.Config a fresh deployment initializes with
// (see cmd/clobd), analogous to the reference stack's Node.SingleNode devnet
// convenience default.
type DefaultMarket struct {
	MinBaseOrderSize uint64
	TickSize         uint64
	LotSize          uint64
}

type Config struct {
	Storage       Storage
	API           API
	DefaultMarket DefaultMarket
}

func Default() Config {
	return Config{
		Storage: Storage{
			DataDir: "./data/clobcore",
		},
		API: API{
			ListenAddr: ":8080",
			LogPath:    "./data/clobcore.log",
		},
		DefaultMarket: DefaultMarket{
			MinBaseOrderSize: 1,
			TickSize:         1,
			LotSize:          1,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("CLOBCORE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("CLOBCORE_LISTEN_ADDR"); v != "" {
		cfg.API.ListenAddr = v
	}
	if v := os.Getenv("CLOBCORE_LOG_PATH"); v != "" {
		cfg.API.LogPath = v
	}
	if v := os.Getenv("CLOBCORE_MIN_BASE_ORDER_SIZE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.DefaultMarket.MinBaseOrderSize = n
		}
	}
	if v := os.Getenv("CLOBCORE_TICK_SIZE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.DefaultMarket.TickSize = n
		}
	}
	if v := os.Getenv("CLOBCORE_LOT_SIZE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.DefaultMarket.LotSize = n
		}
	}

	return cfg
}
