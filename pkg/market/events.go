package market

import (
	"encoding/binary"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/orderscript/clobcore/pkg/auth"
	"github.com/orderscript/clobcore/pkg/kv"
	"github.com/orderscript/clobcore/pkg/orderbook"
)

var tradeKeyPrefix = []byte("TR")

func marshalConfig(cfg Config) ([]byte, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "market: marshal config")
	}
	return raw, nil
}

func unmarshalConfig(raw []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "market: unmarshal config")
	}
	return cfg, nil
}

// Load reads back a previously Init'd configuration — used by cmd/clobd on
// restart, when a Market is reconstructed against an already-provisioned
// store.
func (m *Market) Load() error {
	raw, err := m.store.Get(m.configKey)
	if err != nil {
		return err
	}
	cfg, err := unmarshalConfig(raw)
	if err != nil {
		return err
	}
	m.cfg = cfg
	return nil
}

// Trade is one completed fill, adapted from the teacher's account.Trade:
// trimmed to what a CLOB fill actually carries (no symbol field — one
// Market instance is already one symbol) and with taker/maker recorded as
// addresses rather than order IDs, since OrderDetail carries no separate
// order-ID-to-address index of its own.
type Trade struct {
	Seq         uint64         `json:"seq"`
	TakerOwner  auth.Address   `json:"taker_owner"`
	MakerOwner  auth.Address   `json:"maker_owner"`
	TakerSide   orderbook.Side `json:"taker_side"`
	Price       uint64         `json:"price"`
	BaseFilled  int64          `json:"base_filled"`
	QuoteFilled int64          `json:"quote_filled"`
}

var tradeSeqKey = []byte("TS")

func tradeKey(seq uint64) []byte {
	key := make([]byte, 2+8)
	copy(key, tradeKeyPrefix)
	binary.BigEndian.PutUint64(key[2:], seq)
	return key
}

func (m *Market) nextTradeSeq() (uint64, error) {
	raw, err := m.store.Get(tradeSeqKey)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return 0, err
	}
	var seq uint64
	if len(raw) == 8 {
		seq = binary.BigEndian.Uint64(raw)
	}
	seq++
	next := make([]byte, 8)
	binary.BigEndian.PutUint64(next, seq)
	if err := m.store.Set(tradeSeqKey, next); err != nil {
		return 0, err
	}
	return seq, nil
}

// logTrade persists one fill and emits a structured log line, grounded on
// the teacher's Store.SaveTrade / zap.Info("trade executed", ...) pairing in
// pkg/app/core/account and pkg/util/log.go.
func (m *Market) logTrade(taker PlaceOrderParams, maker orderbook.OrderEntry[OrderDetail], baseFilled, quoteFilled int64) {
	seq, err := m.nextTradeSeq()
	if err != nil {
		m.logger.Warn("failed to allocate trade sequence", zap.Error(err))
		return
	}

	trade := Trade{
		Seq:         seq,
		TakerOwner:  taker.Owner,
		MakerOwner:  maker.Details.Owner,
		TakerSide:   taker.Side,
		Price:       maker.Price,
		BaseFilled:  baseFilled,
		QuoteFilled: quoteFilled,
	}

	raw, err := json.Marshal(trade)
	if err != nil {
		m.logger.Warn("failed to marshal trade", zap.Error(err))
		return
	}
	if err := m.store.Set(tradeKey(seq), raw); err != nil {
		m.logger.Warn("failed to persist trade", zap.Error(err))
		return
	}

	m.logger.Info("trade executed",
		zap.Uint64("seq", seq),
		zap.String("taker", taker.Owner.Hex()),
		zap.String("maker", maker.Details.Owner.Hex()),
		zap.String("taker_side", taker.Side.String()),
		zap.Uint64("price", maker.Price),
		zap.Int64("base_filled", baseFilled),
		zap.Int64("quote_filled", quoteFilled),
	)
}

// RecentTrades returns the newest trades first, walking a reverse range
// iterator over the "TR" key prefix — the same newest-first contract as the
// teacher's Store.LoadRecentTrades, backed here by kv.Store.Iter instead of
// a direct pebble.Iterator. Because trade keys are a fixed-width big-endian
// sequence suffix, lexicographic key order is also sequence order, so
// Last()/Prev() yields trades from most to least recent without needing to
// know the current counter value.
func (m *Market) RecentTrades(limit int) ([]Trade, error) {
	it, err := m.store.Iter(tradeKeyPrefix, kv.KeyUpperBound(tradeKeyPrefix))
	if err != nil {
		return nil, errors.Wrap(err, "market: new trade iterator")
	}
	defer it.Close()

	trades := make([]Trade, 0, limit)
	for ok := it.Last(); ok && len(trades) < limit; ok = it.Prev() {
		var tr Trade
		if err := json.Unmarshal(it.Value(), &tr); err != nil {
			return nil, errors.Wrap(err, "market: unmarshal trade")
		}
		trades = append(trades, tr)
	}
	return trades, nil
}
