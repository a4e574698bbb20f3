package market

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/orderscript/clobcore/pkg/auth"
	"github.com/orderscript/clobcore/pkg/kv"
	"github.com/orderscript/clobcore/pkg/orderbook"
	"github.com/orderscript/clobcore/pkg/quote"
	"github.com/orderscript/clobcore/pkg/token"
)

var (
	user0     = auth.ParseAddress("0x0000000000000000000000000000000000000001")
	user1     = auth.ParseAddress("0x0000000000000000000000000000000000000002")
	contract  = auth.ParseAddress("0x00000000000000000000000000000000000099")
	onePrice  = uint64(1) << 32
	twoPrice  = uint64(2) << 32
	threePx   = uint64(3) << 32
	fourPrice = uint64(4) << 32
)

func newTestMarket(t *testing.T, baseBal, quoteBal map[auth.Address]int64) (*Market, *token.Mock, *token.Mock) {
	t.Helper()
	base := token.NewMock()
	quoteTok := token.NewMock()
	for addr, bal := range baseBal {
		base.Fund(addr, bal)
	}
	for addr, bal := range quoteBal {
		quoteTok.Fund(addr, bal)
	}

	m := New(kv.NewMemStore(), 1, contract, base, quoteTok, auth.TrustingAuthorizer{}, zap.NewNop())
	if err := m.Init(Config{
		BaseToken:        auth.ParseAddress("0x00000000000000000000000000000000000b11"),
		QuoteToken:       auth.ParseAddress("0x00000000000000000000000000000000000b12"),
		MinBaseOrderSize: 1,
		Status:           StatusActive,
	}); err != nil {
		t.Fatalf("init: %v", err)
	}
	return m, base, quoteTok
}

// Scenario A — simple swap at the same price.
func TestPlaceOrder_SimpleSwap(t *testing.T) {
	ctx := context.Background()
	m, base, quoteTok := newTestMarket(t,
		map[auth.Address]int64{user0: 125},
		map[auth.Address]int64{user1: 100},
	)

	id, err := m.PlaceOrder(ctx, PlaceOrderParams{Side: orderbook.Ask, Price: onePrice, Size: 125, Owner: user0})
	if err != nil {
		t.Fatalf("place ask: %v", err)
	}
	if id == nil {
		t.Fatalf("expected ask to post a residual id")
	}

	id2, err := m.PlaceOrder(ctx, PlaceOrderParams{Side: orderbook.Bid, Price: onePrice, Size: 100, Owner: user1})
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if id2 != nil {
		t.Fatalf("expected fully-filled bid to post nothing, got %v", id2)
	}

	if got := quoteTok.Balance(ctx, user0); got != 100 {
		t.Errorf("user0 quote = %d, want 100", got)
	}
	if got := base.Balance(ctx, user1); got != 100 {
		t.Errorf("user1 base = %d, want 100", got)
	}
	if got := base.Balance(ctx, user0); got != 0 {
		t.Errorf("user0 base = %d, want 0", got)
	}
	if got := quoteTok.Balance(ctx, user1); got != 0 {
		t.Errorf("user1 quote = %d, want 0", got)
	}

	if err := m.CancelOrder(ctx, *id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := base.Balance(ctx, user0); got != 25 {
		t.Errorf("user0 base after cancel = %d, want 25", got)
	}
}

// Scenario B — price improvement.
func TestPlaceOrder_PriceImprovement(t *testing.T) {
	ctx := context.Background()
	m, base, quoteTok := newTestMarket(t,
		map[auth.Address]int64{user0: 1000},
		map[auth.Address]int64{user1: 3000},
	)

	if _, err := m.PlaceOrder(ctx, PlaceOrderParams{Side: orderbook.Ask, Price: twoPrice, Size: 1000, Owner: user0}); err != nil {
		t.Fatalf("place ask: %v", err)
	}
	if _, err := m.PlaceOrder(ctx, PlaceOrderParams{Side: orderbook.Bid, Price: threePx, Size: 1000, Owner: user1}); err != nil {
		t.Fatalf("place bid: %v", err)
	}

	if got := base.Balance(ctx, user0); got != 0 {
		t.Errorf("user0 base = %d, want 0", got)
	}
	if got := quoteTok.Balance(ctx, user0); got != 2000 {
		t.Errorf("user0 quote = %d, want 2000", got)
	}
	if got := base.Balance(ctx, user1); got != 1000 {
		t.Errorf("user1 base = %d, want 1000", got)
	}
	if got := quoteTok.Balance(ctx, user1); got != 1000 {
		t.Errorf("user1 quote = %d, want 1000", got)
	}
}

// Scenario C — multi-level walk.
func TestPlaceOrder_MultiLevelWalk(t *testing.T) {
	ctx := context.Background()
	m, base, quoteTok := newTestMarket(t,
		map[auth.Address]int64{user0: 1000},
		map[auth.Address]int64{user1: 3000},
	)

	asks := []struct {
		size  uint64
		price uint64
	}{
		{100, onePrice},
		{200, twoPrice},
		{300, threePx},
		{400, fourPrice},
	}
	for _, a := range asks {
		if _, err := m.PlaceOrder(ctx, PlaceOrderParams{Side: orderbook.Ask, Price: a.price, Size: a.size, Owner: user0}); err != nil {
			t.Fatalf("place ask %+v: %v", a, err)
		}
	}

	id, err := m.PlaceOrder(ctx, PlaceOrderParams{Side: orderbook.Bid, Price: threePx, Size: 1000, Owner: user1})
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if id == nil {
		t.Fatalf("expected bid to post a residual of 400")
	}

	if got := base.Balance(ctx, user0); got != 0 {
		t.Errorf("user0 base = %d, want 0", got)
	}
	if got := base.Balance(ctx, user1); got != 600 {
		t.Errorf("user1 base = %d, want 600", got)
	}
	if got := quoteTok.Balance(ctx, user0); got != 1400 {
		t.Errorf("user0 quote = %d, want 1400", got)
	}
	if got := quoteTok.Balance(ctx, user1); got != 400 {
		t.Errorf("user1 quote = %d, want 400", got)
	}
}

// Scenario D — self-trade rejection.
func TestPlaceOrder_SelfTradeRejected(t *testing.T) {
	ctx := context.Background()
	m, base, quoteTok := newTestMarket(t,
		map[auth.Address]int64{user0: 1000},
		map[auth.Address]int64{user0: 1000},
	)

	if _, err := m.PlaceOrder(ctx, PlaceOrderParams{Side: orderbook.Ask, Price: onePrice, Size: 100, Owner: user0}); err != nil {
		t.Fatalf("place ask: %v", err)
	}

	baseBefore := base.Balance(ctx, user0)
	quoteBefore := quoteTok.Balance(ctx, user0)

	_, err := m.PlaceOrder(ctx, PlaceOrderParams{Side: orderbook.Bid, Price: onePrice, Size: 100, Owner: user0})
	if err != ErrCannotSelfTrade {
		t.Fatalf("expected ErrCannotSelfTrade, got %v", err)
	}

	if got := base.Balance(ctx, user0); got != baseBefore {
		t.Errorf("base balance changed after rejected self-trade: %d -> %d", baseBefore, got)
	}
	if got := quoteTok.Balance(ctx, user0); got != quoteBefore {
		t.Errorf("quote balance changed after rejected self-trade: %d -> %d", quoteBefore, got)
	}
}

// Scenario E — cancel returns escrow.
func TestCancelOrder_ReturnsEscrow(t *testing.T) {
	ctx := context.Background()
	m, _, quoteTok := newTestMarket(t,
		map[auth.Address]int64{},
		map[auth.Address]int64{user1: 100},
	)

	id, err := m.PlaceOrder(ctx, PlaceOrderParams{Side: orderbook.Bid, Price: twoPrice, Size: 50, Owner: user1})
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if id == nil {
		t.Fatalf("expected bid to post (no resting asks)")
	}

	want := quote.Amount(twoPrice, 50)
	if got := quoteTok.Balance(ctx, user1); got != 100-want {
		t.Fatalf("quote after escrow = %d, want %d", got, 100-want)
	}

	if err := m.CancelOrder(ctx, *id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := quoteTok.Balance(ctx, user1); got != 100 {
		t.Errorf("quote after cancel = %d, want 100 (no net change)", got)
	}
}

func TestCancelOrder_MissingIsNoop(t *testing.T) {
	m, _, _ := newTestMarket(t, nil, nil)
	missing := orderbook.NewOrderId(1, orderbook.Bid, onePrice, 0)
	if err := m.CancelOrder(context.Background(), missing); err != nil {
		t.Fatalf("cancel of missing order should be a no-op, got %v", err)
	}
}

func TestPlaceOrder_RejectsBelowMinSize(t *testing.T) {
	ctx := context.Background()
	m, _, quoteTok := newTestMarket(t, nil, map[auth.Address]int64{user1: 100})
	m.cfg.MinBaseOrderSize = 10

	_, err := m.PlaceOrder(ctx, PlaceOrderParams{Side: orderbook.Bid, Price: onePrice, Size: 1, Owner: user1})
	if err != ErrInvalidOrderSize {
		t.Fatalf("expected ErrInvalidOrderSize, got %v", err)
	}
	if got := quoteTok.Balance(ctx, user1); got != 100 {
		t.Errorf("balance should be untouched on rejected admission, got %d", got)
	}
}

func TestPlaceOrder_RejectsWhenMarketPaused(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMarket(t, nil, map[auth.Address]int64{user1: 100})
	m.cfg.Status = StatusPaused

	_, err := m.PlaceOrder(ctx, PlaceOrderParams{Side: orderbook.Bid, Price: onePrice, Size: 1, Owner: user1})
	if err != ErrMarketNotActive {
		t.Fatalf("expected ErrMarketNotActive, got %v", err)
	}
}

func TestRecentTrades(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMarket(t,
		map[auth.Address]int64{user0: 125},
		map[auth.Address]int64{user1: 100},
	)

	if _, err := m.PlaceOrder(ctx, PlaceOrderParams{Side: orderbook.Ask, Price: onePrice, Size: 125, Owner: user0}); err != nil {
		t.Fatalf("place ask: %v", err)
	}
	if _, err := m.PlaceOrder(ctx, PlaceOrderParams{Side: orderbook.Bid, Price: onePrice, Size: 100, Owner: user1}); err != nil {
		t.Fatalf("place bid: %v", err)
	}

	trades, err := m.RecentTrades(10)
	if err != nil {
		t.Fatalf("recent trades: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].BaseFilled != 100 {
		t.Errorf("base filled = %d, want 100", trades[0].BaseFilled)
	}
}
