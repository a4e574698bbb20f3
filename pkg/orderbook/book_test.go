package orderbook

import (
	"testing"

	"github.com/orderscript/clobcore/pkg/kv"
)

func newTestBook(t *testing.T) *Book[string] {
	t.Helper()
	return NewBook[string](NewBookStorage[string](kv.NewMemStore(), 0xF1A0))
}

func TestBookPlaceOrderFullFill(t *testing.T) {
	b := newTestBook(t)

	_, err := b.storage.PlaceOrder(Ask, 1<<32, 125, "maker")
	requireNoError(t, err)

	var fills []OrderEntry[string]
	summary, err := b.PlaceOrder(OrderParams[string]{Side: Bid, Price: 1 << 32, Size: 100, Details: "taker"}, func(e OrderEntry[string]) {
		fills = append(fills, e)
	})
	requireNoError(t, err)

	if summary.PostedID != nil {
		t.Fatalf("expected fully filled taker to post nothing, got %v", summary.PostedID)
	}
	if summary.PostedSize != 0 {
		t.Fatalf("PostedSize = %d, want 0", summary.PostedSize)
	}
	if len(fills) != 1 || fills[0].Size != 100 || fills[0].Details != "maker" {
		t.Fatalf("unexpected fills: %+v", fills)
	}

	entry, ok, err := b.storage.GetOrder(fills[0].ID)
	requireNoError(t, err)
	if !ok || entry.Size != 25 {
		t.Fatalf("maker residual = %v (ok=%v), want 25", entry.Size, ok)
	}
}

func TestBookPlaceOrderPostsResidual(t *testing.T) {
	b := newTestBook(t)

	summary, err := b.PlaceOrder(OrderParams[string]{Side: Bid, Price: 100, Size: 50, Details: "resting"}, func(OrderEntry[string]) {
		t.Fatalf("no resting orders exist, should not match")
	})
	requireNoError(t, err)

	if summary.PostedID == nil || summary.PostedSize != 50 {
		t.Fatalf("expected full residual posted, got %+v", summary)
	}
}

// Price gate (testable property #5): an Ask maker priced above the taker's
// Bid limit must never fill, and matching must stop there.
func TestBookPriceGateStopsWalk(t *testing.T) {
	b := newTestBook(t)

	_, err := b.storage.PlaceOrder(Ask, 1<<32, 10, "cheap")
	requireNoError(t, err)
	_, err = b.storage.PlaceOrder(Ask, 3<<32, 10, "expensive")
	requireNoError(t, err)

	var fills []OrderEntry[string]
	summary, err := b.PlaceOrder(OrderParams[string]{Side: Bid, Price: 2 << 32, Size: 20, Details: "taker"}, func(e OrderEntry[string]) {
		fills = append(fills, e)
	})
	requireNoError(t, err)

	if len(fills) != 1 || fills[0].Details != "cheap" {
		t.Fatalf("expected only the cheap ask to fill, got %+v", fills)
	}
	if summary.PostedSize != 10 {
		t.Fatalf("PostedSize = %d, want 10 (the 3x ask must not fill)", summary.PostedSize)
	}
}

// Multi-level walk, mirroring spec Scenario C's fill pattern.
func TestBookPlaceOrderMultiLevelWalk(t *testing.T) {
	b := newTestBook(t)

	prices := []uint64{1 << 32, 2 << 32, 3 << 32, 4 << 32}
	sizes := []uint64{100, 200, 300, 400}
	for i := range prices {
		_, err := b.storage.PlaceOrder(Ask, prices[i], sizes[i], "maker")
		requireNoError(t, err)
	}

	var fillSizes []uint64
	var fillPrices []uint64
	summary, err := b.PlaceOrder(OrderParams[string]{Side: Bid, Price: 3 << 32, Size: 1000, Details: "taker"}, func(e OrderEntry[string]) {
		fillSizes = append(fillSizes, e.Size)
		fillPrices = append(fillPrices, e.Price)
	})
	requireNoError(t, err)

	wantFills := []uint64{100, 200, 300}
	if len(fillSizes) != len(wantFills) {
		t.Fatalf("fills = %v, want sizes %v", fillSizes, wantFills)
	}
	for i, want := range wantFills {
		if fillSizes[i] != want {
			t.Errorf("fill[%d] size = %d, want %d", i, fillSizes[i], want)
		}
		if fillPrices[i] != prices[i] {
			t.Errorf("fill[%d] price = %d, want %d (maker price, not taker price)", i, fillPrices[i], prices[i])
		}
	}
	if summary.PostedSize != 400 {
		t.Fatalf("PostedSize = %d, want 400 (residual after 600 filled)", summary.PostedSize)
	}
}

func TestBookCancelOrderIsIdempotent(t *testing.T) {
	b := newTestBook(t)

	id, err := b.storage.PlaceOrder(Bid, 100, 10, "owner")
	requireNoError(t, err)

	requireNoError(t, b.CancelOrder(id))
	requireNoError(t, b.CancelOrder(id))

	if _, ok, err := b.GetOrder(id); ok || err != nil {
		t.Fatalf("expected order gone after cancel, ok=%v err=%v", ok, err)
	}
}

func TestBookCancelMissingOrderIsNoop(t *testing.T) {
	b := newTestBook(t)
	missing := NewOrderId(0xF1A0, Ask, 500, 99)

	if err := b.CancelOrder(missing); err != nil {
		t.Fatalf("cancel of missing order should be silent: %v", err)
	}
}
