package orderbook

import "testing"

func TestOrderIdRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		prefix  uint16
		side    Side
		price   uint64
		localID uint32
	}{
		{"zero", 0, Bid, 0, 0},
		{"ask small", 0xBEEF, Ask, 1 << 32, 7},
		{"bid large price", 0xF1A0, Bid, 3 << 32, 42},
		{"max local id", 1, Ask, 100, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := NewOrderId(tt.prefix, tt.side, tt.price, tt.localID)

			if got := id.Prefix(); got != tt.prefix {
				t.Errorf("Prefix() = %d, want %d", got, tt.prefix)
			}
			if got := id.Side(); got != tt.side {
				t.Errorf("Side() = %v, want %v", got, tt.side)
			}
			if got := id.Price(); got != tt.price {
				t.Errorf("Price() = %d, want %d", got, tt.price)
			}
			if got := id.LocalID(); got != tt.localID {
				t.Errorf("LocalID() = %d, want %d", got, tt.localID)
			}
			if id[2] != 0 {
				t.Errorf("reserved byte = %d, want 0", id[2])
			}
		})
	}
}

func TestOrderIdPriceKeyDistinctAcrossSides(t *testing.T) {
	bid := NewOrderId(0xF1A0, Bid, 200, 5)
	ask := NewOrderId(0xF1A0, Ask, 200, 9)

	if bid.PriceKey() == ask.PriceKey() {
		t.Fatalf("price keys for different sides must not collide")
	}
}

func TestOrderIdPriceKeySameForSamePriceDifferentLocalID(t *testing.T) {
	a := NewOrderId(0xF1A0, Ask, 200, 1)
	b := NewOrderId(0xF1A0, Ask, 200, 2)

	if a.PriceKey() != b.PriceKey() {
		t.Fatalf("orders at the same (prefix, side, price) must share a price key")
	}
}

func TestOrderIdBookKey(t *testing.T) {
	id := NewOrderId(0xABCD, Ask, 100, 3)
	key := id.BookKey()

	want := [3]byte{0xAB, 0xCD, 0}
	if key != want {
		t.Errorf("BookKey() = %v, want %v", key, want)
	}
}
