package quote

import "testing"

const one = uint64(1) << 32

func TestAmount(t *testing.T) {
	tests := []struct {
		name  string
		price uint64
		size  uint64
		want  int64
	}{
		{"one to one", one, 100, 100},
		{"two x", 2 * one, 1000, 2000},
		{"three x", 3 * one, 400, 1200},
		{"half price truncates", one / 2, 3, 1}, // 1.5 truncated to 1
		{"zero size", one, 0, 0},
		{"zero price", 0, 1_000_000, 0},
		{"fractional price exact product", one + (one / 4), 4, 5}, // 1.25 * 4 = 5.0 exactly
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Amount(tt.price, tt.size); got != tt.want {
				t.Errorf("Amount(%#x, %d) = %d, want %d", tt.price, tt.size, got, tt.want)
			}
		})
	}
}

func TestAmountMatchesAcrossEquivalentInputs(t *testing.T) {
	// Both sides of a trade must compute the same quote amount given
	// identical (price, size) — trivially true for a pure function, but
	// pinned here as a regression guard.
	a := Amount(3*one, 300)
	b := Amount(3*one, 300)
	if a != b {
		t.Fatalf("Amount is not deterministic: %d != %d", a, b)
	}
}

func TestAmountOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on overflow")
		}
	}()
	Amount(^uint64(0), ^uint64(0))
}
