package orderbook

// OnMatch is invoked once per fill against a resting order, in strict
// price-time order. entry.Size is the exact fill size (not the maker's
// remaining size nor the taker's remaining size) — the caller sees exactly
// what was consumed. Implementations must not mutate BookStorage from
// inside this callback; it is a settlement hook, not an engine driver.
type OnMatch[T any] func(entry OrderEntry[T])

// Book is the OrderBook matching engine layered over a BookStorage. It is
// generic over the order-detail payload T so the market façade can attach an
// owner address while tests attach nothing more than a string label.
type Book[T any] struct {
	storage *BookStorage[T]
}

func NewBook[T any](storage *BookStorage[T]) *Book[T] {
	return &Book[T]{storage: storage}
}

// PlaceOrder walks the opposite side in price-priority order, filling fully
// or partially against each candidate until either the incoming order is
// exhausted or the price gate rejects the next candidate, then posts any
// residual. Matching stops at the first candidate that fails the price
// gate — price priority guarantees no later candidate could match either.
func (b *Book[T]) PlaceOrder(params OrderParams[T], onMatch OnMatch[T]) (OrderSummary, error) {
	remaining := params.Size
	opposite := params.Side.Opposite()

	for id := range b.storage.Orders(opposite) {
		if remaining == 0 {
			break
		}

		if !priceGateMatches(params.Side, params.Price, id.Price()) {
			break
		}

		entry, ok, err := b.storage.GetOrder(id)
		if !ok {
			if err != nil {
				return OrderSummary{}, err
			}
			continue
		}

		fill := min64(entry.Size, remaining)

		if fill == entry.Size {
			if err := b.storage.RemoveOrder(id); err != nil {
				return OrderSummary{}, err
			}
		} else {
			if err := b.storage.ModifyOrder(id, entry.Size-fill); err != nil {
				return OrderSummary{}, err
			}
		}

		onMatch(OrderEntry[T]{ID: id, Price: entry.Price, Size: fill, Details: entry.Details})

		remaining -= fill
	}

	summary := OrderSummary{PostedSize: remaining}
	if remaining > 0 {
		id, err := b.storage.PlaceOrder(params.Side, params.Price, remaining, params.Details)
		if err != nil {
			return OrderSummary{}, err
		}
		summary.PostedID = &id
	}

	return summary, nil
}

// CancelOrder removes the order if it exists; a missing order is a silent
// no-op (cancel idempotence).
func (b *Book[T]) CancelOrder(id OrderId) error {
	_, ok, err := b.storage.GetOrder(id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return b.storage.RemoveOrder(id)
}

// GetOrder exposes the underlying storage lookup so callers (the market
// façade's cancel path, self-trade pre-scan) don't need their own handle on
// BookStorage.
func (b *Book[T]) GetOrder(id OrderId) (OrderEntry[T], bool, error) {
	return b.storage.GetOrder(id)
}

// Orders exposes the price-priority iterator for read-only walks (the
// self-trade pre-scan, order-book snapshots for the API façade).
func (b *Book[T]) Orders(side Side) func(func(OrderId) bool) {
	return b.storage.Orders(side)
}

// priceGateMatches reports whether a resting order at makerPrice can match a
// taker on takerSide quoting takerPrice: a Bid taker matches makers priced at
// or below its limit, an Ask taker matches makers priced at or above it.
func priceGateMatches(takerSide Side, takerPrice, makerPrice uint64) bool {
	if takerSide == Bid {
		return makerPrice <= takerPrice
	}
	return makerPrice >= takerPrice
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// Level is one aggregated price level: every resting order at Price summed
// into one Size, the shape an order book snapshot actually wants (spec §6's
// "read-only book walk" used by API/UI layers, as opposed to Orders' raw
// per-order walk used by the matching loop and the self-trade pre-scan).
type Level struct {
	Price uint64
	Size  uint64
}

// Levels aggregates Orders(side) into price levels, preserving the
// price-priority order Orders already yields.
func (b *Book[T]) Levels(side Side) ([]Level, error) {
	var levels []Level
	var walkErr error

	func() {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok {
					walkErr = err
					return
				}
				panic(r)
			}
		}()

		for id := range b.storage.Orders(side) {
			entry, ok, err := b.storage.GetOrder(id)
			if err != nil {
				walkErr = err
				return
			}
			if !ok {
				continue
			}
			if n := len(levels); n > 0 && levels[n-1].Price == entry.Price {
				levels[n-1].Size += entry.Size
			} else {
				levels = append(levels, Level{Price: entry.Price, Size: entry.Size})
			}
		}
	}()

	return levels, walkErr
}
