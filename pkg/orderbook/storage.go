package orderbook

import (
	"encoding/json"
	"iter"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/orderscript/clobcore/pkg/kv"
)

// BookStorage implements the persistence layer described in the matching
// engine's storage contract: per-side price sets, per-price FIFO queues
// (Layout B — size inlined with local_id, per the preferred layout), and
// per-order details records, all over a plain kv.Store. It is generic over
// the opaque per-order detail payload T, mirroring the reference engine's
// genericity over order details (the market façade binds T to an owner
// address; tests bind it to a bare int).
type BookStorage[T any] struct {
	store  kv.Store
	prefix uint16
}

func NewBookStorage[T any](store kv.Store, prefix uint16) *BookStorage[T] {
	return &BookStorage[T]{store: store, prefix: prefix}
}

func (s *BookStorage[T]) bookKey(side Side) []byte {
	key := make([]byte, 3)
	key[0] = byte(s.prefix >> 8)
	key[1] = byte(s.prefix)
	key[2] = byte(side)
	return key
}

func (s *BookStorage[T]) orderEventsKey() []byte {
	key := make([]byte, 3)
	key[0] = byte(s.prefix >> 8)
	key[1] = byte(s.prefix)
	key[2] = 0xFF
	return key
}

func (s *BookStorage[T]) priceQueueKey(price uint64) []byte {
	pk := NewOrderId(s.prefix, Bid, price, 0).PriceKey()
	return pk[:]
}

func (s *BookStorage[T]) getBook(side Side) ([]uint64, error) {
	raw, err := s.store.Get(s.bookKey(side))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "orderbook: get price set")
	}
	var prices []uint64
	if err := json.Unmarshal(raw, &prices); err != nil {
		return nil, errors.Wrap(err, "orderbook: decode price set")
	}
	return prices, nil
}

type queueEntry struct {
	LocalID uint32 `json:"local_id"`
	Size    uint64 `json:"size"`
}

func (s *BookStorage[T]) getPriceQueue(price uint64) ([]queueEntry, error) {
	raw, err := s.store.Get(s.priceQueueKey(price))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "orderbook: get price queue")
	}
	var entries []queueEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrap(err, "orderbook: decode price queue")
	}
	return entries, nil
}

func (s *BookStorage[T]) setPriceQueue(price uint64, entries []queueEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "orderbook: encode price queue")
	}
	return s.store.Set(s.priceQueueKey(price), raw)
}

func (s *BookStorage[T]) getDetails(id OrderId) (T, bool, error) {
	var details T
	raw, err := s.store.Get(id[:])
	if errors.Is(err, kv.ErrNotFound) {
		return details, false, nil
	}
	if err != nil {
		return details, false, errors.Wrap(err, "orderbook: get order details")
	}
	if err := json.Unmarshal(raw, &details); err != nil {
		return details, false, errors.Wrap(err, "orderbook: decode order details")
	}
	return details, true, nil
}

// GetOrder returns the order, or false if either its price-queue entry or
// its details record is missing — both must be present for the order to
// exist (invariant 2).
func (s *BookStorage[T]) GetOrder(id OrderId) (OrderEntry[T], bool, error) {
	queue, err := s.getPriceQueue(id.Price())
	if err != nil {
		return OrderEntry[T]{}, false, err
	}

	size, ok := findEntry(queue, id.LocalID())
	if !ok {
		return OrderEntry[T]{}, false, nil
	}

	details, ok, err := s.getDetails(id)
	if err != nil {
		return OrderEntry[T]{}, false, err
	}
	if !ok {
		return OrderEntry[T]{}, false, nil
	}

	return OrderEntry[T]{ID: id, Price: id.Price(), Size: size, Details: details}, true, nil
}

func findEntry(queue []queueEntry, localID uint32) (uint64, bool) {
	for _, e := range queue {
		if e.LocalID == localID {
			return e.Size, true
		}
	}
	return 0, false
}

// Orders returns a lazy price-priority iterator of order ids: descending
// price (best bid first) for Bid, ascending (best ask first) for Ask, and
// within a price, ascending local_id (arrival order). Any storage error
// encountered mid-walk is a sign of corrupted state (invariant 1 violated)
// and panics, per the engine's error-handling design for invariant failures.
func (s *BookStorage[T]) Orders(side Side) iter.Seq[OrderId] {
	return func(yield func(OrderId) bool) {
		prices, err := s.getBook(side)
		if err != nil {
			panic(err)
		}

		prices = append([]uint64(nil), prices...)
		sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
		if side == Bid {
			reverse(prices)
		}

		for _, price := range prices {
			queue, err := s.getPriceQueue(price)
			if err != nil {
				panic(err)
			}
			for _, e := range queue {
				id := NewOrderId(s.prefix, side, price, e.LocalID)
				if !yield(id) {
					return
				}
			}
		}
	}
}

func reverse(xs []uint64) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}

// PlaceOrder adds price to the side's price set if absent, appends a new
// (local_id, size) entry to the price queue, and writes the details record.
// All three writes go through a single batch so a mid-write failure cannot
// leave the price set, the queue, and the details record inconsistent with
// one another.
func (s *BookStorage[T]) PlaceOrder(side Side, price uint64, size uint64, details T) (OrderId, error) {
	prices, err := s.getBook(side)
	if err != nil {
		return OrderId{}, err
	}
	queue, err := s.getPriceQueue(price)
	if err != nil {
		return OrderId{}, err
	}

	var nextLocalID uint32
	if len(queue) > 0 {
		nextLocalID = queue[len(queue)-1].LocalID + 1
	}
	id := NewOrderId(s.prefix, side, price, nextLocalID)

	batch := s.store.NewBatch()

	if !containsPrice(prices, price) {
		prices = append(prices, price)
		raw, err := json.Marshal(prices)
		if err != nil {
			return OrderId{}, errors.Wrap(err, "orderbook: encode price set")
		}
		batch.Set(s.bookKey(side), raw)
	}

	queue = append(queue, queueEntry{LocalID: nextLocalID, Size: size})
	queueRaw, err := json.Marshal(queue)
	if err != nil {
		return OrderId{}, errors.Wrap(err, "orderbook: encode price queue")
	}
	batch.Set(s.priceQueueKey(price), queueRaw)

	detailsRaw, err := json.Marshal(details)
	if err != nil {
		return OrderId{}, errors.Wrap(err, "orderbook: encode order details")
	}
	batch.Set(id[:], detailsRaw)

	if err := batch.Commit(); err != nil {
		return OrderId{}, errors.Wrap(err, "orderbook: commit place_order batch")
	}

	return id, nil
}

func containsPrice(prices []uint64, price uint64) bool {
	for _, p := range prices {
		if p == price {
			return true
		}
	}
	return false
}

// RemoveOrder deletes the order unconditionally: its price-queue entry, its
// details record, and — if the queue is now empty — the queue key and the
// price itself from the side's price set.
func (s *BookStorage[T]) RemoveOrder(id OrderId) error {
	return s.cleanupOrder(id, true)
}

// ModifyOrder sets the order's remaining size. It does NOT remove the order
// on a size of zero; callers (the matching engine) are responsible for
// calling RemoveOrder instead when a fill exhausts an order.
func (s *BookStorage[T]) ModifyOrder(id OrderId, newSize uint64) error {
	queue, err := s.getPriceQueue(id.Price())
	if err != nil {
		return err
	}
	for i := range queue {
		if queue[i].LocalID == id.LocalID() {
			queue[i].Size = newSize
			return s.setPriceQueue(id.Price(), queue)
		}
	}
	return errors.Wrapf(ErrOrderNotFound, "modify_order id=%s", id)
}

// cleanupOrder is the shared removal path used both by a full cancel
// (forceRemove=true) and by the optional event queue's conditional cleanup
// after the last pending event for a fully-filled order is consumed
// (forceRemove=false — a no-op unless the order's queue entry has already
// been zeroed out). Its writes (the details record, the price queue, and
// possibly the price set) go through a single batch for the same reason
// PlaceOrder does: a partial cleanup would otherwise resurrect a phantom
// price level or leave a details record for an order no queue references.
func (s *BookStorage[T]) cleanupOrder(id OrderId, forceRemove bool) error {
	price := id.Price()
	queue, err := s.getPriceQueue(price)
	if err != nil {
		return err
	}

	currentSize, found := findEntry(queue, id.LocalID())
	if found && currentSize > 0 && !forceRemove {
		return nil
	}

	queue = removeEntry(queue, id.LocalID())

	batch := s.store.NewBatch()
	batch.Delete(id[:])

	if len(queue) > 0 {
		raw, err := json.Marshal(queue)
		if err != nil {
			return errors.Wrap(err, "orderbook: encode price queue")
		}
		batch.Set(s.priceQueueKey(price), raw)
	} else {
		batch.Delete(s.priceQueueKey(price))

		prices, err := s.getBook(id.Side())
		if err != nil {
			return err
		}
		prices = removePrice(prices, price)
		raw, err := json.Marshal(prices)
		if err != nil {
			return errors.Wrap(err, "orderbook: encode price set")
		}
		batch.Set(s.bookKey(id.Side()), raw)
	}

	if err := batch.Commit(); err != nil {
		return errors.Wrap(err, "orderbook: commit cleanup batch")
	}
	return nil
}

func removeEntry(queue []queueEntry, localID uint32) []queueEntry {
	out := queue[:0]
	for _, e := range queue {
		if e.LocalID != localID {
			out = append(out, e)
		}
	}
	return out
}

func removePrice(prices []uint64, price uint64) []uint64 {
	out := prices[:0]
	for _, p := range prices {
		if p != price {
			out = append(out, p)
		}
	}
	return out
}
