package orderbook

import (
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/orderscript/clobcore/pkg/kv"
)

// OrderEventQueue is the optional deferred-settlement capability: fills are
// recorded as events against an order instead of (or in addition to) being
// settled inline, and a separate consumer later calls Consume to drain them.
// The market façade in this module uses inline settlement exclusively and
// never touches this type; it exists because BookStorage's operation set
// includes it and a faithful reimplementation needs it tested in isolation.
type OrderEventQueue[T any] struct {
	storage *BookStorage[T]
}

func (s *BookStorage[T]) OrderEvents() *OrderEventQueue[T] {
	return &OrderEventQueue[T]{storage: s}
}

func (q *OrderEventQueue[T]) all() (map[OrderId][]OrderEvent, error) {
	raw, err := q.storage.store.Get(q.storage.orderEventsKey())
	if errors.Is(err, kv.ErrNotFound) {
		return map[OrderId][]OrderEvent{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "orderbook: get event queue")
	}

	var encoded map[string][]OrderEvent
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, errors.Wrap(err, "orderbook: decode event queue")
	}

	out := make(map[OrderId][]OrderEvent, len(encoded))
	for k, v := range encoded {
		id, err := decodeOrderIdKey(k)
		if err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}

func (q *OrderEventQueue[T]) save(m map[OrderId][]OrderEvent) error {
	encoded := make(map[string][]OrderEvent, len(m))
	for id, events := range m {
		encoded[id.String()] = events
	}
	raw, err := json.Marshal(encoded)
	if err != nil {
		return errors.Wrap(err, "orderbook: encode event queue")
	}
	return q.storage.store.Set(q.storage.orderEventsKey(), raw)
}

func decodeOrderIdKey(hexKey string) (OrderId, error) {
	var id OrderId
	n, err := hex.Decode(id[:], []byte(hexKey))
	if err != nil || n != len(id) {
		return OrderId{}, errors.Newf("orderbook: malformed event queue key %q", hexKey)
	}
	return id, nil
}

// Get returns the pending events for an order, in FIFO order.
func (q *OrderEventQueue[T]) Get(id OrderId) ([]OrderEvent, error) {
	m, err := q.all()
	if err != nil {
		return nil, err
	}
	return m[id], nil
}

// Push appends an event to an order's pending list.
func (q *OrderEventQueue[T]) Push(id OrderId, event OrderEvent) error {
	m, err := q.all()
	if err != nil {
		return err
	}
	m[id] = append(m[id], event)
	return q.save(m)
}

// Consume pops up to count events per listed order and returns them. If an
// order's event list becomes empty after consumption, it runs the storage's
// conditional cleanup (force_remove=false): a no-op unless that order's
// price-queue entry has already been reduced to zero by the matching engine.
func (q *OrderEventQueue[T]) Consume(counts map[OrderId]uint32) ([]struct {
	ID    OrderId
	Event OrderEvent
}, error) {
	m, err := q.all()
	if err != nil {
		return nil, err
	}

	var drained []struct {
		ID    OrderId
		Event OrderEvent
	}

	// counts is a map; range order is randomized, but §4.2 requires consuming
	// in an arbitrary-but-deterministic order, so drain in sorted id order.
	ids := make([]OrderId, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		count := counts[id]
		events := m[id]
		n := int(count)
		if n > len(events) {
			n = len(events)
		}
		for i := 0; i < n; i++ {
			drained = append(drained, struct {
				ID    OrderId
				Event OrderEvent
			}{ID: id, Event: events[i]})
		}
		remaining := events[n:]

		if len(remaining) == 0 {
			delete(m, id)
			if err := q.storage.cleanupOrder(id, false); err != nil {
				return nil, err
			}
		} else {
			m[id] = remaining
		}
	}

	if err := q.save(m); err != nil {
		return nil, err
	}
	return drained, nil
}
