// Package kv abstracts the persistent key/value partition the order book is
// built on. The engine and storage layers use Get/Set/Delete plus atomic
// write batches, and the market's trade log also uses range iteration; the
// concrete backend (Pebble in production, an in-memory map in tests) is
// injected by the caller, the same split the reference stack keeps between
// pkg/storage's Pebble-backed Store and the account package's in-memory
// cache layered on top of it.
package kv

import "errors"

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kv: key not found")

// Store is a synchronous, deterministic key/value partition. Keys and values
// are opaque byte strings; callers own their own encoding.
type Store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	NewBatch() Batch
	// Iter returns an iterator over keys in [lowerBound, upperBound). A nil
	// upperBound means unbounded above.
	Iter(lowerBound, upperBound []byte) (Iterator, error)
	Close() error
}

// Iterator walks a key range in either direction. Positioning methods
// (First, Last, Next, Prev) return whether the resulting position is valid;
// Key and Value are only meaningful after a positioning call returns true.
// The shape mirrors pebble.Iterator directly, since PebbleStore's
// implementation is a thin wrapper around one.
type Iterator interface {
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Key() []byte
	Value() []byte
	Close() error
}

// Batch groups a sequence of writes for atomic commit. BookStorage's
// multi-key operations (place_order touching the price set, the price
// queue, and the details record; cleanup touching the details record, the
// price queue, and possibly the price set) are issued through a batch so a
// mid-write failure cannot leave those records inconsistent.
type Batch interface {
	Set(key, value []byte)
	Delete(key []byte)
	Commit() error
}
