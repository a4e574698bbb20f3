package kv

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// PebbleStore is the production Store, backed by a single Pebble database.
// Every write is synced; the order book favors durability over raw write
// throughput, matching how the reference stack persists blocks and accounts.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "kv: open pebble")
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}

func (s *PebbleStore) Get(key []byte) ([]byte, error) {
	val, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "kv: get")
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (s *PebbleStore) Set(key, value []byte) error {
	if err := s.db.Set(key, value, pebble.Sync); err != nil {
		return errors.Wrap(err, "kv: set")
	}
	return nil
}

func (s *PebbleStore) Delete(key []byte) error {
	if err := s.db.Delete(key, pebble.Sync); err != nil {
		return errors.Wrap(err, "kv: delete")
	}
	return nil
}

func (s *PebbleStore) NewBatch() Batch {
	return &pebbleBatch{batch: s.db.NewBatch()}
}

type pebbleBatch struct {
	batch *pebble.Batch
}

func (b *pebbleBatch) Set(key, value []byte) {
	_ = b.batch.Set(key, value, nil)
}

func (b *pebbleBatch) Delete(key []byte) {
	_ = b.batch.Delete(key, nil)
}

func (b *pebbleBatch) Commit() error {
	if err := b.batch.Commit(pebble.Sync); err != nil {
		return errors.Wrap(err, "kv: commit batch")
	}
	return nil
}

// Iter wraps a pebble.Iterator bounded to [lowerBound, upperBound).
func (s *PebbleStore) Iter(lowerBound, upperBound []byte) (Iterator, error) {
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lowerBound, UpperBound: upperBound})
	if err != nil {
		return nil, errors.Wrap(err, "kv: new iter")
	}
	return &pebbleIterator{it: it}, nil
}

type pebbleIterator struct {
	it *pebble.Iterator
}

func (p *pebbleIterator) First() bool   { return p.it.First() }
func (p *pebbleIterator) Last() bool    { return p.it.Last() }
func (p *pebbleIterator) Next() bool    { return p.it.Next() }
func (p *pebbleIterator) Prev() bool    { return p.it.Prev() }
func (p *pebbleIterator) Key() []byte   { return p.it.Key() }
func (p *pebbleIterator) Value() []byte { return p.it.Value() }
func (p *pebbleIterator) Close() error  { return p.it.Close() }

// KeyUpperBound returns the exclusive upper bound for an iterator scanning
// every key sharing prefix, the same last-byte-increment trick the reference
// stack's account key scheme uses.
func KeyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	for i := len(bound) - 1; i >= 0; i-- {
		bound[i]++
		if bound[i] != 0 {
			return bound
		}
	}
	return nil
}
