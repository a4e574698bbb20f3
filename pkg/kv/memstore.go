package kv

import (
	"sort"
	"sync"
)

// MemStore is an in-memory Store used by unit tests so BookStorage and
// Market tests do not need a real Pebble database on disk.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemStore) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
	return nil
}

func (m *MemStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, string(key))
	return nil
}

func (m *MemStore) Close() error { return nil }

// Iter snapshots the matching key range at call time; it does not observe
// later writes, the same snapshot-isolation behavior a Pebble iterator gives
// callers in production.
func (m *MemStore) Iter(lowerBound, upperBound []byte) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lower, upper := string(lowerBound), string(upperBound)
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if k < lower {
			continue
		}
		if upperBound != nil && k >= upper {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vals := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v := make([]byte, len(m.data[k]))
		copy(v, m.data[k])
		vals[k] = v
	}
	return &memIterator{keys: keys, vals: vals, pos: -1}, nil
}

type memIterator struct {
	keys []string
	vals map[string][]byte
	pos  int
}

func (it *memIterator) First() bool {
	it.pos = 0
	return it.pos < len(it.keys)
}

func (it *memIterator) Last() bool {
	it.pos = len(it.keys) - 1
	return it.pos >= 0
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *memIterator) Prev() bool {
	it.pos--
	return it.pos >= 0
}

func (it *memIterator) Key() []byte   { return []byte(it.keys[it.pos]) }
func (it *memIterator) Value() []byte { return it.vals[it.keys[it.pos]] }
func (it *memIterator) Close() error  { return nil }

func (m *MemStore) NewBatch() Batch {
	return &memBatch{store: m}
}

type memOp struct {
	key    []byte
	value  []byte
	delete bool
}

type memBatch struct {
	store *MemStore
	ops   []memOp
}

func (b *memBatch) Set(key, value []byte) {
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	b.ops = append(b.ops, memOp{key: k, value: v})
}

func (b *memBatch) Delete(key []byte) {
	k := append([]byte(nil), key...)
	b.ops = append(b.ops, memOp{key: k, delete: true})
}

func (b *memBatch) Commit() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	for _, op := range b.ops {
		if op.delete {
			delete(b.store.data, string(op.key))
			continue
		}
		b.store.data[string(op.key)] = op.value
	}
	return nil
}
