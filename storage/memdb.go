package storage

import (
	"bytes"
	"sort"
	"sync"
)

// MemDB is an in-memory DB, the reference key-value store for a node that
// does not need blocks to survive a restart.
type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemDB returns an empty in-memory store.
func NewMemDB() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

func (m *MemDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *MemDB) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(key)] = cp
	return nil
}

func (m *MemDB) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *MemDB) NewIterator(prefix []byte) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return &memIterator{db: m, keys: keys, pos: -1}
}

func (m *MemDB) NewBatch() Batch {
	return &memBatch{db: m}
}

func (m *MemDB) Close() error { return nil }

type memIterator struct {
	db   *MemDB
	keys []string
	pos  int
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *memIterator) Key() []byte {
	return []byte(it.keys[it.pos])
}

func (it *memIterator) Value() []byte {
	it.db.mu.RLock()
	defer it.db.mu.RUnlock()
	return it.db.data[it.keys[it.pos]]
}

func (it *memIterator) Release()    {}
func (it *memIterator) Error() error { return nil }

type memBatch struct {
	db      *MemDB
	sets    map[string][]byte
	deletes map[string]bool
}

func (b *memBatch) Set(key, value []byte) {
	if b.sets == nil {
		b.sets = make(map[string][]byte)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	b.sets[string(key)] = cp
	if b.deletes != nil {
		delete(b.deletes, string(key))
	}
}

func (b *memBatch) Delete(key []byte) {
	if b.deletes == nil {
		b.deletes = make(map[string]bool)
	}
	b.deletes[string(key)] = true
	if b.sets != nil {
		delete(b.sets, string(key))
	}
}

func (b *memBatch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for k, v := range b.sets {
		b.db.data[k] = v
	}
	for k := range b.deletes {
		delete(b.db.data, k)
	}
	return nil
}

func (b *memBatch) Reset() {
	b.sets = nil
	b.deletes = nil
}
