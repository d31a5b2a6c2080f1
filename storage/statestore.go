package storage

import (
	"errors"
	"fmt"
	"log"

	"github.com/coreledger/poachain/core"
)

const stateKeyPrefix = "state:"

type stateSnapshot struct {
	dirty   map[string][]byte
	deleted map[string]bool
}

// StateStore implements core.State on top of a DB: an in-memory write
// buffer with snapshot/rollback, flushed to the underlying DB on Commit.
// Keys are addressed exactly as given by the caller (the VM's Get/Store
// opcodes); StateStore only namespaces them under a fixed prefix so state
// entries never collide with block storage sharing the same DB.
type StateStore struct {
	db        DB
	dirty     map[string][]byte
	deleted   map[string]bool
	snapshots []stateSnapshot
}

// NewStateStore creates a StateStore backed by db.
func NewStateStore(db DB) *StateStore {
	return &StateStore{
		db:      db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

func namespace(key []byte) string {
	return stateKeyPrefix + string(key)
}

// Get implements core.State.
func (s *StateStore) Get(key []byte) ([]byte, error) {
	k := namespace(key)
	if s.deleted[k] {
		return nil, fmt.Errorf("state: key %q not found", key)
	}
	if v, ok := s.dirty[k]; ok {
		return v, nil
	}
	v, err := s.db.Get([]byte(k))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("state: key %q not found", key)
	}
	return v, err
}

// Set implements core.State.
func (s *StateStore) Set(key []byte, value []byte) error {
	k := namespace(key)
	delete(s.deleted, k)
	cp := make([]byte, len(value))
	copy(cp, value)
	s.dirty[k] = cp
	return nil
}

// Snapshot saves the current write buffer and returns a handle.
func (s *StateStore) Snapshot() int {
	snap := stateSnapshot{
		dirty:   make(map[string][]byte, len(s.dirty)),
		deleted: make(map[string]bool, len(s.deleted)),
	}
	for k, v := range s.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		snap.dirty[k] = cp
	}
	for k, v := range s.deleted {
		snap.deleted[k] = v
	}
	s.snapshots = append(s.snapshots, snap)
	return len(s.snapshots) - 1
}

// RevertToSnapshot restores the write buffer to a previously saved
// snapshot, deep-copying so further writes cannot corrupt the saved copy.
func (s *StateStore) RevertToSnapshot(id int) {
	if id < 0 || id >= len(s.snapshots) {
		return
	}
	snap := s.snapshots[id]
	dirty := make(map[string][]byte, len(snap.dirty))
	for k, v := range snap.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		dirty[k] = cp
	}
	deleted := make(map[string]bool, len(snap.deleted))
	for k, v := range snap.deleted {
		deleted[k] = v
	}
	s.dirty = dirty
	s.deleted = deleted
	s.snapshots = s.snapshots[:id]
}

// Commit atomically flushes the write buffer to the underlying DB and
// clears it, invalidating any outstanding snapshot handles.
func (s *StateStore) Commit() {
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range s.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		log.Fatalf("[statestore] commit: %v", err)
	}
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	s.snapshots = nil
}

var _ core.State = (*StateStore)(nil)
