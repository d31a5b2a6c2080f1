// Package indexer maintains a secondary, height-indexed lookup of
// committed block hashes so RPC callers can page recent blocks without
// rescanning the chain keeper.
package indexer

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/coreledger/poachain/events"
	"github.com/coreledger/poachain/storage"
)

const (
	heightKeyPrefix = "idx:height:"
	recentKey       = "idx:recent"
	// maxRecent bounds how many heights the recent-blocks list retains;
	// older entries are still reachable via GetHashAtHeight.
	maxRecent = 256
)

func heightKey(height uint32) []byte {
	b := make([]byte, len(heightKeyPrefix)+4)
	copy(b, heightKeyPrefix)
	binary.BigEndian.PutUint32(b[len(heightKeyPrefix):], height)
	return b
}

// Indexer subscribes to chain events and updates a secondary lookup table
// over db: height → block hash.
type Indexer struct {
	mu sync.Mutex
	db storage.DB
}

// New creates an Indexer backed by db and subscribes it to block-commit
// events from emitter.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db}
	emitter.Subscribe(events.EventBlockCommitted, idx.onBlockCommitted)
	return idx
}

func (idx *Indexer) onBlockCommitted(ev events.Event) {
	hash, _ := ev.Data["hash"].(string)
	if hash == "" {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.db.Set(heightKey(ev.BlockHeight), []byte(hash)); err != nil {
		return
	}
	_ = idx.pushRecent(ev.BlockHeight)
}

// GetHashAtHeight returns the hex block hash committed at height, or
// ("", false) if no such entry has been indexed.
func (idx *Indexer) GetHashAtHeight(height uint32) (string, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	data, err := idx.db.Get(heightKey(height))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// RecentHeights returns up to limit of the most recently committed
// heights, newest first.
func (idx *Indexer) RecentHeights(limit int) ([]uint32, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	heights, err := idx.readRecent()
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(heights) {
		heights = heights[:limit]
	}
	return heights, nil
}

func (idx *Indexer) readRecent() ([]uint32, error) {
	data, err := idx.db.Get([]byte(recentKey))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var heights []uint32
	if err := json.Unmarshal(data, &heights); err != nil {
		return nil, fmt.Errorf("indexer: decode recent list: %w", err)
	}
	return heights, nil
}

func (idx *Indexer) pushRecent(height uint32) error {
	heights, err := idx.readRecent()
	if err != nil {
		return err
	}
	heights = append([]uint32{height}, heights...)
	if len(heights) > maxRecent {
		heights = heights[:maxRecent]
	}
	data, err := json.Marshal(heights)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(recentKey), data)
}
