package core

import (
	"fmt"
	"sync"

	"github.com/coreledger/poachain/events"
)

// BlockStore is the persistence interface the chain keeper writes through.
// Implementations live in the storage package: an in-memory reference
// store and an optional durable goleveldb-backed one.
type BlockStore interface {
	PutBlock(block *Block) error
	GetBlock(height uint32) (*Block, error)
	HasBlock(height uint32) bool
}

// Executor runs one transaction's program against state. The chain keeper
// invokes it once per transaction during block admission, sequentially in
// block order, against a shared, stageable view. Implementations live in
// the vm package.
type Executor interface {
	Execute(state State, code []byte) error
}

// Chain maintains the canonical header list and persists blocks, backed by
// a BlockStore and a State the VM executes transactions against.
type Chain struct {
	mu      sync.RWMutex
	store   BlockStore
	state   State
	exec    Executor
	headers []BlockHeader
	emitter *events.Emitter
}

// SetEmitter attaches an events.Emitter that AddBlock notifies on every
// successful commit. Passing nil (the default) disables emission; this is
// ambient observability wiring for the indexer, not required for the
// chain keeper to function.
func (c *Chain) SetEmitter(e *events.Emitter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitter = e
}

// New initializes a chain with an empty header list, then ingests genesis
// without running it through the block validator. Fails if the store
// refuses the write.
func New(store BlockStore, state State, exec Executor, genesis *Block) (*Chain, error) {
	if err := store.PutBlock(genesis); err != nil {
		return nil, fmt.Errorf("ingest genesis: %w", err)
	}
	return &Chain{
		store:   store,
		state:   state,
		exec:    exec,
		headers: []BlockHeader{genesis.Header},
	}, nil
}

// HasBlock reports whether a header has been admitted at height.
func (c *Chain) HasBlock(height uint32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasBlockLocked(height)
}

func (c *Chain) hasBlockLocked(height uint32) bool {
	return uint32(len(c.headers)) > height
}

// GetHeader returns a copy of the header at height.
func (c *Chain) GetHeader(height uint32) (BlockHeader, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.getHeaderLocked(height)
}

func (c *Chain) getHeaderLocked(height uint32) (BlockHeader, error) {
	if !c.hasBlockLocked(height) {
		return BlockHeader{}, &StorageMissError{Height: height}
	}
	return c.headers[height], nil
}

// Height returns len(headers)-1, always >= 0 since genesis is always
// present.
func (c *Chain) Height() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return uint32(len(c.headers)) - 1
}

// GetBlock decodes the full block at height from the byte store.
func (c *Chain) GetBlock(height uint32) (*Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasBlockLocked(height) {
		return nil, &StorageMissError{Height: height}
	}
	return c.store.GetBlock(height)
}

// GetBlocks fetches the inclusive-exclusive range [start, end). Each block
// is fetched individually, so a concurrent AddBlock can extend the tail
// during the read; callers must treat the result as a prefix, not a
// point-in-time snapshot.
func (c *Chain) GetBlocks(start, end uint32) ([]*Block, error) {
	c.mu.RLock()
	length := uint32(len(c.headers))
	c.mu.RUnlock()

	if end > length {
		return nil, &RangeOutOfBoundsError{Start: start, End: end, Len: length}
	}
	blocks := make([]*Block, 0, end-start)
	for h := start; h < end; h++ {
		b, err := c.store.GetBlock(h)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// GetPrevHeader returns the header at max(0, height-1); for height 0 this
// is the genesis header, a convenience that lets the validator always
// obtain a "previous" header for genesis's child.
func (c *Chain) GetPrevHeader(height uint32) (BlockHeader, error) {
	prev := uint32(0)
	if height > 0 {
		prev = height - 1
	}
	return c.GetHeader(prev)
}

// AddBlock runs the block validator, then (on success) executes each
// transaction against state through the VM interface, then appends the
// header and persists the encoded block atomically with respect to other
// AddBlock calls: the in-memory header append happens first, and is rolled
// back if persistence fails.
func (c *Chain) AddBlock(block *Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkAdmission(block); err != nil {
		return err
	}

	snapshot := c.state.Snapshot()
	for i, tx := range block.Transactions {
		if err := c.exec.Execute(c.state, tx.Data); err != nil {
			c.state.RevertToSnapshot(snapshot)
			return fmt.Errorf("execute transaction %d: %w", i, err)
		}
	}

	c.headers = append(c.headers, block.Header)
	if err := c.store.PutBlock(block); err != nil {
		c.headers = c.headers[:len(c.headers)-1]
		c.state.RevertToSnapshot(snapshot)
		return fmt.Errorf("persist block: %w", err)
	}
	c.state.Commit()

	if c.emitter != nil {
		for _, tx := range block.Transactions {
			c.emitter.Emit(events.Event{
				Type:        events.EventTxExecuted,
				TxID:        tx.Hash().String(),
				BlockHeight: block.Header.Height,
			})
		}
		hash, err := block.Hash()
		data := map[string]any{}
		if err == nil {
			data["hash"] = hash.String()
		}
		c.emitter.Emit(events.Event{
			Type:        events.EventBlockCommitted,
			BlockHeight: block.Header.Height,
			Data:        data,
		})
	}
	return nil
}
