package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coreledger/poachain/core"
)

const blockKeyPrefix = "block:"

func blockKey(height uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], height)
	return append([]byte(blockKeyPrefix), buf[:]...)
}

// BlockStore implements core.BlockStore on top of any DB, keyed by
// little-endian height so both MemDB and LevelDB back it identically.
type BlockStore struct {
	db DB
}

// NewBlockStore wraps db as a core.BlockStore.
func NewBlockStore(db DB) *BlockStore {
	return &BlockStore{db: db}
}

func (s *BlockStore) PutBlock(block *core.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("encode block: %w", err)
	}
	return s.db.Set(blockKey(block.Header.Height), data)
}

func (s *BlockStore) GetBlock(height uint32) (*core.Block, error) {
	data, err := s.db.Get(blockKey(height))
	if errors.Is(err, ErrNotFound) {
		return nil, &core.StorageMissError{Height: height}
	}
	if err != nil {
		return nil, err
	}
	var b core.Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	return &b, nil
}

func (s *BlockStore) HasBlock(height uint32) bool {
	_, err := s.db.Get(blockKey(height))
	return err == nil
}
