package core

import (
	"fmt"

	"github.com/coreledger/poachain/crypto"
)

// Hash is the digest type used throughout the chain: a 32-byte SHA-256 sum.
type Hash = crypto.Hash

// BlockAlreadyExistsError is returned when a block at the given height has
// already been admitted. The processor catches this by type and drops the
// message silently so duplicate gossip does not propagate forever.
type BlockAlreadyExistsError struct {
	Hash Hash
}

func (e *BlockAlreadyExistsError) Error() string {
	return fmt.Sprintf("block %s already exists", e.Hash)
}

// InvalidBlockError wraps a structural or cryptographic admission failure:
// height mismatch, bad previous hash, bad signature, bad data hash.
type InvalidBlockError struct {
	Reason string
}

func (e *InvalidBlockError) Error() string {
	return "invalid block: " + e.Reason
}

// InvalidTransactionError is returned when a transaction's signature or
// public key is missing, or the signature fails verification.
type InvalidTransactionError struct {
	Reason string
}

func (e *InvalidTransactionError) Error() string {
	return "invalid transaction: " + e.Reason
}

// StorageMissError is returned when a get is issued for an absent block.
type StorageMissError struct {
	Height uint32
}

func (e *StorageMissError) Error() string {
	return fmt.Sprintf("no block stored at height %d", e.Height)
}

// RangeOutOfBoundsError is returned by GetBlocks when the requested range
// extends past the chain's current length.
type RangeOutOfBoundsError struct {
	Start, End, Len uint32
}

func (e *RangeOutOfBoundsError) Error() string {
	return fmt.Sprintf("range [%d,%d) out of bounds for chain of length %d", e.Start, e.End, e.Len)
}

// MempoolUntimedError indicates a transaction reached the mempool's pending
// set without FirstSeen ever being set — a programming error upstream.
type MempoolUntimedError struct {
	Hash Hash
}

func (e *MempoolUntimedError) Error() string {
	return fmt.Sprintf("mempool: tx %s has zero first_seen", e.Hash)
}
