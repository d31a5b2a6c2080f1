package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coreledger/poachain/crypto"
)

// BlockHeader is the hashed and signed metadata of a Block.
type BlockHeader struct {
	Version              uint32 `json:"version"`
	Height               uint32 `json:"height"`
	Timestamp            uint64 `json:"timestamp"` // nanoseconds
	DataHash             Hash   `json:"data_hash"`
	PrevBlockHeaderHash  *Hash  `json:"prev_block_header_hash,omitempty"`
}

// Encode returns the canonical encoded form of the header: what gets
// hashed and what gets signed.
func (h BlockHeader) Encode() ([]byte, error) {
	return json.Marshal(h)
}

// Block is a signed header plus its ordered transactions.
type Block struct {
	Header             BlockHeader      `json:"header"`
	Transactions       []*Transaction   `json:"transactions"`
	ValidatorPublicKey crypto.PublicKey `json:"validator_public_key,omitempty"`
	Signature          crypto.Signature `json:"signature,omitempty"`

	mu         sync.Mutex
	cachedHash *Hash
}

// NewBlock builds an unsigned block for the given transactions on top of
// prev. The header's DataHash is computed from txs; the caller is
// responsible for signing before broadcast/admission.
func NewBlock(prev BlockHeader, txs []*Transaction) (*Block, error) {
	dataHash, err := DataHash(txs)
	if err != nil {
		return nil, err
	}
	prevHash, err := HashHeader(prev)
	if err != nil {
		return nil, err
	}
	return &Block{
		Header: BlockHeader{
			Version:             prev.Version,
			Height:              prev.Height + 1,
			Timestamp:           uint64(time.Now().UnixNano()),
			DataHash:            dataHash,
			PrevBlockHeaderHash: &prevHash,
		},
		Transactions: txs,
	}, nil
}

// GenesisBlock returns the fixed height-0 block shared by every node:
// version 1, zero timestamp, zero data hash, no parent, no transactions,
// unsigned.
func GenesisBlock() *Block {
	return &Block{
		Header: BlockHeader{
			Version:   1,
			Height:    0,
			Timestamp: 0,
			DataHash:  Hash{},
		},
		Transactions: []*Transaction{},
	}
}

// DataHash computes the SHA-256 over the concatenation of each transaction's
// encoded bytes, in order. An empty transaction list hashes to SHA-256 of
// the empty byte string.
func DataHash(txs []*Transaction) (Hash, error) {
	var buf bytes.Buffer
	for _, tx := range txs {
		data, err := json.Marshal(tx)
		if err != nil {
			return Hash{}, fmt.Errorf("encode tx: %w", err)
		}
		buf.Write(data)
	}
	return crypto.Sum(buf.Bytes()), nil
}

// HashHeader returns SHA-256 of the header's canonical encoding.
func HashHeader(h BlockHeader) (Hash, error) {
	data, err := h.Encode()
	if err != nil {
		return Hash{}, fmt.Errorf("encode header: %w", err)
	}
	return crypto.Sum(data), nil
}

// Hash returns SHA-256 of the encoded header (not the full block, and not
// the validator/signature fields), computed once and cached.
func (b *Block) Hash() (Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cachedHash != nil {
		return *b.cachedHash, nil
	}
	h, err := HashHeader(b.Header)
	if err != nil {
		return Hash{}, err
	}
	b.cachedHash = &h
	return h, nil
}

// Sign signs the encoded header with priv and sets ValidatorPublicKey.
func (b *Block) Sign(priv crypto.PrivateKey) error {
	data, err := b.Header.Encode()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(priv, data)
	if err != nil {
		return err
	}
	b.ValidatorPublicKey = priv.Public()
	b.Signature = sig
	return nil
}

// Verify checks that the signature is present and valid over the encoded
// header under ValidatorPublicKey, that every transaction's own signature
// verifies, and that the header's DataHash matches the recomputed hash of
// the transactions.
func (b *Block) Verify() error {
	if b.ValidatorPublicKey.IsZero() {
		return &InvalidBlockError{Reason: "missing validator public key"}
	}
	if len(b.Signature) == 0 {
		return &InvalidBlockError{Reason: "missing signature"}
	}
	data, err := b.Header.Encode()
	if err != nil {
		return &InvalidBlockError{Reason: fmt.Sprintf("encode header: %v", err)}
	}
	if err := crypto.Verify(b.ValidatorPublicKey, data, b.Signature); err != nil {
		return &InvalidBlockError{Reason: fmt.Sprintf("signature: %v", err)}
	}
	for i, tx := range b.Transactions {
		if err := tx.Verify(); err != nil {
			return &InvalidBlockError{Reason: fmt.Sprintf("transaction %d: %v", i, err)}
		}
	}
	dataHash, err := DataHash(b.Transactions)
	if err != nil {
		return &InvalidBlockError{Reason: fmt.Sprintf("data hash: %v", err)}
	}
	if dataHash != b.Header.DataHash {
		return &InvalidBlockError{Reason: "data_hash mismatch"}
	}
	return nil
}
