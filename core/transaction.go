package core

import (
	"sync"
	"time"

	"github.com/coreledger/poachain/crypto"
)

// Transaction is the atomic unit of work on the chain: an opaque program
// (Data) plus the sender's signature over it. Execution of Data against
// state happens through the VM, outside this package.
type Transaction struct {
	Data            []byte           `json:"data"`
	SenderPublicKey crypto.PublicKey `json:"sender_public_key,omitempty"`
	Signature       crypto.Signature `json:"signature,omitempty"`

	// FirstSeen is the wall-clock Unix time (nanoseconds) at which this
	// transaction was admitted to a mempool. It is not part of the wire
	// encoding's signed content and is zero until admission.
	FirstSeen int64 `json:"first_seen,omitempty"`

	mu         sync.Mutex
	cachedHash *Hash
}

// NewTransaction creates an unsigned transaction wrapping data.
func NewTransaction(data []byte) *Transaction {
	return &Transaction{Data: data}
}

// Hash returns SHA-256(Data), computed once and cached.
func (tx *Transaction) Hash() Hash {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.cachedHash != nil {
		return *tx.cachedHash
	}
	h := crypto.Sum(tx.Data)
	tx.cachedHash = &h
	return h
}

// Sign signs Data with priv and sets SenderPublicKey/Signature.
func (tx *Transaction) Sign(priv crypto.PrivateKey) error {
	sig, err := crypto.Sign(priv, tx.Data)
	if err != nil {
		return err
	}
	tx.SenderPublicKey = priv.Public()
	tx.Signature = sig
	return nil
}

// Verify reports whether the transaction carries a valid signature over
// Data under SenderPublicKey. It fails closed: a missing key or signature
// is itself a verification failure.
func (tx *Transaction) Verify() error {
	if tx.SenderPublicKey.IsZero() {
		return &InvalidTransactionError{Reason: "missing sender public key"}
	}
	if len(tx.Signature) == 0 {
		return &InvalidTransactionError{Reason: "missing signature"}
	}
	if err := crypto.Verify(tx.SenderPublicKey, tx.Data, tx.Signature); err != nil {
		return &InvalidTransactionError{Reason: err.Error()}
	}
	return nil
}

// MarkFirstSeen sets FirstSeen to the current Unix time in nanoseconds.
// It is a no-op if FirstSeen is already set, so re-admission of a known
// transaction never resets its ordering position.
func (tx *Transaction) MarkFirstSeen() {
	if tx.FirstSeen == 0 {
		tx.FirstSeen = time.Now().UnixNano()
	}
}

// Clone returns a shallow copy of tx safe to hand to another goroutine
// (the cache lock itself is not copied live).
func (tx *Transaction) Clone() *Transaction {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	cp := &Transaction{
		Data:            tx.Data,
		SenderPublicKey: tx.SenderPublicKey,
		Signature:       tx.Signature,
		FirstSeen:       tx.FirstSeen,
	}
	if tx.cachedHash != nil {
		h := *tx.cachedHash
		cp.cachedHash = &h
	}
	return cp
}
