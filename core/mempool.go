package core

import (
	"sort"
	"sync"
	"time"
)

// Hardening thresholds layered in front of the admission rule: the core
// contract (hash-indexed, dedup by identity) does not itself bound size or
// timestamp skew, but an unbounded pool is not something a node should run
// with, so these mirror the cap a mempool needs in practice.
const (
	maxMempoolSize = 10_000
	maxTxAge       = int64(time.Hour)
	maxTxFuture    = int64(5 * time.Minute)
)

// Mempool is a concurrent hash-indexed transaction store with a pending
// subview. all_txs never shrinks except implicitly (this reference
// implementation keeps it for the life of the process); pending is cleared
// once its contents are sealed into a block. seq records the admission
// order of every hash ever seen, since map iteration order is randomized
// and cannot itself serve as an insertion-order tiebreaker.
type Mempool struct {
	allMu  sync.RWMutex
	allTxs map[Hash]*Transaction

	pendingMu sync.RWMutex
	pending   map[Hash]*Transaction

	seq     map[Hash]int64
	nextSeq int64
}

// NewMempool returns an empty mempool.
func NewMempool() *Mempool {
	return &Mempool{
		allTxs:  make(map[Hash]*Transaction),
		pending: make(map[Hash]*Transaction),
		seq:     make(map[Hash]int64),
	}
}

// AddTx inserts tx into all_txs and pending under a single exclusive
// section, taking the writers in the fixed order all_txs then pending to
// avoid deadlock against any other path that needs both. Re-adding a known
// transaction is a no-op. The caller must have already set FirstSeen.
func (m *Mempool) AddTx(tx *Transaction) error {
	h := tx.Hash()

	if tx.FirstSeen == 0 {
		return &MempoolUntimedError{Hash: h}
	}
	now := time.Now().UnixNano()
	if now-tx.FirstSeen > maxTxAge {
		return &InvalidTransactionError{Reason: "transaction too old"}
	}
	if tx.FirstSeen-now > maxTxFuture {
		return &InvalidTransactionError{Reason: "transaction timestamped too far in the future"}
	}

	m.allMu.Lock()
	defer m.allMu.Unlock()
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	if _, exists := m.allTxs[h]; exists {
		return nil
	}
	if len(m.allTxs) >= maxMempoolSize {
		return &InvalidTransactionError{Reason: "mempool full"}
	}

	m.allTxs[h] = tx
	m.pending[h] = tx
	m.seq[h] = m.nextSeq
	m.nextSeq++
	return nil
}

// HasTx reports whether hash h has ever been admitted.
func (m *Mempool) HasTx(h Hash) bool {
	m.allMu.RLock()
	defer m.allMu.RUnlock()
	_, ok := m.allTxs[h]
	return ok
}

// Pending returns the pending set cloned out, sorted ascending by
// FirstSeen with ties broken by admission order (the seq each transaction
// was assigned in AddTx, not map iteration order, which Go randomizes on
// every call). Fails if any pending entry has a zero FirstSeen.
func (m *Mempool) Pending() ([]*Transaction, error) {
	m.allMu.RLock()
	m.pendingMu.RLock()
	txs := make([]*Transaction, 0, len(m.pending))
	seqs := make(map[Hash]int64, len(m.pending))
	for h, tx := range m.pending {
		txs = append(txs, tx)
		seqs[h] = m.seq[h]
	}
	m.pendingMu.RUnlock()
	m.allMu.RUnlock()

	for _, tx := range txs {
		if tx.FirstSeen == 0 {
			return nil, &MempoolUntimedError{Hash: tx.Hash()}
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].FirstSeen != txs[j].FirstSeen {
			return txs[i].FirstSeen < txs[j].FirstSeen
		}
		return seqs[txs[i].Hash()] < seqs[txs[j].Hash()]
	})
	return txs, nil
}

// ClearPending empties the pending set; all_txs is left intact so future
// duplicate admission attempts are still recognized.
func (m *Mempool) ClearPending() {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	m.pending = make(map[Hash]*Transaction)
}

// Size returns the number of entries ever admitted.
func (m *Mempool) Size() int {
	m.allMu.RLock()
	defer m.allMu.RUnlock()
	return len(m.allTxs)
}
