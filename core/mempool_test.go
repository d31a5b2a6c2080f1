package core_test

import (
	"testing"
	"time"

	"github.com/coreledger/poachain/core"
	"github.com/coreledger/poachain/crypto"
)

func signedTx(t *testing.T, data []byte) *core.Transaction {
	t.Helper()
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx := core.NewTransaction(data)
	if err := tx.Sign(priv); err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tx
}

func TestMempoolAddTxRequiresFirstSeen(t *testing.T) {
	mp := core.NewMempool()
	tx := signedTx(t, []byte("payload"))
	if err := mp.AddTx(tx); err == nil {
		t.Fatal("expected MempoolUntimedError for unset FirstSeen")
	}
}

func TestMempoolDedup(t *testing.T) {
	mp := core.NewMempool()
	tx := signedTx(t, []byte("same bytes"))
	tx.MarkFirstSeen()

	if err := mp.AddTx(tx); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := mp.AddTx(tx); err != nil {
		t.Fatalf("second add (idempotent) should not error: %v", err)
	}
	if mp.Size() != 1 {
		t.Fatalf("want size 1, got %d", mp.Size())
	}
	if !mp.HasTx(tx.Hash()) {
		t.Fatal("has_tx should be true")
	}
}

func TestMempoolPendingOrderedByFirstSeen(t *testing.T) {
	mp := core.NewMempool()

	now := time.Now().UnixNano()
	tx1 := signedTx(t, []byte("one"))
	tx1.FirstSeen = now - 100
	tx2 := signedTx(t, []byte("two"))
	tx2.FirstSeen = now - 300
	tx3 := signedTx(t, []byte("three"))
	tx3.FirstSeen = now - 200

	for _, tx := range []*core.Transaction{tx1, tx2, tx3} {
		if err := mp.AddTx(tx); err != nil {
			t.Fatalf("add_tx: %v", err)
		}
	}

	pending, err := mp.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("want 3 pending, got %d", len(pending))
	}
	for i := 1; i < len(pending); i++ {
		if pending[i-1].FirstSeen > pending[i].FirstSeen {
			t.Fatalf("pending not sorted ascending by first_seen: %v", pending)
		}
	}
}

func TestMempoolPendingBreaksFirstSeenTiesByInsertionOrder(t *testing.T) {
	mp := core.NewMempool()

	now := time.Now().UnixNano()
	var txs []*core.Transaction
	for i := 0; i < 5; i++ {
		tx := signedTx(t, []byte{byte(i)})
		tx.FirstSeen = now
		txs = append(txs, tx)
	}
	for _, tx := range txs {
		if err := mp.AddTx(tx); err != nil {
			t.Fatalf("add_tx: %v", err)
		}
	}

	pending, err := mp.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != len(txs) {
		t.Fatalf("want %d pending, got %d", len(txs), len(pending))
	}
	for i, tx := range txs {
		if pending[i].Hash() != tx.Hash() {
			t.Fatalf("pending[%d] should preserve insertion order among equal first_seen ties", i)
		}
	}
}

func TestMempoolClearPendingKeepsAllTxs(t *testing.T) {
	mp := core.NewMempool()
	tx := signedTx(t, []byte("payload"))
	tx.MarkFirstSeen()
	if err := mp.AddTx(tx); err != nil {
		t.Fatalf("add_tx: %v", err)
	}
	mp.ClearPending()

	pending, err := mp.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("want 0 pending after clear, got %d", len(pending))
	}
	if !mp.HasTx(tx.Hash()) {
		t.Fatal("has_tx should remain true after clear_pending")
	}
}
