package validator_test

import (
	"context"
	"testing"
	"time"

	"github.com/coreledger/poachain/core"
	"github.com/coreledger/poachain/crypto"
	"github.com/coreledger/poachain/gossip"
	"github.com/coreledger/poachain/storage"
	"github.com/coreledger/poachain/transport"
	"github.com/coreledger/poachain/validator"
	"github.com/coreledger/poachain/vm"
)

func newTestChain(t *testing.T) *core.Chain {
	t.Helper()
	store := storage.NewBlockStore(storage.NewMemDB())
	state := storage.NewStateStore(storage.NewMemDB())
	chain, err := core.New(store, state, vm.New(), core.GenesisBlock())
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	return chain
}

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

// TestValidatorMintsAndClearsPending runs the loop for long enough for one
// round to fire, and checks the minted block, chain growth, and the
// draining of the mempool it started with.
func TestValidatorMintsAndClearsPending(t *testing.T) {
	chain := newTestChain(t)
	mempool := core.NewMempool()
	tx := signedTx(t, []byte("payload"))
	tx.MarkFirstSeen()
	if err := mempool.AddTx(tx); err != nil {
		t.Fatalf("add_tx: %v", err)
	}

	key, _, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sender := gossip.NewSender(transport.NewInProcess("validator"))

	v := validator.New(key, 10*time.Millisecond, chain, mempool, sender)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	v.Run(ctx)

	if chain.Height() < 1 {
		t.Fatalf("want at least one minted block, height is %d", chain.Height())
	}
	pending, err := mempool.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("want pending drained after minting, got %d pending", len(pending))
	}

	block, err := chain.GetBlock(1)
	if err != nil {
		t.Fatalf("get_block(1): %v", err)
	}
	if len(block.Transactions) != 1 {
		t.Fatalf("want 1 transaction in minted block, got %d", len(block.Transactions))
	}
	if err := block.Verify(); err != nil {
		t.Fatalf("minted block should verify: %v", err)
	}
}

func TestValidatorStopsOnContextCancel(t *testing.T) {
	chain := newTestChain(t)
	mempool := core.NewMempool()
	key, _, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sender := gossip.NewSender(transport.NewInProcess("validator"))
	v := validator.New(key, time.Hour, chain, mempool, sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		v.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return promptly after context cancellation")
	}
}
