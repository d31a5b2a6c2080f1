package node_test

import (
	"testing"

	"github.com/coreledger/poachain/core"
	"github.com/coreledger/poachain/crypto"
	"github.com/coreledger/poachain/gossip"
	"github.com/coreledger/poachain/node"
	"github.com/coreledger/poachain/storage"
	"github.com/coreledger/poachain/transport"
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

func newTestProcessor(t *testing.T, id string, addr transport.NetAddr) (*node.Processor, *core.Chain, *core.Mempool) {
	t.Helper()
	chain := newTestChain(t)
	mempool := core.NewMempool()
	tr := transport.NewInProcess(addr)
	sender := gossip.NewSender(tr)
	return node.NewProcessor(id, chain, mempool, sender), chain, mempool
}

// S5: submitting the same transaction twice must not grow the mempool or
// admit it a second time.
func TestProcessorTransactionDedup(t *testing.T) {
	p, _, mempool := newTestProcessor(t, "A", "A")
	tx := signedTx(t, []byte("payload"))

	if err := p.Dispatch("peer", node.TransactionMessage(tx)); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if err := p.Dispatch("peer", node.TransactionMessage(tx)); err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if mempool.Size() != 1 {
		t.Fatalf("want mempool size 1, got %d", mempool.Size())
	}
	if !mempool.HasTx(tx.Hash()) {
		t.Fatal("has_tx should be true")
	}
}

func TestProcessorRejectsUnsignedTransaction(t *testing.T) {
	p, _, mempool := newTestProcessor(t, "A", "A")
	tx := core.NewTransaction([]byte("no signature"))

	if err := p.Dispatch("peer", node.TransactionMessage(tx)); err == nil {
		t.Fatal("expected dispatch to fail for an unsigned transaction")
	}
	if mempool.Size() != 0 {
		t.Fatalf("want mempool size 0, got %d", mempool.Size())
	}
}

func TestProcessorGetStatusReplies(t *testing.T) {
	a := transport.NewInProcess("A")
	b := transport.NewInProcess("B")
	if err := a.Connect(b); err != nil {
		t.Fatalf("connect a->b: %v", err)
	}
	if err := b.Connect(a); err != nil {
		t.Fatalf("connect b->a: %v", err)
	}

	chain := newTestChain(t)
	mempool := core.NewMempool()
	sender := gossip.NewSender(a)
	p := node.NewProcessor("A", chain, mempool, sender)

	if err := p.Dispatch(b.Addr(), node.GetStatusMessage()); err != nil {
		t.Fatalf("dispatch get_status: %v", err)
	}

	rpc, err := recvWithTimeout(t, b)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	msg, err := node.DecodeMessage(rpc.Data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != node.MsgStatus || msg.Status == nil {
		t.Fatalf("want status message, got %+v", msg)
	}
	if msg.Status.Height != 0 {
		t.Fatalf("want height 0, got %d", msg.Status.Height)
	}
}

func TestProcessorHandleBlockSwallowsDuplicate(t *testing.T) {
	p, chain, _ := newTestProcessor(t, "A", "A")
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	genesisHeader, err := chain.GetHeader(0)
	if err != nil {
		t.Fatalf("get_header(0): %v", err)
	}
	block, err := core.NewBlock(genesisHeader, nil)
	if err != nil {
		t.Fatalf("new block: %v", err)
	}
	if err := block.Sign(priv); err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := p.Dispatch("peer", node.BlockMessage(block)); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if err := p.Dispatch("peer", node.BlockMessage(block)); err != nil {
		t.Fatalf("duplicate dispatch should be swallowed, got: %v", err)
	}
	if chain.Height() != 1 {
		t.Fatalf("want height 1, got %d", chain.Height())
	}
}
