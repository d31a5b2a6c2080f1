package rpc_test

import (
	"encoding/json"
	"testing"

	"github.com/coreledger/poachain/core"
	"github.com/coreledger/poachain/crypto"
	"github.com/coreledger/poachain/events"
	"github.com/coreledger/poachain/indexer"
	"github.com/coreledger/poachain/rpc"
	"github.com/coreledger/poachain/storage"
	"github.com/coreledger/poachain/vm"
)

func newTestHandler(t *testing.T) (*rpc.Handler, *core.Chain, *core.Mempool) {
	t.Helper()
	db := storage.NewMemDB()
	store := storage.NewBlockStore(db)
	state := storage.NewStateStore(storage.NewMemDB())
	chain, err := core.New(store, state, vm.New(), core.GenesisBlock())
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	emitter := events.NewEmitter()
	chain.SetEmitter(emitter)
	idx := indexer.New(db, emitter)
	mempool := core.NewMempool()
	return rpc.NewHandler(chain, mempool, idx), chain, mempool
}

func req(id any, method string, params any) rpc.Request {
	data, _ := json.Marshal(params)
	return rpc.Request{JSONRPC: "2.0", ID: id, Method: method, Params: data}
}

func TestHandlerGetHeight(t *testing.T) {
	h, _, _ := newTestHandler(t)
	resp := h.Dispatch(req(1, "getHeight", nil))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	height, ok := resp.Result.(uint32)
	if !ok || height != 0 {
		t.Fatalf("want height 0, got %#v", resp.Result)
	}
}

func TestHandlerGetHeader(t *testing.T) {
	h, _, _ := newTestHandler(t)
	resp := h.Dispatch(req(1, "getHeader", map[string]any{"height": 0}))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
}

func TestHandlerGetHeaderOutOfRange(t *testing.T) {
	h, _, _ := newTestHandler(t)
	resp := h.Dispatch(req(1, "getHeader", map[string]any{"height": 99}))
	if resp.Error == nil {
		t.Fatal("expected an error for an out-of-range height")
	}
}

func TestHandlerSubmitTxAddsToMempool(t *testing.T) {
	h, _, mempool := newTestHandler(t)
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx := core.NewTransaction([]byte("payload"))
	if err := tx.Sign(priv); err != nil {
		t.Fatalf("sign: %v", err)
	}

	resp := h.Dispatch(req(1, "submitTx", tx))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	if mempool.Size() != 1 {
		t.Fatalf("want mempool size 1, got %d", mempool.Size())
	}
}

func TestHandlerSubmitTxRejectsUnsigned(t *testing.T) {
	h, _, mempool := newTestHandler(t)
	tx := core.NewTransaction([]byte("payload"))

	resp := h.Dispatch(req(1, "submitTx", tx))
	if resp.Error == nil {
		t.Fatal("expected an error for an unsigned transaction")
	}
	if mempool.Size() != 0 {
		t.Fatalf("want mempool size 0, got %d", mempool.Size())
	}
}

func TestHandlerGetRecentBlocks(t *testing.T) {
	h, chain, _ := newTestHandler(t)
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	block, err := core.NewBlock(core.GenesisBlock().Header, nil)
	if err != nil {
		t.Fatalf("new block: %v", err)
	}
	if err := block.Sign(priv); err != nil {
		t.Fatalf("sign block: %v", err)
	}
	if err := chain.AddBlock(block); err != nil {
		t.Fatalf("add block: %v", err)
	}

	resp := h.Dispatch(req(1, "getRecentBlocks", map[string]any{"limit": 10}))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var blocks []struct {
		Height uint32 `json:"height"`
		Hash   string `json:"hash"`
	}
	if err := json.Unmarshal(data, &blocks); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Height != 1 || blocks[0].Hash == "" {
		t.Fatalf("want one recent block at height 1 with a hash, got %+v", blocks)
	}
}

func TestHandlerUnknownMethod(t *testing.T) {
	h, _, _ := newTestHandler(t)
	resp := h.Dispatch(req(1, "doesNotExist", nil))
	if resp.Error == nil {
		t.Fatal("expected an error for an unknown method")
	}
	if resp.Error.Code != rpc.CodeMethodNotFound {
		t.Fatalf("want code %d, got %d", rpc.CodeMethodNotFound, resp.Error.Code)
	}
}
