package node_test

import (
	"context"
	"testing"
	"time"

	"github.com/coreledger/poachain/core"
	"github.com/coreledger/poachain/crypto"
	"github.com/coreledger/poachain/gossip"
	"github.com/coreledger/poachain/node"
	"github.com/coreledger/poachain/transport"
)

func recvWithTimeout(t *testing.T, tr transport.Transport) (transport.RPC, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return tr.Recv(ctx)
}

func mintOnto(t *testing.T, chain *core.Chain, n int) {
	t.Helper()
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	for i := 0; i < n; i++ {
		header, err := chain.GetHeader(chain.Height())
		if err != nil {
			t.Fatalf("get_header: %v", err)
		}
		block, err := core.NewBlock(header, nil)
		if err != nil {
			t.Fatalf("new block: %v", err)
		}
		if err := block.Sign(priv); err != nil {
			t.Fatalf("sign: %v", err)
		}
		if err := chain.AddBlock(block); err != nil {
			t.Fatalf("add_block: %v", err)
		}
	}
}

// S6: a node that is behind catches up after exchanging get_status,
// status, get_blocks, and blocks messages with a peer that is ahead.
func TestSyncFromBehind(t *testing.T) {
	xTransport := transport.NewInProcess("X")
	yTransport := transport.NewInProcess("Y")
	if err := xTransport.Connect(yTransport); err != nil {
		t.Fatalf("connect x->y: %v", err)
	}
	if err := yTransport.Connect(xTransport); err != nil {
		t.Fatalf("connect y->x: %v", err)
	}

	xChain := newTestChain(t)

	yChain := newTestChain(t)
	mintOnto(t, yChain, 5)

	xProcessor := node.NewProcessor("X", xChain, core.NewMempool(), gossip.NewSender(xTransport))
	yProcessor := node.NewProcessor("Y", yChain, core.NewMempool(), gossip.NewSender(yTransport))

	if err := xProcessor.Dispatch(yTransport.Addr(), node.GetStatusMessage()); err != nil {
		t.Fatalf("x dispatch get_status: %v", err)
	}

	// Y receives get_status, replies with its own status.
	rpc, err := recvWithTimeout(t, yTransport)
	if err != nil {
		t.Fatalf("y recv get_status: %v", err)
	}
	msg, err := node.DecodeMessage(rpc.Data)
	if err != nil {
		t.Fatalf("y decode: %v", err)
	}
	if err := yProcessor.Dispatch(rpc.From, msg); err != nil {
		t.Fatalf("y dispatch get_status: %v", err)
	}

	// X receives Y's status, realizes it is behind, requests the range.
	rpc, err = recvWithTimeout(t, xTransport)
	if err != nil {
		t.Fatalf("x recv status: %v", err)
	}
	msg, err = node.DecodeMessage(rpc.Data)
	if err != nil {
		t.Fatalf("x decode: %v", err)
	}
	if msg.Type != node.MsgStatus || msg.Status.Height != 5 {
		t.Fatalf("want status height 5, got %+v", msg)
	}
	if err := xProcessor.Dispatch(rpc.From, msg); err != nil {
		t.Fatalf("x dispatch status: %v", err)
	}

	// Y receives the get_blocks request, replies with the range.
	rpc, err = recvWithTimeout(t, yTransport)
	if err != nil {
		t.Fatalf("y recv get_blocks: %v", err)
	}
	msg, err = node.DecodeMessage(rpc.Data)
	if err != nil {
		t.Fatalf("y decode: %v", err)
	}
	if msg.Type != node.MsgGetBlocks {
		t.Fatalf("want get_blocks, got %+v", msg)
	}
	if err := yProcessor.Dispatch(rpc.From, msg); err != nil {
		t.Fatalf("y dispatch get_blocks: %v", err)
	}

	// X receives the blocks batch and applies it, catching up to height 5.
	rpc, err = recvWithTimeout(t, xTransport)
	if err != nil {
		t.Fatalf("x recv blocks: %v", err)
	}
	msg, err = node.DecodeMessage(rpc.Data)
	if err != nil {
		t.Fatalf("x decode: %v", err)
	}
	if msg.Type != node.MsgBlocks {
		t.Fatalf("want blocks, got %+v", msg)
	}
	if err := xProcessor.Dispatch(rpc.From, msg); err != nil {
		t.Fatalf("x dispatch blocks: %v", err)
	}

	if xChain.Height() != 5 {
		t.Fatalf("want x caught up to height 5, got %d", xChain.Height())
	}
}
