package node

import (
	"context"
	"log"

	"github.com/coreledger/poachain/core"
	"github.com/coreledger/poachain/gossip"
	"github.com/coreledger/poachain/transport"
)

// Validator is the narrow surface Node needs from the validator loop: run
// it until ctx is cancelled. Defined here (rather than importing the
// validator package) to avoid a dependency cycle, since validator itself
// depends on node's message constructors.
type Validator interface {
	Run(ctx context.Context)
}

// Node owns a transport handle, the chain, the mempool, an optional
// validator, a gossip sender, a message processor, and drives the listen
// loop against the transport's inbound mailbox.
type Node struct {
	ID        string
	Transport transport.Transport
	Chain     *core.Chain
	Mempool   *core.Mempool
	Sender    *gossip.Sender
	Processor *Processor
	Validator Validator // nil if this node does not mint blocks
}

// New builds a Node. If validator is non-nil it is spawned by Start.
func New(id string, t transport.Transport, chain *core.Chain, mempool *core.Mempool, validator Validator) *Node {
	sender := gossip.NewSender(t)
	return &Node{
		ID:        id,
		Transport: t,
		Chain:     chain,
		Mempool:   mempool,
		Sender:    sender,
		Processor: NewProcessor(id, chain, mempool, sender),
		Validator: validator,
	}
}

// Start runs the node's fixed startup sequence and then the listen loop.
// It blocks until ctx is cancelled; call it from its own goroutine.
func (n *Node) Start(ctx context.Context) {
	if n.Validator != nil {
		go n.Validator.Run(ctx)
	}
	n.Sender.BroadcastThreaded(GetStatusMessage())
	n.listen(ctx)
}

// listen cooperatively awaits the next RPC, decodes it, and dispatches it
// to the processor. Decode or processing errors are logged and the loop
// continues; a misbehaving peer cannot stop it.
func (n *Node) listen(ctx context.Context) {
	for {
		rpc, err := n.Transport.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[node %s] recv: %v", n.ID, err)
			continue
		}
		msg, err := DecodeMessage(rpc.Data)
		if err != nil {
			log.Printf("[node %s] decode from %s: %v", n.ID, rpc.From, err)
			continue
		}
		if err := n.Processor.Dispatch(rpc.From, msg); err != nil {
			log.Printf("[node %s] dispatch %s from %s: %v", n.ID, msg.Type, rpc.From, err)
		}
	}
}
