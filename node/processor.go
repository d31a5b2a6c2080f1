package node

import (
	"errors"
	"log"

	"github.com/coreledger/poachain/core"
	"github.com/coreledger/poachain/gossip"
	"github.com/coreledger/poachain/transport"
)

// Processor implements the node's message dispatch table: what happens to
// each of the seven wire message types once decoded.
type Processor struct {
	NodeID  string
	Chain   *core.Chain
	Mempool *core.Mempool
	Sender  *gossip.Sender
}

// NewProcessor returns a Processor bound to the given components.
func NewProcessor(nodeID string, chain *core.Chain, mempool *core.Mempool, sender *gossip.Sender) *Processor {
	return &Processor{NodeID: nodeID, Chain: chain, Mempool: mempool, Sender: sender}
}

// Dispatch routes a decoded message from rpc.From to the matching handler.
func (p *Processor) Dispatch(from transport.NetAddr, msg Message) error {
	switch msg.Type {
	case MsgTransaction:
		return p.handleTransaction(msg.Transaction)
	case MsgBlock:
		return p.handleBlock(msg.Block)
	case MsgText:
		log.Printf("[node] text from %s: %s", from, msg.Text)
		return nil
	case MsgGetStatus:
		return p.handleGetStatus(from)
	case MsgStatus:
		return p.handleStatus(from, msg.Status)
	case MsgGetBlocks:
		return p.handleGetBlocks(from, msg.Range)
	case MsgBlocks:
		p.handleBlocks(msg.Blocks)
		return nil
	default:
		return errors.New("node: unknown message type " + string(msg.Type))
	}
}

func (p *Processor) handleTransaction(tx *core.Transaction) error {
	if tx == nil {
		return errors.New("node: nil transaction payload")
	}
	h := tx.Hash()
	if p.Mempool.HasTx(h) {
		return nil
	}
	tx.MarkFirstSeen()
	if err := tx.Verify(); err != nil {
		return err
	}
	if err := p.Mempool.AddTx(tx); err != nil {
		return err
	}
	p.Sender.BroadcastThreaded(TransactionMessage(tx))
	return nil
}

func (p *Processor) handleBlock(b *core.Block) error {
	if b == nil {
		return errors.New("node: nil block payload")
	}
	h, _ := b.Hash()
	if err := p.Chain.AddBlock(b); err != nil {
		var dup *core.BlockAlreadyExistsError
		if errors.As(err, &dup) {
			return nil
		}
		return err
	}
	log.Printf("[node] added block %s at height %d", h, b.Header.Height)
	p.Sender.BroadcastThreaded(BlockMessage(b))
	return nil
}

func (p *Processor) handleGetStatus(from transport.NetAddr) error {
	status := StatusMessage(p.NodeID, p.Chain.Height())
	return p.Sender.Send(from, status)
}

func (p *Processor) handleStatus(from transport.NetAddr, s *Status) error {
	if s == nil {
		return errors.New("node: nil status payload")
	}
	height := p.Chain.Height()
	if s.Height > height {
		return p.Sender.Send(from, GetBlocksMessage(height, s.Height+1))
	}
	return nil
}

func (p *Processor) handleGetBlocks(from transport.NetAddr, r *BlockRange) error {
	if r == nil {
		return errors.New("node: nil range payload")
	}
	blocks, err := p.Chain.GetBlocks(r.Start, r.End)
	if err != nil {
		return err
	}
	return p.Sender.Send(from, BlocksMessage(blocks))
}

// handleBlocks applies a batch of synced blocks in order. Errors other
// than BlockAlreadyExists are logged and do not abort the remainder of
// the batch.
func (p *Processor) handleBlocks(blocks []*core.Block) {
	for _, b := range blocks {
		if err := p.Chain.AddBlock(b); err != nil {
			var dup *core.BlockAlreadyExistsError
			if errors.As(err, &dup) {
				continue
			}
			log.Printf("[node] sync add_block at height %d failed: %v", b.Header.Height, err)
		}
	}
}
