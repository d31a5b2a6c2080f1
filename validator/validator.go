// Package validator implements the block-production loop: the single
// pre-configured validator key mints every block on a fixed cadence.
package validator

import (
	"context"
	"log"
	"time"

	"github.com/coreledger/poachain/core"
	"github.com/coreledger/poachain/crypto"
	"github.com/coreledger/poachain/gossip"
	"github.com/coreledger/poachain/node"
)

// Validator mints blocks on a timer, bound to a single signing key and the
// chain/mempool/sender it shares with the rest of the node.
type Validator struct {
	key         crypto.PrivateKey
	blockPeriod time.Duration
	chain       *core.Chain
	mempool     *core.Mempool
	sender      *gossip.Sender
}

// New returns a Validator that mints a block every blockPeriod.
func New(key crypto.PrivateKey, blockPeriod time.Duration, chain *core.Chain, mempool *core.Mempool, sender *gossip.Sender) *Validator {
	return &Validator{
		key:         key,
		blockPeriod: blockPeriod,
		chain:       chain,
		mempool:     mempool,
		sender:      sender,
	}
}

// Run mints blocks forever until ctx is cancelled. Missing a deadline
// (slow execution, a stalled broadcast) delays subsequent rounds; rounds
// are never made up.
func (v *Validator) Run(ctx context.Context) {
	ticker := time.NewTicker(v.blockPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := v.mintRound(); err != nil {
				log.Printf("[validator] round failed: %v", err)
			}
		}
	}
}

// mintRound runs one iteration of the 8-step loop: read the tip, drain
// pending transactions, build and sign a block, self-validate it through
// the chain keeper, clear the drained transactions, and broadcast.
func (v *Validator) mintRound() error {
	height := v.chain.Height()
	prev, err := v.chain.GetHeader(height)
	if err != nil {
		return err
	}

	txs, err := v.mempool.Pending()
	if err != nil {
		return err
	}

	block, err := core.NewBlock(prev, txs)
	if err != nil {
		return err
	}

	if err := block.Sign(v.key); err != nil {
		return err
	}

	if err := v.chain.AddBlock(block); err != nil {
		return err
	}

	v.mempool.ClearPending()
	v.sender.BroadcastThreaded(node.BlockMessage(block))
	return nil
}
