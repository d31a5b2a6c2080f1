// Package node wires together the chain, mempool, transport, and gossip
// sender into a running node: the message processor dispatch table and
// the listen loop that drives it.
package node

import (
	"encoding/json"
	"fmt"

	"github.com/coreledger/poachain/core"
)

// MessageType tags which field of Message is populated.
type MessageType string

const (
	MsgTransaction MessageType = "transaction"
	MsgBlock       MessageType = "block"
	MsgText        MessageType = "text"
	MsgGetStatus   MessageType = "get_status"
	MsgStatus      MessageType = "status"
	MsgGetBlocks   MessageType = "get_blocks"
	MsgBlocks      MessageType = "blocks"
)

// Status reports a peer's chain height for sync negotiation.
type Status struct {
	ID     string `json:"id"`
	Height uint32 `json:"height"`
}

// BlockRange is an inclusive-exclusive height range: [Start, End).
type BlockRange struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// Message is the seven-member tagged union carried over the wire. At most
// one field other than Type is populated, chosen by Type (a get_status
// message carries none).
type Message struct {
	Type        MessageType      `json:"type"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Block       *core.Block       `json:"block,omitempty"`
	Text        string            `json:"text,omitempty"`
	Status      *Status           `json:"status,omitempty"`
	Range       *BlockRange       `json:"range,omitempty"`
	Blocks      []*core.Block     `json:"blocks,omitempty"`
}

func TransactionMessage(tx *core.Transaction) Message {
	return Message{Type: MsgTransaction, Transaction: tx}
}

func BlockMessage(b *core.Block) Message {
	return Message{Type: MsgBlock, Block: b}
}

func TextMessage(s string) Message {
	return Message{Type: MsgText, Text: s}
}

func GetStatusMessage() Message {
	return Message{Type: MsgGetStatus}
}

func StatusMessage(id string, height uint32) Message {
	return Message{Type: MsgStatus, Status: &Status{ID: id, Height: height}}
}

func GetBlocksMessage(start, end uint32) Message {
	return Message{Type: MsgGetBlocks, Range: &BlockRange{Start: start, End: end}}
}

func BlocksMessage(blocks []*core.Block) Message {
	return Message{Type: MsgBlocks, Blocks: blocks}
}

// DecodeMessage parses a wire-encoded message.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}
