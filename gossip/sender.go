// Package gossip implements the thin fan-out layer over a transport: a
// Sender that encodes a message once and hands it to the transport's
// point-to-point send or broadcast.
package gossip

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/coreledger/poachain/transport"
)

// Sender fans messages out over a transport. Each *Threaded variant spawns
// a background goroutine so the caller — typically a node's listen loop —
// never blocks on the transport.
type Sender struct {
	transport transport.Transport
}

// NewSender returns a Sender over t.
func NewSender(t transport.Transport) *Sender {
	return &Sender{transport: t}
}

// Send encodes v as JSON and sends it to exactly one peer.
func (s *Sender) Send(to transport.NetAddr, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("gossip: encode: %w", err)
	}
	return s.transport.Send(to, data)
}

// Broadcast encodes v as JSON once and fans it out to every known peer.
func (s *Sender) Broadcast(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("gossip: encode: %w", err)
	}
	return s.transport.Broadcast(data)
}

// SendThreaded spawns a goroutine that sends v to to, logging any error
// rather than returning it.
func (s *Sender) SendThreaded(to transport.NetAddr, v any) {
	go func() {
		if err := s.Send(to, v); err != nil {
			log.Printf("[gossip] send to %s: %v", to, err)
		}
	}()
}

// BroadcastThreaded spawns a goroutine that broadcasts v, logging any
// error rather than returning it.
func (s *Sender) BroadcastThreaded(v any) {
	go func() {
		if err := s.Broadcast(v); err != nil {
			log.Printf("[gossip] broadcast: %v", err)
		}
	}()
}
