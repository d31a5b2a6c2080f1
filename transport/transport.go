// Package transport provides the point-to-point and broadcast delivery
// surface nodes gossip over. Two implementations satisfy the same
// interface: an in-process transport for tests and single-machine
// networks, and a TCP transport for real sockets.
package transport

import (
	"context"
	"fmt"
)

// NetAddr identifies a transport endpoint.
type NetAddr string

func (a NetAddr) String() string { return string(a) }

// RPC is a single inbound message: the raw encoded bytes plus the address
// that sent them.
type RPC struct {
	From NetAddr
	Data []byte
}

// Transport is the abstract peer-to-peer surface the gossip sender and
// node runtime depend on.
type Transport interface {
	// Addr returns this transport's own address.
	Addr() NetAddr
	// Connect registers other as a peer of this transport. The in-process
	// transport records the link on this side only, so each side calls
	// Connect, and it rejects connecting to itself or to an already-known
	// peer. The TCP transport dials other's address and the remote side
	// registers the dialer when it accepts; a repeated Connect to the same
	// address replaces the earlier connection.
	Connect(other Transport) error
	// Send delivers data to exactly one peer.
	Send(to NetAddr, data []byte) error
	// Broadcast delivers data to every currently known peer.
	Broadcast(data []byte) error
	// Recv blocks until the next inbound RPC arrives or ctx is done.
	Recv(ctx context.Context) (RPC, error)
}

// addrOnly is a Transport that carries nothing but an address. Connect
// implementations only read other.Addr(); this lets a caller name a
// remote peer to dial without constructing a full local transport for it.
type addrOnly NetAddr

func (a addrOnly) Addr() NetAddr                          { return NetAddr(a) }
func (a addrOnly) Connect(Transport) error                { return fmt.Errorf("transport: %s is not a connectable transport", NetAddr(a)) }
func (a addrOnly) Send(NetAddr, []byte) error              { return fmt.Errorf("transport: %s is not a connectable transport", NetAddr(a)) }
func (a addrOnly) Broadcast([]byte) error                  { return fmt.Errorf("transport: %s is not a connectable transport", NetAddr(a)) }
func (a addrOnly) Recv(context.Context) (RPC, error)       { return RPC{}, fmt.Errorf("transport: %s is not a connectable transport", NetAddr(a)) }

// PeerAddr returns a Transport whose only valid use is as the argument to
// another Transport's Connect, to name a remote peer by address alone.
func PeerAddr(addr NetAddr) Transport { return addrOnly(addr) }

// TransportPeerMissingError is returned by Send when to does not name a
// known peer.
type TransportPeerMissingError struct {
	Addr NetAddr
}

func (e *TransportPeerMissingError) Error() string {
	return fmt.Sprintf("transport: no peer at address %s", e.Addr)
}
