package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultMailboxCapacity is the bounded mailbox size a fresh InProcess
// transport is given — within the 100-1024 range every long-lived loop's
// mailbox is required to stay in.
const DefaultMailboxCapacity = 1024

// mailboxPeer is implemented by transports that can be delivered to
// directly, in-process, without going over a socket.
type mailboxPeer interface {
	deliver(rpc RPC) error
}

// InProcess is the reference transport: peers are wired together directly
// in memory, and delivery is a channel send into the recipient's bounded
// mailbox. It is the transport used by tests and by single-process
// multi-node setups.
type InProcess struct {
	addr    NetAddr
	mailbox chan RPC

	mu    sync.RWMutex
	peers map[NetAddr]Transport
}

// NewInProcess returns an InProcess transport at addr with the default
// mailbox capacity.
func NewInProcess(addr NetAddr) *InProcess {
	return NewInProcessWithCapacity(addr, DefaultMailboxCapacity)
}

// NewInProcessWithCapacity returns an InProcess transport with a
// caller-chosen mailbox capacity.
func NewInProcessWithCapacity(addr NetAddr, capacity int) *InProcess {
	return &InProcess{
		addr:    addr,
		mailbox: make(chan RPC, capacity),
		peers:   make(map[NetAddr]Transport),
	}
}

func (t *InProcess) Addr() NetAddr { return t.addr }

// Connect registers other as a peer. Connecting to self or to an
// already-known peer is an error.
func (t *InProcess) Connect(other Transport) error {
	if other.Addr() == t.addr {
		return fmt.Errorf("transport: %s cannot connect to itself", t.addr)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.peers[other.Addr()]; exists {
		return fmt.Errorf("transport: %s already connected to %s", t.addr, other.Addr())
	}
	t.peers[other.Addr()] = other
	return nil
}

// Send delivers data directly into to's mailbox, tagged as coming from
// this transport's address. It blocks if the recipient's mailbox is full,
// exactly the backpressure the mailbox model calls for.
func (t *InProcess) Send(to NetAddr, data []byte) error {
	t.mu.RLock()
	peer, ok := t.peers[to]
	t.mu.RUnlock()
	if !ok {
		return &TransportPeerMissingError{Addr: to}
	}
	mp, ok := peer.(mailboxPeer)
	if !ok {
		return fmt.Errorf("transport: peer %s does not accept in-process delivery", to)
	}
	return mp.deliver(RPC{From: t.addr, Data: data})
}

// Broadcast sends data to every currently known peer, collecting and
// joining any per-peer errors rather than aborting on the first failure.
func (t *InProcess) Broadcast(data []byte) error {
	t.mu.RLock()
	addrs := make([]NetAddr, 0, len(t.peers))
	for addr := range t.peers {
		addrs = append(addrs, addr)
	}
	t.mu.RUnlock()

	var errs []error
	for _, addr := range addrs {
		if err := t.Send(addr, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recv blocks until the next inbound RPC arrives or ctx is done.
func (t *InProcess) Recv(ctx context.Context) (RPC, error) {
	select {
	case rpc := <-t.mailbox:
		return rpc, nil
	case <-ctx.Done():
		return RPC{}, ctx.Err()
	}
}

func (t *InProcess) deliver(rpc RPC) error {
	t.mailbox <- rpc
	return nil
}

var _ Transport = (*InProcess)(nil)
