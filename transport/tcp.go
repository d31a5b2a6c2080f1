package transport

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"
)

// maxFrameSize caps a single length-prefixed frame, guarding against a
// corrupt or hostile length prefix forcing an enormous allocation.
const maxFrameSize = 32 * 1024 * 1024

// readTimeout bounds how long a read waits before the connection is
// considered stalled.
const readTimeout = 30 * time.Second

// TCP is a real-socket transport: length-prefixed frames over plain TCP or,
// when a tls.Config is supplied, mutual TLS.
type TCP struct {
	addr      NetAddr
	tlsConfig *tls.Config
	mailbox   chan RPC

	mu    sync.RWMutex
	peers map[NetAddr]net.Conn

	listener net.Listener
	stopCh   chan struct{}
}

// NewTCP returns a TCP transport that will listen on addr (host:port).
// Pass a non-nil tlsConfig to require mutual TLS on both accept and dial.
func NewTCP(addr NetAddr, tlsConfig *tls.Config) *TCP {
	return &TCP{
		addr:      addr,
		tlsConfig: tlsConfig,
		mailbox:   make(chan RPC, DefaultMailboxCapacity),
		peers:     make(map[NetAddr]net.Conn),
		stopCh:    make(chan struct{}),
	}
}

// Listen starts accepting connections in the background. Call it once
// before Connect/Send/Recv are used against remote peers.
func (t *TCP) Listen() error {
	var ln net.Listener
	var err error
	if t.tlsConfig != nil {
		ln, err = tls.Listen("tcp", string(t.addr), t.tlsConfig)
	} else {
		ln, err = net.Listen("tcp", string(t.addr))
	}
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", t.addr, err)
	}
	t.listener = ln
	go t.acceptLoop()
	return nil
}

// Close stops accepting connections and closes every peer socket.
func (t *TCP) Close() error {
	close(t.stopCh)
	if t.listener != nil {
		_ = t.listener.Close()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, conn := range t.peers {
		_ = conn.Close()
	}
	return nil
}

func (t *TCP) Addr() NetAddr { return t.addr }

// Connect dials other's advertised address, performs the address
// handshake, and registers the resulting connection as a peer.
func (t *TCP) Connect(other Transport) error {
	addr := other.Addr()
	if addr == t.addr {
		return fmt.Errorf("transport: %s cannot connect to itself", t.addr)
	}

	var conn net.Conn
	var err error
	if t.tlsConfig != nil {
		conn, err = tls.Dial("tcp", string(addr), t.tlsConfig)
	} else {
		conn, err = net.Dial("tcp", string(addr))
	}
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	if err := writeFrame(conn, []byte(t.addr)); err != nil {
		_ = conn.Close()
		return fmt.Errorf("transport: handshake with %s: %w", addr, err)
	}

	t.mu.Lock()
	t.peers[addr] = conn
	t.mu.Unlock()

	go t.readLoop(addr, conn)
	return nil
}

// Send writes data, framed, to the peer named by to.
func (t *TCP) Send(to NetAddr, data []byte) error {
	t.mu.RLock()
	conn, ok := t.peers[to]
	t.mu.RUnlock()
	if !ok {
		return &TransportPeerMissingError{Addr: to}
	}
	return writeFrame(conn, data)
}

// Broadcast writes data to every currently known peer.
func (t *TCP) Broadcast(data []byte) error {
	t.mu.RLock()
	addrs := make([]NetAddr, 0, len(t.peers))
	for addr := range t.peers {
		addrs = append(addrs, addr)
	}
	t.mu.RUnlock()

	for _, addr := range addrs {
		if err := t.Send(addr, data); err != nil {
			log.Printf("[transport] broadcast to %s: %v", addr, err)
		}
	}
	return nil
}

// Recv blocks until the next inbound RPC arrives or ctx is done.
func (t *TCP) Recv(ctx context.Context) (RPC, error) {
	select {
	case rpc := <-t.mailbox:
		return rpc, nil
	case <-ctx.Done():
		return RPC{}, ctx.Err()
	}
}

func (t *TCP) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.stopCh:
				return
			default:
				log.Printf("[transport] accept error: %v", err)
				time.Sleep(100 * time.Millisecond)
				continue
			}
		}
		go t.handleAccepted(conn)
	}
}

func (t *TCP) handleAccepted(conn net.Conn) {
	raw, err := readFrame(conn)
	if err != nil {
		log.Printf("[transport] handshake read from %s: %v", conn.RemoteAddr(), err)
		_ = conn.Close()
		return
	}
	addr := NetAddr(raw)

	t.mu.Lock()
	t.peers[addr] = conn
	t.mu.Unlock()

	t.readLoop(addr, conn)
}

func (t *TCP) readLoop(addr NetAddr, conn net.Conn) {
	defer func() {
		_ = conn.Close()
		t.mu.Lock()
		delete(t.peers, addr)
		t.mu.Unlock()
	}()
	for {
		data, err := readFrame(conn)
		if err != nil {
			return
		}
		t.mailbox <- RPC{From: addr, Data: data}
	}
}

func writeFrame(conn net.Conn, data []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := conn.Write(header[:]); err != nil {
		return err
	}
	_, err := conn.Write(data)
	return err
}

func readFrame(conn net.Conn) ([]byte, error) {
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	var header [4]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > maxFrameSize {
		return nil, fmt.Errorf("transport: frame too large: %d bytes", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

var _ Transport = (*TCP)(nil)
