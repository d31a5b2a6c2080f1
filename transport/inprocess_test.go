package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInProcessConnectAndSend(t *testing.T) {
	a := NewInProcess("A")
	b := NewInProcess("B")

	if err := a.Connect(b); err != nil {
		t.Fatalf("a.Connect(b): %v", err)
	}
	if err := b.Connect(a); err != nil {
		t.Fatalf("b.Connect(a): %v", err)
	}

	if err := a.Send("B", []byte("hello")); err != nil {
		t.Fatalf("send: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rpc, err := b.Recv(ctx)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if rpc.From != "A" || string(rpc.Data) != "hello" {
		t.Fatalf("unexpected rpc: %+v", rpc)
	}
}

func TestInProcessSendToUnknownPeer(t *testing.T) {
	a := NewInProcess("A")
	err := a.Send("ghost", []byte("x"))
	if err == nil {
		t.Fatal("expected error sending to unknown peer")
	}
	var missing *TransportPeerMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *TransportPeerMissingError, got %T: %v", err, err)
	}
}

func TestInProcessConnectSelf(t *testing.T) {
	a := NewInProcess("A")
	if err := a.Connect(a); err == nil {
		t.Fatal("expected error connecting to self")
	}
}

func TestInProcessBroadcast(t *testing.T) {
	a := NewInProcess("A")
	b := NewInProcess("B")
	c := NewInProcess("C")

	_ = a.Connect(b)
	_ = a.Connect(c)

	if err := a.Broadcast([]byte("hi")); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := b.Recv(ctx); err != nil {
		t.Fatalf("b recv: %v", err)
	}
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if _, err := c.Recv(ctx2); err != nil {
		t.Fatalf("c recv: %v", err)
	}
}
