package transport_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/tonvanhoang/BE/pkg/transport"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

// fakeSocket implements transport.Socket in memory: inbound frames are fed
// through the reads channel, outbound frames captured on writes.
type fakeSocket struct {
	reads     chan []byte
	writes    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		reads:  make(chan []byte, 16),
		writes: make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (f *fakeSocket) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case msg := <-f.reads:
		return websocket.MessageText, msg, nil
	case <-f.closed:
		return 0, nil, io.EOF
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (f *fakeSocket) Write(_ context.Context, _ websocket.MessageType, p []byte) error {
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case f.writes <- cp:
	default:
	}
	return nil
}

func (f *fakeSocket) Ping(context.Context) error { return nil }

func (f *fakeSocket) Close(websocket.StatusCode, string) error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func newRunningConn(t *testing.T, sock *fakeSocket) *transport.Connection {
	t.Helper()
	var wg sync.WaitGroup
	conn := transport.NewConnection(context.Background(), &wg, sock, transport.Config{
		PingInterval: time.Hour,
	}, newTestLogger())
	conn.Run()
	t.Cleanup(func() {
		conn.Close(nil)
		wg.Wait()
	})
	return conn
}

func TestSendReachesSocket(t *testing.T) {
	sock := newFakeSocket()
	conn := newRunningConn(t, sock)

	conn.Send([]byte(`{"event":"ping"}`))

	select {
	case frame := <-sock.writes:
		if string(frame) != `{"event":"ping"}` {
			t.Errorf("unexpected frame: %s", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("frame never reached the socket")
	}
}

func TestInboundFramesDispatchToHandler(t *testing.T) {
	sock := newFakeSocket()

	received := make(chan []byte, 1)
	var wg sync.WaitGroup
	conn := transport.NewConnection(context.Background(), &wg, sock, transport.Config{PingInterval: time.Hour}, newTestLogger())
	conn.SetOnMessageHandler(func(_ context.Context, connID uuid.UUID, msg []byte) {
		if connID != conn.ID() {
			t.Errorf("handler saw wrong connection id: %s", connID)
		}
		received <- msg
	})
	conn.Run()
	t.Cleanup(func() {
		conn.Close(nil)
		wg.Wait()
	})

	sock.reads <- []byte(`{"event":"typing"}`)

	select {
	case msg := <-received:
		if string(msg) != `{"event":"typing"}` {
			t.Errorf("unexpected message: %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message handler never ran")
	}
}

func TestCloseFiresOnCloseExactlyOnce(t *testing.T) {
	sock := newFakeSocket()

	closes := make(chan uuid.UUID, 4)
	var wg sync.WaitGroup
	conn := transport.NewConnection(context.Background(), &wg, sock, transport.Config{PingInterval: time.Hour}, newTestLogger())
	conn.SetOnCloseHandler(func(connID uuid.UUID, _ error) {
		closes <- connID
	})
	conn.Run()

	conn.Close(nil)
	conn.Close(nil) // second close must be a no-op
	<-conn.Done()
	wg.Wait()

	select {
	case connID := <-closes:
		if connID != conn.ID() {
			t.Errorf("close handler saw wrong connection id: %s", connID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("close handler never ran")
	}
	select {
	case <-closes:
		t.Fatal("close handler ran twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPeerDisconnectTearsDownConnection(t *testing.T) {
	sock := newFakeSocket()

	closed := make(chan struct{})
	var wg sync.WaitGroup
	conn := transport.NewConnection(context.Background(), &wg, sock, transport.Config{PingInterval: time.Hour}, newTestLogger())
	conn.SetOnCloseHandler(func(uuid.UUID, error) { close(closed) })
	conn.Run()

	// simulate the peer going away
	sock.Close(websocket.StatusNormalClosure, "")

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not tear down after peer disconnect")
	}
	<-conn.Done()
	wg.Wait()
}
