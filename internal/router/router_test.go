package router_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/tonvanhoang/BE/internal/hub"
	"github.com/tonvanhoang/BE/internal/router"
	"github.com/tonvanhoang/BE/pkg/state"
	"github.com/tonvanhoang/BE/pkg/state/statemanager"
	"github.com/tonvanhoang/BE/pkg/transport"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

type fakeSocket struct {
	writes    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{writes: make(chan []byte, 64), closed: make(chan struct{})}
}

func (f *fakeSocket) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
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

type env struct {
	sm *statemanager.InMemoryManager
	h  *hub.Hub
	r  *router.EventRouter
	wg sync.WaitGroup
}

func newEnv() *env {
	logger := newTestLogger()
	sm := statemanager.NewInMemoryManager(logger)
	h := hub.New(logger, sm)
	return &env{sm: sm, h: h, r: router.New(logger, sm, h)}
}

func (e *env) dial(t *testing.T) (*transport.Connection, *fakeSocket) {
	t.Helper()
	sock := newFakeSocket()
	conn := transport.NewConnection(context.Background(), &e.wg, sock, transport.Config{PingInterval: time.Hour}, newTestLogger())
	if _, err := e.sm.RegisterConnection(conn); err != nil {
		t.Fatalf("RegisterConnection failed: %v", err)
	}
	conn.SetOnMessageHandler(e.r.HandleMessage)
	conn.SetOnCloseHandler(e.r.HandleClose)
	conn.Run()
	t.Cleanup(func() { conn.Close(nil) })
	return conn, sock
}

// emit short-circuits the read pump: it feeds one inbound frame straight to
// the router on behalf of conn.
func (e *env) emit(conn *transport.Connection, event, payload string) {
	frame := `{"event":"` + event + `","payload":` + payload + `}`
	e.r.HandleMessage(context.Background(), conn.ID(), []byte(frame))
}

func expectEvent(t *testing.T, sock *fakeSocket, event string) json.RawMessage {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-sock.writes:
			raw := struct {
				Event   string          `json:"event"`
				Payload json.RawMessage `json:"payload"`
			}{}
			if err := json.Unmarshal(frame, &raw); err != nil {
				t.Fatalf("malformed outbound frame %s: %v", frame, err)
			}
			if raw.Event == event {
				return raw.Payload
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event %q", event)
		}
	}
}

func expectSilence(t *testing.T, sock *fakeSocket) {
	t.Helper()
	select {
	case frame := <-sock.writes:
		t.Fatalf("expected no delivery, got frame %s", frame)
	case <-time.After(150 * time.Millisecond):
	}
}

func drain(sock *fakeSocket) {
	time.Sleep(50 * time.Millisecond)
	for {
		select {
		case <-sock.writes:
		default:
			return
		}
	}
}

func TestIdentityAnnouncementBareStringAndObject(t *testing.T) {
	e := newEnv()
	c1, _ := e.dial(t)
	c2, _ := e.dial(t)

	e.emit(c1, "user_connected", `"alice"`)
	e.emit(c2, "user_connected", `{"userId":"bob"}`)

	if _, ok := e.sm.Lookup("alice"); !ok {
		t.Error("bare string identity announcement did not register alice")
	}
	if _, ok := e.sm.Lookup("bob"); !ok {
		t.Error("object identity announcement did not register bob")
	}
}

func TestMessageFanOutWithTargetedNotification(t *testing.T) {
	e := newEnv()
	c1, sock1 := e.dial(t)
	c2, sock2 := e.dial(t)
	_, sock3 := e.dial(t)

	e.emit(c1, "user_connected", `"u1"`)
	e.emit(c2, "user_connected", `"u2"`)
	e.emit(c1, "join_conversation", `"c12"`)
	// u2 is online but deliberately NOT in the conversation room
	drain(sock1)
	drain(sock2)
	drain(sock3)

	e.emit(c1, "send_message", `{"conversationId":"c12","senderId":"u1","receiverId":"u2","content":"hey"}`)

	payload := expectEvent(t, sock2, hub.EventNewMessageNotification)
	notif := struct {
		ConversationID string `json:"conversationId"`
		SenderID       string `json:"senderId"`
		Content        string `json:"content"`
	}{}
	if err := json.Unmarshal(payload, &notif); err != nil {
		t.Fatalf("bad notification payload: %v", err)
	}
	if notif.SenderID != "u1" || notif.Content != "hey" {
		t.Errorf("unexpected notification payload: %+v", notif)
	}

	// the sender is excluded and the bystander gets nothing at all
	expectSilence(t, sock1)
	expectSilence(t, sock3)
}

func TestMessageDeliveredToRoomNotNotifiedTwice(t *testing.T) {
	e := newEnv()
	c1, sock1 := e.dial(t)
	c2, sock2 := e.dial(t)

	e.emit(c1, "user_connected", `"u1"`)
	e.emit(c2, "user_connected", `"u2"`)
	e.emit(c1, "join_conversation", `"c12"`)
	e.emit(c2, "join_conversation", `"c12"`)
	drain(sock1)
	drain(sock2)

	e.emit(c1, "send_message", `{"conversationId":"c12","senderId":"u1","receiverId":"u2","content":"hey"}`)

	expectEvent(t, sock2, hub.EventReceiveMessage)
	// receiver was in the room, so no extra targeted notification
	expectSilence(t, sock2)
	expectSilence(t, sock1)
}

func TestTypingTargetsOnlyReceiver(t *testing.T) {
	e := newEnv()
	c1, sock1 := e.dial(t)
	c2, sock2 := e.dial(t)
	_, sock3 := e.dial(t)

	e.emit(c1, "user_connected", `"u1"`)
	e.emit(c2, "user_connected", `"u2"`)
	drain(sock1)
	drain(sock2)
	drain(sock3)

	e.emit(c1, "typing", `{"senderId":"u1","receiverId":"u2"}`)

	payload := expectEvent(t, sock2, hub.EventUserTyping)
	typing := struct {
		SenderID string `json:"senderId"`
		IsTyping bool   `json:"isTyping"`
	}{}
	if err := json.Unmarshal(payload, &typing); err != nil {
		t.Fatalf("bad user_typing payload: %v", err)
	}
	if typing.SenderID != "u1" || !typing.IsTyping {
		t.Errorf("unexpected user_typing payload: %+v", typing)
	}
	expectSilence(t, sock3)

	e.emit(c1, "stop_typing", `{"senderId":"u1","receiverId":"u2"}`)
	payload = expectEvent(t, sock2, hub.EventUserTyping)
	if err := json.Unmarshal(payload, &typing); err != nil {
		t.Fatalf("bad user_typing payload: %v", err)
	}
	if typing.IsTyping {
		t.Error("stop_typing delivered isTyping=true")
	}
}

func TestTypingToOfflineReceiverIsSilentlyDropped(t *testing.T) {
	e := newEnv()
	c1, sock1 := e.dial(t)

	e.emit(c1, "user_connected", `"u1"`)
	drain(sock1)

	e.emit(c1, "typing", `{"senderId":"u1","receiverId":"ghost"}`)
	expectSilence(t, sock1)
}

func TestDeleteMessageReachesWholeRoom(t *testing.T) {
	e := newEnv()
	c1, sock1 := e.dial(t)
	c2, sock2 := e.dial(t)

	e.emit(c1, "join_conversation", `"c12"`)
	e.emit(c2, "join_conversation", `"c12"`)
	drain(sock1)
	drain(sock2)

	e.emit(c1, "delete_message", `{"conversationId":"c12","messageId":"m1"}`)

	// unscoped: the deleter sees it too
	expectEvent(t, sock1, hub.EventMessageDeleted)
	expectEvent(t, sock2, hub.EventMessageDeleted)
}

func TestReelCommentEchoExcludesSenderAndStaysInRoom(t *testing.T) {
	e := newEnv()
	c1, sock1 := e.dial(t)
	c2, sock2 := e.dial(t)
	c3, sock3 := e.dial(t)

	e.emit(c1, "joinReel", `"r1"`)
	e.emit(c2, "joinReel", `"r1"`)
	// c3 joins the conversation namespace with the same suffix
	e.emit(c3, "join_conversation", `"r1"`)
	drain(sock1)
	drain(sock2)
	drain(sock3)

	e.emit(c1, "new_reel_comment", `{"reelId":"r1","comment":{"text":"nice"}}`)

	expectEvent(t, sock2, hub.EventReelCommentReceived)
	expectSilence(t, sock1)
	expectSilence(t, sock3)
}

func TestLeaveReelStopsDelivery(t *testing.T) {
	e := newEnv()
	c1, sock1 := e.dial(t)
	c2, sock2 := e.dial(t)

	e.emit(c1, "joinReel", `"r1"`)
	e.emit(c2, "joinReel", `"r1"`)
	e.emit(c2, "leaveReel", `"r1"`)
	drain(sock1)
	drain(sock2)

	e.emit(c1, "newComment", `{"reelId":"r1","comment":{"text":"hello"}}`)

	// authoritative created events are unscoped inside the room
	expectEvent(t, sock1, hub.EventNewComment)
	expectSilence(t, sock2)
}

func TestReelLikeUpdateGoesGlobal(t *testing.T) {
	e := newEnv()
	c1, sock1 := e.dial(t)
	_, sock2 := e.dial(t)

	drain(sock1)
	drain(sock2)

	e.emit(c1, "reelLikeUpdate", `{"reelId":"r1","isLiked":true,"totalLikes":3,"userId":"u1"}`)

	// global and unscoped: even the sender receives the authoritative state
	expectEvent(t, sock1, hub.EventReelLikeUpdate)
	payload := expectEvent(t, sock2, hub.EventReelLikeUpdate)
	update := struct {
		ReelID     string `json:"reelId"`
		TotalLikes int    `json:"totalLikes"`
	}{}
	if err := json.Unmarshal(payload, &update); err != nil {
		t.Fatalf("bad reelLikeUpdate payload: %v", err)
	}
	if update.ReelID != "r1" || update.TotalLikes != 3 {
		t.Errorf("unexpected reelLikeUpdate payload: %+v", update)
	}
}

func TestMalformedAndUnknownEventsAreDropped(t *testing.T) {
	e := newEnv()
	c1, sock1 := e.dial(t)
	_, sock2 := e.dial(t)
	drain(sock1)
	drain(sock2)

	e.r.HandleMessage(context.Background(), c1.ID(), []byte(`not json at all`))
	e.emit(c1, "no_such_event", `{}`)
	e.emit(c1, "send_message", `{"senderId":"u1"}`) // missing conversationId

	expectSilence(t, sock1)
	expectSilence(t, sock2)
}

func TestAnonymousConnectionsReceiveRoomTrafficButNoPresence(t *testing.T) {
	e := newEnv()
	c1, sock1 := e.dial(t) // stays anonymous
	c2, sock2 := e.dial(t)

	e.emit(c1, "joinReel", `"r1"`)
	e.emit(c2, "joinReel", `"r1"`)
	drain(sock1)
	drain(sock2)

	if got := len(e.sm.ListOnline()); got != 0 {
		t.Fatalf("anonymous connections leaked into presence: %v", e.sm.ListOnline())
	}

	e.emit(c2, "newComment", `{"reelId":"r1","comment":{"text":"hi"}}`)
	expectEvent(t, sock1, hub.EventNewComment)
}

func TestDisconnectCleansUpAndAnnounces(t *testing.T) {
	e := newEnv()
	c1, _ := e.dial(t)
	_, sock2 := e.dial(t)

	e.emit(c1, "user_connected", `"u1"`)
	e.emit(c1, "joinReel", `"r1"`)
	drain(sock2)

	c1.Close(nil) // transport close runs the router's close handler
	expectEvent(t, sock2, hub.EventUserDisconnected)

	if len(e.sm.RoomMembers(state.ReelRoom("r1"))) != 0 {
		t.Error("room membership survived disconnect")
	}
	if len(e.sm.ListOnline()) != 0 {
		t.Errorf("presence survived disconnect: %v", e.sm.ListOnline())
	}
}
