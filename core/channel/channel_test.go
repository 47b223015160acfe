package channel

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-voice/core/auth"
	"github.com/koscakluka/ema-voice/core/events"
)

type fakeSocketServer struct {
	server      *httptest.Server
	connections atomic.Int32
	tokens      chan string
	conns       chan *fakeSocketConn
}

type fakeSocketConn struct {
	conn     *websocket.Conn
	received chan string
	mu       sync.Mutex
}

func (c *fakeSocketConn) send(t *testing.T, frame string) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("failed to send frame %q: %v", frame, err)
	}
}

func (c *fakeSocketConn) expectFrame(t *testing.T, expected string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame, ok := <-c.received:
			if !ok {
				t.Fatalf("connection closed before receiving %q", expected)
			}
			if frame == expected {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for frame %q", expected)
		}
	}
}

func (c *fakeSocketConn) expectClosed(t *testing.T) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-c.received:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for connection to close")
		}
	}
}

func newFakeSocketServer(t *testing.T) *fakeSocketServer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	s := &fakeSocketServer{
		tokens: make(chan string, 16),
		conns:  make(chan *fakeSocketConn, 16),
	}

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.connections.Add(1)
		s.tokens <- r.URL.Query().Get("token")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := &fakeSocketConn{conn: conn, received: make(chan string, 32)}
		c.mu.Lock()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"engine","pingInterval":25000,"pingTimeout":20000}`))
		c.mu.Unlock()
		s.conns <- c

		defer close(c.received)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == "40" {
				c.mu.Lock()
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"socket"}`))
				c.mu.Unlock()
				continue
			}
			c.received <- string(data)
		}
	}))
	t.Cleanup(s.server.Close)

	return s
}

func (s *fakeSocketServer) nextConn(t *testing.T) *fakeSocketConn {
	t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a connection")
		return nil
	}
}

type eventRecorder struct {
	received chan events.Event
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{received: make(chan events.Event, 32)}
}

func (r *eventRecorder) emit(event events.Event) {
	r.received <- event
}

func (r *eventRecorder) next(t *testing.T) events.Event {
	t.Helper()
	select {
	case event := <-r.received:
		return event
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a channel event")
		return nil
	}
}

func (r *eventRecorder) expectConnected(t *testing.T) {
	t.Helper()
	if event := r.next(t); event.Kind() != events.KindChannelConnected {
		t.Fatalf("expected connected event, got %q", event.Kind())
	}
}

func fastBackOff() backoff.BackOff {
	return &backoff.ConstantBackOff{Interval: 10 * time.Millisecond}
}

func TestConnectDeliversLifecycleAndEvents(t *testing.T) {
	server := newFakeSocketServer(t)
	recorder := newEventRecorder()
	channel := New(WithBackOff(fastBackOff))
	defer channel.Disconnect()

	if err := channel.Connect(server.server.URL, auth.Credential{Server: server.server.URL, Token: "tok"}, recorder.emit); err != nil {
		t.Fatalf("expected connect to start, got %v", err)
	}

	if token := <-server.tokens; token != "tok" {
		t.Fatalf("expected token query parameter %q, got %q", "tok", token)
	}
	conn := server.nextConn(t)
	recorder.expectConnected(t)

	if state := channel.State(); state != StateConnected {
		t.Fatalf("expected connected state, got %q", state)
	}

	conn.send(t, `42["response",{"msg":{"text":"it's noon","url":"https://example.com","url_autolaunch":true,"canRespond":true}}]`)
	event := recorder.next(t)
	response, ok := event.(events.ChannelResponse)
	if !ok {
		t.Fatalf("expected response event, got %T", event)
	}
	if response.Response.Text != "it's noon" || !response.Response.CanRespond || response.Response.Silent {
		t.Fatalf("unexpected response payload %+v", response.Response)
	}
	if response.Response.URL != "https://example.com" || !response.Response.URLAutoLaunch {
		t.Fatalf("expected url fields to be decoded, got %+v", response.Response)
	}

	conn.send(t, `42["response",{"nope":true}]`)
	conn.send(t, `42["set_name"]`)
	conn.send(t, `not a socket frame`)
	conn.send(t, `42["set_name",{"name":"Hal"}]`)

	event = recorder.next(t)
	named, ok := event.(events.ChannelNameAssigned)
	if !ok {
		t.Fatalf("expected malformed frames to be dropped and name event delivered, got %T", event)
	}
	if named.Name != "Hal" {
		t.Fatalf("expected name %q, got %q", "Hal", named.Name)
	}
}

func TestSendTurnEmitsAskEvent(t *testing.T) {
	server := newFakeSocketServer(t)
	recorder := newEventRecorder()
	channel := New(WithBackOff(fastBackOff))
	defer channel.Disconnect()

	_ = channel.Connect(server.server.URL, auth.Credential{Token: "tok"}, recorder.emit)
	conn := server.nextConn(t)
	recorder.expectConnected(t)

	if err := channel.SendTurn(`what "time" is it`); err != nil {
		t.Fatalf("expected send to succeed, got %v", err)
	}

	conn.expectFrame(t, `42["ask",{"text":"what \"time\" is it"}]`)
}

func TestSendTurnWithoutConnection(t *testing.T) {
	channel := New()
	if err := channel.SendTurn("hello"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestConnectSameServerIsNoop(t *testing.T) {
	server := newFakeSocketServer(t)
	recorder := newEventRecorder()
	channel := New(WithBackOff(fastBackOff))
	defer channel.Disconnect()

	credential := auth.Credential{Token: "tok"}
	_ = channel.Connect(server.server.URL, credential, recorder.emit)
	server.nextConn(t)
	recorder.expectConnected(t)

	if err := channel.Connect(server.server.URL, credential, recorder.emit); err != nil {
		t.Fatalf("expected repeated connect to succeed, got %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if got := server.connections.Load(); got != 1 {
		t.Fatalf("expected a single connection, got %d", got)
	}
	if state := channel.State(); state != StateConnected {
		t.Fatalf("expected connection to stay up, got %q", state)
	}
}

func TestConnectDifferentServerTearsDownFirst(t *testing.T) {
	first := newFakeSocketServer(t)
	second := newFakeSocketServer(t)
	recorder := newEventRecorder()
	channel := New(WithBackOff(fastBackOff))
	defer channel.Disconnect()

	_ = channel.Connect(first.server.URL, auth.Credential{Token: "tok"}, recorder.emit)
	firstConn := first.nextConn(t)
	recorder.expectConnected(t)

	_ = channel.Connect(second.server.URL, auth.Credential{Token: "tok"}, recorder.emit)
	firstConn.expectClosed(t)
	second.nextConn(t)
	recorder.expectConnected(t)

	if got := first.connections.Load(); got != 1 {
		t.Fatalf("expected the first server to see one connection, got %d", got)
	}
}

func TestPingIsAnsweredWithPong(t *testing.T) {
	server := newFakeSocketServer(t)
	recorder := newEventRecorder()
	channel := New(WithBackOff(fastBackOff))
	defer channel.Disconnect()

	_ = channel.Connect(server.server.URL, auth.Credential{Token: "tok"}, recorder.emit)
	conn := server.nextConn(t)
	recorder.expectConnected(t)

	conn.send(t, "2")
	conn.expectFrame(t, "3")
}

func TestReconnectsAfterServerDrop(t *testing.T) {
	server := newFakeSocketServer(t)
	recorder := newEventRecorder()
	channel := New(WithBackOff(fastBackOff))
	defer channel.Disconnect()

	_ = channel.Connect(server.server.URL, auth.Credential{Token: "tok"}, recorder.emit)
	conn := server.nextConn(t)
	recorder.expectConnected(t)

	conn.send(t, "41")

	if event := recorder.next(t); event.Kind() != events.KindChannelDisconnected {
		t.Fatalf("expected disconnected event, got %q", event.Kind())
	}
	server.nextConn(t)
	recorder.expectConnected(t)

	if got := server.connections.Load(); got != 2 {
		t.Fatalf("expected a reconnect, got %d connections", got)
	}
}

func TestDisconnectStopsEventsAndIsRepeatable(t *testing.T) {
	server := newFakeSocketServer(t)
	recorder := newEventRecorder()
	channel := New(WithBackOff(fastBackOff))

	_ = channel.Connect(server.server.URL, auth.Credential{Token: "tok"}, recorder.emit)
	conn := server.nextConn(t)
	recorder.expectConnected(t)

	channel.Disconnect()
	channel.Disconnect()

	conn.expectClosed(t)
	if state := channel.State(); state != StateDisconnected {
		t.Fatalf("expected disconnected state, got %q", state)
	}
	if err := channel.SendTurn("hello"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected after disconnect, got %v", err)
	}

	select {
	case event := <-recorder.received:
		t.Fatalf("expected no events after disconnect, got %q", event.Kind())
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConnectRejectsInvalidServer(t *testing.T) {
	channel := New()
	err := channel.Connect("ftp://example.com", auth.Credential{}, func(events.Event) {})
	if err == nil || !strings.Contains(err.Error(), "unsupported scheme") {
		t.Fatalf("expected unsupported scheme error, got %v", err)
	}
	if state := channel.State(); state != StateDisconnected {
		t.Fatalf("expected channel to stay disconnected, got %q", state)
	}
}
