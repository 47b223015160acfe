package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-voice/core/auth"
	"github.com/koscakluka/ema-voice/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

const handshakeTimeout = 10 * time.Second

// Channel is one logical connection to the dialogue service. Connection drops
// are repaired by redialing the same server until Disconnect is called.
type Channel struct {
	dialer     *websocket.Dialer
	newBackOff func() backoff.BackOff

	mu    sync.Mutex
	state ConnectionState
	// server is the address the channel is (re)connecting to, empty when
	// disconnected.
	server string
	conn   *websocket.Conn
	emit   func(events.Event)
	cancel context.CancelFunc
	// generation identifies the current connection run, bumped on every
	// teardown so a stale run can not touch channel state.
	generation uint64

	writeMu sync.Mutex
}

type Option func(*Channel)

func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Channel) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

// WithBackOff sets the reconnect policy, a fresh policy is requested for each
// reconnect sequence.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Channel) {
		if newBackOff != nil {
			c.newBackOff = newBackOff
		}
	}
}

func New(opts ...Option) *Channel {
	c := &Channel{
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			return b
		},
		state: StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Channel) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens a connection to server and starts delivering inbound events
// to emit. It returns once the connection attempt is started. Connecting to
// the server the channel already serves is a no-op, any other server tears
// the existing connection down first.
func (c *Channel) Connect(server string, credential auth.Credential, emit func(events.Event)) error {
	target, err := socketURL(server, credential.Token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.server == server && c.state != StateDisconnected {
		return nil
	}

	c.teardownLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.generation++
	c.server = server
	c.state = StateConnecting
	c.emit = emit
	c.cancel = cancel

	go c.run(ctx, c.generation, target)
	return nil
}

// Disconnect closes the connection and drops the event receiver. It is safe
// to call on a disconnected channel.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

// SendTurn emits an ask event carrying text.
func (c *Channel) SendTurn(text string) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()

	if conn == nil || state != StateConnected {
		return ErrNotConnected
	}

	packet, err := encodeEvent(eventAsk, askPayload{Text: text})
	if err != nil {
		return err
	}

	if err := c.write(conn, packet); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

func (c *Channel) teardownLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		_ = c.write(c.conn, disconnectPacket)
		_ = c.conn.Close()
		c.conn = nil
	}
	c.generation++
	c.server = ""
	c.state = StateDisconnected
	c.emit = nil
}

func (c *Channel) write(conn *websocket.Conn, packet []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, packet)
}

// publish delivers event if generation is still the current run.
func (c *Channel) publish(generation uint64, event events.Event) {
	c.mu.Lock()
	emit := c.emit
	current := c.generation == generation
	c.mu.Unlock()

	if current && emit != nil {
		emit(event)
	}
}

func (c *Channel) run(ctx context.Context, generation uint64, target string) {
	for ctx.Err() == nil {
		conn, err := c.dial(ctx, target)
		if err != nil {
			if ctx.Err() == nil {
				logger.WarnContext(ctx, "dialogue channel gave up dialing, starting over", "error", err)
			}
			continue
		}

		if !c.adopt(generation, conn) {
			_ = conn.Close()
			return
		}

		err = c.serve(ctx, generation, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		if c.generation == generation {
			c.conn = nil
			c.state = StateConnecting
		}
		c.mu.Unlock()

		logger.InfoContext(ctx, "dialogue channel dropped, reconnecting", "error", err)
		c.publish(generation, events.NewChannelDisconnected(err))
	}
}

func (c *Channel) dial(ctx context.Context, target string) (*websocket.Conn, error) {
	operation := func() (*websocket.Conn, error) {
		ctx, span := tracer.Start(ctx, "dial dialogue channel")
		defer span.End()

		conn, _, err := c.dialer.DialContext(ctx, target, nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		return conn, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.DebugContext(ctx, "dialogue channel dial failed", "error", err, "retry_in", next)
		}),
	)
}

func (c *Channel) adopt(generation uint64, conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		return false
	}
	c.conn = conn
	return true
}

// serve runs the read loop of one websocket connection until it fails or the
// channel is torn down.
func (c *Channel) serve(ctx context.Context, generation uint64, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var readTimeout time.Duration
	for {
		if readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := parseFrame(data)
		if err != nil {
			logger.WarnContext(ctx, "dropping malformed dialogue frame", "error", err)
			continue
		}

		switch parsed.kind {
		case frameOpen:
			var open openPayload
			if err := json.Unmarshal(parsed.payload, &open); err != nil {
				logger.WarnContext(ctx, "malformed open packet", "error", err)
			}
			readTimeout = open.readTimeout()
			if err := c.write(conn, connectPacket); err != nil {
				return fmt.Errorf("failed to join namespace: %w", err)
			}

		case frameConnect:
			if !c.markConnected(generation) {
				return context.Canceled
			}
			c.publish(generation, events.NewChannelConnected())

		case framePing:
			if err := c.write(conn, pongPacket); err != nil {
				return fmt.Errorf("failed to answer ping: %w", err)
			}

		case frameConnectError:
			return fmt.Errorf("server refused connection: %s", string(parsed.payload))

		case frameDisconnect, frameClose:
			return errors.New("server closed the connection")

		case frameEvent:
			c.dispatch(ctx, generation, parsed)
		}
	}
}

func (c *Channel) markConnected(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		return false
	}
	c.state = StateConnected
	return true
}

func (c *Channel) dispatch(ctx context.Context, generation uint64, parsed frame) {
	_, span := tracer.Start(ctx, "dialogue event")
	defer span.End()
	span.SetAttributes(attribute.String("channel.event", parsed.event))

	switch parsed.event {
	case eventResponse:
		response, err := decodeResponse(parsed.payload)
		if err != nil {
			span.RecordError(err)
			logger.WarnContext(ctx, "dropping malformed response", "error", err)
			return
		}
		c.publish(generation, events.NewChannelResponse(response))

	case eventSetName:
		name, err := decodeName(parsed.payload)
		if err != nil {
			span.RecordError(err)
			logger.WarnContext(ctx, "dropping malformed set_name", "error", err)
			return
		}
		c.publish(generation, events.NewChannelNameAssigned(name))

	default:
		logger.DebugContext(ctx, "ignoring dialogue event", "event", parsed.event)
	}
}
