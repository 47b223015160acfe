package channel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Socket.IO v5 packets carried in Engine.IO v4 messages over a websocket.
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
	engineNoop    = '6'

	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketConnectError = '4'
)

type frameKind int

const (
	frameIgnored frameKind = iota
	frameOpen
	frameClose
	framePing
	frameConnect
	frameDisconnect
	frameEvent
	frameConnectError
)

type frame struct {
	kind    frameKind
	event   string
	payload json.RawMessage
}

type openPayload struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// readTimeout is how long the server may stay silent before the connection
// is considered dead.
func (p openPayload) readTimeout() time.Duration {
	if p.PingInterval <= 0 {
		return 0
	}
	return time.Duration(p.PingInterval+p.PingTimeout) * time.Millisecond
}

func parseFrame(data []byte) (frame, error) {
	if len(data) == 0 {
		return frame{}, fmt.Errorf("%w: empty frame", ErrMalformedPayload)
	}

	switch data[0] {
	case engineOpen:
		return frame{kind: frameOpen, payload: data[1:]}, nil
	case engineClose:
		return frame{kind: frameClose}, nil
	case enginePing:
		return frame{kind: framePing}, nil
	case enginePong, engineNoop:
		return frame{kind: frameIgnored}, nil
	case engineMessage:
		return parseSocketPacket(data[1:])
	default:
		return frame{}, fmt.Errorf("%w: unknown engine packet %q", ErrMalformedPayload, data[0])
	}
}

func parseSocketPacket(data []byte) (frame, error) {
	if len(data) == 0 {
		return frame{}, fmt.Errorf("%w: empty socket packet", ErrMalformedPayload)
	}

	packetType, rest := data[0], skipNamespace(data[1:])
	switch packetType {
	case socketConnect:
		return frame{kind: frameConnect, payload: rest}, nil
	case socketDisconnect:
		return frame{kind: frameDisconnect}, nil
	case socketConnectError:
		return frame{kind: frameConnectError, payload: rest}, nil
	case socketEvent:
		// Acknowledgement IDs precede the argument array.
		rest = bytes.TrimLeft(rest, "0123456789")
		var args []json.RawMessage
		if err := json.Unmarshal(rest, &args); err != nil {
			return frame{}, fmt.Errorf("%w: event arguments: %v", ErrMalformedPayload, err)
		}
		if len(args) == 0 {
			return frame{}, fmt.Errorf("%w: event without name", ErrMalformedPayload)
		}
		var name string
		if err := json.Unmarshal(args[0], &name); err != nil {
			return frame{}, fmt.Errorf("%w: event name: %v", ErrMalformedPayload, err)
		}
		parsed := frame{kind: frameEvent, event: name}
		if len(args) > 1 {
			parsed.payload = args[1]
		}
		return parsed, nil
	default:
		return frame{kind: frameIgnored}, nil
	}
}

func skipNamespace(data []byte) []byte {
	if len(data) == 0 || data[0] != '/' {
		return data
	}
	if i := bytes.IndexByte(data, ','); i >= 0 {
		return data[i+1:]
	}
	return nil
}

func encodeEvent(name string, payload any) ([]byte, error) {
	args, err := json.Marshal([]any{name, payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q event: %w", name, err)
	}
	return append([]byte{engineMessage, socketEvent}, args...), nil
}

var (
	connectPacket    = []byte{engineMessage, socketConnect}
	disconnectPacket = []byte{engineMessage, socketDisconnect}
	pongPacket       = []byte{enginePong}
)

// socketURL builds the websocket endpoint for server, carrying the token as
// a query parameter.
func socketURL(server, token string) (string, error) {
	target, err := url.Parse(strings.TrimSpace(server))
	if err != nil {
		return "", fmt.Errorf("invalid server address: %w", err)
	}

	switch target.Scheme {
	case "http":
		target.Scheme = "ws"
	case "https":
		target.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server address %q: unsupported scheme", server)
	}
	if target.Host == "" {
		return "", fmt.Errorf("invalid server address %q: missing host", server)
	}

	if target.Path == "" || target.Path == "/" {
		target.Path = "/socket.io/"
	}
	query := target.Query()
	query.Set("EIO", "4")
	query.Set("transport", "websocket")
	query.Set("token", token)
	target.RawQuery = query.Encode()

	return target.String(), nil
}
