package channel

import "errors"

var (
	// ErrNotConnected is returned when a turn is sent without a live
	// connection.
	ErrNotConnected = errors.New("dialogue channel not connected")
	// ErrMalformedPayload marks inbound frames that could not be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
)
