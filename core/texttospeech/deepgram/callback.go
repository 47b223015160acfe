package deepgram

import (
	"errors"
	"fmt"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
)

var errClosedBeforeFlush = errors.New("deepgram closed the connection before flushing")

// speakCallback adapts the Deepgram message callbacks of one utterance to
// channels.
type speakCallback struct {
	onAudio func([]byte)
	flushed chan struct{}
	failed  chan error
}

func newSpeakCallback(onAudio func([]byte)) *speakCallback {
	return &speakCallback{
		onAudio: onAudio,
		flushed: make(chan struct{}, 1),
		failed:  make(chan error, 1),
	}
}

func (s *speakCallback) fail(err error) {
	select {
	case s.failed <- err:
	default:
	}
}

func (s *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }

func (s *speakCallback) Flush(*msginterfaces.FlushedResponse) error {
	select {
	case s.flushed <- struct{}{}:
	default:
	}
	return nil
}

func (s *speakCallback) Close(*msginterfaces.CloseResponse) error {
	s.fail(errClosedBeforeFlush)
	return nil
}

func (s *speakCallback) Warning(resp *msginterfaces.WarningResponse) error {
	logger.Warn("deepgram speak warning", "warning", fmt.Sprintf("%+v", resp))
	return nil
}

func (s *speakCallback) Error(resp *msginterfaces.ErrorResponse) error {
	s.fail(fmt.Errorf("deepgram speak error: %+v", resp))
	return nil
}

func (s *speakCallback) UnhandledEvent(msg []byte) error {
	logger.Debug("unhandled deepgram speak event", "message", string(msg))
	return nil
}

func (s *speakCallback) Binary(msg []byte) error {
	if len(msg) == 0 || s.onAudio == nil {
		return nil
	}
	frame := make([]byte, len(msg))
	copy(frame, msg)
	s.onAudio(frame)
	return nil
}
