package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-voice/core/audio"
	"go.opentelemetry.io/otel/codes"
)

// Stream transcribes microphone audio until ctx is cancelled, calling
// onTranscript with every complete utterance. onTranscript runs on the
// calling goroutine.
func (c *TranscriptionClient) Stream(ctx context.Context, onTranscript func(string)) error {
	ctx, span := tracer.Start(ctx, "stream transcription")
	defer span.End()

	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	encoding := c.input.EncodingInfo()
	converted, err := convertEncoding(encoding)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	conn, err := c.connect(ctx, converted)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to open websocket: %w", err)
	}

	s := &stream{conn: conn, lastAudio: time.Now()}
	defer s.close()
	stop := context.AfterFunc(ctx, s.close)
	defer stop()

	captureCtx, releaseCapture := context.WithCancel(ctx)
	defer releaseCapture()
	if err := c.input.StartCapture(captureCtx, s.sendAudio); err != nil {
		return fmt.Errorf("failed to start audio capture: %w", err)
	}

	silenceCtx, silenceCancel := context.WithCancel(ctx)
	defer silenceCancel()
	go s.generateSilence(silenceCtx, encoding)

	err = s.readMessages(onTranscript)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *TranscriptionClient) connect(ctx context.Context, encoding *encodingInfo) (*websocket.Conn, error) {
	listenURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid listen endpoint: %w", err)
	}

	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", c.model)
	queryParams.Set("language", c.language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")
	listenURL.RawQuery = queryParams.Encode()

	conn, _, err := c.dialer.DialContext(ctx, listenURL.String(), c.authHeader())
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

type stream struct {
	conn *websocket.Conn

	mu        sync.Mutex
	closed    bool
	lastAudio time.Time

	accumulated    string
	unendedSegment bool
}

type controlMessage struct {
	Type string `json:"type"`
}

func (s *stream) sendAudio(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.lastAudio = time.Now()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		logger.Debug("failed to write audio to deepgram", "error", err)
	}
}

func (s *stream) sendSilence(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, chunk)
}

func (s *stream) sendKeepAlive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := s.conn.WriteJSON(controlMessage{Type: "KeepAlive"}); err != nil {
		logger.Debug("failed to send deepgram keep alive", "error", err)
	}
}

func (s *stream) sinceLastAudio() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastAudio)
}

// close asks Deepgram to finish the stream and closes the socket. Frames
// the microphone delivers afterwards are dropped.
func (s *stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	_ = s.conn.WriteJSON(controlMessage{Type: string(api.TypeCloseStreamResponse)})
	_ = s.conn.Close()
}

func (s *stream) readMessages(onTranscript func(string)) error {
	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("failed to read deepgram message: %w", err)
		}
		if msgType == websocket.TextMessage {
			s.processMessage(msg, onTranscript)
		}
	}
}

func (s *stream) processMessage(msg []byte, onTranscript func(string)) {
	var parsedMsg controlMessage
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram results", "error", err)
			return
		}
		if !msgResp.IsFinal {
			return
		}
		if len(msgResp.Channel.Alternatives) > 0 {
			if transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript); transcript != "" {
				s.accumulated += " " + transcript
				s.unendedSegment = true
			}
		}
		if msgResp.SpeechFinal {
			s.endUtterance(onTranscript)
		}

	case api.TypeUtteranceEndResponse:
		if s.unendedSegment {
			s.endUtterance(onTranscript)
		}

	case api.TypeSpeechStartedResponse:
		s.unendedSegment = true

	default:
		logger.Debug("ignoring deepgram message", "type", parsedMsg.Type)
	}
}

func (s *stream) endUtterance(onTranscript func(string)) {
	s.unendedSegment = false
	transcript := strings.TrimSpace(s.accumulated)
	s.accumulated = ""
	if transcript != "" {
		onTranscript(transcript)
	}
}

// generateSilence keeps the stream alive while the microphone is quiet:
// a second of silence frames first so endpointing can finish the utterance,
// then periodic keep alive messages.
func (s *stream) generateSilence(ctx context.Context, encoding audio.EncodingInfo) {
	type silenceState string
	const (
		stateWaiting   silenceState = "waiting"
		stateSilence   silenceState = "silence"
		stateKeepAlive silenceState = "keepAlive"
	)

	const chunkDuration = 50 * time.Millisecond
	ticker := time.NewTicker(chunkDuration)
	defer ticker.Stop()

	chunk := make([]byte, encoding.BytesFor(chunkDuration))
	for i := range chunk {
		chunk[i] = encoding.SilenceValue()
	}

	state := stateWaiting
	var silenceStarted, lastKeepAlive time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			quiet := s.sinceLastAudio() > chunkDuration
			switch state {
			case stateWaiting:
				if quiet {
					state = stateSilence
					silenceStarted = time.Now()
				}

			case stateSilence:
				if !quiet {
					state = stateWaiting
					continue
				}
				if time.Since(silenceStarted) >= time.Second {
					state = stateKeepAlive
					lastKeepAlive = time.Now()
					continue
				}
				if err := s.sendSilence(chunk); err != nil {
					logger.Debug("failed to send silence to deepgram", "error", err)
				}

			case stateKeepAlive:
				if !quiet {
					state = stateWaiting
					continue
				}
				if time.Since(lastKeepAlive) >= 5*time.Second {
					lastKeepAlive = time.Now()
					s.sendKeepAlive()
				}
			}
		}
	}
}
