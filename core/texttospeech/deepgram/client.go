package deepgram

import (
	"context"
	"errors"
	"fmt"
	"time"

	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
	"github.com/koscakluka/ema-voice/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrMissingAPIKey     = errors.New("deepgram api key not configured")
	ErrSynthesisTimedOut = errors.New("deepgram speech synthesis timed out")
)

const defaultTimeout = 30 * time.Second

// speakConnection is the part of the Deepgram speak websocket client used
// for one utterance.
type speakConnection interface {
	Connect() bool
	SpeakWithText(text string) error
	Flush() error
	Stop()
}

type dialFunc func(ctx context.Context, apiKey string, options *clientinterfaces.WSSpeakOptions, callback *speakCallback) (speakConnection, error)

// SpeechClient synthesizes speech with the Deepgram speak websocket API,
// opening one connection per utterance.
type SpeechClient struct {
	apiKey   string
	voice    Voice
	encoding audio.EncodingInfo
	timeout  time.Duration
	dial     dialFunc
}

type ClientOption func(*SpeechClient)

func WithVoice(voice Voice) ClientOption {
	return func(c *SpeechClient) {
		if isAvailable(voice) {
			c.voice = voice
		} else {
			logger.Warn("unknown deepgram voice, keeping default", "voice", voice, "default", c.voice)
		}
	}
}

// WithEncodingInfo matches the synthesized audio to the speaker.
func WithEncodingInfo(encoding audio.EncodingInfo) ClientOption {
	return func(c *SpeechClient) {
		if !encoding.IsZero() {
			c.encoding = encoding
		}
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *SpeechClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func NewSpeechClient(apiKey string, opts ...ClientOption) *SpeechClient {
	c := &SpeechClient{
		apiKey:   apiKey,
		voice:    defaultVoice,
		encoding: audio.GetDefaultEncodingInfo(),
		timeout:  defaultTimeout,
		dial:     dialSpeak,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func dialSpeak(ctx context.Context, apiKey string, options *clientinterfaces.WSSpeakOptions, callback *speakCallback) (speakConnection, error) {
	client, err := speak.NewWSUsingCallback(ctx, apiKey, &clientinterfaces.ClientOptions{}, options, callback)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Synthesize speaks text and streams the audio to onAudio, returning once
// Deepgram confirms the text has been flushed.
func (c *SpeechClient) Synthesize(ctx context.Context, text string, onAudio func([]byte)) (err error) {
	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer func() {
		if err != nil && ctx.Err() == nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("tts.voice", string(c.voice)))

	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	callback := newSpeakCallback(onAudio)
	conn, err := c.dial(ctx, c.apiKey, &clientinterfaces.WSSpeakOptions{
		Model:      string(c.voice),
		Encoding:   c.encoding.Format.Name(),
		SampleRate: c.encoding.SampleRate,
	}, callback)
	if err != nil {
		return fmt.Errorf("failed to create deepgram speak client: %w", err)
	}
	defer conn.Stop()

	if ok := conn.Connect(); !ok {
		return fmt.Errorf("failed to connect to deepgram speak")
	}
	if err := conn.SpeakWithText(text); err != nil {
		return fmt.Errorf("failed to send text to deepgram: %w", err)
	}
	if err := conn.Flush(); err != nil {
		return fmt.Errorf("failed to flush deepgram text: %w", err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case <-callback.flushed:
		return nil
	case err := <-callback.failed:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrSynthesisTimedOut
	}
}
