package deepgram

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-voice/core/speechtotext"
)

const defaultListenURL = "wss://api.deepgram.com/v1/listen"

var ErrMissingAPIKey = errors.New("deepgram api key not configured")

// TranscriptionClient streams microphone audio to the Deepgram listen API.
type TranscriptionClient struct {
	apiKey   string
	input    speechtotext.AudioInput
	dialer   *websocket.Dialer
	endpoint string
	model    string
	language string
}

type ClientOption func(*TranscriptionClient)

// WithEndpoint overrides the listen websocket URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *TranscriptionClient) { c.endpoint = endpoint }
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *TranscriptionClient) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) { c.model = model }
}

func WithLanguage(language string) ClientOption {
	return func(c *TranscriptionClient) { c.language = language }
}

func NewTranscriptionClient(apiKey string, input speechtotext.AudioInput, opts ...ClientOption) *TranscriptionClient {
	c := &TranscriptionClient{
		apiKey:   apiKey,
		input:    input,
		dialer:   websocket.DefaultDialer,
		endpoint: defaultListenURL,
		model:    "nova-3",
		language: "en-US",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Recognize transcribes until the first complete utterance and hands it to
// onTranscript.
func (c *TranscriptionClient) Recognize(ctx context.Context, onTranscript func(string)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	delivered := false
	err := c.Stream(ctx, func(transcript string) {
		if delivered {
			return
		}
		delivered = true
		onTranscript(transcript)
		cancel()
	})
	if delivered {
		return nil
	}
	return err
}

func (c *TranscriptionClient) authHeader() http.Header {
	return http.Header{"Authorization": {"Token " + c.apiKey}}
}
