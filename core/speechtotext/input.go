package speechtotext

import (
	"context"

	"github.com/koscakluka/ema-voice/core/audio"
)

// AudioInput is the microphone feeding recognition engines. Only one
// consumer receives frames at a time.
type AudioInput interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	EncodingInfo() audio.EncodingInfo
}
