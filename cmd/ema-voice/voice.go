package main

import (
	"context"
	"fmt"
	"strings"

	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/audio/miniaudio"
	"github.com/koscakluka/ema-voice/core/speechtotext"
	sttdeepgram "github.com/koscakluka/ema-voice/core/speechtotext/deepgram"
	"github.com/koscakluka/ema-voice/core/texttospeech"
	ttsdeepgram "github.com/koscakluka/ema-voice/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-voice/core/wakeword"
	"github.com/koscakluka/ema-voice/core/wakeword/phrase"
)

// voiceStack wires the microphone and speaker to the speech engines. Without
// it the session still works with typed input.
type voiceStack struct {
	device *miniaudio.Client
	opts   []orchestration.OrchestratorOption
}

func newVoiceStack(apiKey, profilesDir string) (*voiceStack, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY is not set")
	}

	device, err := miniaudio.NewClient()
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}

	profiles := wakeword.NewFileProfileStore(profilesDir)
	listener := sttdeepgram.NewTranscriptionClient(apiKey, device)
	recognizer := sttdeepgram.NewTranscriptionClient(apiKey, device)
	speaker := ttsdeepgram.NewSpeechClient(apiKey, ttsdeepgram.WithEncodingInfo(device.EncodingInfo()))

	return &voiceStack{
		device: device,
		opts: []orchestration.OrchestratorOption{
			orchestration.WithWakeWordGate(wakeword.NewGate(phrase.NewDetector(listener), profiles)),
			orchestration.WithSpeechCapture(speechtotext.NewCapture(recognizer)),
			orchestration.WithResponsePlayer(texttospeech.NewPlayer(speaker, device)),
			orchestration.WithTrainer(&profileTrainer{profiles: profiles}),
		},
	}, nil
}

func (v *voiceStack) Close() {
	if v == nil {
		return
	}
	v.device.Close()
}

// profileTrainer writes a phrase profile for a keyword. It stands in for a
// recording based training tool.
type profileTrainer struct {
	profiles *wakeword.FileProfileStore
}

const trainedSensitivity = 0.8

func (t *profileTrainer) Train(_ context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}

	profile := wakeword.Profile{
		Keyword:     name,
		Phrases:     []string{name, "hey " + name, "ok " + name},
		Sensitivity: trainedSensitivity,
	}
	if err := t.profiles.Save(profile); err != nil {
		return false, fmt.Errorf("save profile for %q: %w", name, err)
	}
	logger.Info("wrote wake word profile", "keyword", name)
	return true, nil
}
