package phrase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/koscakluka/ema-voice/core/wakeword"
)

func TestMatches(t *testing.T) {
	hal := wakeword.Profile{Keyword: "Hal", Phrases: []string{"hal", "hey hal"}}
	openPod := wakeword.Profile{Keyword: "pod", Phrases: []string{"open the pod bay doors"}, Sensitivity: 0.6}

	testCases := []struct {
		name       string
		profile    wakeword.Profile
		transcript string
		expected   bool
	}{
		{name: "exact", profile: hal, transcript: "Hal", expected: true},
		{name: "punctuation and case", profile: hal, transcript: "Hey, HAL!", expected: true},
		{name: "inside a sentence", profile: hal, transcript: "ok hal what time is it", expected: true},
		{name: "partial word", profile: hal, transcript: "halfway there", expected: false},
		{name: "empty transcript", profile: hal, transcript: "  ", expected: false},
		{name: "sensitivity allows missed words", profile: openPod, transcript: "open pod doors", expected: true},
		{name: "sensitivity still needs enough words", profile: openPod, transcript: "open doors", expected: false},
		{name: "order matters", profile: openPod, transcript: "doors bay pod the open", expected: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := Matches(testCase.profile, testCase.transcript); got != testCase.expected {
				t.Fatalf("expected %v for %q, got %v", testCase.expected, testCase.transcript, got)
			}
		})
	}
}

type transcriptStreamStub struct {
	transcripts []string
	err         error
}

func (s transcriptStreamStub) Stream(ctx context.Context, onTranscript func(string)) error {
	for _, transcript := range s.transcripts {
		onTranscript(transcript)
	}
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestListenCallsBackOnMatchingUtterances(t *testing.T) {
	detector := NewDetector(transcriptStreamStub{transcripts: []string{"good morning", "hey hal", "hal?"}})
	profile := wakeword.Profile{Keyword: "Hal", Phrases: []string{"hal"}}

	ctx, cancel := context.WithCancel(context.Background())
	var detections atomic.Int32
	err := detector.Listen(ctx, profile, func() {
		if detections.Add(1) == 2 {
			cancel()
		}
	})

	if err != nil {
		t.Fatalf("expected cancelled listen to end cleanly, got %v", err)
	}
	if got := detections.Load(); got != 2 {
		t.Fatalf("expected two detections, got %d", got)
	}
}

func TestListenReportsStreamFailure(t *testing.T) {
	failure := errors.New("socket closed")
	detector := NewDetector(transcriptStreamStub{err: failure})

	if err := detector.Listen(context.Background(), wakeword.Profile{Phrases: []string{"hal"}}, func() {}); !errors.Is(err, failure) {
		t.Fatalf("expected stream failure, got %v", err)
	}
}
