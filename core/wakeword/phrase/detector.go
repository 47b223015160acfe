// Package phrase detects wake words by matching trained phrases against a
// live transcript.
package phrase

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/koscakluka/ema-voice/core/wakeword"
)

// TranscriptStream transcribes the microphone until ctx is cancelled.
type TranscriptStream interface {
	Stream(ctx context.Context, onTranscript func(string)) error
}

type Detector struct {
	stream TranscriptStream
}

func NewDetector(stream TranscriptStream) *Detector {
	return &Detector{stream: stream}
}

func (d *Detector) Listen(ctx context.Context, profile wakeword.Profile, onDetected func()) error {
	err := d.stream.Stream(ctx, func(transcript string) {
		if Matches(profile, transcript) {
			onDetected()
		}
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Matches reports whether transcript contains one of the profile's phrases.
// The words of a phrase have to appear in order. A sensitivity below one
// lowers the share of them that has to be heard.
func Matches(profile wakeword.Profile, transcript string) bool {
	heard := words(transcript)
	if len(heard) == 0 {
		return false
	}

	for _, phrase := range profile.Phrases {
		wanted := words(phrase)
		if len(wanted) == 0 {
			continue
		}
		if inOrder(heard, wanted) >= required(len(wanted), profile.Sensitivity) {
			return true
		}
	}
	return false
}

func required(n int, sensitivity float64) int {
	if sensitivity <= 0 || sensitivity >= 1 {
		return n
	}
	return max(1, int(math.Ceil(float64(n)*sensitivity)))
}

// inOrder returns how many words of wanted were heard in their order, the
// length of the longest common subsequence.
func inOrder(heard, wanted []string) int {
	previous := make([]int, len(wanted)+1)
	current := make([]int, len(wanted)+1)
	for _, word := range heard {
		for j, w := range wanted {
			if word == w {
				current[j+1] = previous[j] + 1
			} else {
				current[j+1] = max(previous[j+1], current[j])
			}
		}
		previous, current = current, previous
	}
	return previous[len(wanted)]
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
