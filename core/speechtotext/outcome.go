package speechtotext

import (
	"errors"
	"fmt"
)

// ErrCaptureActive is returned when a capture is started while another one
// has not produced its outcome yet.
var ErrCaptureActive = errors.New("speech capture already active")

type OutcomeKind int

const (
	OutcomeTranscript OutcomeKind = iota
	OutcomeTimedOut
	OutcomeEngineError
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeTranscript:
		return "transcript"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeEngineError:
		return "engine_error"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the terminal result of one capture attempt. Text is set for
// transcripts, Err for engine errors.
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

func Transcript(text string) Outcome { return Outcome{Kind: OutcomeTranscript, Text: text} }
func TimedOut() Outcome              { return Outcome{Kind: OutcomeTimedOut} }
func EngineError(err error) Outcome  { return Outcome{Kind: OutcomeEngineError, Err: err} }
func Cancelled() Outcome             { return Outcome{Kind: OutcomeCancelled} }
