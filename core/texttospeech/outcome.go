package texttospeech

import "errors"

var ErrEmptyText = errors.New("nothing to speak")

type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota
	OutcomePlaybackError
)

func (k OutcomeKind) String() string {
	if k == OutcomeCompleted {
		return "completed"
	}
	return "playback_error"
}

type Outcome struct {
	Kind OutcomeKind
	Err  error
}

func Completed() Outcome { return Outcome{Kind: OutcomeCompleted} }

func PlaybackError(err error) Outcome { return Outcome{Kind: OutcomePlaybackError, Err: err} }
