package events

const (
	// KindPlaybackCompleted identifies a response that finished playing.
	KindPlaybackCompleted Kind = "playback.completed"
	// KindPlaybackFailed identifies a response that could not be played.
	KindPlaybackFailed Kind = "playback.failed"
)

type PlaybackCompleted struct {
	Base
	RequestID string
}

func NewPlaybackCompleted(requestID string) PlaybackCompleted {
	return PlaybackCompleted{Base: NewBase(KindPlaybackCompleted), RequestID: requestID}
}

type PlaybackFailed struct {
	Base
	RequestID string
	Err       error
}

func NewPlaybackFailed(requestID string, err error) PlaybackFailed {
	return PlaybackFailed{Base: NewBase(KindPlaybackFailed), RequestID: requestID, Err: err}
}
