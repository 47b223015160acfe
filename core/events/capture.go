package events

const (
	// KindCaptureTranscript identifies a capture attempt that produced text.
	KindCaptureTranscript Kind = "capture.transcript"
	// KindCaptureTimedOut identifies a capture attempt that hit its bound.
	KindCaptureTimedOut Kind = "capture.timed_out"
	// KindCaptureFailed identifies a capture attempt failed by the engine.
	KindCaptureFailed Kind = "capture.failed"
	// KindCaptureCancelled identifies a cancelled capture attempt.
	KindCaptureCancelled Kind = "capture.cancelled"
)

// CaptureTranscript carries the transcript of a capture attempt. The text is
// delivered as recognised, empty text is possible.
type CaptureTranscript struct {
	Base
	AttemptID string
	Text      string
}

func NewCaptureTranscript(attemptID, text string) CaptureTranscript {
	return CaptureTranscript{Base: NewBase(KindCaptureTranscript), AttemptID: attemptID, Text: text}
}

type CaptureTimedOut struct {
	Base
	AttemptID string
}

func NewCaptureTimedOut(attemptID string) CaptureTimedOut {
	return CaptureTimedOut{Base: NewBase(KindCaptureTimedOut), AttemptID: attemptID}
}

type CaptureFailed struct {
	Base
	AttemptID string
	Err       error
}

func NewCaptureFailed(attemptID string, err error) CaptureFailed {
	return CaptureFailed{Base: NewBase(KindCaptureFailed), AttemptID: attemptID, Err: err}
}

type CaptureCancelled struct {
	Base
	AttemptID string
}

func NewCaptureCancelled(attemptID string) CaptureCancelled {
	return CaptureCancelled{Base: NewBase(KindCaptureCancelled), AttemptID: attemptID}
}
