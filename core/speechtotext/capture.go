package speechtotext

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Recognizer is a speech-to-text engine. Recognize listens until it has
// heard one utterance, passes it to onTranscript and returns. It returns
// early with ctx's error when ctx is cancelled.
type Recognizer interface {
	Recognize(ctx context.Context, onTranscript func(string)) error
}

// Capture runs at most one recognition attempt at a time and bounds it with
// a timeout. Every attempt ends with exactly one outcome.
type Capture struct {
	recognizer Recognizer

	mu      sync.Mutex
	attempt *attempt
}

type attempt struct {
	span      trace.Span
	cancel    context.CancelFunc
	timer     *time.Timer
	onOutcome func(Outcome)
}

func NewCapture(recognizer Recognizer) *Capture {
	return &Capture{recognizer: recognizer}
}

// Start begins a capture attempt. onOutcome is called once, from the
// goroutine that ended the attempt. A timeout of zero disables the bound.
func (c *Capture) Start(ctx context.Context, timeout time.Duration, onOutcome func(Outcome)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempt != nil {
		return ErrCaptureActive
	}

	ctx, span := tracer.Start(ctx, "capture speech")
	span.SetAttributes(attribute.Int64("capture.timeout_ms", timeout.Milliseconds()))
	ctx, cancel := context.WithCancel(ctx)

	a := &attempt{span: span, cancel: cancel, onOutcome: onOutcome}
	c.attempt = a
	if timeout > 0 {
		a.timer = time.AfterFunc(timeout, func() { c.finish(a, TimedOut()) })
	}

	go c.recognize(ctx, a)
	return nil
}

// Cancel ends the live attempt with a Cancelled outcome. It is a no-op when
// no attempt is live.
func (c *Capture) Cancel() {
	c.mu.Lock()
	a := c.attempt
	c.mu.Unlock()

	if a != nil {
		c.finish(a, Cancelled())
	}
}

func (c *Capture) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt != nil
}

func (c *Capture) recognize(ctx context.Context, a *attempt) {
	err := c.recognizer.Recognize(ctx, func(text string) {
		c.finish(a, Transcript(text))
	})

	switch {
	case err == nil:
		// The engine heard nothing worth reporting.
		c.finish(a, Transcript(""))
	case ctx.Err() != nil:
		c.finish(a, Cancelled())
	default:
		c.finish(a, EngineError(err))
	}
}

// finish delivers outcome if a is still the live attempt.
func (c *Capture) finish(a *attempt, outcome Outcome) {
	c.mu.Lock()
	if c.attempt != a {
		c.mu.Unlock()
		return
	}
	c.attempt = nil
	c.mu.Unlock()

	a.cancel()
	if a.timer != nil {
		a.timer.Stop()
	}

	a.span.SetAttributes(attribute.String("capture.outcome", outcome.Kind.String()))
	if outcome.Err != nil {
		a.span.RecordError(outcome.Err)
		a.span.SetStatus(codes.Error, outcome.Err.Error())
		logger.Warn("speech capture failed", "error", outcome.Err)
	}
	a.span.End()

	if a.onOutcome != nil {
		a.onOutcome(outcome)
	}
}
