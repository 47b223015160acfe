package texttospeech

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Synthesizer turns text into audio. Synthesize returns once all audio for
// text has been handed to onAudio, or early with ctx's error.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, onAudio func(audio []byte)) error
}

// Output is the speaker. Mark calls back once every frame sent before it has
// been played, ClearBuffer drops queued audio together with pending marks.
type Output interface {
	SendAudio(audio []byte) error
	ClearBuffer()
	Mark(name string, callback func(string)) error
}

// Player speaks one utterance at a time. A new utterance flushes the one in
// progress, whose outcome is never reported.
type Player struct {
	synthesizer Synthesizer
	output      Output

	mu      sync.Mutex
	current *request
}

type request struct {
	id        string
	cancel    context.CancelFunc
	onOutcome func(Outcome)
}

func NewPlayer(synthesizer Synthesizer, output Output) *Player {
	return &Player{synthesizer: synthesizer, output: output}
}

// Speak starts playing text and returns immediately. onOutcome is called
// once, unless the utterance is flushed by another Speak or by Stop.
func (p *Player) Speak(ctx context.Context, text string, onOutcome func(Outcome)) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushLocked()

	ctx, cancel := context.WithCancel(ctx)
	r := &request{id: uuid.NewString(), cancel: cancel, onOutcome: onOutcome}
	p.current = r

	go p.play(ctx, r, text)
	return nil
}

// Stop halts playback without reporting an outcome.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushLocked()
}

func (p *Player) IsSpeaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

func (p *Player) flushLocked() {
	if p.current == nil {
		return
	}
	p.current.cancel()
	p.current = nil
	p.output.ClearBuffer()
}

func (p *Player) isCurrent(r *request) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current == r
}

func (p *Player) play(ctx context.Context, r *request, text string) {
	ctx, span := tracer.Start(ctx, "speak response")
	defer span.End()
	span.SetAttributes(attribute.String("playback.id", r.id), attribute.Int("playback.text_length", len(text)))

	err := p.synthesizer.Synthesize(ctx, text, func(audio []byte) {
		if !p.isCurrent(r) {
			return
		}
		if err := p.output.SendAudio(audio); err != nil {
			logger.WarnContext(ctx, "failed to queue speech audio", "error", err)
		}
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to synthesize speech: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.finish(r, PlaybackError(err))
		return
	}

	if err := p.output.Mark(r.id, func(string) { p.finish(r, Completed()) }); err != nil {
		err = fmt.Errorf("failed to mark end of speech: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.finish(r, PlaybackError(err))
	}
}

// finish reports outcome if r is still the utterance being played.
func (p *Player) finish(r *request, outcome Outcome) {
	p.mu.Lock()
	if p.current != r {
		p.mu.Unlock()
		return
	}
	p.current = nil
	p.mu.Unlock()

	r.cancel()
	if outcome.Err != nil {
		logger.Warn("speech playback failed", "error", outcome.Err)
	}
	if r.onOutcome != nil {
		r.onOutcome(outcome)
	}
}
