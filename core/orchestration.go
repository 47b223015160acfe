package orchestration

import (
	"context"
	"sync"
	"time"

	"github.com/koscakluka/ema-voice/core/auth"
	"github.com/koscakluka/ema-voice/core/channel"
	"github.com/koscakluka/ema-voice/core/events"
)

// Orchestrator runs one voice session. All session state is owned by a single
// event loop; the public methods only post events to it and never block on
// the collaborators.
type Orchestrator struct {
	authenticator Authenticator
	channel       DialogueChannel
	gate          WakeWordGate
	capture       SpeechCapture
	player        ResponsePlayer
	trainer       Trainer

	captureTimeout time.Duration

	// session and the tokens below belong to the loop goroutine.
	session Session
	tokens  tokens
	// trainingRequested is the keyword training was last requested for.
	trainingRequested string

	mailbox *mailbox
	emitter eventEmitter
	// outbox holds the intents of the current step until its state is
	// committed.
	outbox []events.Event
	ctx    context.Context
	cancel context.CancelFunc

	snapshotMu sync.Mutex
	snapshot   Session

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// tokens identify the outstanding asynchronous operations. An event whose
// token does not match is stale and dropped.
type tokens struct {
	auth     string
	arm      string
	capture  string
	playback string
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		captureTimeout: DefaultCaptureTimeout,
		session: Session{
			Phase:          PhaseIdle,
			HotwordEnabled: true,
			SpeechOutput:   true,
		},
		mailbox: newMailbox(),
		emitter: noopEventEmitter,
		done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.authenticator == nil {
		o.authenticator = auth.NewGateway()
	}
	if o.channel == nil {
		o.channel = channel.New()
	}

	o.publishSnapshot()
	return o
}

// Orchestrate starts the event loop and the session. It returns immediately,
// the session runs until ctx is cancelled or Close is called.
//
// Only the first call has an effect.
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) {
	o.startOnce.Do(func() {
		options := OrchestrateOptions{}
		for _, opt := range opts {
			opt(&options)
		}
		o.emitter = newCallbackEventEmitter(options)
		o.ctx, o.cancel = context.WithCancel(ctx)

		o.post(events.NewSessionStartRequested())
		go o.run()
	})
}

// Close shuts the session down from any phase and waits for the event loop to
// finish.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		started := true
		o.startOnce.Do(func() { started = false })
		if !started {
			o.mailbox.close()
			close(o.done)
			return
		}

		o.post(events.NewShutdownRequested())
	})
	<-o.done
}

// Session returns a copy of the current session state.
func (o *Orchestrator) Session() Session {
	o.snapshotMu.Lock()
	defer o.snapshotMu.Unlock()
	return o.snapshot
}

// StartListening starts a capture without waiting for the wake word. It
// interrupts a playing response.
func (o *Orchestrator) StartListening() { o.post(events.NewListeningRequested()) }

func (o *Orchestrator) StopListening() { o.post(events.NewListeningStopRequested()) }

// StopSpeaking halts the playing response and carries on as if it had
// completed, without the follow-up capture.
func (o *Orchestrator) StopSpeaking() { o.post(events.NewSpeakingStopRequested()) }

// SendText sends a typed user turn. Blank text is ignored.
func (o *Orchestrator) SendText(text string) { o.post(events.NewTextSubmitted(text)) }

// Login exchanges username and password for a new credential. It answers a
// login prompt or switches the user of an authenticated session.
func (o *Orchestrator) Login(username, password string) {
	o.post(events.NewLoginSubmitted(username, password))
}

func (o *Orchestrator) RetryConnection() { o.post(events.NewConnectionRetryRequested()) }

func (o *Orchestrator) CancelConnectionRetry() { o.post(events.NewConnectionRetryCancelled()) }

// TrainKeyword collects training data for the assigned keyword again. The
// result arrives like any other training result.
func (o *Orchestrator) TrainKeyword() { o.post(events.NewKeywordTrainingRequested()) }

// KeywordTrained reports the result of collecting training data for the
// assigned keyword.
func (o *Orchestrator) KeywordTrained(ok bool) { o.post(events.NewKeywordTrained("", ok)) }

func (o *Orchestrator) SetWakeWordEnabled(enabled bool) {
	o.post(events.NewWakeWordToggled(enabled))
}

func (o *Orchestrator) post(event events.Event) {
	if !o.mailbox.post(event) {
		logger.Debug("dropping event after shutdown", "kind", event.Kind())
	}
}

func (o *Orchestrator) run() {
	defer close(o.done)
	defer o.cancel()

	for {
		select {
		case <-o.ctx.Done():
			o.shutdown(context.WithoutCancel(o.ctx))
			o.commit()
			return
		case <-o.mailbox.ready():
			for _, event := range o.mailbox.drain() {
				if stop := o.step(event); stop {
					return
				}
			}
		}
	}
}

func (o *Orchestrator) emit(event events.Event) {
	o.outbox = append(o.outbox, event)
}

// commit publishes the session snapshot, then delivers the intents emitted
// since the last commit.
func (o *Orchestrator) commit() {
	o.publishSnapshot()

	outbox := o.outbox
	o.outbox = nil
	for _, event := range outbox {
		o.emitter(event)
	}
}

func (o *Orchestrator) publishSnapshot() {
	o.snapshotMu.Lock()
	o.snapshot = o.session
	o.snapshotMu.Unlock()
}
