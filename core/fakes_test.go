package orchestration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-voice/core/auth"
	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/speechtotext"
	"github.com/koscakluka/ema-voice/core/texttospeech"
	"github.com/koscakluka/ema-voice/core/wakeword"
)

const (
	waitTimeout = 2 * time.Second
	quietPeriod = 100 * time.Millisecond
	testServer  = "https://ema.test"
)

func receive[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case value := <-ch:
		return value
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s", what)
		var zero T
		return zero
	}
}

func expectNone[T any](t *testing.T, ch <-chan T, what string) {
	t.Helper()
	select {
	case value := <-ch:
		t.Fatalf("unexpected %s: %+v", what, value)
	case <-time.After(quietPeriod):
	}
}

// microphone fails the test when the gate and the capture listen at once.
type microphone struct {
	t  *testing.T
	mu sync.Mutex

	gate    bool
	capture bool
}

func (m *microphone) setGate(listening bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if listening && m.capture {
		m.t.Errorf("wake word gate armed while speech capture is active")
	}
	m.gate = listening
}

func (m *microphone) setCapture(listening bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if listening && m.gate {
		m.t.Errorf("speech capture started while wake word gate is armed")
	}
	m.capture = listening
}

type fakeAuth struct {
	mu       sync.Mutex
	validate func(stored auth.Credential) (auth.Credential, error)
	login    func(server string, credentials auth.LoginCredentials) (auth.Credential, error)

	validations chan auth.Credential
	logins      chan auth.LoginCredentials
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		validate: func(stored auth.Credential) (auth.Credential, error) {
			return stored, nil
		},
		login: func(server string, credentials auth.LoginCredentials) (auth.Credential, error) {
			return auth.Credential{Server: server, Token: "token-" + credentials.Username}, nil
		},
		validations: make(chan auth.Credential, 16),
		logins:      make(chan auth.LoginCredentials, 16),
	}
}

func (a *fakeAuth) Validate(_ context.Context, stored *auth.Credential) (auth.Credential, error) {
	a.mu.Lock()
	validate := a.validate
	a.mu.Unlock()

	a.validations <- *stored
	return validate(*stored)
}

func (a *fakeAuth) Login(_ context.Context, server string, credentials auth.LoginCredentials) (auth.Credential, error) {
	a.mu.Lock()
	login := a.login
	a.mu.Unlock()

	a.logins <- credentials
	return login(server, credentials)
}

func (a *fakeAuth) failValidation(failure *auth.Failure) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.validate = func(auth.Credential) (auth.Credential, error) { return auth.Credential{}, failure }
}

type fakeChannel struct {
	mu          sync.Mutex
	emit        func(events.Event)
	sendErr     error
	disconnects int

	connects chan auth.Credential
	sent     chan string
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		connects: make(chan auth.Credential, 16),
		sent:     make(chan string, 16),
	}
}

func (c *fakeChannel) Connect(server string, credential auth.Credential, emit func(events.Event)) error {
	c.mu.Lock()
	c.emit = emit
	c.mu.Unlock()

	credential.Server = server
	c.connects <- credential
	return nil
}

func (c *fakeChannel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.emit = nil
}

func (c *fakeChannel) SendTurn(text string) error {
	c.mu.Lock()
	err := c.sendErr
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.sent <- text
	return nil
}

func (c *fakeChannel) deliver(t *testing.T, event events.Event) {
	t.Helper()
	c.mu.Lock()
	emit := c.emit
	c.mu.Unlock()
	if emit == nil {
		t.Fatalf("channel is not connected")
	}
	emit(event)
}

func (c *fakeChannel) respond(t *testing.T, response events.Response) {
	t.Helper()
	c.deliver(t, events.NewChannelResponse(response))
}

func (c *fakeChannel) disconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

type armCall struct {
	keyword string
	trigger func()
}

type fakeGate struct {
	mic *microphone

	mu        sync.Mutex
	trained   map[string]bool
	keyword   string
	onTrigger func()
	enabled   bool
	disarms   int
	destroyed bool

	arms chan armCall
}

func newFakeGate(mic *microphone, trained ...string) *fakeGate {
	g := &fakeGate{
		mic:     mic,
		trained: map[string]bool{},
		enabled: true,
		arms:    make(chan armCall, 16),
	}
	for _, keyword := range trained {
		g.trained[keyword] = true
	}
	return g
}

func (g *fakeGate) Arm(keyword string, onTrigger func()) error {
	g.mu.Lock()
	if keyword != "" && keyword != g.keyword {
		if !g.trained[keyword] {
			g.mu.Unlock()
			return fmt.Errorf("%w: %q", wakeword.ErrNoTrainingData, keyword)
		}
		g.keyword = keyword
	}
	if g.keyword == "" {
		g.mu.Unlock()
		return wakeword.ErrNoKeyword
	}
	g.onTrigger = onTrigger
	g.mic.setGate(true)
	call := armCall{keyword: g.keyword, trigger: onTrigger}
	g.mu.Unlock()

	g.arms <- call
	return nil
}

func (g *fakeGate) Disarm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disarms++
	g.onTrigger = nil
	g.mic.setGate(false)
}

func (g *fakeGate) SetKeyword(keyword string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.trained[keyword] {
		return false
	}
	g.keyword = keyword
	return true
}

func (g *fakeGate) SetEnabled(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = enabled
}

func (g *fakeGate) Destroy() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.destroyed = true
}

func (g *fakeGate) train(keyword string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trained[keyword] = true
}

// fire detects the keyword on the live arm, which stops listening.
func (g *fakeGate) fire(t *testing.T) {
	t.Helper()
	g.mu.Lock()
	trigger := g.onTrigger
	g.onTrigger = nil
	g.mic.setGate(false)
	g.mu.Unlock()

	if trigger == nil {
		t.Fatalf("wake word gate is not armed")
	}
	trigger()
}

func (g *fakeGate) isArmed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.onTrigger != nil
}

func (g *fakeGate) isDestroyed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.destroyed
}

type captureCall struct {
	timeout   time.Duration
	onOutcome func(speechtotext.Outcome)
}

type fakeCapture struct {
	mic *microphone

	mu        sync.Mutex
	active    bool
	onOutcome func(speechtotext.Outcome)
	cancels   int

	starts chan captureCall
}

func newFakeCapture(mic *microphone) *fakeCapture {
	return &fakeCapture{mic: mic, starts: make(chan captureCall, 16)}
}

func (c *fakeCapture) Start(_ context.Context, timeout time.Duration, onOutcome func(speechtotext.Outcome)) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return speechtotext.ErrCaptureActive
	}
	c.active = true
	c.onOutcome = onOutcome
	c.mic.setCapture(true)
	c.mu.Unlock()

	c.starts <- captureCall{timeout: timeout, onOutcome: onOutcome}
	return nil
}

func (c *fakeCapture) Cancel() {
	c.mu.Lock()
	c.cancels++
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	onOutcome := c.onOutcome
	c.mic.setCapture(false)
	c.mu.Unlock()

	onOutcome(speechtotext.Cancelled())
}

// finish ends the live attempt with outcome.
func (c *fakeCapture) finish(t *testing.T, outcome speechtotext.Outcome) {
	t.Helper()
	c.mu.Lock()
	onOutcome := c.onOutcome
	active := c.active
	c.active = false
	c.mic.setCapture(false)
	c.mu.Unlock()

	if !active {
		t.Fatalf("speech capture is not active")
	}
	onOutcome(outcome)
}

func (c *fakeCapture) cancelCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancels
}

type speakCall struct {
	text      string
	onOutcome func(texttospeech.Outcome)
}

type fakePlayer struct {
	mu    sync.Mutex
	stops int

	speaks chan speakCall
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{speaks: make(chan speakCall, 16)}
}

func (p *fakePlayer) Speak(_ context.Context, text string, onOutcome func(texttospeech.Outcome)) error {
	p.speaks <- speakCall{text: text, onOutcome: onOutcome}
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
}

func (p *fakePlayer) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

type fakeTrainer struct {
	ok       bool
	requests chan string
}

func (tr *fakeTrainer) Train(_ context.Context, name string) (bool, error) {
	tr.requests <- name
	return tr.ok, nil
}

// harness runs an orchestrator against fakes and records every intent it
// emits.
type harness struct {
	t *testing.T
	o *Orchestrator

	auth    *fakeAuth
	channel *fakeChannel
	gate    *fakeGate
	capture *fakeCapture
	player  *fakePlayer

	intents chan events.Event
	turns   []conversations.Turn
}

func newHarness(t *testing.T, opts ...OrchestratorOption) *harness {
	t.Helper()
	mic := &microphone{t: t}
	h := &harness{
		t:       t,
		auth:    newFakeAuth(),
		channel: newFakeChannel(),
		gate:    newFakeGate(mic, "Hal"),
		capture: newFakeCapture(mic),
		player:  newFakePlayer(),
		intents: make(chan events.Event, 1024),
	}

	defaults := []OrchestratorOption{
		WithAuthenticator(h.auth),
		WithDialogueChannel(h.channel),
		WithWakeWordGate(h.gate),
		WithSpeechCapture(h.capture),
		WithResponsePlayer(h.player),
		WithCredential(auth.Credential{Server: testServer, Token: "stored"}),
		WithKeyword("Hal"),
	}
	h.o = NewOrchestrator(append(defaults, opts...)...)
	t.Cleanup(h.o.Close)
	return h
}

func (h *harness) start() {
	h.o.Orchestrate(context.Background(), WithEventCallback(func(event events.Event) {
		h.intents <- event
	}))
}

// startArmed starts the session and waits until the wake word gate is armed.
func (h *harness) startArmed() armCall {
	h.t.Helper()
	h.start()
	receive(h.t, h.channel.connects, "channel connect")
	h.waitPhase(PhaseArmed)
	return receive(h.t, h.gate.arms, "gate arm")
}

func (h *harness) next() events.Event {
	h.t.Helper()
	event := receive(h.t, h.intents, "intent")
	if appended, ok := event.(events.TurnAppended); ok {
		h.turns = append(h.turns, appended.Turn)
	}
	return event
}

func (h *harness) waitPhase(phase Phase) {
	h.t.Helper()
	for {
		if changed, ok := h.next().(PhaseChanged); ok && changed.To == phase {
			return
		}
	}
}

func waitIntent[T events.Event](h *harness) T {
	h.t.Helper()
	for {
		if event, ok := h.next().(T); ok {
			return event
		}
	}
}

// quiet drains the intents emitted within a short period and returns them.
func (h *harness) quiet() []events.Event {
	h.t.Helper()
	var seen []events.Event
	deadline := time.After(quietPeriod)
	for {
		select {
		case event := <-h.intents:
			if appended, ok := event.(events.TurnAppended); ok {
				h.turns = append(h.turns, appended.Turn)
			}
			seen = append(seen, event)
		case <-deadline:
			return seen
		}
	}
}

func countIntents[T events.Event](seen []events.Event) int {
	count := 0
	for _, event := range seen {
		if _, ok := event.(T); ok {
			count++
		}
	}
	return count
}
