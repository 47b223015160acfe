package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/ema-voice/core/auth"
	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/speechtotext"
	"github.com/koscakluka/ema-voice/core/texttospeech"
)

// DefaultCaptureTimeout bounds a single speech capture attempt.
const DefaultCaptureTimeout = 20 * time.Second

type OrchestratorOption func(*Orchestrator)

type Authenticator interface {
	Validate(ctx context.Context, stored *auth.Credential) (auth.Credential, error)
	Login(ctx context.Context, server string, credentials auth.LoginCredentials) (auth.Credential, error)
}

func WithAuthenticator(authenticator Authenticator) OrchestratorOption {
	return func(o *Orchestrator) {
		if authenticator != nil {
			o.authenticator = authenticator
		}
	}
}

type DialogueChannel interface {
	Connect(server string, credential auth.Credential, emit func(events.Event)) error
	Disconnect()
	SendTurn(text string) error
}

func WithDialogueChannel(channel DialogueChannel) OrchestratorOption {
	return func(o *Orchestrator) {
		if channel != nil {
			o.channel = channel
		}
	}
}

type WakeWordGate interface {
	Arm(keyword string, onTrigger func()) error
	Disarm()
	SetKeyword(keyword string) bool
	SetEnabled(enabled bool)
	Destroy()
}

// WithWakeWordGate enables wake word listening. Without a gate capture only
// starts on [Orchestrator.StartListening].
func WithWakeWordGate(gate WakeWordGate) OrchestratorOption {
	return func(o *Orchestrator) {
		o.gate = gate
	}
}

type SpeechCapture interface {
	Start(ctx context.Context, timeout time.Duration, onOutcome func(speechtotext.Outcome)) error
	Cancel()
}

func WithSpeechCapture(capture SpeechCapture) OrchestratorOption {
	return func(o *Orchestrator) {
		o.capture = capture
	}
}

type ResponsePlayer interface {
	Speak(ctx context.Context, text string, onOutcome func(texttospeech.Outcome)) error
	Stop()
}

func WithResponsePlayer(player ResponsePlayer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.player = player
	}
}

// Trainer collects training data for a keyword and reports whether a usable
// profile was produced.
type Trainer interface {
	Train(ctx context.Context, name string) (bool, error)
}

func WithTrainer(trainer Trainer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.trainer = trainer
	}
}

func WithServer(server string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.session.Server = server
	}
}

// WithCredential sets the stored credential validated on session start. Its
// server is used when no server was set explicitly.
func WithCredential(credential auth.Credential) OrchestratorOption {
	return func(o *Orchestrator) {
		o.session.Credential = credential
		if o.session.Server == "" {
			o.session.Server = credential.Server
		}
	}
}

func WithHotword(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.session.HotwordEnabled = enabled
	}
}

// WithSpeechOutput turns spoken responses on or off. Responses are still
// appended as turns when it is off.
func WithSpeechOutput(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.session.SpeechOutput = enabled
	}
}

func WithCaptureTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.captureTimeout = timeout
		}
	}
}

// WithKeyword sets the wake word used until the service assigns a name.
func WithKeyword(keyword string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.session.Keyword = keyword
	}
}

type OrchestrateOptions struct {
	onEvent             func(event events.Event)
	onPhaseChanged      func(phase Phase)
	onTurn              func(turn conversations.Turn)
	onStatus            func(text string)
	onListeningChanged  func(isListening bool)
	onSpeakingChanged   func(isSpeaking bool)
	onConfigurationNeed func()
	onLoginRequired     func(server, reason string)
	onConnectionRetry   func(reason string)
	onCredentialIssued  func(credential auth.Credential)
	onTrainingRequired  func(name string)
	onURLOpenRequested  func(url string)
}

type OrchestrateOption func(*OrchestrateOptions)

// WithEventCallback registers a callback receiving every emitted intent
// before the specific callbacks run.
//
// Callbacks run on the event loop and must not block. They may call the
// orchestrator's methods.
func WithEventCallback(callback func(event events.Event)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onEvent = callback
	}
}

func WithPhaseChangedCallback(callback func(phase Phase)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onPhaseChanged = callback
	}
}

// WithTurnCallback registers a callback for every turn appended to the
// conversation, user and assistant alike.
func WithTurnCallback(callback func(turn conversations.Turn)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onTurn = callback
	}
}

func WithStatusCallback(callback func(text string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onStatus = callback
	}
}

func WithListeningIndicatorCallback(callback func(isListening bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onListeningChanged = callback
	}
}

func WithSpeakingIndicatorCallback(callback func(isSpeaking bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onSpeakingChanged = callback
	}
}

func WithConfigurationRequiredCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onConfigurationNeed = callback
	}
}

// WithLoginRequiredCallback registers the login prompt. Answer it with
// [Orchestrator.Login].
func WithLoginRequiredCallback(callback func(server, reason string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onLoginRequired = callback
	}
}

// WithConnectionRetryCallback registers the retry prompt. Answer it with
// [Orchestrator.RetryConnection] or [Orchestrator.CancelConnectionRetry].
func WithConnectionRetryCallback(callback func(reason string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onConnectionRetry = callback
	}
}

// WithCredentialCallback registers a callback for credentials that should be
// persisted.
func WithCredentialCallback(callback func(credential auth.Credential)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onCredentialIssued = callback
	}
}

func WithTrainingRequiredCallback(callback func(name string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onTrainingRequired = callback
	}
}

func WithURLOpenCallback(callback func(url string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onURLOpenRequested = callback
	}
}
