package orchestration

import "github.com/koscakluka/ema-voice/core/events"

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAuthenticating
	// PhaseArmed waits for the wake word.
	PhaseArmed
	PhaseCapturing
	// PhaseDispatching waits for the response to a sent turn.
	PhaseDispatching
	PhaseSpeaking
	PhaseAwaitingLoginRetry
	PhaseAwaitingConnectionRetry
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseArmed:
		return "armed"
	case PhaseCapturing:
		return "capturing"
	case PhaseDispatching:
		return "dispatching"
	case PhaseSpeaking:
		return "speaking"
	case PhaseAwaitingLoginRetry:
		return "awaiting_login_retry"
	case PhaseAwaitingConnectionRetry:
		return "awaiting_connection_retry"
	default:
		return "unknown"
	}
}

// Authenticated reports whether the session holds a validated credential in
// phase p.
func (p Phase) Authenticated() bool {
	switch p {
	case PhaseArmed, PhaseCapturing, PhaseDispatching, PhaseSpeaking:
		return true
	default:
		return false
	}
}

const KindPhaseChanged events.Kind = "intent.phase_changed"

type PhaseChanged struct {
	events.Base
	From Phase
	To   Phase
}

func NewPhaseChanged(from, to Phase) PhaseChanged {
	return PhaseChanged{Base: events.NewBase(KindPhaseChanged), From: from, To: to}
}
