package events

const (
	KindSessionStartRequested    Kind = "control.session_start_requested"
	KindListeningRequested       Kind = "control.listening_requested"
	KindListeningStopRequested   Kind = "control.listening_stop_requested"
	KindSpeakingStopRequested    Kind = "control.speaking_stop_requested"
	KindTextSubmitted            Kind = "control.text_submitted"
	KindLoginSubmitted           Kind = "control.login_submitted"
	KindConnectionRetryRequested Kind = "control.connection_retry_requested"
	KindConnectionRetryCancelled Kind = "control.connection_retry_cancelled"
	KindKeywordTrainingRequested Kind = "control.keyword_training_requested"
	KindKeywordTrained           Kind = "control.keyword_trained"
	KindWakeWordToggled          Kind = "control.wake_word_toggled"
	KindShutdownRequested        Kind = "control.shutdown_requested"
)

type SessionStartRequested struct{ Base }

func NewSessionStartRequested() SessionStartRequested {
	return SessionStartRequested{Base: NewBase(KindSessionStartRequested)}
}

// ListeningRequested asks for a capture that bypasses the wake word.
type ListeningRequested struct{ Base }

func NewListeningRequested() ListeningRequested {
	return ListeningRequested{Base: NewBase(KindListeningRequested)}
}

type ListeningStopRequested struct{ Base }

func NewListeningStopRequested() ListeningStopRequested {
	return ListeningStopRequested{Base: NewBase(KindListeningStopRequested)}
}

// SpeakingStopRequested is sent when the user dismisses the playback.
type SpeakingStopRequested struct{ Base }

func NewSpeakingStopRequested() SpeakingStopRequested {
	return SpeakingStopRequested{Base: NewBase(KindSpeakingStopRequested)}
}

// TextSubmitted carries a typed user message.
type TextSubmitted struct {
	Base
	Text string
}

func NewTextSubmitted(text string) TextSubmitted {
	return TextSubmitted{Base: NewBase(KindTextSubmitted), Text: text}
}

type LoginSubmitted struct {
	Base
	Username string
	Password string
}

func NewLoginSubmitted(username, password string) LoginSubmitted {
	return LoginSubmitted{Base: NewBase(KindLoginSubmitted), Username: username, Password: password}
}

type ConnectionRetryRequested struct{ Base }

func NewConnectionRetryRequested() ConnectionRetryRequested {
	return ConnectionRetryRequested{Base: NewBase(KindConnectionRetryRequested)}
}

type ConnectionRetryCancelled struct{ Base }

func NewConnectionRetryCancelled() ConnectionRetryCancelled {
	return ConnectionRetryCancelled{Base: NewBase(KindConnectionRetryCancelled)}
}

// KeywordTrainingRequested asks to collect training data for the current
// keyword again.
type KeywordTrainingRequested struct{ Base }

func NewKeywordTrainingRequested() KeywordTrainingRequested {
	return KeywordTrainingRequested{Base: NewBase(KindKeywordTrainingRequested)}
}

// KeywordTrained reports the outcome of a training-data collection for Name.
type KeywordTrained struct {
	Base
	Name string
	OK   bool
}

func NewKeywordTrained(name string, ok bool) KeywordTrained {
	return KeywordTrained{Base: NewBase(KindKeywordTrained), Name: name, OK: ok}
}

type WakeWordToggled struct {
	Base
	Enabled bool
}

func NewWakeWordToggled(enabled bool) WakeWordToggled {
	return WakeWordToggled{Base: NewBase(KindWakeWordToggled), Enabled: enabled}
}

type ShutdownRequested struct{ Base }

func NewShutdownRequested() ShutdownRequested {
	return ShutdownRequested{Base: NewBase(KindShutdownRequested)}
}
