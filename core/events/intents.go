package events

import "github.com/koscakluka/ema-voice/core/conversations"

const (
	KindTurnAppended                Kind = "intent.turn_appended"
	KindListeningIndicatorPresented Kind = "intent.listening_indicator_presented"
	KindListeningIndicatorDismissed Kind = "intent.listening_indicator_dismissed"
	KindSpeakingIndicatorPresented  Kind = "intent.speaking_indicator_presented"
	KindSpeakingIndicatorDismissed  Kind = "intent.speaking_indicator_dismissed"
	KindConfigurationRequired       Kind = "intent.configuration_required"
	KindLoginRequired               Kind = "intent.login_required"
	KindConnectionRetryOffered      Kind = "intent.connection_retry_offered"
	KindCredentialIssued            Kind = "intent.credential_issued"
	KindTrainingRequired            Kind = "intent.training_required"
	KindURLOpenRequested            Kind = "intent.url_open_requested"
	KindStatusMessage               Kind = "intent.status_message"
)

// TurnAppended asks the UI to append Turn to the transcript log.
type TurnAppended struct {
	Base
	Turn conversations.Turn
}

func NewTurnAppended(turn conversations.Turn) TurnAppended {
	return TurnAppended{Base: NewBase(KindTurnAppended), Turn: turn}
}

type ListeningIndicatorPresented struct{ Base }

func NewListeningIndicatorPresented() ListeningIndicatorPresented {
	return ListeningIndicatorPresented{Base: NewBase(KindListeningIndicatorPresented)}
}

type ListeningIndicatorDismissed struct{ Base }

func NewListeningIndicatorDismissed() ListeningIndicatorDismissed {
	return ListeningIndicatorDismissed{Base: NewBase(KindListeningIndicatorDismissed)}
}

type SpeakingIndicatorPresented struct{ Base }

func NewSpeakingIndicatorPresented() SpeakingIndicatorPresented {
	return SpeakingIndicatorPresented{Base: NewBase(KindSpeakingIndicatorPresented)}
}

type SpeakingIndicatorDismissed struct{ Base }

func NewSpeakingIndicatorDismissed() SpeakingIndicatorDismissed {
	return SpeakingIndicatorDismissed{Base: NewBase(KindSpeakingIndicatorDismissed)}
}

// ConfigurationRequired asks the caller to configure a server address.
type ConfigurationRequired struct{ Base }

func NewConfigurationRequired() ConfigurationRequired {
	return ConfigurationRequired{Base: NewBase(KindConfigurationRequired)}
}

// LoginRequired asks the caller to collect login credentials.
type LoginRequired struct {
	Base
	Server string
	Reason string
}

func NewLoginRequired(server, reason string) LoginRequired {
	return LoginRequired{Base: NewBase(KindLoginRequired), Server: server, Reason: reason}
}

// ConnectionRetryOffered asks the caller to either retry or cancel.
type ConnectionRetryOffered struct {
	Base
	Reason string
}

func NewConnectionRetryOffered(reason string) ConnectionRetryOffered {
	return ConnectionRetryOffered{Base: NewBase(KindConnectionRetryOffered), Reason: reason}
}

// CredentialIssued carries a fresh credential the caller should persist.
type CredentialIssued struct {
	Base
	Server string
	Token  string
}

func NewCredentialIssued(server, token string) CredentialIssued {
	return CredentialIssued{Base: NewBase(KindCredentialIssued), Server: server, Token: token}
}

// TrainingRequired asks the caller to collect wake-word training data for
// Name.
type TrainingRequired struct {
	Base
	Name string
}

func NewTrainingRequired(name string) TrainingRequired {
	return TrainingRequired{Base: NewBase(KindTrainingRequired), Name: name}
}

type URLOpenRequested struct {
	Base
	URL string
}

func NewURLOpenRequested(url string) URLOpenRequested {
	return URLOpenRequested{Base: NewBase(KindURLOpenRequested), URL: url}
}

// StatusMessage is a line of session status for the transcript view, it is
// not part of the conversation.
type StatusMessage struct {
	Base
	Text string
}

func NewStatusMessage(text string) StatusMessage {
	return StatusMessage{Base: NewBase(KindStatusMessage), Text: text}
}
