package orchestration

import (
	"github.com/koscakluka/ema-voice/core/auth"
	"github.com/koscakluka/ema-voice/core/events"
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	return func(event events.Event) {
		if opts.onEvent != nil {
			opts.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case PhaseChanged:
			if opts.onPhaseChanged != nil {
				opts.onPhaseChanged(typedEvent.To)
			}
		case events.TurnAppended:
			if opts.onTurn != nil {
				opts.onTurn(typedEvent.Turn)
			}
		case events.StatusMessage:
			if opts.onStatus != nil {
				opts.onStatus(typedEvent.Text)
			}
		case events.ListeningIndicatorPresented:
			if opts.onListeningChanged != nil {
				opts.onListeningChanged(true)
			}
		case events.ListeningIndicatorDismissed:
			if opts.onListeningChanged != nil {
				opts.onListeningChanged(false)
			}
		case events.SpeakingIndicatorPresented:
			if opts.onSpeakingChanged != nil {
				opts.onSpeakingChanged(true)
			}
		case events.SpeakingIndicatorDismissed:
			if opts.onSpeakingChanged != nil {
				opts.onSpeakingChanged(false)
			}
		case events.ConfigurationRequired:
			if opts.onConfigurationNeed != nil {
				opts.onConfigurationNeed()
			}
		case events.LoginRequired:
			if opts.onLoginRequired != nil {
				opts.onLoginRequired(typedEvent.Server, typedEvent.Reason)
			}
		case events.ConnectionRetryOffered:
			if opts.onConnectionRetry != nil {
				opts.onConnectionRetry(typedEvent.Reason)
			}
		case events.CredentialIssued:
			if opts.onCredentialIssued != nil {
				opts.onCredentialIssued(auth.Credential{Server: typedEvent.Server, Token: typedEvent.Token})
			}
		case events.TrainingRequired:
			if opts.onTrainingRequired != nil {
				opts.onTrainingRequired(typedEvent.Name)
			}
		case events.URLOpenRequested:
			if opts.onURLOpenRequested != nil {
				opts.onURLOpenRequested(typedEvent.URL)
			}
		}
	}
}
