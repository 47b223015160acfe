package orchestration

import "github.com/koscakluka/ema-voice/core/auth"

// Session is the state owned by the orchestrator's event loop. Values handed
// out by [Orchestrator.Session] are copies.
type Session struct {
	Phase      Phase
	Credential auth.Credential
	Server     string
	// Connected mirrors the dialogue channel lifecycle events.
	Connected bool
	TurnCount int
	// AwaitingFollowUp is set while a spoken response that allows a reply
	// without the wake word is playing.
	AwaitingFollowUp bool
	// PendingTurns counts sent turns without a response yet.
	PendingTurns int

	Keyword string
	// KeywordSuspended is set while the assigned keyword has no trained
	// profile and wake word listening is paused.
	KeywordSuspended bool
	HotwordEnabled   bool
	SpeechOutput     bool
}
