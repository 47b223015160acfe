// Package events defines the typed event contract of the voice session.
//
// Events flow in two directions. Inbound events are produced by the session
// collaborators and by the caller and are consumed by the session event loop:
//
//   - wake_word.*: the wake-word gate detected the trigger phrase.
//   - capture.*: a speech capture attempt terminated.
//   - channel.*: the dialogue channel connected, disconnected or delivered a
//     message from the dialogue service.
//   - playback.*: a response playback request terminated.
//   - auth.*: a credential validation or login call finished.
//   - control.*: the caller asked the session to do something.
//
// Outbound events (intents) are emitted by the session loop and consumed by
// the UI collaborator:
//
//   - intent.*: a turn was appended, an indicator should be shown or hidden,
//     the user has to log in, retry, configure a server or train a keyword.
//
// Inbound events that belong to one attempt (capture, playback, wake-word
// arm, auth call) carry the attempt ID assigned when the attempt started. The
// session loop drops events whose attempt is no longer current.
package events
