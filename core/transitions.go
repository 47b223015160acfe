package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-voice/core/auth"
	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/speechtotext"
	"github.com/koscakluka/ema-voice/core/texttospeech"
	"github.com/koscakluka/ema-voice/core/wakeword"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// step applies one event to the session. It reports true once the session
// has shut down.
func (o *Orchestrator) step(event events.Event) (stop bool) {
	ctx, span := tracer.Start(o.ctx, "session step")
	defer span.End()

	from := o.session.Phase
	span.SetAttributes(
		attribute.String("event.kind", string(event.Kind())),
		attribute.String("session.phase.from", from.String()),
	)

	switch e := event.(type) {
	case events.SessionStartRequested:
		o.startSession(ctx)
	case events.AuthSucceeded:
		o.authSucceeded(ctx, e)
	case events.AuthFailed:
		o.authFailed(ctx, e)
	case events.LoginSubmitted:
		o.login(ctx, e)
	case events.ConnectionRetryRequested:
		if o.session.Phase == PhaseAwaitingConnectionRetry {
			o.authenticate(ctx, events.AuthSourceValidate, nil)
		}
	case events.ConnectionRetryCancelled:
		if o.session.Phase == PhaseAwaitingConnectionRetry || o.session.Phase == PhaseAwaitingLoginRetry {
			o.setPhase(PhaseIdle)
			o.status("Connection cancelled")
		}

	case events.WakeWordTriggered:
		o.wakeWordTriggered(ctx, e)
	case events.ListeningRequested:
		o.listeningRequested(ctx)
	case events.ListeningStopRequested:
		if o.tokens.capture != "" {
			o.cancelCapture()
			o.settle(ctx)
		}
	case events.CaptureTranscript:
		if o.captureFinished(ctx, e.AttemptID) {
			o.transcribed(ctx, e.Text)
		}
	case events.CaptureTimedOut:
		if o.captureFinished(ctx, e.AttemptID) {
			logger.InfoContext(ctx, "speech capture timed out")
			o.settle(ctx)
		}
	case events.CaptureFailed:
		if o.captureFinished(ctx, e.AttemptID) {
			span.RecordError(e.Err)
			logger.WarnContext(ctx, "speech capture failed", "error", e.Err)
			o.status("Speech recognition failed")
			o.settle(ctx)
		}
	case events.CaptureCancelled:
		if o.captureFinished(ctx, e.AttemptID) {
			o.settle(ctx)
		}
	case events.TextSubmitted:
		o.textSubmitted(ctx, e.Text)

	case events.ChannelConnected:
		o.session.Connected = true
		o.status("Connected to " + o.session.Server)
	case events.ChannelDisconnected:
		o.session.Connected = false
		if e.Err != nil {
			logger.InfoContext(ctx, "dialogue channel disconnected", "error", e.Err)
		}
		o.status("Disconnected from server")
	case events.ChannelResponse:
		o.responded(ctx, e.Response)
	case events.ChannelNameAssigned:
		o.nameAssigned(ctx, e.Name)

	case events.PlaybackCompleted:
		if o.playbackFinished(e.RequestID) {
			o.spoken(ctx)
		}
	case events.PlaybackFailed:
		if o.playbackFinished(e.RequestID) {
			span.RecordError(e.Err)
			logger.WarnContext(ctx, "response playback failed", "error", e.Err)
			o.session.AwaitingFollowUp = false
			o.status("Playback failed")
			o.settle(ctx)
		}
	case events.SpeakingStopRequested:
		if o.tokens.playback != "" {
			o.stopPlayback()
			o.settle(ctx)
		}

	case events.KeywordTrainingRequested:
		o.trainKeyword(ctx)
	case events.KeywordTrained:
		o.keywordTrained(ctx, e)
	case events.WakeWordToggled:
		o.wakeWordToggled(ctx, e.Enabled)

	case events.ShutdownRequested:
		o.shutdown(ctx)
		stop = true

	default:
		logger.DebugContext(ctx, "ignoring event", "kind", event.Kind())
	}

	span.SetAttributes(attribute.String("session.phase.to", o.session.Phase.String()))
	o.commit()
	return stop
}

func (o *Orchestrator) setPhase(phase Phase) {
	if o.session.Phase == phase {
		return
	}
	from := o.session.Phase
	o.session.Phase = phase
	o.emit(NewPhaseChanged(from, phase))
}

func (o *Orchestrator) status(text string) {
	o.emit(events.NewStatusMessage(text))
}

func (o *Orchestrator) startSession(ctx context.Context) {
	if o.session.Phase != PhaseIdle {
		return
	}
	if o.session.Server == "" {
		o.status("No server configured")
		o.emit(events.NewConfigurationRequired())
		return
	}
	o.authenticate(ctx, events.AuthSourceValidate, nil)
}

// authenticate validates the stored credential, or logs in when credentials
// are given, on its own goroutine.
func (o *Orchestrator) authenticate(ctx context.Context, source events.AuthSource, credentials *auth.LoginCredentials) {
	attemptID := uuid.NewString()
	o.tokens.auth = attemptID
	o.setPhase(PhaseAuthenticating)

	server := o.session.Server
	stored := o.session.Credential
	stored.Server = server

	go func() {
		ctx, span := tracer.Start(o.ctx, "authenticate")
		defer span.End()
		span.SetAttributes(attribute.String("auth.source", string(source)))

		var credential auth.Credential
		var err error
		if credentials != nil {
			credential, err = o.authenticator.Login(ctx, server, *credentials)
		} else {
			credential, err = o.authenticator.Validate(ctx, &stored)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.post(events.NewAuthFailed(attemptID, source, err))
			return
		}
		o.post(events.NewAuthSucceeded(attemptID, source, credential.Server, credential.Token))
	}()
}

func (o *Orchestrator) authSucceeded(ctx context.Context, e events.AuthSucceeded) {
	if e.AttemptID != o.tokens.auth {
		logger.DebugContext(ctx, "dropping stale auth result")
		return
	}
	o.tokens.auth = ""

	server := e.Server
	if server == "" {
		server = o.session.Server
	}
	credential := auth.Credential{Server: server, Token: e.Token}
	if e.Source == events.AuthSourceLogin || credential != o.session.Credential {
		o.emit(events.NewCredentialIssued(credential.Server, credential.Token))
	}
	o.session.Credential = credential
	o.session.Server = server

	if err := o.channel.Connect(server, credential, o.post); err != nil {
		logger.WarnContext(ctx, "failed to connect dialogue channel", "error", err)
		o.setPhase(PhaseAwaitingConnectionRetry)
		o.emit(events.NewConnectionRetryOffered(err.Error()))
		return
	}

	o.setPhase(PhaseArmed)
	o.armGate(ctx)
}

func (o *Orchestrator) authFailed(ctx context.Context, e events.AuthFailed) {
	if e.AttemptID != o.tokens.auth {
		logger.DebugContext(ctx, "dropping stale auth result")
		return
	}
	o.tokens.auth = ""

	reason := auth.ReasonOf(e.Err)
	switch auth.KindOf(e.Err) {
	case auth.FailureNoServerConfigured:
		o.setPhase(PhaseIdle)
		o.status("No server configured")
		o.emit(events.NewConfigurationRequired())
	case auth.FailureUnauthorized:
		o.setPhase(PhaseAwaitingLoginRetry)
		o.emit(events.NewLoginRequired(o.session.Server, reason))
	default:
		if e.Source == events.AuthSourceLogin {
			o.setPhase(PhaseAwaitingLoginRetry)
			o.emit(events.NewLoginRequired(o.session.Server, reason))
			return
		}
		o.setPhase(PhaseAwaitingConnectionRetry)
		o.emit(events.NewConnectionRetryOffered(reason))
	}
}

func (o *Orchestrator) login(ctx context.Context, e events.LoginSubmitted) {
	phase := o.session.Phase
	if phase != PhaseAwaitingLoginRetry && !phase.Authenticated() {
		logger.DebugContext(ctx, "ignoring login", "phase", phase.String())
		return
	}
	if o.session.Server == "" {
		o.setPhase(PhaseIdle)
		o.emit(events.NewConfigurationRequired())
		return
	}

	if phase.Authenticated() {
		o.quiesce()
		o.channel.Disconnect()
		o.session.Connected = false
		o.session.PendingTurns = 0
	}
	o.authenticate(ctx, events.AuthSourceLogin, &auth.LoginCredentials{Username: e.Username, Password: e.Password})
}

// armGate starts wake word listening when the session allows it. Arming an
// armed gate is a no-op.
func (o *Orchestrator) armGate(ctx context.Context) {
	if o.gate == nil || !o.session.HotwordEnabled || o.session.KeywordSuspended {
		return
	}
	if o.tokens.arm != "" || o.tokens.capture != "" || o.tokens.playback != "" {
		return
	}

	armID := uuid.NewString()
	err := o.gate.Arm(o.session.Keyword, func() {
		o.post(events.NewWakeWordTriggered(armID))
	})
	switch {
	case err == nil:
		o.tokens.arm = armID
	case errors.Is(err, wakeword.ErrNoTrainingData):
		o.requireTraining(ctx, o.session.Keyword)
	default:
		logger.DebugContext(ctx, "wake word gate not armed", "error", err)
	}
}

func (o *Orchestrator) disarmGate() {
	if o.tokens.arm == "" {
		return
	}
	o.tokens.arm = ""
	o.gate.Disarm()
}

func (o *Orchestrator) wakeWordTriggered(ctx context.Context, e events.WakeWordTriggered) {
	if e.ArmID != o.tokens.arm {
		logger.DebugContext(ctx, "dropping stale wake word trigger")
		return
	}
	// The gate stops listening after firing.
	o.tokens.arm = ""

	switch o.session.Phase {
	case PhaseArmed, PhaseDispatching:
		o.startCapture(ctx)
	default:
		o.armGate(ctx)
	}
}

func (o *Orchestrator) listeningRequested(ctx context.Context) {
	switch o.session.Phase {
	case PhaseArmed, PhaseDispatching, PhaseSpeaking:
		o.startCapture(ctx)
	default:
		logger.DebugContext(ctx, "ignoring listening request", "phase", o.session.Phase.String())
	}
}

func (o *Orchestrator) startCapture(ctx context.Context) {
	if o.capture == nil {
		o.status("Speech capture unavailable")
		return
	}
	if o.tokens.capture != "" {
		return
	}

	o.disarmGate()
	if o.tokens.playback != "" {
		o.stopPlayback()
	}

	attemptID := uuid.NewString()
	err := o.capture.Start(o.ctx, o.captureTimeout, func(outcome speechtotext.Outcome) {
		o.post(captureEvent(attemptID, outcome))
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to start speech capture", "error", err)
		o.status("Speech recognition failed")
		o.settle(ctx)
		return
	}

	o.tokens.capture = attemptID
	o.setPhase(PhaseCapturing)
	o.emit(events.NewListeningIndicatorPresented())
}

func captureEvent(attemptID string, outcome speechtotext.Outcome) events.Event {
	switch outcome.Kind {
	case speechtotext.OutcomeTranscript:
		return events.NewCaptureTranscript(attemptID, outcome.Text)
	case speechtotext.OutcomeTimedOut:
		return events.NewCaptureTimedOut(attemptID)
	case speechtotext.OutcomeEngineError:
		return events.NewCaptureFailed(attemptID, outcome.Err)
	default:
		return events.NewCaptureCancelled(attemptID)
	}
}

// captureFinished retires the capture attempt when attemptID is current.
func (o *Orchestrator) captureFinished(ctx context.Context, attemptID string) bool {
	if attemptID != o.tokens.capture {
		logger.DebugContext(ctx, "dropping stale capture outcome")
		return false
	}
	o.tokens.capture = ""
	o.emit(events.NewListeningIndicatorDismissed())
	return true
}

// cancelCapture invalidates the attempt before cancelling it, so its
// Cancelled outcome is dropped as stale.
func (o *Orchestrator) cancelCapture() {
	if o.tokens.capture == "" {
		return
	}
	o.tokens.capture = ""
	o.capture.Cancel()
	o.emit(events.NewListeningIndicatorDismissed())
}

// stopPlayback cuts the current response short. Its follow-up is dropped
// with it.
func (o *Orchestrator) stopPlayback() {
	if o.tokens.playback == "" {
		return
	}
	o.tokens.playback = ""
	o.session.AwaitingFollowUp = false
	o.player.Stop()
	o.emit(events.NewSpeakingIndicatorDismissed())
}

// settle returns to a listening phase after a capture or playback cycle ends.
func (o *Orchestrator) settle(ctx context.Context) {
	if !o.session.Phase.Authenticated() {
		return
	}
	if o.tokens.capture == "" && o.tokens.playback == "" {
		o.setPhase(PhaseArmed)
	}
	o.armGate(ctx)
}

func (o *Orchestrator) transcribed(ctx context.Context, text string) {
	if !o.sendUserTurn(ctx, text) {
		o.settle(ctx)
		return
	}
	o.armGate(ctx)
}

func (o *Orchestrator) textSubmitted(ctx context.Context, text string) {
	if !o.session.Phase.Authenticated() {
		o.status("Not connected")
		return
	}
	if conversations.IsBlank(text) {
		return
	}
	o.cancelCapture()
	o.stopPlayback()
	o.transcribed(ctx, text)
}

// sendUserTurn appends text as a user turn and sends it. It reports whether
// the session now waits for a response.
func (o *Orchestrator) sendUserTurn(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	turn, ok := conversations.NewTurn(conversations.SpeakerUser, text)
	if !ok {
		return false
	}
	o.appendTurn(turn)

	if err := o.channel.SendTurn(text); err != nil {
		logger.WarnContext(ctx, "failed to send turn", "error", err)
		o.status("Server not connected")
		return false
	}

	o.session.PendingTurns++
	o.setPhase(PhaseDispatching)
	return true
}

func (o *Orchestrator) appendTurn(turn conversations.Turn) {
	o.session.TurnCount++
	turn.Seq = o.session.TurnCount
	o.emit(events.NewTurnAppended(turn))
}

func (o *Orchestrator) responded(ctx context.Context, response events.Response) {
	if !o.session.Phase.Authenticated() {
		logger.DebugContext(ctx, "dropping response outside of a session", "phase", o.session.Phase.String())
		return
	}
	if o.session.PendingTurns > 0 {
		o.session.PendingTurns--
	}

	if turn, ok := conversations.NewTurn(conversations.SpeakerAssistant, response.Displayed(),
		conversations.WithSpoken(response.Text),
		conversations.WithURL(response.URL),
		conversations.WithSilent(response.Silent),
		conversations.WithCanRespond(response.CanRespond),
	); ok {
		o.appendTurn(turn)
	}
	if response.URL != "" && response.URLAutoLaunch {
		o.emit(events.NewURLOpenRequested(response.URL))
	}

	if o.session.Phase == PhaseCapturing {
		logger.InfoContext(ctx, "response arrived while capturing, not speaking it")
		return
	}
	if response.Silent || !o.session.SpeechOutput || o.player == nil || conversations.IsBlank(response.Text) {
		if o.session.PendingTurns == 0 {
			o.settle(ctx)
		}
		return
	}

	o.speak(ctx, response)
}

func (o *Orchestrator) speak(ctx context.Context, response events.Response) {
	// The gate would hear the response.
	o.disarmGate()

	requestID := uuid.NewString()
	err := o.player.Speak(o.ctx, response.Text, func(outcome texttospeech.Outcome) {
		if outcome.Kind == texttospeech.OutcomeCompleted {
			o.post(events.NewPlaybackCompleted(requestID))
			return
		}
		o.post(events.NewPlaybackFailed(requestID, outcome.Err))
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to speak response", "error", err)
		o.stopPlayback()
		o.session.AwaitingFollowUp = false
		o.status("Playback failed")
		o.settle(ctx)
		return
	}

	if o.tokens.playback == "" {
		o.emit(events.NewSpeakingIndicatorPresented())
	}
	o.tokens.playback = requestID
	o.session.AwaitingFollowUp = response.ExpectsReply()
	o.setPhase(PhaseSpeaking)
}

func (o *Orchestrator) playbackFinished(requestID string) bool {
	if requestID != o.tokens.playback {
		logger.Debug("dropping stale playback outcome")
		return false
	}
	o.tokens.playback = ""
	o.emit(events.NewSpeakingIndicatorDismissed())
	return true
}

func (o *Orchestrator) spoken(ctx context.Context) {
	if o.session.AwaitingFollowUp {
		o.session.AwaitingFollowUp = false
		o.startCapture(ctx)
		if o.tokens.capture != "" {
			return
		}
	}
	o.settle(ctx)
}

func (o *Orchestrator) nameAssigned(ctx context.Context, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	o.session.Keyword = name
	if o.gate == nil {
		return
	}

	if o.gate.SetKeyword(name) {
		o.session.KeywordSuspended = false
		o.trainingRequested = ""
		o.status(fmt.Sprintf("Say %q to start talking", name))
		if o.session.Phase == PhaseArmed || o.session.Phase == PhaseDispatching {
			o.armGate(ctx)
		}
		return
	}

	if o.tokens.capture != "" {
		o.cancelCapture()
		if o.tokens.playback == "" {
			o.setPhase(PhaseArmed)
		}
	}
	o.requireTraining(ctx, name)
}

// requireTraining suspends wake word listening until name is trained. The
// training request is raised once per name.
func (o *Orchestrator) requireTraining(ctx context.Context, name string) {
	o.disarmGate()
	o.session.KeywordSuspended = true
	if o.trainingRequested == name {
		return
	}
	o.trainingRequested = name

	logger.InfoContext(ctx, "wake word needs training", "keyword", name)
	o.status(fmt.Sprintf("No voice profile for %q, training required", name))
	o.train(name)
}

// trainKeyword retrains the assigned keyword on request. Listening goes on
// with the current profile until the new one is in.
func (o *Orchestrator) trainKeyword(ctx context.Context) {
	name := o.session.Keyword
	if name == "" {
		o.status("Can't train without a name")
		return
	}
	logger.InfoContext(ctx, "wake word training requested", "keyword", name)
	o.train(name)
}

// train hands name to the trainer, or to the UI when there is none.
func (o *Orchestrator) train(name string) {
	o.emit(events.NewTrainingRequired(name))
	if o.trainer == nil {
		return
	}
	go func() {
		ok, err := o.trainer.Train(o.ctx, name)
		if err != nil {
			logger.WarnContext(o.ctx, "wake word training failed", "keyword", name, "error", err)
		}
		o.post(events.NewKeywordTrained(name, ok && err == nil))
	}()
}

func (o *Orchestrator) keywordTrained(ctx context.Context, e events.KeywordTrained) {
	name := e.Name
	if name == "" {
		name = o.session.Keyword
	}
	if name == "" || name != o.session.Keyword || o.gate == nil {
		return
	}
	// A later assignment of the same name asks again.
	o.trainingRequested = ""

	if !e.OK || !o.gate.SetKeyword(name) {
		o.status(fmt.Sprintf("Training for %q failed", name))
		return
	}

	o.session.KeywordSuspended = false
	o.status(fmt.Sprintf("Say %q to start talking", name))
	if o.session.Phase == PhaseArmed || o.session.Phase == PhaseDispatching {
		o.armGate(ctx)
	}
}

func (o *Orchestrator) wakeWordToggled(ctx context.Context, enabled bool) {
	o.session.HotwordEnabled = enabled
	if o.gate == nil {
		return
	}
	o.gate.SetEnabled(enabled)
	if !enabled {
		o.disarmGate()
		return
	}
	if o.session.Phase == PhaseArmed || o.session.Phase == PhaseDispatching {
		o.armGate(ctx)
	}
}

// quiesce stops every microphone and speaker activity.
func (o *Orchestrator) quiesce() {
	o.cancelCapture()
	o.stopPlayback()
	o.disarmGate()
	o.session.AwaitingFollowUp = false
}

func (o *Orchestrator) shutdown(ctx context.Context) {
	logger.InfoContext(ctx, "shutting down session")

	o.quiesce()
	if o.gate != nil {
		o.gate.Disarm()
		o.gate.Destroy()
	}
	o.channel.Disconnect()

	o.tokens = tokens{}
	o.session.Connected = false
	o.session.PendingTurns = 0
	o.setPhase(PhaseIdle)
	o.mailbox.close()
}
