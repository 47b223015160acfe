package events

import (
	"errors"
	"testing"

	"github.com/koscakluka/ema-voice/core/conversations"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	turn, _ := conversations.NewTurn(conversations.SpeakerUser, "hello")

	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "wake word triggered", event: NewWakeWordTriggered("arm"), expected: KindWakeWordTriggered},
		{name: "capture transcript", event: NewCaptureTranscript("a", "hi"), expected: KindCaptureTranscript},
		{name: "capture timed out", event: NewCaptureTimedOut("a"), expected: KindCaptureTimedOut},
		{name: "capture failed", event: NewCaptureFailed("a", errors.New("boom")), expected: KindCaptureFailed},
		{name: "capture cancelled", event: NewCaptureCancelled("a"), expected: KindCaptureCancelled},
		{name: "channel connected", event: NewChannelConnected(), expected: KindChannelConnected},
		{name: "channel disconnected", event: NewChannelDisconnected(nil), expected: KindChannelDisconnected},
		{name: "channel response", event: NewChannelResponse(Response{Text: "ok"}), expected: KindChannelResponse},
		{name: "channel name assigned", event: NewChannelNameAssigned("Hal"), expected: KindChannelNameAssigned},
		{name: "playback completed", event: NewPlaybackCompleted("p"), expected: KindPlaybackCompleted},
		{name: "playback failed", event: NewPlaybackFailed("p", errors.New("boom")), expected: KindPlaybackFailed},
		{name: "auth succeeded", event: NewAuthSucceeded("x", AuthSourceValidate, "s", "t"), expected: KindAuthSucceeded},
		{name: "auth failed", event: NewAuthFailed("x", AuthSourceLogin, errors.New("no")), expected: KindAuthFailed},
		{name: "session start requested", event: NewSessionStartRequested(), expected: KindSessionStartRequested},
		{name: "listening requested", event: NewListeningRequested(), expected: KindListeningRequested},
		{name: "listening stop requested", event: NewListeningStopRequested(), expected: KindListeningStopRequested},
		{name: "speaking stop requested", event: NewSpeakingStopRequested(), expected: KindSpeakingStopRequested},
		{name: "text submitted", event: NewTextSubmitted("hi"), expected: KindTextSubmitted},
		{name: "login submitted", event: NewLoginSubmitted("u", "p"), expected: KindLoginSubmitted},
		{name: "connection retry requested", event: NewConnectionRetryRequested(), expected: KindConnectionRetryRequested},
		{name: "connection retry cancelled", event: NewConnectionRetryCancelled(), expected: KindConnectionRetryCancelled},
		{name: "keyword training requested", event: NewKeywordTrainingRequested(), expected: KindKeywordTrainingRequested},
		{name: "keyword trained", event: NewKeywordTrained("Hal", true), expected: KindKeywordTrained},
		{name: "wake word toggled", event: NewWakeWordToggled(true), expected: KindWakeWordToggled},
		{name: "shutdown requested", event: NewShutdownRequested(), expected: KindShutdownRequested},
		{name: "turn appended", event: NewTurnAppended(turn), expected: KindTurnAppended},
		{name: "listening presented", event: NewListeningIndicatorPresented(), expected: KindListeningIndicatorPresented},
		{name: "listening dismissed", event: NewListeningIndicatorDismissed(), expected: KindListeningIndicatorDismissed},
		{name: "speaking presented", event: NewSpeakingIndicatorPresented(), expected: KindSpeakingIndicatorPresented},
		{name: "speaking dismissed", event: NewSpeakingIndicatorDismissed(), expected: KindSpeakingIndicatorDismissed},
		{name: "configuration required", event: NewConfigurationRequired(), expected: KindConfigurationRequired},
		{name: "login required", event: NewLoginRequired("s", "r"), expected: KindLoginRequired},
		{name: "connection retry offered", event: NewConnectionRetryOffered("r"), expected: KindConnectionRetryOffered},
		{name: "credential issued", event: NewCredentialIssued("s", "t"), expected: KindCredentialIssued},
		{name: "training required", event: NewTrainingRequired("Hal"), expected: KindTrainingRequired},
		{name: "url open requested", event: NewURLOpenRequested("https://example.com"), expected: KindURLOpenRequested},
		{name: "status message", event: NewStatusMessage("connected"), expected: KindStatusMessage},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatalf("expected event timestamp to be set")
			}
		})
	}
}

func TestResponseDisplayedAppendsURL(t *testing.T) {
	testCases := []struct {
		name     string
		response Response
		expected string
	}{
		{name: "text only", response: Response{Text: "it's noon"}, expected: "it's noon"},
		{name: "text and url", response: Response{Text: "see", URL: "https://example.com"}, expected: "see https://example.com"},
		{name: "url only", response: Response{URL: "https://example.com"}, expected: "https://example.com"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.response.Displayed(); got != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestResponseExpectsReplyOnlyWhenSpoken(t *testing.T) {
	if !(Response{CanRespond: true}).ExpectsReply() {
		t.Fatalf("expected spoken response with canRespond to expect a reply")
	}
	if (Response{CanRespond: true, Silent: true}).ExpectsReply() {
		t.Fatalf("expected silent response never to expect a reply")
	}
	if (Response{}).ExpectsReply() {
		t.Fatalf("expected response without canRespond not to expect a reply")
	}
}
