package conversations

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerStatus    Speaker = "status"
)

// Turn is one message of the conversation. Turns are values and are never
// changed after creation.
type Turn struct {
	ID string
	// Seq is the position of the turn within its session, starting at 1.
	Seq     int
	Speaker Speaker
	// Text is the displayed form of the turn.
	Text string
	// Spoken is the form handed to speech synthesis, assistant turns only.
	Spoken string
	URL    string

	Silent     bool
	CanRespond bool

	CreatedAt time.Time
}

type TurnOption func(*Turn)

func WithSpoken(spoken string) TurnOption {
	return func(t *Turn) { t.Spoken = spoken }
}

func WithURL(url string) TurnOption {
	return func(t *Turn) { t.URL = url }
}

func WithSilent(silent bool) TurnOption {
	return func(t *Turn) { t.Silent = silent }
}

func WithCanRespond(canRespond bool) TurnOption {
	return func(t *Turn) { t.CanRespond = canRespond }
}

// IsBlank reports whether text has nothing but whitespace.
func IsBlank(text string) bool {
	return len(strings.TrimSpace(text)) == 0
}

// NewTurn creates a turn for speaker. It returns false and no turn when text
// is blank.
func NewTurn(speaker Speaker, text string, opts ...TurnOption) (Turn, bool) {
	if IsBlank(text) {
		return Turn{}, false
	}

	turn := Turn{
		ID:        uuid.NewString(),
		Speaker:   speaker,
		Text:      text,
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&turn)
	}

	return turn, true
}
