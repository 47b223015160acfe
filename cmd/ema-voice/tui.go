package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/events"
)

// controls are the session operations the terminal drives.
type controls interface {
	StartListening()
	StopListening()
	StopSpeaking()
	SendText(text string)
	Login(username, password string)
	RetryConnection()
	CancelConnectionRetry()
	SetWakeWordEnabled(enabled bool)
	TrainKeyword()
	Session() orchestration.Session
}

type intentMsg struct{ event events.Event }

type credentialSavedMsg struct{ err error }

type prompt int

const (
	promptNone prompt = iota
	promptUsername
	promptPassword
	promptRetry
)

type theme struct {
	header    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	status    lipgloss.Style
	link      lipgloss.Style
	indicator lipgloss.Style
	help      lipgloss.Style
}

func newTheme() theme {
	mint := lipgloss.Color("#05ffa1")
	blue := lipgloss.Color("#01cdfe")
	pink := lipgloss.Color("#ff71ce")
	muted := lipgloss.Color("#9ca3d8")

	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue),
		user:      lipgloss.NewStyle().Foreground(mint).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(blue).Bold(true),
		status:    lipgloss.NewStyle().Foreground(muted).Italic(true),
		link:      lipgloss.NewStyle().Foreground(blue).Underline(true),
		indicator: lipgloss.NewStyle().Foreground(pink).Bold(true),
		help:      lipgloss.NewStyle().Foreground(muted),
	}
}

type model struct {
	session    controls
	saveToken  func(server, token string) error
	transcript *conversations.Log

	input    textinput.Model
	prompt   prompt
	username string
	server   string

	phase     orchestration.Phase
	listening bool
	speaking  bool
	wakeWord  bool

	width int
	theme theme
}

func newModel(session controls, saveToken func(server, token string) error) model {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Placeholder = "Type a message, or say the wake word"
	input.Focus()

	return model{
		session:    session,
		saveToken:  saveToken,
		transcript: &conversations.Log{},
		input:      input,
		wakeWord:   session.Session().HotwordEnabled,
		theme:      newTheme(),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(10, msg.Width-4)
		return m, nil

	case intentMsg:
		return m.handleIntent(msg.event)

	case credentialSavedMsg:
		if msg.err != nil {
			m.addStatus("Could not save the credential: " + msg.err.Error())
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+l":
			m.session.StartListening()
			return m, nil
		case "ctrl+w":
			m.wakeWord = !m.wakeWord
			m.session.SetWakeWordEnabled(m.wakeWord)
			return m, nil
		case "ctrl+t":
			m.session.TrainKeyword()
			return m, nil
		case "ctrl+u":
			if m.prompt == promptNone && m.phase.Authenticated() {
				m.promptLogin(m.session.Session().Server)
			}
			return m, nil
		case "esc":
			switch m.prompt {
			case promptRetry, promptUsername, promptPassword:
				// Outside a retry phase this only closes the prompt.
				m.session.CancelConnectionRetry()
				m.resetPrompt()
				return m, nil
			}
			if m.listening {
				m.session.StopListening()
			} else if m.speaking {
				m.session.StopSpeaking()
			}
			return m, nil
		case "enter":
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) submit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	switch m.prompt {
	case promptUsername:
		if value == "" {
			return m, nil
		}
		m.username = value
		m.prompt = promptPassword
		m.input.Placeholder = "Password"
		m.input.EchoMode = textinput.EchoPassword
	case promptPassword:
		m.session.Login(m.username, value)
		m.resetPrompt()
	case promptRetry:
		if strings.EqualFold(value, "n") {
			m.session.CancelConnectionRetry()
		} else {
			m.session.RetryConnection()
		}
		m.resetPrompt()
	default:
		if value != "" {
			m.session.SendText(value)
		}
	}
	return m, nil
}

func (m *model) promptLogin(server string) {
	m.server = server
	m.prompt = promptUsername
	m.input.Reset()
	m.input.Placeholder = "Username for " + server
}

func (m *model) resetPrompt() {
	m.prompt = promptNone
	m.username = ""
	m.input.Placeholder = "Type a message, or say the wake word"
	m.input.EchoMode = textinput.EchoNormal
}

func (m model) handleIntent(event events.Event) (tea.Model, tea.Cmd) {
	switch e := event.(type) {
	case orchestration.PhaseChanged:
		m.phase = e.To
	case events.TurnAppended:
		m.transcript.Append(e.Turn)
	case events.StatusMessage:
		m.addStatus(e.Text)
	case events.ListeningIndicatorPresented:
		m.listening = true
	case events.ListeningIndicatorDismissed:
		m.listening = false
	case events.SpeakingIndicatorPresented:
		m.speaking = true
	case events.SpeakingIndicatorDismissed:
		m.speaking = false
	case events.ConfigurationRequired:
		m.addStatus("Run ema-voice --server <url> to choose a server")
	case events.LoginRequired:
		if e.Reason != "" {
			m.addStatus("Login required: " + e.Reason)
		} else {
			m.addStatus("Login required")
		}
		m.promptLogin(e.Server)
	case events.ConnectionRetryOffered:
		m.addStatus("Could not reach the server: " + e.Reason)
		m.prompt = promptRetry
		m.input.Placeholder = "Retry? [Y/n]"
	case events.CredentialIssued:
		save := m.saveToken
		return m, func() tea.Msg {
			return credentialSavedMsg{err: save(e.Server, e.Token)}
		}
	case events.TrainingRequired:
		m.addStatus(fmt.Sprintf("Collecting voice samples for %q", e.Name))
	case events.URLOpenRequested:
		m.addStatus("Open " + e.URL)
	}
	return m, nil
}

func (m *model) addStatus(text string) {
	if turn, ok := conversations.NewTurn(conversations.SpeakerStatus, text); ok {
		m.transcript.Append(turn)
	}
}

func (m model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	state := m.phase.String()
	if m.listening {
		state += " " + m.theme.indicator.Render("● listening")
	}
	if m.speaking {
		state += " " + m.theme.indicator.Render("♪ speaking")
	}
	if !m.wakeWord {
		state += " " + m.theme.help.Render("(wake word off)")
	}
	header := m.theme.header.Render("ema-voice · " + state)

	var lines []string
	for turn := range m.transcript.Values {
		lines = append(lines, m.renderTurn(turn, width-2))
	}

	help := m.theme.help.Render("enter send · ctrl+l listen · esc stop · ctrl+w wake word · ctrl+t train · ctrl+u change user · ctrl+c quit")
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		strings.Join(lines, "\n"),
		m.input.View(),
		help,
	)
}

func (m model) renderTurn(turn conversations.Turn, width int) string {
	text := wordwrap.String(turn.Text, max(10, width))
	switch turn.Speaker {
	case conversations.SpeakerUser:
		return m.theme.user.Render("you") + "  " + text
	case conversations.SpeakerAssistant:
		if turn.URL != "" {
			spoken := wordwrap.String(turn.Spoken, max(10, width))
			text = strings.TrimSpace(spoken + " " + m.theme.link.Render(turn.URL))
		}
		return m.theme.assistant.Render("ema") + "  " + text
	default:
		return m.theme.status.Render(text)
	}
}
