package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	tea "github.com/charmbracelet/bubbletea"

	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/auth"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/internal/settings"
)

type flags struct {
	settingsFile string
	server       string
	noHotword    bool
	noTTS        bool
}

func main() {
	var f flags

	app := kingpin.New("ema-voice", "Voice client for the Ema dialogue service.")
	app.Flag("settings", "File the settings are loaded from and stored to.").
		Short('c').
		StringVar(&f.settingsFile)
	app.Flag("server", "Dialogue server to connect to, stored for later runs.").
		StringVar(&f.server)
	app.Flag("no-hotword", "Listen only on request, never for the wake word.").
		BoolVar(&f.noHotword)
	app.Flag("no-tts", "Show responses without speaking them.").
		BoolVar(&f.noTTS)

	runCmd := app.Command("run", "Start a voice session.").Default()
	forgetCmd := app.Command("forget", "Drop the stored credential.")

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	environ, err := loadEnvironment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ema-voice: %v\n", err)
		os.Exit(1)
	}
	if f.settingsFile == "" {
		f.settingsFile = environ.SettingsFile
	}
	store := settings.NewStore(f.settingsFile)

	switch command {
	case runCmd.FullCommand():
		err = run(f, environ, store)
	case forgetCmd.FullCommand():
		err = store.Update(func(s *settings.Settings) { s.Token = "" })
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ema-voice: %v\n", err)
		os.Exit(1)
	}
}

// resolveSettings merges the command line into the stored settings. A server
// given on the command line is stored, and replaces the token when it
// differs from the stored one.
func resolveSettings(f flags, store *settings.Store) (settings.Settings, error) {
	stored, err := store.Load()
	if err != nil {
		return settings.Settings{}, err
	}

	var overrides settings.Settings
	overrides.Server = f.server
	if f.noHotword {
		overrides.Hotword = settings.Bool(false)
	}
	if f.noTTS {
		overrides.TTS = settings.Bool(false)
	}

	if f.server != "" && f.server != stored.Server {
		if err := store.Update(func(s *settings.Settings) {
			s.Server = f.server
			s.Token = ""
		}); err != nil {
			return settings.Settings{}, err
		}
		stored.Token = ""
	}

	return settings.Merge(stored, overrides)
}

func run(f flags, environ environment, store *settings.Store) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	current, err := resolveSettings(f, store)
	if err != nil {
		return err
	}

	shutdownTelemetry, err := setupTelemetry(ctx, environ)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "ema-voice: telemetry shutdown: %v\n", err)
		}
	}()

	opts := []orchestration.OrchestratorOption{
		orchestration.WithCredential(auth.Credential{Server: current.Server, Token: current.Token}),
		orchestration.WithHotword(current.HotwordEnabled()),
		orchestration.WithSpeechOutput(current.SpeechOutputEnabled()),
		orchestration.WithKeyword(current.Keyword),
	}
	voice, voiceErr := newVoiceStack(environ.DeepgramAPIKey, environ.ProfilesDir)
	if voiceErr != nil {
		logger.WarnContext(ctx, "voice disabled, typed input only", "error", voiceErr)
	} else {
		defer voice.Close()
		opts = append(opts, voice.opts...)
	}

	session := orchestration.NewOrchestrator(opts...)
	program := tea.NewProgram(newModel(session, func(server, token string) error {
		return store.Update(func(s *settings.Settings) {
			s.Server = server
			s.Token = token
		})
	}), tea.WithAltScreen(), tea.WithContext(ctx))

	intents := newIntentBridge(program)
	defer intents.close()
	session.Orchestrate(ctx, orchestration.WithEventCallback(intents.push))
	if voiceErr != nil {
		intents.push(events.NewStatusMessage("Voice disabled: " + voiceErr.Error()))
	}

	_, runErr := program.Run()
	session.Close()

	if keyword := session.Session().Keyword; keyword != "" && keyword != current.Keyword {
		if err := store.Update(func(s *settings.Settings) { s.Keyword = keyword }); err != nil {
			logger.WarnContext(ctx, "failed to store keyword", "error", err)
		}
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}
