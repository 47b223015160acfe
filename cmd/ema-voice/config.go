package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type environment struct {
	DeepgramAPIKey string `env:"DEEPGRAM_API_KEY"`
	SettingsFile   string `env:"EMA_VOICE_SETTINGS"`
	ProfilesDir    string `env:"EMA_VOICE_PROFILES"`
	OTelEndpoint   string `env:"EMA_VOICE_OTEL_ENDPOINT"`
	LogFile        string `env:"EMA_VOICE_LOG_FILE"`
}

// loadEnvironment reads a .env file from the working directory, when there is
// one, and parses the environment.
func loadEnvironment() (environment, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return environment{}, fmt.Errorf("load .env: %w", err)
	}

	var environ environment
	if err := env.Parse(&environ); err != nil {
		return environment{}, fmt.Errorf("parse env: %w", err)
	}
	if environ.ProfilesDir == "" {
		environ.ProfilesDir = defaultProfilesDir()
	}
	return environ, nil
}

func defaultProfilesDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "ema-voice", "profiles")
}
