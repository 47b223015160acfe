// Package settings persists the client settings between runs.
package settings

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Server string `yaml:"server,omitempty"`
	Token  string `yaml:"token,omitempty"`
	// Keyword is the wake word name last assigned by the service.
	Keyword string `yaml:"keyword,omitempty"`
	Hotword *bool  `yaml:"hotword,omitempty"`
	TTS     *bool  `yaml:"tts,omitempty"`
}

func Default() Settings {
	return Settings{Hotword: ptr(true), TTS: ptr(true)}
}

func (s Settings) HotwordEnabled() bool { return s.Hotword == nil || *s.Hotword }

func (s Settings) SpeechOutputEnabled() bool { return s.TTS == nil || *s.TTS }

// Merge returns base with every non-empty field of overrides applied. Set
// pointer fields replace the base value, even when they point at false.
func Merge(base, overrides Settings) (Settings, error) {
	if err := mergo.Merge(&base, overrides, mergo.WithOverride, mergo.WithoutDereference); err != nil {
		return Settings{}, fmt.Errorf("cannot merge settings: %w", err)
	}
	return base, nil
}

func (s *Settings) loadFrom(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s Settings) saveTo(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// DefaultFile is the settings file in the user's configuration directory.
func DefaultFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "ema-voice", "settings.yaml")
}

// Store reads and writes one settings file. Updates are serialized.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	if path == "" {
		path = DefaultFile()
	}
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads the settings file. A missing file yields the defaults.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Update applies change to the stored settings and writes them back.
func (s *Store) Update(change func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked()
	if err != nil {
		return err
	}
	change(&current)
	return s.saveLocked(current)
}

func (s *Store) loadLocked() (Settings, error) {
	loaded := Default()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return loaded, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("cannot open settings file %q: %w", s.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := loaded.loadFrom(f); err != nil {
		return Settings{}, fmt.Errorf("cannot load settings file %q: %w", s.path, err)
	}
	return loaded, nil
}

func (s *Store) saveLocked(settings Settings) error {
	_ = os.MkdirAll(filepath.Dir(s.path), 0700)

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("cannot open settings file %q: %w", s.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := settings.saveTo(f); err != nil {
		return fmt.Errorf("cannot write settings file %q: %w", s.path, err)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

// Bool returns a pointer to v for use in override settings.
func Bool(v bool) *bool { return ptr(v) }
