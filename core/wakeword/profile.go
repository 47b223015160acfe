package wakeword

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoTrainingData is returned when a keyword has no trained profile.
var ErrNoTrainingData = errors.New("no training data for keyword")

// Profile is what the detector needs to recognise one keyword.
type Profile struct {
	Keyword     string   `yaml:"keyword"`
	Phrases     []string `yaml:"phrases"`
	Sensitivity float64  `yaml:"sensitivity,omitempty"`
}

type ProfileStore interface {
	Load(keyword string) (Profile, error)
}

// FileProfileStore keeps one YAML file per keyword in a directory.
type FileProfileStore struct {
	dir string
}

func NewFileProfileStore(dir string) *FileProfileStore {
	return &FileProfileStore{dir: dir}
}

func (s *FileProfileStore) Load(keyword string) (Profile, error) {
	path, err := s.path(keyword)
	if err != nil {
		return Profile{}, err
	}

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Profile{}, fmt.Errorf("%w: %q", ErrNoTrainingData, keyword)
	} else if err != nil {
		return Profile{}, fmt.Errorf("failed to open profile: %w", err)
	}
	defer file.Close()

	var profile Profile
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&profile); err != nil {
		return Profile{}, fmt.Errorf("failed to decode profile %q: %w", path, err)
	}
	if len(profile.Phrases) == 0 {
		return Profile{}, fmt.Errorf("%w: profile %q has no phrases", ErrNoTrainingData, keyword)
	}
	if profile.Keyword == "" {
		profile.Keyword = keyword
	}
	return profile, nil
}

func (s *FileProfileStore) Save(profile Profile) error {
	path, err := s.path(profile.Keyword)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	data, err := yaml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

func (s *FileProfileStore) path(keyword string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(keyword))
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid keyword %q", keyword)
	}
	return filepath.Join(s.dir, name+".yaml"), nil
}
