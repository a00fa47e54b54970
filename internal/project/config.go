package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// SettingsFile is the name of the per-project settings file.
const SettingsFile = "parsegen.yaml"

// Settings holds per-project configuration for synthesis runs.
type Settings struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	StepTimeout     time.Duration `yaml:"step_timeout"`
	FeedbackHistory int           `yaml:"feedback_history"`
	TextPrefix      int           `yaml:"text_prefix"` // document chars shown to the generator
	SampleRows      int           `yaml:"sample_rows"` // expected rows shown to the generator
	Execute         bool          `yaml:"execute"`     // run candidates against the sample
	ExecTimeout     time.Duration `yaml:"exec_timeout"`
	SandboxMode     string        `yaml:"sandbox_mode"` // auto, docker or host
	Concurrency     int           `yaml:"concurrency"`  // targets processed at once by run --all
	DataRoot        string        `yaml:"data_root"`
	OutputDir       string        `yaml:"output_dir"`
	HistoryDB       string        `yaml:"history_db"`   // empty disables run history
	MetricsFile     string        `yaml:"metrics_file"` // empty disables the textfile export
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() Settings {
	return Settings{
		MaxAttempts:     3,
		StepTimeout:     2 * time.Minute,
		FeedbackHistory: 1,
		ExecTimeout:     30 * time.Second,
		SandboxMode:     "auto",
		Concurrency:     2,
		DataRoot:        "data",
		OutputDir:       "custom_parsers",
	}
}

// settingsPath returns the full path to the settings file.
func settingsPath(projectRoot string) string {
	return filepath.Join(projectRoot, SettingsFile)
}

// SettingsExist checks if a project settings file exists.
func SettingsExist(projectRoot string) bool {
	_, err := os.Stat(settingsPath(projectRoot))
	return err == nil
}

// LoadSettings reads parsegen.yaml from projectRoot over the defaults.
// A missing file yields the defaults and no error. Relative paths are
// resolved against projectRoot.
func LoadSettings(projectRoot string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(settingsPath(projectRoot))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Settings{}, fmt.Errorf("failed to read project settings: %w", err)
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("failed to parse %s: %w", SettingsFile, err)
		}
	}

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid %s: %w", SettingsFile, err)
	}
	s.DataRoot = resolve(projectRoot, s.DataRoot)
	s.OutputDir = resolve(projectRoot, s.OutputDir)
	s.HistoryDB = resolve(projectRoot, s.HistoryDB)
	s.MetricsFile = resolve(projectRoot, s.MetricsFile)
	return s, nil
}

// Validate rejects values no run can use.
func (s Settings) Validate() error {
	switch {
	case s.MaxAttempts < 1:
		return fmt.Errorf("max_attempts must be at least 1, got %d", s.MaxAttempts)
	case s.StepTimeout < 0:
		return fmt.Errorf("step_timeout must not be negative, got %v", s.StepTimeout)
	case s.FeedbackHistory < 0:
		return fmt.Errorf("feedback_history must not be negative, got %d", s.FeedbackHistory)
	case s.TextPrefix < 0 || s.SampleRows < 0:
		return errors.New("text_prefix and sample_rows must not be negative")
	case s.Concurrency < 1:
		return fmt.Errorf("concurrency must be at least 1, got %d", s.Concurrency)
	}
	return nil
}

// SaveSettings writes s to projectRoot/parsegen.yaml.
func SaveSettings(projectRoot string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal project settings: %w", err)
	}
	if err := os.WriteFile(settingsPath(projectRoot), data, 0644); err != nil {
		return fmt.Errorf("failed to write project settings: %w", err)
	}
	return nil
}

func resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
