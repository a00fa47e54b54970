package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Defaults(t *testing.T) {
	root := t.TempDir()

	assert.False(t, SettingsExist(root))
	s, err := LoadSettings(root)
	require.NoError(t, err)

	assert.Equal(t, 3, s.MaxAttempts)
	assert.Equal(t, 1, s.FeedbackHistory)
	assert.Equal(t, 2*time.Minute, s.StepTimeout)
	assert.False(t, s.Execute)
	assert.Equal(t, filepath.Join(root, "data"), s.DataRoot)
	assert.Equal(t, filepath.Join(root, "custom_parsers"), s.OutputDir)
	assert.Empty(t, s.HistoryDB)
}

func TestLoadSettings_File(t *testing.T) {
	root := t.TempDir()
	yml := `
max_attempts: 5
step_timeout: 45s
feedback_history: 3
execute: true
sandbox_mode: host
data_root: /srv/statements
history_db: .parsegen/history.db
`
	require.NoError(t, os.WriteFile(filepath.Join(root, SettingsFile), []byte(yml), 0644))
	assert.True(t, SettingsExist(root))

	s, err := LoadSettings(root)
	require.NoError(t, err)

	assert.Equal(t, 5, s.MaxAttempts)
	assert.Equal(t, 45*time.Second, s.StepTimeout)
	assert.Equal(t, 3, s.FeedbackHistory)
	assert.True(t, s.Execute)
	assert.Equal(t, "host", s.SandboxMode)
	assert.Equal(t, "/srv/statements", s.DataRoot)
	assert.Equal(t, filepath.Join(root, ".parsegen/history.db"), s.HistoryDB)
	// Unset keys keep their defaults.
	assert.Equal(t, 2, s.Concurrency)
	assert.Equal(t, filepath.Join(root, "custom_parsers"), s.OutputDir)
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		want string
	}{
		{"zero attempts", "max_attempts: 0\n", "max_attempts"},
		{"negative history", "feedback_history: -1\n", "feedback_history"},
		{"bad yaml", "max_attempts: [\n", "failed to parse"},
		{"bad duration", "step_timeout: soon\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(root, SettingsFile), []byte(tt.yml), 0644))
			_, err := LoadSettings(root)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSaveSettings_RoundTrip(t *testing.T) {
	root := t.TempDir()
	s := DefaultSettings()
	s.MaxAttempts = 4
	s.DataRoot = "/abs/data"
	s.OutputDir = "/abs/out"
	require.NoError(t, SaveSettings(root, s))

	got, err := LoadSettings(root)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}
