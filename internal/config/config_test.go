package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 50, cfg.Status.TailLines)
	assert.Equal(t, "python3", cfg.Env.Python)
	assert.Equal(t, "main.py", cfg.Env.Entrypoint)
	assert.Contains(t, cfg.Status.RequiredKeys, "TRAKT_CLIENT_ID")
	assert.Contains(t, cfg.Status.RequiredKeys, "DISCORD_CLIENT_ID")
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presencectl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
status:
  tail_lines: 10
env:
  python: python3.12
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Status.TailLines)
	assert.Equal(t, "python3.12", cfg.Env.Python)
	// Unset fields keep their defaults.
	assert.Equal(t, "requirements.txt", cfg.Env.Requirements)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad level", "logging:\n  level: loud\n"},
		{"zero tail", "status:\n  tail_lines: 0\n"},
		{"empty python", "env:\n  python: \"\"\n"},
		{"not yaml", "{{{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
