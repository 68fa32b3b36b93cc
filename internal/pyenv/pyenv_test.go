package pyenv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/trakt-tools/presencectl/internal/config"
	"github.com/trakt-tools/presencectl/internal/execx"
)

func newProvisioner(t *testing.T, fake *execx.Fake) *Provisioner {
	t.Helper()
	return New(fake, zaptest.NewLogger(t), config.DefaultConfig().Env)
}

func TestLocatePathsAreUnderProjectRoot(t *testing.T) {
	env := newProvisioner(t, execx.NewFake()).Locate("/srv/presence")
	assert.Equal(t, filepath.Join("/srv/presence", EnvDirName), env.Root)
	assert.Equal(t, filepath.Join(env.Root, "bin", "python"), env.Interpreter)
	assert.Equal(t, filepath.Join(env.Root, "bin", "pip"), env.Pip)
	assert.Equal(t, "/srv/presence/requirements.txt", env.Manifest)
}

func TestEnsureCreatesWhenAbsent(t *testing.T) {
	root := t.TempDir()
	fake := execx.NewFake()
	p := newProvisioner(t, fake)

	env, err := p.Ensure(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, env.Valid)

	require.NotEmpty(t, fake.CallsWithPrefix("python3 -m venv"))
	// No manifest in the temp dir, so pip install -r must not run.
	assert.Empty(t, fake.CallsWithPrefix(env.Pip+" install -r"))
}

func TestEnsureRefreshesHealthyEnvironment(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, EnvDirName), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "requirements.txt"), []byte("requests\n"), 0644))

	fake := execx.NewFake()
	p := newProvisioner(t, fake)

	env, err := p.Ensure(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, env.Valid)

	// Probe succeeded: no recreation, only a manifest refresh.
	assert.Empty(t, fake.CallsWithPrefix("python3 -m venv"))
	assert.NotEmpty(t, fake.CallsWithPrefix(env.Pip+" install -r"))
}

func TestEnsureRebuildsOnProbeFailure(t *testing.T) {
	root := t.TempDir()
	envRoot := filepath.Join(root, EnvDirName)
	require.NoError(t, os.MkdirAll(envRoot, 0755))
	// Leave a marker so we can observe the destructive rebuild.
	marker := filepath.Join(envRoot, "stale")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0644))

	fake := execx.NewFake()
	fake.Respond(filepath.Join(envRoot, "bin", "python")+" --version", "", errors.New("exec format error"))
	p := newProvisioner(t, fake)

	env, err := p.Ensure(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, env.Valid)

	_, statErr := os.Stat(marker)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "stale environment should have been deleted")
	assert.NotEmpty(t, fake.CallsWithPrefix("python3 -m venv"))
}

func TestEnsureManifestFailureIsFatal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, EnvDirName), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "requirements.txt"), []byte("nosuchpkg\n"), 0644))

	fake := execx.NewFake()
	pip := filepath.Join(root, EnvDirName, "bin", "pip")
	fake.Respond(pip+" install -r", "ERROR: No matching distribution found for nosuchpkg", errors.New("exit status 1"))

	_, err := newProvisioner(t, fake).Ensure(context.Background(), root)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvision)
	assert.Contains(t, err.Error(), "No matching distribution")
}

func TestProbeChecksBothExecutables(t *testing.T) {
	fake := execx.NewFake()
	p := newProvisioner(t, fake)
	env := p.Locate("/srv/presence")

	assert.True(t, p.Probe(context.Background(), env))

	fake.Respond(env.Pip+" --version", "", errors.New("no such file"))
	assert.False(t, p.Probe(context.Background(), env))
}
