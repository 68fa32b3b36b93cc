package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/trakt-tools/presencectl/internal/config"
	"github.com/trakt-tools/presencectl/internal/execx"
	"github.com/trakt-tools/presencectl/internal/platform"
)

func detectAs(kind platform.Kind, identity string) func() (platform.Kind, string, error) {
	return func() (platform.Kind, string, error) { return kind, identity, nil }
}

func newOrchestrator(t *testing.T, kind platform.Kind, fake *execx.Fake) (*Orchestrator, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	o := New(config.DefaultConfig(), zaptest.NewLogger(t),
		WithRunner(fake),
		WithOutput(&out),
		WithDetection(detectAs(kind, "test host")),
		WithHome(t.TempDir()),
	)
	return o, &out
}

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.py"), []byte("pass\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"),
		[]byte("TRAKT_CLIENT_ID=a\nTRAKT_CLIENT_SECRET=b\nTRAKT_APPLICATION_ID=c\nDISCORD_CLIENT_ID=d\n"), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".venv"), 0755))
	return root
}

func TestUnsupportedPlatformGatesEveryOperation(t *testing.T) {
	for _, op := range []Op{OpInstall, OpUninstall, OpStatus, OpStart, OpStop, OpRestart} {
		t.Run(string(op), func(t *testing.T) {
			fake := execx.NewFake()
			o, out := newOrchestrator(t, platform.Unsupported, fake)
			o.detect = detectAs(platform.Unsupported, "freebsd 13.2")

			code := o.Run(context.Background(), op, t.TempDir())
			assert.Equal(t, 1, code)
			assert.Contains(t, out.String(), `unsupported platform "freebsd 13.2"`)
			assert.Contains(t, out.String(), "launchd")
			assert.Contains(t, out.String(), "systemd (user)")
			assert.Contains(t, out.String(), "windows task scheduler")
			assert.Empty(t, fake.Calls, "unsupported platform must trigger zero backend calls")
		})
	}
}

func TestInstallSucceeds(t *testing.T) {
	root := newProject(t)
	fake := execx.NewFake()
	o, out := newOrchestrator(t, platform.SystemdUser, fake)

	code := o.Run(context.Background(), OpInstall, root)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "enabled and started")
}

func TestInstallFailureIsNonZeroWithDiagnostics(t *testing.T) {
	root := newProject(t)
	fake := execx.NewFake()
	fake.Respond("systemctl --user start", "Failed to start: unit masked", fmt.Errorf("exit status 1"))
	o, out := newOrchestrator(t, platform.SystemdUser, fake)

	code := o.Run(context.Background(), OpInstall, root)
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "unit masked")
}

func TestUninstallAbsentExitsZero(t *testing.T) {
	o, out := newOrchestrator(t, platform.SystemdUser, execx.NewFake())

	code := o.Run(context.Background(), OpUninstall, t.TempDir())
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "nothing to do")
}

func TestStatusAlwaysExitsZeroOnSupportedPlatform(t *testing.T) {
	// A bare project with nothing installed still produces a full report.
	o, out := newOrchestrator(t, platform.SystemdUser, execx.NewFake())

	code := o.Run(context.Background(), OpStatus, t.TempDir())
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Service:  not registered")
	assert.Contains(t, out.String(), "Configuration")
}

func TestRestartStopsThenStarts(t *testing.T) {
	root := newProject(t)
	fake := execx.NewFake()
	o, _ := newOrchestrator(t, platform.SystemdUser, fake)
	require.Equal(t, 0, o.Run(context.Background(), OpInstall, root))

	code := o.Run(context.Background(), OpRestart, root)
	assert.Equal(t, 0, code)
	assert.NotEmpty(t, fake.CallsWithPrefix("systemctl --user stop"))
	assert.NotEmpty(t, fake.CallsWithPrefix("systemctl --user start"))
}

func TestLogsPrintsTails(t *testing.T) {
	root := newProject(t)
	logDir := filepath.Join(root, "logs")
	require.NoError(t, os.MkdirAll(logDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(logDir, "presence.log"),
		[]byte("watching: The Wire S01E02\n"), 0644))

	o, out := newOrchestrator(t, platform.SystemdUser, execx.NewFake())
	code := o.Run(context.Background(), OpLogs, root)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "watching: The Wire S01E02")
	assert.Contains(t, out.String(), "(no log file yet)")
}

func TestProjectRootBecomesAbsolute(t *testing.T) {
	// Relative roots are resolved before any adapter sees them.
	fake := execx.NewFake()
	o, out := newOrchestrator(t, platform.SystemdUser, fake)

	code := o.Run(context.Background(), OpLogs, ".")
	assert.Equal(t, 0, code)
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Contains(t, out.String(), filepath.Join(wd, "logs", "presence.log"))
}
