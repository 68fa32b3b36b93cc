package unit

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trakt-tools/presencectl/internal/pyenv"
)

func testEnv(root string) pyenv.Environment {
	return pyenv.Environment{
		Root:        filepath.Join(root, ".venv"),
		Interpreter: filepath.Join(root, ".venv", "bin", "python"),
		Pip:         filepath.Join(root, ".venv", "bin", "pip"),
	}
}

func TestGenerate(t *testing.T) {
	root := "/home/u/presence"
	d := Generate(root, testEnv(root), "main.py")

	assert.Equal(t, Name, d.Name)
	assert.True(t, filepath.IsAbs(d.Executable))
	assert.True(t, filepath.IsAbs(d.WorkingDir))
	assert.Equal(t, root, d.WorkingDir)
	assert.Equal(t, []string{filepath.Join(root, "main.py")}, d.Arguments)
	assert.Equal(t, filepath.Join(root, "logs", "presence.log"), d.StdoutLog)
	assert.Equal(t, filepath.Join(root, "logs", "presence-error.log"), d.StderrLog)
	assert.True(t, d.RunAtLogin)
	assert.True(t, d.RestartOnCrash)
	assert.Equal(t, ThrottleSeconds, d.ThrottleSecs)
}

func TestGenerateIsDeterministic(t *testing.T) {
	root := "/srv/p"
	a := Generate(root, testEnv(root), "main.py")
	b := Generate(root, testEnv(root), "main.py")
	assert.Equal(t, a, b)
}

func TestRenderLaunchd(t *testing.T) {
	root := "/Users/u/presence"
	d := Generate(root, testEnv(root), "main.py")
	plist := RenderLaunchd(d, "com.trakt.presence")

	assert.Contains(t, plist, "<string>com.trakt.presence</string>")
	assert.Contains(t, plist, "<string>"+d.Executable+"</string>")
	assert.Contains(t, plist, "<string>"+root+"/main.py</string>")
	assert.Contains(t, plist, "<key>RunAtLoad</key>\n    <true/>")
	assert.Contains(t, plist, "<integer>10</integer>")
	assert.Contains(t, plist, d.StdoutLog)
	assert.Contains(t, plist, d.StderrLog)
	// Crash-only restart, not restart-on-clean-exit.
	assert.Contains(t, plist, "SuccessfulExit")
}

func TestRenderLaunchdEscapesXML(t *testing.T) {
	root := "/Users/u/pres&ence"
	d := Generate(root, testEnv(root), "main.py")
	plist := RenderLaunchd(d, "com.trakt.presence")
	assert.Contains(t, plist, "pres&amp;ence")
	assert.NotContains(t, plist, "pres&ence")
}

func TestRenderSystemd(t *testing.T) {
	root := "/home/u/presence"
	d := Generate(root, testEnv(root), "main.py")
	u := RenderSystemd(d)

	assert.Contains(t, u, "ExecStart="+d.Executable+" "+root+"/main.py")
	assert.Contains(t, u, "WorkingDirectory="+root)
	assert.Contains(t, u, "Restart=on-failure")
	assert.Contains(t, u, "RestartSec=10")
	assert.Contains(t, u, "StandardOutput=append:"+d.StdoutLog)
	assert.Contains(t, u, "StandardError=append:"+d.StderrLog)
	assert.Contains(t, u, "WantedBy=default.target")
}

func TestRenderTask(t *testing.T) {
	root := "/home/u/presence"
	d := Generate(root, testEnv(root), "main.py")
	xml := RenderTask(d, `C:\Windows\System32\wsl.exe`, `--cd /home/u/presence -- sh -c "run"`)

	assert.Contains(t, xml, "<Command>C:\\Windows\\System32\\wsl.exe</Command>")
	assert.Contains(t, xml, "&quot;run&quot;")
	assert.Contains(t, xml, "<Enabled>true</Enabled>")
	assert.Contains(t, xml, "PT10S")
	assert.Contains(t, xml, "<Count>999</Count>")
}

func TestShellCommand(t *testing.T) {
	root := "/home/u/my presence"
	d := Generate(root, testEnv(root), "main.py")
	cmd := ShellCommand(d)

	assert.True(t, strings.HasPrefix(cmd, "'"+d.Executable+"'"), cmd)
	assert.Contains(t, cmd, ">> '"+d.StdoutLog+"'")
	assert.Contains(t, cmd, "2>> '"+d.StderrLog+"'")
}
