// Package unit builds the declarative service descriptor handed to the
// native backend, and renders it into each backend's format. Everything here
// is a pure function of its inputs; writing and registering the rendered
// unit is the adapters' job.
package unit

import (
	"path/filepath"

	"github.com/trakt-tools/presencectl/internal/pyenv"
)

const (
	// Name is the stable service identifier shared by all backends.
	Name = "trakt-presence"

	// LogDirName holds both log files, under the project root.
	LogDirName = "logs"
	// StdoutLogName and StderrLogName are fixed so the status reporter and
	// the backend agree on where output lands.
	StdoutLogName = "presence.log"
	StderrLogName = "presence-error.log"

	// ThrottleSeconds bounds crash-restart frequency. There is no retry
	// cap; the daemon is expected to run indefinitely.
	ThrottleSeconds = 10
)

// Descriptor is the value object describing what to run, where, and with
// what restart policy. Constructed fresh on every install and never
// persisted by this component.
type Descriptor struct {
	Name           string
	Executable     string
	Arguments      []string
	WorkingDir     string
	StdoutLog      string
	StderrLog      string
	RunAtLogin     bool
	RestartOnCrash bool
	ThrottleSecs   int
}

// Generate derives the descriptor for a project rooted at projectRoot whose
// daemon runs under env. projectRoot must already be absolute.
func Generate(projectRoot string, env pyenv.Environment, entrypoint string) Descriptor {
	logDir := filepath.Join(projectRoot, LogDirName)
	return Descriptor{
		Name:           Name,
		Executable:     env.Interpreter,
		Arguments:      []string{filepath.Join(projectRoot, entrypoint)},
		WorkingDir:     projectRoot,
		StdoutLog:      filepath.Join(logDir, StdoutLogName),
		StderrLog:      filepath.Join(logDir, StderrLogName),
		RunAtLogin:     true,
		RestartOnCrash: true,
		ThrottleSecs:   ThrottleSeconds,
	}
}
