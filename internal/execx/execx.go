// Package execx is the boundary between the lifecycle manager and external
// commands. Every call to a native service backend or to the dependency
// manager goes through a Runner so tests can substitute a scripted fake and
// assert which commands would have run.
package execx

import (
	"context"
	"os/exec"
	"strings"
)

// Runner executes external commands and reports their combined output.
type Runner interface {
	// Run executes name with args and returns trimmed combined
	// stdout+stderr. A non-nil error means a non-zero exit or a failure to
	// start; the output is still returned for diagnostics.
	Run(ctx context.Context, name string, args ...string) (string, error)

	// LookPath reports the resolved path of an executable, or an error if
	// it is not reachable.
	LookPath(name string) (string, error)
}

// System runs commands on the real host.
type System struct{}

func (System) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func (System) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
