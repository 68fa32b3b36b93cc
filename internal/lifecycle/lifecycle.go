// Package lifecycle is the top-level orchestrator: it detects the host
// platform once, gates unsupported hosts before any backend is touched,
// dispatches to the matching service adapter, and translates results into
// process exit codes.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/trakt-tools/presencectl/internal/config"
	"github.com/trakt-tools/presencectl/internal/execx"
	"github.com/trakt-tools/presencectl/internal/platform"
	"github.com/trakt-tools/presencectl/internal/service"
	"github.com/trakt-tools/presencectl/internal/unit"
)

// Op is one lifecycle operation.
type Op string

const (
	OpInstall   Op = "install"
	OpUninstall Op = "uninstall"
	OpStatus    Op = "status"
	OpStart     Op = "start"
	OpStop      Op = "stop"
	OpRestart   Op = "restart"
	OpLogs      Op = "logs"
)

// Orchestrator wires detection, adapter selection, and result reporting.
// Zero-value collaborator fields get production defaults in New.
type Orchestrator struct {
	cfg    *config.Config
	log    *zap.Logger
	runner execx.Runner
	out    io.Writer
	detect func() (platform.Kind, string, error)
	home   string
}

// Option customizes an Orchestrator, mostly for tests.
type Option func(*Orchestrator)

// WithRunner substitutes the command runner.
func WithRunner(r execx.Runner) Option { return func(o *Orchestrator) { o.runner = r } }

// WithOutput redirects user-facing output.
func WithOutput(w io.Writer) Option { return func(o *Orchestrator) { o.out = w } }

// WithDetection substitutes platform detection.
func WithDetection(fn func() (platform.Kind, string, error)) Option {
	return func(o *Orchestrator) { o.detect = fn }
}

// WithHome overrides the user home directory used for backend artifacts.
func WithHome(home string) Option { return func(o *Orchestrator) { o.home = home } }

func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		log:    logger,
		runner: execx.System{},
		out:    os.Stdout,
		detect: platform.DetectHost,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes op against the project at projectRoot and returns the process
// exit code: 0 on success, non-zero otherwise.
func (o *Orchestrator) Run(ctx context.Context, op Op, projectRoot string) int {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		fmt.Fprintf(o.out, "error: resolving project root: %v\n", err)
		return 1
	}

	kind, identity, err := o.detect()
	if err != nil {
		fmt.Fprintf(o.out, "error: %v\n", err)
		return 1
	}
	if kind == platform.Unsupported {
		fmt.Fprintf(o.out, "unsupported platform %q\nsupported platforms:\n", identity)
		for _, k := range platform.Supported() {
			fmt.Fprintf(o.out, "  - %s\n", k)
		}
		return 1
	}
	o.log.Debug("platform detected",
		zap.String("identity", identity), zap.Stringer("kind", kind))

	// The logs verb never needs a backend.
	if op == OpLogs {
		return o.printLogs(root)
	}

	adapter, err := service.New(kind, service.Options{
		Runner: o.runner,
		Logger: o.log,
		Config: o.cfg,
		Home:   o.home,
	})
	if err != nil {
		fmt.Fprintf(o.out, "error: %v\n", err)
		return 1
	}

	switch op {
	case OpStatus:
		rep := adapter.Status(ctx, root)
		fmt.Fprint(o.out, rep.Render())
		if rep.Problems != nil {
			fmt.Fprintf(o.out, "\nsome sections were unavailable: %v\n", rep.Problems)
		}
		return 0
	case OpInstall:
		return o.finish(adapter.Install(ctx, root))
	case OpUninstall:
		return o.finish(adapter.Uninstall(ctx, root))
	case OpStart:
		return o.finish(adapter.Start(ctx))
	case OpStop:
		return o.finish(adapter.Stop(ctx))
	case OpRestart:
		// Stopping an already-stopped service is fine; only the start half
		// decides the outcome.
		stop := adapter.Stop(ctx)
		o.printDiagnostics(stop)
		return o.finish(adapter.Start(ctx))
	default:
		fmt.Fprintf(o.out, "error: unknown operation %q\n", op)
		return 1
	}
}

func (o *Orchestrator) finish(res service.Result) int {
	o.printDiagnostics(res)
	if !res.OK() {
		return 1
	}
	return 0
}

func (o *Orchestrator) printDiagnostics(res service.Result) {
	for _, line := range res.Diagnostics {
		fmt.Fprintf(o.out, "%s\n", line)
	}
}

func (o *Orchestrator) printLogs(projectRoot string) int {
	code := 0
	for _, name := range []string{unit.StdoutLogName, unit.StderrLogName} {
		path := filepath.Join(projectRoot, unit.LogDirName, name)
		fmt.Fprintf(o.out, "==> %s <==\n", path)
		lines, err := service.Tail(path, o.cfg.Status.TailLines)
		switch {
		case errors.Is(err, os.ErrNotExist):
			fmt.Fprintln(o.out, "(no log file yet)")
		case err != nil:
			fmt.Fprintf(o.out, "error: %v\n", err)
			code = 1
		case len(lines) == 0:
			fmt.Fprintln(o.out, "(log file is empty)")
		default:
			for _, line := range lines {
				fmt.Fprintln(o.out, line)
			}
		}
		fmt.Fprintln(o.out)
	}
	return code
}
