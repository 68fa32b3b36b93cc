// Package service registers the presence daemon with the host's native
// service backend. One Adapter implementation exists per backend; selection
// happens once, at the orchestrator boundary, from the detected platform
// kind.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/trakt-tools/presencectl/internal/config"
	"github.com/trakt-tools/presencectl/internal/execx"
	"github.com/trakt-tools/presencectl/internal/platform"
	"github.com/trakt-tools/presencectl/internal/pyenv"
)

var (
	// ErrRegistration marks a native backend refusing to register,
	// deregister, start, or stop the service.
	ErrRegistration = errors.New("native registration failed")

	// ErrBackendUnavailable marks a backend whose management tooling is not
	// reachable from this process, e.g. Windows interop disabled under WSL.
	ErrBackendUnavailable = errors.New("service backend unavailable")
)

// RunState is the normalized three-state service model shared by all
// backends, plus Unknown for failed queries.
type RunState int

const (
	StateUnknown RunState = iota
	StateNotRegistered
	StateInactive
	StateActive
)

func (s RunState) String() string {
	switch s {
	case StateNotRegistered:
		return "not registered"
	case StateInactive:
		return "registered (inactive)"
	case StateActive:
		return "registered (active)"
	default:
		return "unknown"
	}
}

// Result is the outcome of a mutating operation: which platform acted, the
// human-readable diagnostic lines, and the terminal error if any.
type Result struct {
	Platform    platform.Kind
	Diagnostics []string
	Err         error
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Err == nil }

func (r *Result) addf(format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, fmt.Sprintf(format, args...))
}

func (r *Result) fail(err error) Result {
	r.Err = err
	r.addf("error: %v", err)
	return *r
}

// Adapter is the polymorphic boundary over one native service backend.
// Mutating operations are safe to re-run: Install replaces any existing
// registration under the stable service name, Uninstall on an absent
// installation is a successful no-op.
type Adapter interface {
	Install(ctx context.Context, projectRoot string) Result
	Uninstall(ctx context.Context, projectRoot string) Result
	Status(ctx context.Context, projectRoot string) StatusReport
	Start(ctx context.Context) Result
	Stop(ctx context.Context) Result
}

// Options carries the collaborators every adapter needs. Zero-value fields
// get production defaults in New.
type Options struct {
	Runner execx.Runner
	Logger *zap.Logger
	Config *config.Config
	// Home overrides the user home directory; tests point it at a temp dir.
	Home string
}

func (o *Options) defaults() error {
	if o.Runner == nil {
		o.Runner = execx.System{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Config == nil {
		o.Config = config.DefaultConfig()
	}
	if o.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		o.Home = home
	}
	return nil
}

// New selects the Adapter for kind.
func New(kind platform.Kind, opts Options) (Adapter, error) {
	if err := opts.defaults(); err != nil {
		return nil, err
	}
	base := adapterBase{
		runner: opts.Runner,
		log:    opts.Logger,
		cfg:    opts.Config,
		home:   opts.Home,
		prov:   pyenv.New(opts.Runner, opts.Logger, opts.Config.Env),
	}
	switch kind {
	case platform.Launchd:
		return &launchdAdapter{adapterBase: base}, nil
	case platform.SystemdUser:
		return &systemdAdapter{adapterBase: base}, nil
	case platform.TaskScheduler:
		return &schtasksAdapter{adapterBase: base}, nil
	default:
		return nil, fmt.Errorf("no adapter for platform %q", kind)
	}
}

// adapterBase holds the collaborators shared by every backend adapter.
type adapterBase struct {
	runner execx.Runner
	log    *zap.Logger
	cfg    *config.Config
	home   string
	prov   *pyenv.Provisioner
}
