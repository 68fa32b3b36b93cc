// Package pyenv provisions the virtual environment the presence daemon runs
// in. The environment is a build artifact: when probing shows it is stale or
// foreign (absolute paths baked in on another machine), it is deleted and
// rebuilt rather than repaired in place.
package pyenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/trakt-tools/presencectl/internal/config"
	"github.com/trakt-tools/presencectl/internal/execx"
)

// EnvDirName is the environment root directory under the project root.
const EnvDirName = ".venv"

// ErrProvision marks a fatal provisioning failure; the wrapped text carries
// the dependency manager's own diagnostics.
var ErrProvision = errors.New("environment provisioning failed")

// Environment describes a provisioned runtime environment. Valid is derived
// by probing, never trusted from mere on-disk presence.
type Environment struct {
	Root        string
	Interpreter string
	Pip         string
	Manifest    string
	Valid       bool
}

// Provisioner creates, probes, and repairs virtual environments.
type Provisioner struct {
	runner execx.Runner
	log    *zap.Logger
	cfg    config.EnvConfig
}

func New(runner execx.Runner, logger *zap.Logger, cfg config.EnvConfig) *Provisioner {
	return &Provisioner{runner: runner, log: logger, cfg: cfg}
}

// Locate resolves the environment paths under projectRoot without touching
// the filesystem beyond path joining.
func (p *Provisioner) Locate(projectRoot string) Environment {
	root := filepath.Join(projectRoot, EnvDirName)
	return Environment{
		Root:        root,
		Interpreter: filepath.Join(root, "bin", "python"),
		Pip:         filepath.Join(root, "bin", "pip"),
		Manifest:    filepath.Join(projectRoot, p.cfg.Requirements),
	}
}

// Probe checks that the environment's interpreter and package manager both
// answer a trivial version query.
func (p *Provisioner) Probe(ctx context.Context, env Environment) bool {
	if _, err := p.runner.Run(ctx, env.Interpreter, "--version"); err != nil {
		p.log.Debug("interpreter probe failed", zap.String("interpreter", env.Interpreter), zap.Error(err))
		return false
	}
	if _, err := p.runner.Run(ctx, env.Pip, "--version"); err != nil {
		p.log.Debug("pip probe failed", zap.String("pip", env.Pip), zap.Error(err))
		return false
	}
	return true
}

// Ensure converges projectRoot to a runnable environment: create when absent,
// rebuild when the probe fails, refresh dependencies when healthy.
func (p *Provisioner) Ensure(ctx context.Context, projectRoot string) (Environment, error) {
	env := p.Locate(projectRoot)

	if _, err := os.Stat(env.Root); errors.Is(err, os.ErrNotExist) {
		return p.create(ctx, env)
	} else if err != nil {
		return env, fmt.Errorf("%w: checking %s: %v", ErrProvision, env.Root, err)
	}

	if !p.Probe(ctx, env) {
		p.log.Warn("environment failed probe, rebuilding", zap.String("root", env.Root))
		if err := os.RemoveAll(env.Root); err != nil {
			return env, fmt.Errorf("%w: removing stale environment: %v", ErrProvision, err)
		}
		return p.create(ctx, env)
	}

	if err := p.installManifest(ctx, env); err != nil {
		return env, err
	}
	env.Valid = true
	return env, nil
}

func (p *Provisioner) create(ctx context.Context, env Environment) (Environment, error) {
	p.log.Info("creating virtual environment", zap.String("root", env.Root))
	out, err := p.runner.Run(ctx, p.cfg.Python, "-m", "venv", env.Root)
	if err != nil {
		return env, fmt.Errorf("%w: %s -m venv: %v: %s", ErrProvision, p.cfg.Python, err, out)
	}
	if out, err := p.runner.Run(ctx, env.Pip, "install", "--upgrade", "pip"); err != nil {
		return env, fmt.Errorf("%w: upgrading pip: %v: %s", ErrProvision, err, out)
	}
	if err := p.installManifest(ctx, env); err != nil {
		return env, err
	}
	env.Valid = true
	return env, nil
}

// installManifest installs the dependency manifest into env. A missing
// manifest is a no-op; the daemon may have no third-party dependencies.
func (p *Provisioner) installManifest(ctx context.Context, env Environment) error {
	if _, err := os.Stat(env.Manifest); errors.Is(err, os.ErrNotExist) {
		p.log.Debug("no dependency manifest", zap.String("manifest", env.Manifest))
		return nil
	}
	p.log.Info("installing dependencies", zap.String("manifest", env.Manifest))
	out, err := p.runner.Run(ctx, env.Pip, "install", "-r", env.Manifest)
	if err != nil {
		return fmt.Errorf("%w: pip install -r %s: %v: %s", ErrProvision, env.Manifest, err, out)
	}
	return nil
}
