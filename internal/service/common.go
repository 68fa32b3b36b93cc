package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/trakt-tools/presencectl/internal/unit"
)

// envFileName is the credential file of the supervised daemon. Only key
// presence is inspected; values are never logged or printed.
const envFileName = ".env"

// prepareInstall runs the backend-independent half of Install: entry-point
// check, credential warnings, environment provisioning, and log directory
// creation. It returns the freshly generated descriptor.
func (b *adapterBase) prepareInstall(ctx context.Context, projectRoot string, res *Result) (unit.Descriptor, error) {
	entrypoint := filepath.Join(projectRoot, b.cfg.Env.Entrypoint)
	if _, err := os.Stat(entrypoint); err != nil {
		return unit.Descriptor{}, fmt.Errorf("daemon entry point %s not found: %w", entrypoint, err)
	}

	// Missing credentials are a warning, not an install failure: the
	// registration is still valid and starts working once .env is filled in.
	for _, w := range b.credentialWarnings(projectRoot) {
		res.addf("warning: %s", w)
	}

	env, err := b.prov.Ensure(ctx, projectRoot)
	if err != nil {
		return unit.Descriptor{}, err
	}

	logDir := filepath.Join(projectRoot, unit.LogDirName)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return unit.Descriptor{}, fmt.Errorf("creating log directory %s: %w", logDir, err)
	}

	return unit.Generate(projectRoot, env, b.cfg.Env.Entrypoint), nil
}

// credentialWarnings reports which required credential keys are absent or
// empty. Key names only, never values.
func (b *adapterBase) credentialWarnings(projectRoot string) []string {
	path := filepath.Join(projectRoot, envFileName)
	vals, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return []string{fmt.Sprintf("%s not found; copy .env.example and fill in your credentials", path)}
	}
	if err != nil {
		return []string{fmt.Sprintf("cannot read %s: %v", path, err)}
	}
	var missing []string
	for _, key := range b.cfg.Status.RequiredKeys {
		if strings.TrimSpace(vals[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return []string{"missing credential keys in .env: " + strings.Join(missing, ", ")}
	}
	return nil
}

// run executes a backend command, logging it at debug level.
func (b *adapterBase) run(ctx context.Context, name string, args ...string) (string, error) {
	b.log.Debug("backend command", zap.String("cmd", name), zap.Strings("args", args))
	return b.runner.Run(ctx, name, args...)
}

// runBestEffort executes a backend command whose failure is acceptable,
// e.g. stopping an already-stopped instance.
func (b *adapterBase) runBestEffort(ctx context.Context, name string, args ...string) {
	if out, err := b.run(ctx, name, args...); err != nil {
		b.log.Debug("best-effort command failed",
			zap.String("cmd", name), zap.Strings("args", args),
			zap.String("output", out), zap.Error(err))
	}
}

func registrationErr(action, output string, err error) error {
	msg := fmt.Sprintf("%s: %v", action, err)
	if output != "" {
		msg += ": " + output
	}
	return fmt.Errorf("%w: %s", ErrRegistration, msg)
}
