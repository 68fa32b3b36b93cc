package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trakt-tools/presencectl/internal/platform"
	"github.com/trakt-tools/presencectl/internal/unit"
)

// systemdUnitName is the stable systemd identity of the presence daemon.
const systemdUnitName = unit.Name + ".service"

// systemdAdapter manages a systemd --user unit via systemctl.
type systemdAdapter struct {
	adapterBase
}

func (a *systemdAdapter) unitPath() string {
	return filepath.Join(a.home, ".config", "systemd", "user", systemdUnitName)
}

func (a *systemdAdapter) checkBackend() error {
	if _, err := a.runner.LookPath("systemctl"); err != nil {
		return fmt.Errorf("%w: systemctl not found; this host does not run systemd", ErrBackendUnavailable)
	}
	return nil
}

func (a *systemdAdapter) Install(ctx context.Context, projectRoot string) Result {
	res := Result{Platform: platform.SystemdUser}

	if err := a.checkBackend(); err != nil {
		return res.fail(err)
	}
	desc, err := a.prepareInstall(ctx, projectRoot, &res)
	if err != nil {
		return res.fail(err)
	}

	// Stop any instance running under a prior registration before the unit
	// file is replaced.
	a.runBestEffort(ctx, "systemctl", "--user", "stop", systemdUnitName)

	if err := os.MkdirAll(filepath.Dir(a.unitPath()), 0755); err != nil {
		return res.fail(fmt.Errorf("creating user unit directory: %w", err))
	}
	if err := os.WriteFile(a.unitPath(), []byte(unit.RenderSystemd(desc)), 0644); err != nil {
		return res.fail(fmt.Errorf("writing unit file: %w", err))
	}
	res.addf("wrote unit file %s", a.unitPath())

	steps := [][]string{
		{"systemctl", "--user", "daemon-reload"},
		{"systemctl", "--user", "enable", systemdUnitName},
		{"systemctl", "--user", "start", systemdUnitName},
	}
	for _, args := range steps {
		if out, err := a.run(ctx, args[0], args[1:]...); err != nil {
			return res.fail(registrationErr(strings.Join(args, " "), out, err))
		}
	}
	res.addf("enabled and started %s; daemon starts at login", systemdUnitName)
	return res
}

func (a *systemdAdapter) Uninstall(ctx context.Context, projectRoot string) Result {
	res := Result{Platform: platform.SystemdUser}

	if _, err := os.Stat(a.unitPath()); errors.Is(err, os.ErrNotExist) {
		res.addf("service not installed; nothing to do")
		return res
	}
	if err := a.checkBackend(); err != nil {
		return res.fail(err)
	}

	a.runBestEffort(ctx, "systemctl", "--user", "stop", systemdUnitName)
	a.runBestEffort(ctx, "systemctl", "--user", "disable", systemdUnitName)

	if err := os.Remove(a.unitPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return res.fail(registrationErr("removing unit file", "", err))
	}
	a.runBestEffort(ctx, "systemctl", "--user", "daemon-reload")
	res.addf("removed %s", systemdUnitName)
	return res
}

func (a *systemdAdapter) Status(ctx context.Context, projectRoot string) StatusReport {
	rep := StatusReport{Platform: platform.SystemdUser, State: StateUnknown}

	if _, err := os.Stat(a.unitPath()); errors.Is(err, os.ErrNotExist) {
		rep.State = StateNotRegistered
		rep.add("Service registration", []string{"unit file: missing"}, nil)
	} else if err := a.checkBackend(); err != nil {
		rep.add("Service registration", nil, err)
	} else {
		lines := []string{"unit file: " + a.unitPath()}
		// is-active exits non-zero for anything but "active"; the output
		// still names the state, so only the empty case is a real failure.
		out, _ := a.run(ctx, "systemctl", "--user", "is-active", systemdUnitName)
		state := strings.TrimSpace(out)
		if state == "" {
			rep.add("Service registration", lines, errors.New("systemctl --user is-active returned nothing"))
		} else {
			if state == "active" {
				rep.State = StateActive
			} else {
				rep.State = StateInactive
			}
			lines = append(lines, "unit state: "+state)
			lines = append(lines, a.lastRunLines(ctx)...)
			rep.add("Service registration", lines, nil)
		}
	}

	a.appendCommon(&rep, projectRoot)
	return rep
}

// lastRunLines asks systemd for the last main-process exit data. Best
// effort; an empty slice just means the backend had nothing to say.
func (a *systemdAdapter) lastRunLines(ctx context.Context) []string {
	out, err := a.run(ctx, "systemctl", "--user", "show",
		"-p", "ExecMainStatus", "-p", "ExecMainExitTimestamp", systemdUnitName)
	if err != nil {
		return nil
	}
	var lines []string
	for _, raw := range strings.Split(out, "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(raw), "=")
		if !ok || val == "" {
			continue
		}
		switch key {
		case "ExecMainStatus":
			lines = append(lines, "last exit status: "+val)
		case "ExecMainExitTimestamp":
			lines = append(lines, "last exited: "+val)
		}
	}
	return lines
}

func (a *systemdAdapter) Start(ctx context.Context) Result {
	res := Result{Platform: platform.SystemdUser}
	if err := a.checkBackend(); err != nil {
		return res.fail(err)
	}
	if out, err := a.run(ctx, "systemctl", "--user", "start", systemdUnitName); err != nil {
		return res.fail(registrationErr("starting service", out, err))
	}
	res.addf("started %s", systemdUnitName)
	return res
}

func (a *systemdAdapter) Stop(ctx context.Context) Result {
	res := Result{Platform: platform.SystemdUser}
	if err := a.checkBackend(); err != nil {
		return res.fail(err)
	}
	if out, err := a.run(ctx, "systemctl", "--user", "stop", systemdUnitName); err != nil {
		return res.fail(registrationErr("stopping service", out, err))
	}
	res.addf("stopped %s", systemdUnitName)
	return res
}
