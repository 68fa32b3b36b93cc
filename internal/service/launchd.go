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

// launchdLabel is the stable launchd identity of the presence daemon.
const launchdLabel = "com.trakt.presence"

// launchdAdapter manages a per-user LaunchAgent via launchctl.
type launchdAdapter struct {
	adapterBase
}

func (a *launchdAdapter) plistPath() string {
	return filepath.Join(a.home, "Library", "LaunchAgents", launchdLabel+".plist")
}

func (a *launchdAdapter) checkBackend() error {
	if _, err := a.runner.LookPath("launchctl"); err != nil {
		return fmt.Errorf("%w: launchctl not found; this host does not run launchd", ErrBackendUnavailable)
	}
	return nil
}

func (a *launchdAdapter) Install(ctx context.Context, projectRoot string) Result {
	res := Result{Platform: platform.Launchd}

	if err := a.checkBackend(); err != nil {
		return res.fail(err)
	}
	desc, err := a.prepareInstall(ctx, projectRoot, &res)
	if err != nil {
		return res.fail(err)
	}

	// Replace, not append: unload any prior registration under the label so
	// two copies of the daemon never run at once. Unloading an agent that is
	// not loaded fails and that is fine.
	a.runBestEffort(ctx, "launchctl", "unload", a.plistPath())

	if err := os.MkdirAll(filepath.Dir(a.plistPath()), 0755); err != nil {
		return res.fail(fmt.Errorf("creating LaunchAgents directory: %w", err))
	}
	plist := unit.RenderLaunchd(desc, launchdLabel)
	if err := os.WriteFile(a.plistPath(), []byte(plist), 0644); err != nil {
		return res.fail(fmt.Errorf("writing agent plist: %w", err))
	}
	res.addf("wrote launch agent %s", a.plistPath())

	if out, err := a.run(ctx, "launchctl", "load", "-w", a.plistPath()); err != nil {
		return res.fail(registrationErr("loading launch agent", out, err))
	}
	res.addf("loaded %s; daemon starts at login and is running now", launchdLabel)
	return res
}

func (a *launchdAdapter) Uninstall(ctx context.Context, projectRoot string) Result {
	res := Result{Platform: platform.Launchd}

	if _, err := os.Stat(a.plistPath()); errors.Is(err, os.ErrNotExist) {
		res.addf("launch agent not installed; nothing to do")
		return res
	}
	if err := a.checkBackend(); err != nil {
		return res.fail(err)
	}

	a.runBestEffort(ctx, "launchctl", "unload", a.plistPath())
	if err := os.Remove(a.plistPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return res.fail(registrationErr("removing agent plist", "", err))
	}
	res.addf("removed launch agent %s", launchdLabel)
	return res
}

func (a *launchdAdapter) Status(ctx context.Context, projectRoot string) StatusReport {
	rep := StatusReport{Platform: platform.Launchd, State: StateUnknown}

	if _, err := os.Stat(a.plistPath()); errors.Is(err, os.ErrNotExist) {
		rep.State = StateNotRegistered
		rep.add("Service registration", []string{"agent plist: missing"}, nil)
	} else if err := a.checkBackend(); err != nil {
		rep.add("Service registration", nil, err)
	} else {
		lines := []string{"agent plist: " + a.plistPath()}
		out, err := a.run(ctx, "launchctl", "list")
		if err != nil {
			rep.add("Service registration", lines, fmt.Errorf("launchctl list: %w", err))
		} else {
			pid, lastExit, loaded := parseLaunchctlList(out, launchdLabel)
			switch {
			case !loaded:
				rep.State = StateInactive
				lines = append(lines, "agent not loaded in this session")
			case pid != "":
				rep.State = StateActive
				lines = append(lines, "running (pid "+pid+")")
			default:
				rep.State = StateInactive
				lines = append(lines, "loaded but not running", "last exit status: "+lastExit)
			}
			rep.add("Service registration", lines, nil)
		}
	}

	a.appendCommon(&rep, projectRoot)
	return rep
}

func (a *launchdAdapter) Start(ctx context.Context) Result {
	res := Result{Platform: platform.Launchd}
	if err := a.checkBackend(); err != nil {
		return res.fail(err)
	}
	if out, err := a.run(ctx, "launchctl", "load", "-w", a.plistPath()); err != nil {
		return res.fail(registrationErr("starting launch agent", out, err))
	}
	res.addf("started %s", launchdLabel)
	return res
}

func (a *launchdAdapter) Stop(ctx context.Context) Result {
	res := Result{Platform: platform.Launchd}
	if err := a.checkBackend(); err != nil {
		return res.fail(err)
	}
	if out, err := a.run(ctx, "launchctl", "unload", a.plistPath()); err != nil {
		return res.fail(registrationErr("stopping launch agent", out, err))
	}
	res.addf("stopped %s", launchdLabel)
	return res
}

// parseLaunchctlList scans "launchctl list" output for the given label. Each
// row is "PID<tab>Status<tab>Label" where PID is "-" when not running.
func parseLaunchctlList(out, label string) (pid, lastExit string, loaded bool) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[2] != label {
			continue
		}
		if fields[0] != "-" {
			pid = fields[0]
		}
		return pid, fields[1], true
	}
	return "", "", false
}
