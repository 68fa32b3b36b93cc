package service

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/trakt-tools/presencectl/internal/platform"
	"github.com/trakt-tools/presencectl/internal/unit"
)

// taskName is the stable Task Scheduler identity of the presence daemon.
const taskName = "TraktPresence"

// schtasksAdapter manages a Windows scheduled task from inside a
// compatibility layer (WSL), driving schtasks.exe through interop. The
// daemon itself keeps running in the layer: the task action invokes wsl.exe
// with a shell command that redirects output into the project's log files.
type schtasksAdapter struct {
	adapterBase
}

func (a *schtasksAdapter) checkBackend() error {
	for _, tool := range []string{"schtasks.exe", "wslpath", "wsl.exe"} {
		if _, err := a.runner.LookPath(tool); err != nil {
			return fmt.Errorf("%w: %s not reachable; Windows interop appears to be disabled. "+
				"Enable it in /etc/wsl.conf ([interop] enabled=true) and restart the distribution",
				ErrBackendUnavailable, tool)
		}
	}
	return nil
}

// windowsPath translates a layer-side path into its Windows spelling, which
// schtasks.exe requires for /XML arguments.
func (a *schtasksAdapter) windowsPath(ctx context.Context, path string) (string, error) {
	out, err := a.run(ctx, "wslpath", "-w", path)
	if err != nil {
		return "", fmt.Errorf("%w: wslpath -w %s: %v", ErrBackendUnavailable, path, err)
	}
	return strings.TrimSpace(out), nil
}

func (a *schtasksAdapter) Install(ctx context.Context, projectRoot string) Result {
	res := Result{Platform: platform.TaskScheduler}

	if err := a.checkBackend(); err != nil {
		return res.fail(err)
	}
	desc, err := a.prepareInstall(ctx, projectRoot, &res)
	if err != nil {
		return res.fail(err)
	}

	// Stop a running instance of any prior registration before replacing it.
	a.runBestEffort(ctx, "schtasks.exe", "/End", "/TN", taskName)

	arguments := fmt.Sprintf(`--cd %s -- sh -c "%s"`, desc.WorkingDir, unit.ShellCommand(desc))
	xml := unit.RenderTask(desc, "wsl.exe", arguments)

	tmp, err := os.CreateTemp(projectRoot, "task-*.xml")
	if err != nil {
		return res.fail(fmt.Errorf("writing task definition: %w", err))
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(xml); err != nil {
		tmp.Close()
		return res.fail(fmt.Errorf("writing task definition: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return res.fail(fmt.Errorf("writing task definition: %w", err))
	}

	winXML, err := a.windowsPath(ctx, tmp.Name())
	if err != nil {
		return res.fail(err)
	}

	// /F replaces an existing task under the same name.
	if out, err := a.run(ctx, "schtasks.exe", "/Create", "/TN", taskName, "/XML", winXML, "/F"); err != nil {
		return res.fail(registrationErr("registering scheduled task", out, err))
	}
	res.addf("registered scheduled task %s", taskName)

	if out, err := a.run(ctx, "schtasks.exe", "/Run", "/TN", taskName); err != nil {
		return res.fail(registrationErr("starting scheduled task", out, err))
	}
	res.addf("task runs at logon and is running now")
	return res
}

func (a *schtasksAdapter) Uninstall(ctx context.Context, projectRoot string) Result {
	res := Result{Platform: platform.TaskScheduler}

	if err := a.checkBackend(); err != nil {
		return res.fail(err)
	}
	if _, err := a.run(ctx, "schtasks.exe", "/Query", "/TN", taskName); err != nil {
		res.addf("scheduled task not present; nothing to do")
		return res
	}

	a.runBestEffort(ctx, "schtasks.exe", "/End", "/TN", taskName)
	if out, err := a.run(ctx, "schtasks.exe", "/Delete", "/TN", taskName, "/F"); err != nil {
		return res.fail(registrationErr("deleting scheduled task", out, err))
	}
	res.addf("removed scheduled task %s", taskName)
	return res
}

func (a *schtasksAdapter) Status(ctx context.Context, projectRoot string) StatusReport {
	rep := StatusReport{Platform: platform.TaskScheduler, State: StateUnknown}

	if err := a.checkBackend(); err != nil {
		rep.add("Service registration", nil, err)
	} else {
		out, err := a.run(ctx, "schtasks.exe", "/Query", "/TN", taskName, "/FO", "LIST", "/V")
		if err != nil {
			// schtasks exits non-zero both when the task does not exist and
			// on real failures; the message distinguishes them.
			if strings.Contains(strings.ToLower(out), "cannot find") {
				rep.State = StateNotRegistered
				rep.add("Service registration", []string{"scheduled task: missing"}, nil)
			} else {
				rep.add("Service registration", nil, fmt.Errorf("schtasks query: %v: %s", err, out))
			}
		} else {
			fields := parseSchtasksQuery(out)
			if strings.EqualFold(fields["Status"], "Running") {
				rep.State = StateActive
			} else {
				rep.State = StateInactive
			}
			lines := []string{"scheduled task: " + taskName}
			for _, key := range []string{"Status", "Last Run Time", "Last Result"} {
				if v := fields[key]; v != "" {
					lines = append(lines, strings.ToLower(key)+": "+v)
				}
			}
			rep.add("Service registration", lines, nil)
		}
	}

	a.appendCommon(&rep, projectRoot)
	return rep
}

func (a *schtasksAdapter) Start(ctx context.Context) Result {
	res := Result{Platform: platform.TaskScheduler}
	if err := a.checkBackend(); err != nil {
		return res.fail(err)
	}
	if out, err := a.run(ctx, "schtasks.exe", "/Run", "/TN", taskName); err != nil {
		return res.fail(registrationErr("starting scheduled task", out, err))
	}
	res.addf("started %s", taskName)
	return res
}

func (a *schtasksAdapter) Stop(ctx context.Context) Result {
	res := Result{Platform: platform.TaskScheduler}
	if err := a.checkBackend(); err != nil {
		return res.fail(err)
	}
	if out, err := a.run(ctx, "schtasks.exe", "/End", "/TN", taskName); err != nil {
		return res.fail(registrationErr("stopping scheduled task", out, err))
	}
	res.addf("stopped %s", taskName)
	return res
}

// parseSchtasksQuery turns "/FO LIST" output into a field map. Values keep
// everything after the first colon, so timestamps survive intact.
func parseSchtasksQuery(out string) map[string]string {
	fields := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, seen := fields[key]; !seen {
			fields[key] = strings.TrimSpace(val)
		}
	}
	return fields
}
