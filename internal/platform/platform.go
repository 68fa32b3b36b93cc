// Package platform identifies which native service backend the host offers.
// Detection happens once per invocation; everything downstream dispatches on
// the resulting Kind.
package platform

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// Kind names the native service-management facility of the host.
type Kind int

const (
	// Unsupported is the zero value: no known backend.
	Unsupported Kind = iota
	// Launchd is the per-user launchd agent manager (macOS).
	Launchd
	// SystemdUser is the systemd --user manager (Linux desktop session).
	SystemdUser
	// TaskScheduler is the Windows Task Scheduler reached through a
	// compatibility layer such as WSL.
	TaskScheduler
)

func (k Kind) String() string {
	switch k {
	case Launchd:
		return "launchd"
	case SystemdUser:
		return "systemd (user)"
	case TaskScheduler:
		return "windows task scheduler"
	default:
		return "unsupported"
	}
}

// Supported lists every Kind this build can manage, in display order.
func Supported() []Kind {
	return []Kind{Launchd, SystemdUser, TaskScheduler}
}

// Detect maps a host identity string to a Kind. The identity is the
// lowercased OS name plus kernel version, e.g.
// "linux 5.15.90.1-microsoft-standard-WSL2". Kept pure so the mapping is
// table-testable.
func Detect(identity string) Kind {
	id := strings.ToLower(identity)
	switch {
	case strings.Contains(id, "darwin"):
		return Launchd
	case strings.Contains(id, "microsoft"), strings.Contains(id, "wsl"),
		strings.Contains(id, "msys"), strings.Contains(id, "cygwin"):
		return TaskScheduler
	case strings.Contains(id, "linux"):
		return SystemdUser
	default:
		return Unsupported
	}
}

// DetectHost builds the identity string for the current host and returns its
// Kind alongside the identity used, for diagnostics.
func DetectHost() (Kind, string, error) {
	info, err := host.Info()
	if err != nil {
		return Unsupported, "", fmt.Errorf("identifying host: %w", err)
	}
	identity := strings.TrimSpace(info.OS + " " + info.KernelVersion)
	return Detect(identity), identity, nil
}
