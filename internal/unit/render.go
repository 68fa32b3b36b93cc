package unit

import (
	"fmt"
	"strconv"
	"strings"
)

// launchdTemplate is the LaunchAgent plist written during installation.
// KeepAlive on unsuccessful exit plus ThrottleInterval gives bounded
// crash-restart without a retry cap.
const launchdTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{label}</string>
    <key>ProgramArguments</key>
    <array>
{programArguments}
    </array>
    <key>WorkingDirectory</key>
    <string>{workingDir}</string>
    <key>RunAtLoad</key>
    <{runAtLoad}/>
    <key>KeepAlive</key>
    <dict>
        <key>SuccessfulExit</key>
        <false/>
    </dict>
    <key>StandardOutPath</key>
    <string>{stdoutLog}</string>
    <key>StandardErrorPath</key>
    <string>{stderrLog}</string>
    <key>ThrottleInterval</key>
    <integer>{throttle}</integer>
</dict>
</plist>
`

// RenderLaunchd renders d as a launchd agent plist with the given label.
func RenderLaunchd(d Descriptor, label string) string {
	args := append([]string{d.Executable}, d.Arguments...)
	lines := make([]string, len(args))
	for i, a := range args {
		lines[i] = "        <string>" + xmlEscape(a) + "</string>"
	}
	runAtLoad := "false"
	if d.RunAtLogin {
		runAtLoad = "true"
	}
	out := launchdTemplate
	out = strings.ReplaceAll(out, "{label}", xmlEscape(label))
	out = strings.ReplaceAll(out, "{programArguments}", strings.Join(lines, "\n"))
	out = strings.ReplaceAll(out, "{workingDir}", xmlEscape(d.WorkingDir))
	out = strings.ReplaceAll(out, "{runAtLoad}", runAtLoad)
	out = strings.ReplaceAll(out, "{stdoutLog}", xmlEscape(d.StdoutLog))
	out = strings.ReplaceAll(out, "{stderrLog}", xmlEscape(d.StderrLog))
	out = strings.ReplaceAll(out, "{throttle}", strconv.Itoa(d.ThrottleSecs))
	return out
}

// systemdTemplate is the per-user unit written during installation.
// StandardOutput/StandardError append to the project log files so the
// status reporter can tail them without journal access.
const systemdTemplate = `[Unit]
Description=Trakt Discord presence daemon
After=graphical-session.target
Wants=graphical-session.target

[Service]
Type=simple
ExecStart={execStart}
WorkingDirectory={workingDir}
Restart=on-failure
RestartSec={throttle}
StandardOutput=append:{stdoutLog}
StandardError=append:{stderrLog}
SyslogIdentifier={name}

NoNewPrivileges=true
PrivateTmp=true

[Install]
WantedBy=default.target
`

// RenderSystemd renders d as a systemd --user unit.
func RenderSystemd(d Descriptor) string {
	execStart := strings.Join(append([]string{d.Executable}, d.Arguments...), " ")
	out := systemdTemplate
	out = strings.ReplaceAll(out, "{execStart}", execStart)
	out = strings.ReplaceAll(out, "{workingDir}", d.WorkingDir)
	out = strings.ReplaceAll(out, "{throttle}", strconv.Itoa(d.ThrottleSecs))
	out = strings.ReplaceAll(out, "{stdoutLog}", d.StdoutLog)
	out = strings.ReplaceAll(out, "{stderrLog}", d.StderrLog)
	out = strings.ReplaceAll(out, "{name}", d.Name)
	return out
}

// taskTemplate is the Task Scheduler task definition registered via
// "schtasks.exe /Create /XML". The logon trigger plus RestartOnFailure
// mirrors the launchd/systemd policy; 999 is the schema's maximum restart
// count, the closest the schema gets to "unbounded".
const taskTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<Task version="1.2" xmlns="http://schemas.microsoft.com/windows/2004/02/mit/task">
  <RegistrationInfo>
    <Description>Trakt Discord presence daemon</Description>
  </RegistrationInfo>
  <Triggers>
    <LogonTrigger>
      <Enabled>{runAtLogon}</Enabled>
    </LogonTrigger>
  </Triggers>
  <Settings>
    <DisallowStartIfOnBatteries>false</DisallowStartIfOnBatteries>
    <StopIfGoingOnBatteries>false</StopIfGoingOnBatteries>
    <StartWhenAvailable>true</StartWhenAvailable>
    <ExecutionTimeLimit>PT0S</ExecutionTimeLimit>
    <RestartOnFailure>
      <Interval>PT{throttle}S</Interval>
      <Count>999</Count>
    </RestartOnFailure>
  </Settings>
  <Actions Context="Author">
    <Exec>
      <Command>{command}</Command>
      <Arguments>{arguments}</Arguments>
    </Exec>
  </Actions>
</Task>
`

// RenderTask renders d as a Task Scheduler XML definition. command and
// arguments are the Windows-side invocation; the caller supplies them because
// translating compatibility-layer paths is not a pure operation.
func RenderTask(d Descriptor, command, arguments string) string {
	runAtLogon := "false"
	if d.RunAtLogin {
		runAtLogon = "true"
	}
	out := taskTemplate
	out = strings.ReplaceAll(out, "{runAtLogon}", runAtLogon)
	out = strings.ReplaceAll(out, "{throttle}", strconv.Itoa(d.ThrottleSecs))
	out = strings.ReplaceAll(out, "{command}", xmlEscape(command))
	out = strings.ReplaceAll(out, "{arguments}", xmlEscape(arguments))
	return out
}

func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}

// ShellCommand quotes a command line for sh -c execution with appended log
// redirection, used by the compatibility-layer action.
func ShellCommand(d Descriptor) string {
	parts := append([]string{d.Executable}, d.Arguments...)
	for i, p := range parts {
		parts[i] = "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
	}
	return fmt.Sprintf("%s >> '%s' 2>> '%s'",
		strings.Join(parts, " "), d.StdoutLog, d.StderrLog)
}
