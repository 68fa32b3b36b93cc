package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/trakt-tools/presencectl/internal/platform"
	"github.com/trakt-tools/presencectl/internal/unit"
)

// StatusReport is the consolidated health view. Sections are gathered
// independently; a failing section is marked unavailable and recorded in
// Problems, and never suppresses the others.
type StatusReport struct {
	Platform platform.Kind
	State    RunState
	Sections []Section
	Problems error
}

// Section is one titled block of the report.
type Section struct {
	Title       string
	Lines       []string
	Unavailable error
}

func (r *StatusReport) add(title string, lines []string, err error) {
	r.Sections = append(r.Sections, Section{Title: title, Lines: lines, Unavailable: err})
	if err != nil {
		r.Problems = multierr.Append(r.Problems, fmt.Errorf("%s: %w", title, err))
	}
}

// Render formats the report for terminal output.
func (r StatusReport) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\n", r.Platform)
	fmt.Fprintf(&b, "Service:  %s\n", r.State)
	for _, s := range r.Sections {
		fmt.Fprintf(&b, "\n%s\n%s\n", s.Title, strings.Repeat("-", len(s.Title)))
		if s.Unavailable != nil {
			fmt.Fprintf(&b, "  (unavailable: %v)\n", s.Unavailable)
			continue
		}
		if len(s.Lines) == 0 {
			b.WriteString("  (nothing to report)\n")
			continue
		}
		for _, line := range s.Lines {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	return b.String()
}

// appendCommon fills in the backend-independent sections: credential
// presence, runtime environment presence, and log tails.
func (b *adapterBase) appendCommon(rep *StatusReport, projectRoot string) {
	configLines, configErr := b.configSection(projectRoot)
	rep.add("Configuration", configLines, configErr)
	envLines, envErr := b.envSection(projectRoot)
	rep.add("Runtime environment", envLines, envErr)

	tailLines := b.cfg.Status.TailLines
	stdout := filepath.Join(projectRoot, unit.LogDirName, unit.StdoutLogName)
	stderr := filepath.Join(projectRoot, unit.LogDirName, unit.StderrLogName)
	stdoutLines, stdoutErr := tailSection(stdout, tailLines)
	rep.add(fmt.Sprintf("Log tail: %s", unit.StdoutLogName), stdoutLines, stdoutErr)
	stderrLines, stderrErr := tailSection(stderr, tailLines)
	rep.add(fmt.Sprintf("Log tail: %s", unit.StderrLogName), stderrLines, stderrErr)
}

func (b *adapterBase) configSection(projectRoot string) ([]string, error) {
	path := filepath.Join(projectRoot, envFileName)
	vals, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return []string{".env: missing"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	lines := []string{".env: present"}
	for _, key := range b.cfg.Status.RequiredKeys {
		state := "set"
		if strings.TrimSpace(vals[key]) == "" {
			state = "MISSING"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", key, state))
	}
	return lines, nil
}

func (b *adapterBase) envSection(projectRoot string) ([]string, error) {
	env := b.prov.Locate(projectRoot)
	if _, err := os.Stat(env.Root); errors.Is(err, os.ErrNotExist) {
		return []string{"virtual environment: missing (run install)"}, nil
	} else if err != nil {
		return nil, err
	}
	lines := []string{"virtual environment: present at " + env.Root}
	for _, probe := range []struct{ name, path string }{
		{"interpreter", env.Interpreter},
		{"package manager", env.Pip},
	} {
		if _, err := os.Stat(probe.path); err != nil {
			lines = append(lines, probe.name+": MISSING")
		} else {
			lines = append(lines, probe.name+": present")
		}
	}
	return lines, nil
}

func tailSection(path string, n int) ([]string, error) {
	lines, err := Tail(path, n)
	if errors.Is(err, os.ErrNotExist) {
		return []string{"(no log file yet)"}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return []string{"(log file is empty)"}, nil
	}
	return lines, nil
}

// tailTraversal bounds how much of a log file is read when tailing.
const tailTraversal = 256 * 1024

// Tail returns up to n trailing lines of the file at path, reading at most
// tailTraversal bytes from its end.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	offset := info.Size() - tailTraversal
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimRight(data, "\n")
	if len(data) == 0 {
		return nil, nil
	}
	lines := strings.Split(string(data), "\n")
	if offset > 0 && len(lines) > 0 {
		// First line may be a partial read; drop it.
		lines = lines[1:]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
