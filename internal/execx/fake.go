package execx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Fake is a scripted Runner for tests. Responses are matched by command
// prefix; unmatched commands succeed with empty output. Every invocation is
// recorded in Calls.
type Fake struct {
	mu        sync.Mutex
	responses []fakeResponse
	missing   map[string]bool

	Calls []string
}

type fakeResponse struct {
	prefix string
	output string
	err    error
}

// NewFake returns an empty Fake where every command succeeds.
func NewFake() *Fake {
	return &Fake{missing: map[string]bool{}}
}

// Respond scripts output (and optionally an error) for any command whose
// space-joined form starts with prefix. Later scripts win over earlier ones.
func (f *Fake) Respond(prefix, output string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append([]fakeResponse{{prefix: prefix, output: output, err: err}}, f.responses...)
	return f
}

// MarkMissing makes LookPath fail for name.
func (f *Fake) MarkMissing(name string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missing[name] = true
	return f
}

func (f *Fake) Run(_ context.Context, name string, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := strings.Join(append([]string{name}, args...), " ")
	f.Calls = append(f.Calls, cmd)
	for _, r := range f.responses {
		if strings.HasPrefix(cmd, r.prefix) {
			return r.output, r.err
		}
	}
	return "", nil
}

func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[name] {
		return "", fmt.Errorf("%s: %w", name, errNotFound)
	}
	return "/usr/bin/" + name, nil
}

// CallsWithPrefix returns the recorded commands starting with prefix.
func (f *Fake) CallsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

var errNotFound = errors.New("executable not found")
