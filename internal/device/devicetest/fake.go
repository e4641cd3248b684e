// Package devicetest provides a scripted Executor for tests.
package devicetest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/hpungsan/hdcview/internal/errors"
)

// Fake answers bridge invocations from a table keyed by the space-joined
// arguments and records every call. Unknown commands fail.
type Fake struct {
	mu      sync.Mutex
	outputs map[string]string
	failing map[string]bool
	files   map[string]string
	calls   []string
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		outputs: make(map[string]string),
		failing: make(map[string]bool),
		files:   make(map[string]string),
	}
}

// On sets the output for a command line such as "shell wm size".
func (f *Fake) On(command, output string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[command] = output
	return f
}

// Fail makes a command line return COMMAND_FAILED.
func (f *Fake) Fail(command string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[command] = true
	return f
}

// RemoteFile stages a file on the "device" that "file recv" copies out.
func (f *Fake) RemoteFile(remote, content string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[remote] = content
	return f
}

// Layout stages a layout dump and the dumpLayout reply pointing at it.
func (f *Fake) Layout(content string) *Fake {
	const remote = "/data/local/tmp/layout_1700000000.json"
	f.On("shell uitest dumpLayout", "DumpLayout saves to:"+remote)
	return f.RemoteFile(remote, content)
}

// Calls returns the recorded command lines.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Run implements device.Executor.
func (f *Fake) Run(ctx context.Context, args ...string) (string, error) {
	if ctx.Err() != nil {
		return "", errors.NewCancelled("hdc " + strings.Join(args, " "))
	}

	command := strings.Join(args, " ")

	f.mu.Lock()
	f.calls = append(f.calls, command)
	failing := f.failing[command]
	out, ok := f.outputs[command]
	f.mu.Unlock()

	if failing {
		return "", errors.NewCommandFailed(args, "[Fail]scripted failure", nil)
	}

	if len(args) == 4 && args[0] == "file" && args[1] == "recv" {
		return f.recv(args[2], args[3])
	}

	if !ok {
		return "", errors.NewCommandFailed(args, "[Fail]unknown command", nil)
	}
	return out, nil
}

func (f *Fake) recv(remote, local string) (string, error) {
	f.mu.Lock()
	content, ok := f.files[remote]
	f.mu.Unlock()

	if !ok {
		return "[Fail]Error opening file: no such file or directory, path:" + remote, nil
	}
	if err := os.WriteFile(local, []byte(content), 0600); err != nil {
		return "", errors.NewCommandFailed([]string{"file", "recv", remote, local}, "", err)
	}
	return fmt.Sprintf("FileTransfer finish, Size:%d, File count = 1, time:1ms", len(content)), nil
}
