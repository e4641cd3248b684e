// Package device runs commands on a HarmonyOS device through the hdc bridge.
package device

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/hpungsan/hdcview/internal/config"
	"github.com/hpungsan/hdcview/internal/errors"
)

// Executor runs one bridge invocation and returns its trimmed output.
type Executor interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// HDC executes the hdc binary.
type HDC struct {
	Path    string
	Serial  string        // passed as "-t <serial>" when set
	Timeout time.Duration // per invocation; zero means none
}

// NewHDC builds an executor from configuration.
func NewHDC(cfg *config.Config) *HDC {
	h := &HDC{Path: "hdc"}
	if cfg == nil {
		return h
	}
	if cfg.HDCPath != "" {
		h.Path = cfg.HDCPath
	}
	h.Serial = cfg.DeviceSerial
	if cfg.CommandTimeoutSeconds > 0 {
		h.Timeout = time.Duration(cfg.CommandTimeoutSeconds) * time.Second
	}
	return h
}

// Run implements Executor.
func (h *HDC) Run(ctx context.Context, args ...string) (string, error) {
	full := make([]string, 0, len(args)+2)
	if h.Serial != "" {
		full = append(full, "-t", h.Serial)
	}
	full = append(full, args...)

	runCtx := ctx
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, h.Path, full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return strings.TrimSpace(stdout.String()), nil
	}

	if ctx.Err() != nil {
		return "", errors.NewCancelled("hdc " + strings.Join(args, " "))
	}
	if stderrors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return "", errors.NewCommandFailed(args, strings.TrimSpace(stderr.String()), fmt.Errorf("timed out after %s", h.Timeout))
	}
	return "", errors.NewCommandFailed(args, strings.TrimSpace(stderr.String()), err)
}

// safeArg matches arguments the device shell reads literally.
var safeArg = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// quote makes arg a single word for the device shell.
func quote(arg string) string {
	if arg == "" {
		return "''"
	}
	if safeArg.MatchString(arg) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}
