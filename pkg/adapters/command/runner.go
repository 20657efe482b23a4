// Package command adapts external programs (camera grabbers, OCR engines,
// permission probes) to the core ports.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// PathPlaceholder is replaced with the artifact path in command arguments.
const PathPlaceholder = "{path}"

// ErrEmptyCommand is returned when no program is configured.
var ErrEmptyCommand = errors.New("command is empty")

// Runner executes one configured command line.
type Runner struct {
	Args    []string
	Timeout time.Duration // zero means no timeout beyond ctx
	Logger  *slog.Logger
}

// NewRunner splits a command line on whitespace. Arguments containing
// spaces must be passed through Runner.Args directly.
func NewRunner(commandLine string, logger *slog.Logger) Runner {
	return Runner{Args: strings.Fields(commandLine), Logger: logger}
}

// Run executes the command with every PathPlaceholder replaced by path and
// returns its trimmed stdout. Stderr is only surfaced in errors.
func (r Runner) Run(ctx context.Context, path string) (string, error) {
	if len(r.Args) == 0 {
		return "", ErrEmptyCommand
	}

	args := make([]string, len(r.Args))
	for i, arg := range r.Args {
		args[i] = strings.ReplaceAll(arg, PathPlaceholder, path)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	if r.Logger != nil {
		r.Logger.Debug("executing command", "args", args)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Grandchildren may hold the pipes open after the process is killed.
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%s failed: %w\nOutput: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}
