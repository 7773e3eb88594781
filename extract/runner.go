// Package extract queries the project's build system for ordered source
// lists and assembles the include table the amalgamation engine consumes.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const commandTimeout = 60 * time.Second

// CommandRunner abstracts the build-tool subprocess so source listing can
// be tested without a real build system.
type CommandRunner interface {
	// Run executes one build-tool command and returns its stdout split
	// into non-empty lines.
	Run(args ...string) ([]string, error)
}

// Runner invokes the build tool that knows the project's source lists.
type Runner struct {
	tool string
	dir  string
}

// NewRunner creates a Runner for the given tool binary, executed with dir
// as its working directory. An empty tool defaults to buck2.
func NewRunner(tool, dir string) *Runner {
	if tool == "" {
		tool = "buck2"
	}
	return &Runner{tool: tool, dir: dir}
}

// Run implements CommandRunner.
func (r *Runner) Run(args ...string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.tool, args...)
	cmd.Dir = r.dir

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s command timed out after %s", r.tool, commandTimeout)
		}
		if stderrText := strings.TrimSpace(stderr.String()); stderrText != "" {
			return nil, fmt.Errorf("%s command failed: %s", r.tool, stderrText)
		}
		return nil, fmt.Errorf("%s command failed: %w", r.tool, err)
	}

	var lines []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// ProjectRoot asks the build tool for the root of the project tree.
func ProjectRoot(runner CommandRunner) (string, error) {
	lines, err := runner.Run("root")
	if err != nil {
		return "", fmt.Errorf("failed to query project root: %w", err)
	}
	if len(lines) != 1 {
		return "", fmt.Errorf("expected one line of root output, got %d", len(lines))
	}
	return strings.TrimSpace(lines[0]), nil
}
