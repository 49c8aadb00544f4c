package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// outputLimit caps how much of a tool's stdout/stderr is kept for error messages.
const outputLimit = 4096

// waitDelay bounds how long Wait keeps draining pipes after the process was killed.
const waitDelay = 5 * time.Second

// executor abstracts command execution for testing.
type executor interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)
	return cmd.Run()
}

// CommandRunner runs external conversion tools. The caller's context bounds
// the run; when it expires the whole process group is killed.
type CommandRunner struct {
	exec executor
}

func NewCommandRunner() *CommandRunner {
	return &CommandRunner{exec: &osExecutor{}}
}

// Run executes name with args and returns the trimmed tail of the tool's
// output. Tools that report failures but exit 0 still have their text
// returned, so callers can attach it when the expected output is missing.
func (r *CommandRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out := &tailBuffer{limit: outputLimit}
	err := r.exec.Run(ctx, name, args, out, out)
	msg := strings.TrimSpace(out.String())
	if err == nil {
		return msg, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return msg, fmt.Errorf("%s interrupted: %w", name, ctxErr)
	}
	if msg != "" {
		return msg, fmt.Errorf("%s failed: %w: %s", name, err, msg)
	}
	return msg, fmt.Errorf("%s failed: %w", name, err)
}

// withToolOutput appends the tool's own text to a missing-output error.
func withToolOutput(msg, output string) error {
	if output == "" {
		return errors.New(msg)
	}
	return fmt.Errorf("%s: %s", msg, output)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
