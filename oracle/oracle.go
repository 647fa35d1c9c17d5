package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/waltti/apcprofiler/errors"
)

// Oracle computes anonymization profiles for a batch of vehicle models
type Oracle interface {
	Compute(ctx context.Context, req Request) error
}

// Func adapts a function to the Oracle interface
type Func func(ctx context.Context, req Request) error

// Compute calls f
func (f Func) Compute(ctx context.Context, req Request) error {
	return f(ctx, req)
}

const stderrTailLimit = 4096

// Command runs an external executable once per request. The request is
// written as JSON to its stdin.
//
// The context is not bound to the child process: once started, the
// computation runs to completion even if ctx is cancelled.
type Command struct {
	Path   string
	Args   []string
	Env    []string  // appended to the process environment
	Stdout io.Writer // defaults to os.Stderr
	Stderr io.Writer // defaults to os.Stderr
	Logger *slog.Logger
}

// NewCommand creates a Command for path with args
func NewCommand(path string, args []string, logger *slog.Logger) *Command {
	if logger == nil {
		logger = slog.Default()
	}
	return &Command{
		Path:   path,
		Args:   args,
		Logger: logger,
	}
}

// Compute runs the executable and waits for it to exit
func (c *Command) Compute(ctx context.Context, req Request) error {
	if ctx.Err() != nil {
		return errors.WrapFatal(ctx.Err(), "OracleCommand", "Compute", "start oracle")
	}

	input, err := json.Marshal(req)
	if err != nil {
		return errors.WrapFatal(err, "OracleCommand", "Compute", "encode request")
	}

	stdout := c.Stdout
	if stdout == nil {
		stdout = os.Stderr
	}
	stderr := c.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	tail := &tailBuffer{limit: stderrTailLimit}

	cmd := exec.Command(c.Path, c.Args...) //nolint:gosec // path comes from operator configuration
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stderr, tail)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	logger := c.logger()
	logger.DebugContext(ctx, "Starting profile computation",
		"command", c.Path,
		"args", c.Args,
		"models", len(req.VehicleModels),
		"outputDirectory", req.OutputDirectory)

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(tail.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return errors.WrapFatal(fmt.Errorf("%w: %w", errors.ErrOracleFailed, err),
			"OracleCommand", "Compute", fmt.Sprintf("run %s", c.Path))
	}
	return nil
}

func (c *Command) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	buf   []byte
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
