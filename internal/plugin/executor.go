package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

var (
	// ErrUnsupportedAction is returned when a plugin's manifest does not list
	// the requested action.
	ErrUnsupportedAction = errors.New("action not supported by plugin")
	// ErrTimeout is returned when a plugin outlives the executor timeout.
	ErrTimeout = errors.New("plugin timed out")
)

// waitDelay bounds how long output is drained after a plugin is killed.
const waitDelay = 500 * time.Millisecond

// Executor runs plugin executables, one process per request.
type Executor struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecutor creates an Executor that kills plugins after timeout.
func NewExecutor(timeout time.Duration, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{timeout: timeout, logger: logger}
}

// Execute writes req to the plugin's stdin as JSON and decodes its stdout as
// a Response. The call is bounded by both ctx and the executor timeout.
func (e *Executor) Execute(ctx context.Context, p *Plugin, req *Request) (*Response, error) {
	name := p.Manifest.Name
	if len(p.Manifest.Actions) > 0 && !p.Manifest.Supports(req.Action) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedAction, name, req.Action)
	}

	in, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, p.Executable)
	cmd.Dir = p.Path
	cmd.Stdin = bytes.NewReader(in)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// A killed script may leave children holding stdout open.
	cmd.WaitDelay = waitDelay

	start := time.Now()
	if err := cmd.Run(); err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case runCtx.Err() != nil:
			return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, name, e.timeout)
		case stderr.Len() > 0:
			return nil, fmt.Errorf("plugin %s failed: %w, stderr: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
		default:
			return nil, fmt.Errorf("plugin %s failed: %w", name, err)
		}
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse plugin response: %w, stdout: %s", err, stdout.String())
	}

	e.logger.Debug("plugin executed",
		"plugin", name, "action", req.Action, "gesture", req.Gesture,
		"success", resp.Success, "elapsed", time.Since(start))
	return &resp, nil
}
