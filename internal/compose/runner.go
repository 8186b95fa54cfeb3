// Package compose fronts the external container-orchestration runtime with
// a narrow capability surface: availability check, build, up, down, status
// and logs, each a single blocking call whose error mirrors the underlying
// process exit code.
package compose

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/acadrec/devstack/pkg/stack"
)

// ErrRuntimeMissing indicates the orchestration executable is not on PATH
var ErrRuntimeMissing = errors.New("container runtime not found on PATH")

// Runner shells out to the compose runtime for one project directory
type Runner struct {
	binary     string
	projectDir string
	exec       Executor
	logger     *logrus.Logger
}

// NewRunner creates a runner for the given runtime binary and project
// directory
func NewRunner(binary, projectDir string, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Runner{
		binary:     binary,
		projectDir: projectDir,
		exec:       SystemExecutor{},
		logger:     logger,
	}
}

// WithExecutor sets the command executor
func (r *Runner) WithExecutor(exec Executor) *Runner {
	r.exec = exec
	return r
}

// composeArgs prefixes the compose subcommand when the runtime is the
// docker CLI (as opposed to a standalone compose binary)
func (r *Runner) composeArgs(args ...string) []string {
	if filepath.Base(r.binary) == "docker" {
		return append([]string{"compose"}, args...)
	}
	return args
}

// EnsureAvailable verifies the runtime executable resolves on PATH and
// answers a compose version query. This is the hard precondition of every
// bootstrap run; nothing is mutated before it passes.
func (r *Runner) EnsureAvailable(ctx context.Context) error {
	path, err := r.exec.LookPath(r.binary)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRuntimeMissing, r.binary)
	}

	if _, err := r.exec.Output(ctx, r.projectDir, r.binary, r.composeArgs("version")...); err != nil {
		return fmt.Errorf("%w: %s has no working compose support: %v", ErrRuntimeMissing, r.binary, err)
	}

	r.logger.WithFields(logrus.Fields{
		"binary": r.binary,
		"path":   path,
	}).Debug("Container runtime available")

	return nil
}

// Build builds the images of all declared services
func (r *Runner) Build(ctx context.Context, stdout, stderr io.Writer) error {
	r.logger.WithField("project_dir", r.projectDir).Info("Building service images")

	if err := r.exec.Run(ctx, r.projectDir, stdout, stderr, r.binary, r.composeArgs("build")...); err != nil {
		return fmt.Errorf("compose build failed: %w", err)
	}

	return nil
}

// Up starts all declared services detached. The underlying runtime converges
// to the running state, so calling Up against an already running stack is a
// no-op rather than an error.
func (r *Runner) Up(ctx context.Context, stdout, stderr io.Writer) error {
	r.logger.WithField("project_dir", r.projectDir).Info("Starting service stack")

	if err := r.exec.Run(ctx, r.projectDir, stdout, stderr, r.binary, r.composeArgs("up", "-d")...); err != nil {
		return fmt.Errorf("compose up failed: %w", err)
	}

	return nil
}

// Down stops the stack; wipeVolumes also removes named volumes
func (r *Runner) Down(ctx context.Context, wipeVolumes bool, stdout, stderr io.Writer) error {
	args := []string{"down"}
	if wipeVolumes {
		args = append(args, "-v")
	}

	r.logger.WithFields(logrus.Fields{
		"project_dir":  r.projectDir,
		"wipe_volumes": wipeVolumes,
	}).Info("Stopping service stack")

	if err := r.exec.Run(ctx, r.projectDir, stdout, stderr, r.binary, r.composeArgs(args...)...); err != nil {
		return fmt.Errorf("compose down failed: %w", err)
	}

	return nil
}

// Logs streams service logs to w. An empty service name selects all
// services; follow keeps the stream attached.
func (r *Runner) Logs(ctx context.Context, service string, follow bool, w io.Writer) error {
	args := []string{"logs", "--tail", "100"}
	if follow {
		args = append(args, "-f")
	}
	if service != "" {
		args = append(args, service)
	}

	if err := r.exec.Run(ctx, r.projectDir, w, w, r.binary, r.composeArgs(args...)...); err != nil {
		return fmt.Errorf("compose logs failed: %w", err)
	}

	return nil
}

// psEntry is the JSON shape emitted per service by compose ps
type psEntry struct {
	Name       string `json:"Name"`
	Service    string `json:"Service"`
	Image      string `json:"Image"`
	State      string `json:"State"`
	Health     string `json:"Health"`
	ExitCode   int    `json:"ExitCode"`
	Publishers []struct {
		URL           string `json:"URL"`
		TargetPort    int    `json:"TargetPort"`
		PublishedPort int    `json:"PublishedPort"`
		Protocol      string `json:"Protocol"`
	} `json:"Publishers"`
}

// Status queries the runtime for the current state of all declared services
func (r *Runner) Status(ctx context.Context) ([]stack.ServiceStatus, error) {
	out, err := r.exec.Output(ctx, r.projectDir, r.binary, r.composeArgs("ps", "--all", "--format", "json")...)
	if err != nil {
		return nil, fmt.Errorf("compose ps failed: %w", err)
	}

	return parseStatus(out)
}

// parseStatus decodes compose ps output. Newer compose versions emit one
// JSON object per line; older ones emit a single JSON array. Both are
// accepted.
func parseStatus(out []byte) ([]stack.ServiceStatus, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var entries []psEntry
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse compose ps output: %w", err)
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(trimmed))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var e psEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return nil, fmt.Errorf("failed to parse compose ps output: %w", err)
			}
			entries = append(entries, e)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan compose ps output: %w", err)
		}
	}

	statuses := make([]stack.ServiceStatus, 0, len(entries))
	for _, e := range entries {
		name := e.Service
		if name == "" {
			name = e.Name
		}
		statuses = append(statuses, stack.ServiceStatus{
			Name:     name,
			Image:    e.Image,
			State:    parseState(e.State),
			Health:   e.Health,
			Ports:    formatPublishers(e),
			ExitCode: e.ExitCode,
		})
	}

	return statuses, nil
}

func parseState(s string) stack.ServiceState {
	switch strings.ToLower(s) {
	case "running":
		return stack.ServiceRunning
	case "exited", "dead":
		return stack.ServiceExited
	case "restarting":
		return stack.ServiceRestarting
	case "created", "paused":
		return stack.ServiceCreated
	default:
		return stack.ServiceUnknown
	}
}

func formatPublishers(e psEntry) string {
	parts := make([]string, 0, len(e.Publishers))
	for _, p := range e.Publishers {
		if p.PublishedPort == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d->%d/%s", p.PublishedPort, p.TargetPort, p.Protocol))
	}
	return strings.Join(parts, ", ")
}
