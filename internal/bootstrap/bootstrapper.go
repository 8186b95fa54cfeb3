// Package bootstrap drives the environment bring-up pipeline: runtime
// check, env-file materialization, image build, stack start, readiness
// wait, status report. The pipeline is linear and fail-fast; every step is
// individually idempotent, so re-invocation is the recovery mechanism.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/acadrec/devstack/internal/config"
	"github.com/acadrec/devstack/internal/readiness"
	"github.com/acadrec/devstack/pkg/stack"
)

// Step identifies one pipeline step
type Step string

const (
	// StepRuntimeCheck verifies the orchestration runtime is present
	StepRuntimeCheck Step = "runtime-check"
	// StepEnvFile materializes the env file from its template
	StepEnvFile Step = "env-file"
	// StepBuild builds all service images
	StepBuild Step = "build"
	// StepUp starts the stack detached
	StepUp Step = "up"
	// StepWait polls readiness probes until every service answers
	StepWait Step = "readiness"
	// StepStatus queries and reports service status
	StepStatus Step = "status"
)

// StepError reports which pipeline step failed
type StepError struct {
	Step Step
	Err  error
}

// Error implements the error interface
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error
func (e *StepError) Unwrap() error {
	return e.Err
}

// Runtime is the narrow capability surface the pipeline needs from the
// orchestration runtime
type Runtime interface {
	EnsureAvailable(ctx context.Context) error
	Build(ctx context.Context, stdout, stderr io.Writer) error
	Up(ctx context.Context, stdout, stderr io.Writer) error
	Status(ctx context.Context) ([]stack.ServiceStatus, error)
}

// Waiter blocks until the given targets pass their readiness probes
type Waiter interface {
	Await(ctx context.Context, targets []readiness.Target, timeout time.Duration) error
}

// Recorder persists finished run records
type Recorder interface {
	Save(record stack.RunRecord) error
}

// Manager runs the bootstrap pipeline
type Manager struct {
	settings config.Settings
	runtime  Runtime
	waiter   Waiter
	recorder Recorder
	logger   *logrus.Logger
	out      io.Writer
	stepHook func(step Step)
}

// NewManager creates a bootstrap manager for the given settings
func NewManager(settings config.Settings, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Manager{
		settings: settings,
		logger:   logger,
		out:      os.Stdout,
	}
}

// WithRuntime sets the orchestration runtime
func (m *Manager) WithRuntime(runtime Runtime) *Manager {
	m.runtime = runtime
	return m
}

// WithWaiter sets the readiness waiter
func (m *Manager) WithWaiter(waiter Waiter) *Manager {
	m.waiter = waiter
	return m
}

// WithRecorder sets the run-history recorder
func (m *Manager) WithRecorder(recorder Recorder) *Manager {
	m.recorder = recorder
	return m
}

// WithOutput sets the writer progress and the final report are printed to
func (m *Manager) WithOutput(out io.Writer) *Manager {
	m.out = out
	return m
}

// WithStepHook sets a callback invoked as each step starts
func (m *Manager) WithStepHook(hook func(step Step)) *Manager {
	m.stepHook = hook
	return m
}

func (m *Manager) enterStep(step Step) {
	if m.stepHook != nil {
		m.stepHook(step)
	}
}

// Run executes the full pipeline. The runtime check runs before any
// filesystem mutation, including the run record itself: a missing runtime
// leaves no trace behind. Every later failure is recorded and returned as
// a StepError naming the step.
func (m *Manager) Run(ctx context.Context) error {
	if m.runtime == nil {
		return fmt.Errorf("bootstrap manager has no runtime configured")
	}

	m.enterStep(StepRuntimeCheck)
	if err := m.runtime.EnsureAvailable(ctx); err != nil {
		m.logger.WithError(err).Error("Container runtime check failed")
		return &StepError{Step: StepRuntimeCheck, Err: err}
	}

	record := stack.RunRecord{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Services:  serviceNames(m.settings.Services),
	}

	if err := m.materializeEnv(); err != nil {
		return m.fail(record, StepEnvFile, err)
	}

	m.enterStep(StepBuild)
	Banner(m.out, "Building images")
	if err := m.runtime.Build(ctx, m.out, m.out); err != nil {
		return m.fail(record, StepBuild, err)
	}

	m.enterStep(StepUp)
	Banner(m.out, "Starting stack")
	if err := m.runtime.Up(ctx, m.out, m.out); err != nil {
		return m.fail(record, StepUp, err)
	}

	m.enterStep(StepWait)
	Banner(m.out, "Waiting for services")
	if err := m.awaitReady(ctx); err != nil {
		return m.fail(record, StepWait, err)
	}

	m.enterStep(StepStatus)
	statuses, err := m.runtime.Status(ctx)
	if err != nil {
		return m.fail(record, StepStatus, err)
	}

	RenderReport(m.out, m.settings.Services, statuses)

	record.FinishedAt = time.Now().UTC()
	record.Outcome = stack.RunSucceeded
	m.record(record)

	return nil
}

// materializeEnv runs the env-file step and prints its outcome
func (m *Manager) materializeEnv() error {
	m.enterStep(StepEnvFile)

	result, err := config.MaterializeEnvFile(m.settings.EnvFile, m.settings.EnvTemplate, m.logger)
	if err != nil {
		return err
	}

	if result == config.EnvCreated {
		Warnf(m.out, "Created %s from %s, review it before relying on the stack",
			m.settings.EnvFile, m.settings.EnvTemplate)
	}

	return nil
}

// awaitReady polls every declared probe until all pass or the deadline
// expires
func (m *Manager) awaitReady(ctx context.Context) error {
	if m.waiter == nil {
		return nil
	}

	targets, err := readiness.TargetsFor(m.settings.Services)
	if err != nil {
		return err
	}

	return m.waiter.Await(ctx, targets, m.settings.WaitTimeout)
}

// fail finalizes and records a failed run, then wraps the error with its
// step
func (m *Manager) fail(record stack.RunRecord, step Step, err error) error {
	m.logger.WithFields(logrus.Fields{
		"step": string(step),
	}).WithError(err).Error("Bootstrap step failed")

	record.FinishedAt = time.Now().UTC()
	record.Outcome = stack.RunFailed
	record.FailedStep = string(step)
	record.Error = err.Error()
	m.record(record)

	return &StepError{Step: step, Err: err}
}

// record saves the run record when a recorder is wired
func (m *Manager) record(record stack.RunRecord) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.Save(record); err != nil {
		m.logger.WithError(err).Warn("Failed to save bootstrap run record")
	}
}

func serviceNames(services []stack.Service) []string {
	names := make([]string, 0, len(services))
	for _, svc := range services {
		names = append(names, svc.Name)
	}
	return names
}
