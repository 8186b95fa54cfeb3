package compose

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadrec/devstack/pkg/stack"
)

// fakeExecutor records invoked commands and returns scripted results
type fakeExecutor struct {
	lookPathErr error
	runErr      error
	output      []byte
	outputErr   error
	calls       [][]string
}

func (f *fakeExecutor) LookPath(bin string) (string, error) {
	if f.lookPathErr != nil {
		return "", f.lookPathErr
	}
	return "/usr/bin/" + bin, nil
}

func (f *fakeExecutor) Run(ctx context.Context, dir string, stdout, stderr io.Writer, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.runErr
}

func (f *fakeExecutor) Output(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.output, f.outputErr
}

func newTestRunner(exec Executor) *Runner {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetOutput(io.Discard)

	return NewRunner("docker", "/tmp/project", logger).WithExecutor(exec)
}

func TestRunnerEnsureAvailable(t *testing.T) {
	ctx := context.Background()

	t.Run("PassesWhenRuntimeResolves", func(t *testing.T) {
		exec := &fakeExecutor{output: []byte("Docker Compose version v2.29.0\n")}
		runner := newTestRunner(exec)

		err := runner.EnsureAvailable(ctx)

		require.NoError(t, err)
		require.Len(t, exec.calls, 1)
		assert.Equal(t, []string{"docker", "compose", "version"}, exec.calls[0])
	})

	t.Run("FailsWhenBinaryMissing", func(t *testing.T) {
		exec := &fakeExecutor{lookPathErr: errors.New("executable file not found in $PATH")}
		runner := newTestRunner(exec)

		err := runner.EnsureAvailable(ctx)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRuntimeMissing)
		assert.Empty(t, exec.calls)
	})

	t.Run("FailsWhenComposeUnsupported", func(t *testing.T) {
		exec := &fakeExecutor{outputErr: errors.New("unknown command: compose")}
		runner := newTestRunner(exec)

		err := runner.EnsureAvailable(ctx)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRuntimeMissing)
	})
}

func TestRunnerCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("BuildInvokesComposeBuild", func(t *testing.T) {
		exec := &fakeExecutor{}
		runner := newTestRunner(exec)

		require.NoError(t, runner.Build(ctx, io.Discard, io.Discard))
		require.Len(t, exec.calls, 1)
		assert.Equal(t, []string{"docker", "compose", "build"}, exec.calls[0])
	})

	t.Run("UpRunsDetached", func(t *testing.T) {
		exec := &fakeExecutor{}
		runner := newTestRunner(exec)

		require.NoError(t, runner.Up(ctx, io.Discard, io.Discard))
		require.Len(t, exec.calls, 1)
		assert.Equal(t, []string{"docker", "compose", "up", "-d"}, exec.calls[0])
	})

	t.Run("DownWipesVolumesOnRequest", func(t *testing.T) {
		exec := &fakeExecutor{}
		runner := newTestRunner(exec)

		require.NoError(t, runner.Down(ctx, false, io.Discard, io.Discard))
		require.NoError(t, runner.Down(ctx, true, io.Discard, io.Discard))

		require.Len(t, exec.calls, 2)
		assert.Equal(t, []string{"docker", "compose", "down"}, exec.calls[0])
		assert.Equal(t, []string{"docker", "compose", "down", "-v"}, exec.calls[1])
	})

	t.Run("LogsSelectsServiceAndFollow", func(t *testing.T) {
		exec := &fakeExecutor{}
		runner := newTestRunner(exec)

		require.NoError(t, runner.Logs(ctx, "app", true, io.Discard))
		require.Len(t, exec.calls, 1)
		assert.Equal(t, []string{"docker", "compose", "logs", "--tail", "100", "-f", "app"}, exec.calls[0])
	})

	t.Run("StandaloneBinarySkipsComposePrefix", func(t *testing.T) {
		exec := &fakeExecutor{}
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		runner := NewRunner("docker-compose", "/tmp/project", logger).WithExecutor(exec)

		require.NoError(t, runner.Build(ctx, io.Discard, io.Discard))
		require.Len(t, exec.calls, 1)
		assert.Equal(t, []string{"docker-compose", "build"}, exec.calls[0])
	})

	t.Run("BuildFailurePropagates", func(t *testing.T) {
		exec := &fakeExecutor{runErr: errors.New("exit status 1")}
		runner := newTestRunner(exec)

		err := runner.Build(ctx, io.Discard, io.Discard)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "compose build failed")
	})
}

func TestRunnerStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("ParsesLineDelimitedJSON", func(t *testing.T) {
		exec := &fakeExecutor{output: []byte(strings.Join([]string{
			`{"Name":"proj-app-1","Service":"app","Image":"proj-app","State":"running","Health":"healthy","ExitCode":0,"Publishers":[{"URL":"0.0.0.0","TargetPort":3000,"PublishedPort":3000,"Protocol":"tcp"}]}`,
			`{"Name":"proj-db-1","Service":"db","Image":"postgres:16","State":"exited","ExitCode":1,"Publishers":[]}`,
		}, "\n"))}
		runner := newTestRunner(exec)

		statuses, err := runner.Status(ctx)

		require.NoError(t, err)
		require.Len(t, statuses, 2)
		assert.Equal(t, "app", statuses[0].Name)
		assert.Equal(t, stack.ServiceRunning, statuses[0].State)
		assert.Equal(t, "healthy", statuses[0].Health)
		assert.Equal(t, "3000->3000/tcp", statuses[0].Ports)
		assert.Equal(t, stack.ServiceExited, statuses[1].State)
		assert.Equal(t, 1, statuses[1].ExitCode)
	})

	t.Run("ParsesArrayJSON", func(t *testing.T) {
		exec := &fakeExecutor{output: []byte(`[{"Name":"proj-app-1","Service":"app","State":"restarting"}]`)}
		runner := newTestRunner(exec)

		statuses, err := runner.Status(ctx)

		require.NoError(t, err)
		require.Len(t, statuses, 1)
		assert.Equal(t, stack.ServiceRestarting, statuses[0].State)
	})

	t.Run("EmptyOutputMeansNoServices", func(t *testing.T) {
		exec := &fakeExecutor{output: []byte("\n")}
		runner := newTestRunner(exec)

		statuses, err := runner.Status(ctx)

		require.NoError(t, err)
		assert.Empty(t, statuses)
	})

	t.Run("UnknownStateMapsToUnknown", func(t *testing.T) {
		statuses, err := parseStatus([]byte(`{"Service":"app","State":"levitating"}`))

		require.NoError(t, err)
		require.Len(t, statuses, 1)
		assert.Equal(t, stack.ServiceUnknown, statuses[0].State)
	})

	t.Run("MalformedOutputFails", func(t *testing.T) {
		_, err := parseStatus([]byte(`{"Service":`))

		require.Error(t, err)
	})
}
