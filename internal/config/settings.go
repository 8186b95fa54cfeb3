// Package config holds the immutable bootstrap settings, the env-file
// materialization step, and the optional stack manifest loader.
package config

import (
	"path/filepath"
	"time"

	"github.com/acadrec/devstack/pkg/stack"
)

const (
	// DefaultRuntimeBinary is the container-orchestration executable
	DefaultRuntimeBinary = "docker"
	// DefaultEnvFile is the local configuration file consumed by the stack
	DefaultEnvFile = ".env"
	// DefaultEnvTemplate is the checked-in template the env file is copied from
	DefaultEnvTemplate = ".env.example"
	// DefaultManifest is the optional stack manifest file
	DefaultManifest = "devstack.yaml"
	// DefaultWaitTimeout bounds the whole readiness wait
	DefaultWaitTimeout = 90 * time.Second
)

// Settings represents the full configuration of one bootstrap invocation.
// It is built once by the CLI and passed down; nothing mutates it afterwards.
type Settings struct {
	// RuntimeBinary is the orchestration executable looked up on PATH
	RuntimeBinary string
	// ProjectDir is the compose project directory; all relative paths
	// below resolve against it
	ProjectDir string
	// EnvFile is the local configuration file path
	EnvFile string
	// EnvTemplate is the template the env file is materialized from
	EnvTemplate string
	// ManifestPath is the stack manifest path; the file may be absent
	ManifestPath string
	// DataDir is where the tool keeps its own state (run history)
	DataDir string
	// WaitTimeout is the overall readiness deadline
	WaitTimeout time.Duration
	// Services is the declared stack, from the manifest or defaults
	Services []stack.Service
}

// DefaultSettings returns settings for the stock app+db stack rooted at
// projectDir.
func DefaultSettings(projectDir string) Settings {
	return Settings{
		RuntimeBinary: DefaultRuntimeBinary,
		ProjectDir:    projectDir,
		EnvFile:       filepath.Join(projectDir, DefaultEnvFile),
		EnvTemplate:   filepath.Join(projectDir, DefaultEnvTemplate),
		ManifestPath:  filepath.Join(projectDir, DefaultManifest),
		WaitTimeout:   DefaultWaitTimeout,
		Services:      DefaultServices(),
	}
}

// DefaultServices returns the built-in stack declaration used when no
// manifest is present: the application API and its Postgres database.
func DefaultServices() []stack.Service {
	return []stack.Service{
		{
			Name:     "app",
			Endpoint: "http://localhost:3000",
			Probe: &stack.ProbeSpec{
				Type:   stack.ProbeHTTP,
				Target: "http://localhost:3000/health",
			},
		},
		{
			Name:     "db",
			Endpoint: "localhost:5432",
			Probe: &stack.ProbeSpec{
				Type:   stack.ProbeTCP,
				Target: "localhost:5432",
			},
		},
	}
}
