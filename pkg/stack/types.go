package stack

import "time"

// Service represents a declared service in the local stack
type Service struct {
	Name     string     `json:"name" yaml:"name"`
	Endpoint string     `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Probe    *ProbeSpec `json:"probe,omitempty" yaml:"probe,omitempty"`
}

// ProbeType represents the protocol used to decide service readiness
type ProbeType string

const (
	// ProbeHTTP indicates an HTTP GET probe (ready on any 2xx response)
	ProbeHTTP ProbeType = "http"
	// ProbeTCP indicates a plain TCP connect probe
	ProbeTCP ProbeType = "tcp"
	// ProbePostgres indicates an authenticated Postgres ping probe
	ProbePostgres ProbeType = "postgres"
	// ProbeRedis indicates a Redis PING probe
	ProbeRedis ProbeType = "redis"
)

// ProbeSpec describes how to check a single service for readiness
type ProbeSpec struct {
	Type ProbeType `json:"type" yaml:"type"`
	// Target is probe-type specific: a URL for http, host:port for tcp,
	// a connection string for postgres, an address for redis.
	Target string `json:"target" yaml:"target"`
}

// ServiceState represents the runtime state of a stack service
type ServiceState string

const (
	// ServiceRunning indicates the service container is running
	ServiceRunning ServiceState = "running"
	// ServiceExited indicates the service container has exited
	ServiceExited ServiceState = "exited"
	// ServiceRestarting indicates the service container is restarting
	ServiceRestarting ServiceState = "restarting"
	// ServiceCreated indicates the service container exists but has not started
	ServiceCreated ServiceState = "created"
	// ServiceUnknown indicates the state could not be determined
	ServiceUnknown ServiceState = "unknown"
)

// ServiceStatus represents the observed status of one service as reported
// by the orchestration runtime
type ServiceStatus struct {
	Name      string       `json:"name"`
	Image     string       `json:"image,omitempty"`
	State     ServiceState `json:"state"`
	Health    string       `json:"health,omitempty"`
	Ports     string       `json:"ports,omitempty"`
	ExitCode  int          `json:"exit_code,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// RunOutcome represents the result of one bootstrap invocation
type RunOutcome string

const (
	// RunSucceeded indicates the pipeline reached its success terminal state
	RunSucceeded RunOutcome = "succeeded"
	// RunFailed indicates the pipeline aborted at some step
	RunFailed RunOutcome = "failed"
)

// RunRecord represents one recorded bootstrap run
type RunRecord struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Outcome    RunOutcome `json:"outcome"`
	FailedStep string     `json:"failed_step,omitempty"`
	Error      string     `json:"error,omitempty"`
	Services   []string   `json:"services,omitempty"`
}
