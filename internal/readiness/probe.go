// Package readiness decides when started services are actually able to
// answer requests, as distinct from merely having been launched. It polls
// per-service probes with exponential backoff under an overall deadline.
package readiness

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v4"

	"github.com/acadrec/devstack/pkg/stack"
)

// Probe checks a single service for readiness. Check returns nil once the
// service answers correctly; any error means "not ready yet".
type Probe interface {
	Check(ctx context.Context) error
}

// ProbeFor builds a probe from a service's declared probe spec
func ProbeFor(spec stack.ProbeSpec) (Probe, error) {
	switch spec.Type {
	case stack.ProbeHTTP:
		return &HTTPProbe{URL: spec.Target}, nil
	case stack.ProbeTCP:
		return &TCPProbe{Address: spec.Target}, nil
	case stack.ProbePostgres:
		return &PostgresProbe{DSN: spec.Target}, nil
	case stack.ProbeRedis:
		return &RedisProbe{Address: spec.Target}, nil
	default:
		return nil, fmt.Errorf("unsupported probe type: %q", spec.Type)
	}
}

// HTTPProbe considers a service ready when a GET against its health URL
// answers with a 2xx status
type HTTPProbe struct {
	URL    string
	Client *http.Client
}

// Check performs one HTTP readiness check
func (p *HTTPProbe) Check(ctx context.Context) error {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health endpoint %s answered %d", p.URL, resp.StatusCode)
	}

	return nil
}

// TCPProbe considers a service ready when its port accepts a connection
type TCPProbe struct {
	Address string
}

// Check performs one TCP connect check
func (p *TCPProbe) Check(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return fmt.Errorf("tcp connect to %s failed: %w", p.Address, err)
	}
	return conn.Close()
}

// PostgresProbe considers the database ready when an authenticated
// connection answers a ping. A port that accepts connections while the
// server is still in recovery does not pass this probe.
type PostgresProbe struct {
	DSN string
}

// Check performs one Postgres connect+ping check
func (p *PostgresProbe) Check(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, p.DSN)
	if err != nil {
		return fmt.Errorf("postgres connect failed: %w", err)
	}
	defer conn.Close(ctx)

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}

	return nil
}

// RedisProbe considers a cache service ready when it answers PING
type RedisProbe struct {
	Address string
}

// Check performs one Redis PING check
func (p *RedisProbe) Check(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:        p.Address,
		DialTimeout: 3 * time.Second,
	})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping to %s failed: %w", p.Address, err)
	}

	return nil
}
