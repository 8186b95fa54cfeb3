package readiness

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/acadrec/devstack/pkg/stack"
)

// ErrNotReady indicates at least one service never passed its probe within
// the overall deadline
var ErrNotReady = errors.New("services not ready before deadline")

// BackoffConfig defines the polling cadence for readiness checks
type BackoffConfig struct {
	// InitialDelay is the delay before the second attempt
	InitialDelay time.Duration
	// MaxDelay caps the delay between attempts
	MaxDelay time.Duration
	// Multiplier is the backoff multiplier per attempt
	Multiplier float64
	// Jitter indicates whether to randomize each delay
	Jitter bool
}

// DefaultBackoffConfig returns the default polling cadence
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Target pairs a service name with its readiness probe
type Target struct {
	Service string
	Probe   Probe
}

// Waiter polls a set of targets until every probe passes or the deadline
// expires
type Waiter struct {
	config BackoffConfig
	logger *zap.Logger
	mu     sync.Mutex
	rand   *rand.Rand
}

// NewWaiter creates a waiter with the given polling cadence
func NewWaiter(config BackoffConfig) *Waiter {
	logger, _ := zap.NewProduction()

	return &Waiter{
		config: config,
		logger: logger,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithLogger sets the logger
func (w *Waiter) WithLogger(logger *zap.Logger) *Waiter {
	w.logger = logger
	return w
}

// TargetsFor builds waiter targets from the declared services. Services
// without a probe are documented endpoints only and are not waited on.
func TargetsFor(services []stack.Service) ([]Target, error) {
	var targets []Target
	for _, svc := range services {
		if svc.Probe == nil {
			continue
		}
		probe, err := ProbeFor(*svc.Probe)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", svc.Name, err)
		}
		targets = append(targets, Target{Service: svc.Name, Probe: probe})
	}
	return targets, nil
}

// calculateDelay computes the backoff delay for an attempt
func (w *Waiter) calculateDelay(attempt int) time.Duration {
	base := float64(w.config.InitialDelay) * math.Pow(w.config.Multiplier, float64(attempt))
	capped := math.Min(base, float64(w.config.MaxDelay))

	final := capped
	if w.config.Jitter {
		w.mu.Lock()
		jitterFactor := 0.8 + w.rand.Float64()*0.4
		w.mu.Unlock()
		final = capped * jitterFactor
	}

	return time.Duration(final)
}

// Await blocks until every target's probe passes, the timeout expires, or
// ctx is canceled. On timeout it returns ErrNotReady naming the services
// that never answered.
func (w *Waiter) Await(ctx context.Context, targets []Target, timeout time.Duration) error {
	if len(targets) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pending := make(map[string]Probe, len(targets))
	lastErr := make(map[string]error, len(targets))
	for _, t := range targets {
		pending[t.Service] = t.Probe
	}

	start := time.Now()
	attempt := 0

	for {
		for service, probe := range pending {
			if err := probe.Check(ctx); err != nil {
				lastErr[service] = err

				w.logger.Debug("Readiness probe failed, will retry",
					zap.String("service", service),
					zap.Int("attempt", attempt+1),
					zap.Error(err))
				continue
			}

			w.logger.Info("Service ready",
				zap.String("service", service),
				zap.Duration("elapsed", time.Since(start)))

			delete(pending, service)
			delete(lastErr, service)
		}

		if len(pending) == 0 {
			return nil
		}

		delay := w.calculateDelay(attempt)
		attempt++

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()

			names := make([]string, 0, len(pending))
			for service := range pending {
				names = append(names, service)
			}

			w.logger.Warn("Readiness wait expired",
				zap.Strings("services", names),
				zap.Duration("elapsed", time.Since(start)))

			return fmt.Errorf("%w: %s (last errors: %s)",
				ErrNotReady, strings.Join(names, ", "), summarizeErrors(lastErr))
		}
	}
}

func summarizeErrors(errs map[string]error) string {
	parts := make([]string, 0, len(errs))
	for service, err := range errs {
		parts = append(parts, fmt.Sprintf("%s: %v", service, err))
	}
	if len(parts) == 0 {
		return "none recorded"
	}
	return strings.Join(parts, "; ")
}
