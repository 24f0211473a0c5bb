package orchestrator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/osint-brain/backend/internal/investigation"
	"github.com/osint-brain/backend/internal/metrics"
	"github.com/osint-brain/backend/internal/modules"
	"github.com/osint-brain/backend/pkg/circuitbreaker"
	"github.com/osint-brain/backend/pkg/logger"
	"github.com/osint-brain/backend/pkg/retry"
)

type Config struct {
	// ProbeTimeout bounds a single module invocation attempt, not the run.
	ProbeTimeout time.Duration
	// MaxAttempts counts the first call plus retries (3 = up to 2 retries).
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// GracePeriod is how long in-flight probes may keep running after the
	// caller cancels, before being abandoned.
	GracePeriod    time.Duration
	CallsPerMinute int
}

func DefaultConfig() Config {
	return Config{
		ProbeTimeout:   10 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		GracePeriod:    2 * time.Second,
		CallsPerMinute: 60,
	}
}

// Orchestrator fans an investigation plan out to the applicable evidence
// modules and collects whatever comes back. One module's failure never aborts
// the run: partial results are the normal case, not an error path.
type Orchestrator struct {
	cfg      Config
	registry *modules.Registry
	gate     *gate

	breakerMu sync.Mutex
	breakers  map[string]*circuitbreaker.CircuitBreaker

	log *zap.Logger
}

func New(cfg Config, registry *modules.Registry) *Orchestrator {
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = 2 * time.Second
	}

	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		gate:     newGate(cfg.CallsPerMinute),
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
		log:      logger.Named("orchestrator"),
	}
}

// Run invokes every module whose capability matches the plan, concurrently
// across independent targets, and returns the collected signals plus a
// failure entry per module invocation that exhausted its retries. Cancelling
// ctx stops new dispatches; in-flight probes get the configured grace period
// and any signals they return are kept.
func (o *Orchestrator) Run(ctx context.Context, plan *investigation.Plan) ([]investigation.Signal, []investigation.ModuleFailure) {
	selected := o.registry.ByCapability(plan.RecommendedModules)

	o.log.Info("Dispatching evidence modules",
		zap.Int("modules", len(selected)),
		zap.Int("targets", len(plan.Targets)),
		zap.String("intent", string(plan.Intent)),
	)

	probeCtx, cancelProbes := graceContext(ctx, o.cfg.GracePeriod)
	defer cancelProbes()

	var (
		mu       sync.Mutex
		signals  []investigation.Signal
		failures []investigation.ModuleFailure
		wg       sync.WaitGroup
	)

dispatch:
	for _, m := range selected {
		caps := capabilitySet(m)
		for _, target := range plan.Targets {
			if ctx.Err() != nil {
				break dispatch
			}
			c, ok := investigation.CapabilityFor(target.Kind)
			if !ok {
				continue
			}
			if _, covered := caps[c]; !covered {
				continue
			}

			wg.Add(1)
			go func(m modules.Module, target investigation.Target) {
				defer wg.Done()

				collected, err := o.invoke(ctx, probeCtx, m, target)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failures = append(failures, investigation.ModuleFailure{
						ModuleID: m.ID(),
						Reason:   err.Error(),
					})
					return
				}
				signals = append(signals, collected...)
			}(m, target)
		}
	}

	wg.Wait()

	// Goroutine completion order is arbitrary; report failures in a stable
	// order so identical runs read identically.
	sort.Slice(failures, func(i, j int) bool {
		if failures[i].ModuleID != failures[j].ModuleID {
			return failures[i].ModuleID < failures[j].ModuleID
		}
		return failures[i].Reason < failures[j].Reason
	})

	o.log.Info("Module run completed",
		zap.Int("signals", len(signals)),
		zap.Int("failures", len(failures)),
	)

	return signals, failures
}

// invoke runs one (module, target) probe under the full policy stack:
// in-flight serialization, rate-limit token, circuit breaker, per-attempt
// timeout, and transient-only retries with backoff.
func (o *Orchestrator) invoke(ctx, probeCtx context.Context, m modules.Module, target investigation.Target) ([]investigation.Signal, error) {
	inflight := o.gate.acquire(m.ID() + "|" + target.Key())
	defer o.gate.release(inflight)

	if err := o.gate.waitToken(ctx, m.ID()); err != nil {
		return nil, err
	}

	start := time.Now()
	var collected []investigation.Signal

	err := o.breaker(m.ID()).Execute(ctx, func() error {
		return retry.Do(ctx, retry.Config{
			MaxAttempts:  o.cfg.MaxAttempts,
			InitialDelay: o.cfg.InitialBackoff,
			MaxDelay:     o.cfg.MaxBackoff,
			RetryIf:      investigation.IsTransient,
			Logger:       o.log.With(zap.String("module", m.ID()), zap.String("target", target.Value)),
		}, func() error {
			attemptCtx, cancel := context.WithTimeout(probeCtx, o.cfg.ProbeTimeout)
			defer cancel()

			result, err := m.Probe(attemptCtx, target)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return investigation.Transientf("probe timed out after %s", o.cfg.ProbeTimeout)
				}
				return err
			}
			collected = result
			return nil
		})
	})

	metrics.ModuleProbeDuration.WithLabelValues(m.ID()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ModuleFailures.WithLabelValues(m.ID(), failureClass(err)).Inc()
		o.log.Warn("Module invocation failed",
			zap.String("module", m.ID()),
			zap.String("target", target.Value),
			zap.Error(err),
		)
		return nil, err
	}

	return collected, nil
}

func (o *Orchestrator) breaker(moduleID string) *circuitbreaker.CircuitBreaker {
	o.breakerMu.Lock()
	defer o.breakerMu.Unlock()

	cb, ok := o.breakers[moduleID]
	if !ok {
		cb = circuitbreaker.New(moduleID, circuitbreaker.Config{Logger: o.log})
		o.breakers[moduleID] = cb
	}
	return cb
}

func capabilitySet(m modules.Module) map[investigation.Capability]struct{} {
	set := make(map[investigation.Capability]struct{}, len(m.Capabilities()))
	for _, c := range m.Capabilities() {
		set[c] = struct{}{}
	}
	return set
}

func failureClass(err error) string {
	switch {
	case investigation.IsTransient(err):
		return "transient"
	case investigation.IsPermanent(err):
		return "permanent"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}

// graceContext returns a context that survives the parent's cancellation by
// grace, so in-flight probes can finish and their signals be salvaged.
func graceContext(parent context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	stop := context.AfterFunc(parent, func() {
		time.AfterFunc(grace, cancel)
	})
	return ctx, func() {
		stop()
		cancel()
	}
}
