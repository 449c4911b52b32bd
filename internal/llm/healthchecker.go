package llm

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// BackendHealthChecker monitors the generation backend via periodic pings.
// Backend health is observational: the orchestrator degrades to fallback
// replies on its own, so a DOWN backend never gates service startup.
type BackendHealthChecker struct {
	provider     Provider
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewBackendHealthChecker creates a new backend health checker.
func NewBackendHealthChecker(provider Provider, log zerolog.Logger, probeTimeout time.Duration) *BackendHealthChecker {
	hc := &BackendHealthChecker{
		provider:     provider,
		log:          log,
		probeTimeout: probeTimeout,
	}
	hc.healthy.Store(0) // start unhealthy until first successful probe
	return hc
}

// Name returns the checker name.
func (hc *BackendHealthChecker) Name() string {
	return "backend"
}

// IsHealthy returns the cached health status (non-blocking).
func (hc *BackendHealthChecker) IsHealthy() bool {
	return hc.healthy.Load() == 1
}

// Start begins periodic health checking.
func (hc *BackendHealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() {
		to := hc.probeTimeout
		if to <= 0 {
			to = 2 * time.Second
		}
		checkCtx, cancel := context.WithTimeout(ctx, to)
		defer cancel()

		if err := hc.provider.HealthPing(checkCtx); err != nil {
			hc.log.Error().Stack().
				Str("checker", hc.Name()).
				Err(err).
				Msg("backend health check failed")
			hc.healthy.Store(0)
		} else {
			hc.healthy.Store(1)
		}
	}

	// Initial check
	check()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
