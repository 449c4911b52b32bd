// Package dialogueservice boots the NPC dialogue server: memory store,
// generation backend, voice components, world event fan-out, and the HTTP
// plus WebSocket API.
package dialogueservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yashasrn33/RPGAI/internal/api"
	"github.com/Yashasrn33/RPGAI/internal/config"
	"github.com/Yashasrn33/RPGAI/internal/dialogue"
	"github.com/Yashasrn33/RPGAI/internal/factory"
	"github.com/Yashasrn33/RPGAI/internal/health"
	"github.com/Yashasrn33/RPGAI/internal/llm"
	"github.com/Yashasrn33/RPGAI/internal/logger"
	"github.com/Yashasrn33/RPGAI/internal/retention"
	storepkg "github.com/Yashasrn33/RPGAI/internal/store"
	"github.com/Yashasrn33/RPGAI/internal/worldevents"
)

// worldEventBuffer bounds the in-process event channel; publishes beyond
// it are dropped, never blocked on.
const worldEventBuffer = 256

// Run starts the dialogue service HTTP server and blocks until shutdown
// or error.
func Run() error {
	log := logger.New("rpgai")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("gemini_model", cfg.GeminiModel).
		Int("retrieval_top_k", cfg.RetrievalTopK).
		Int("max_memory_writes", cfg.MaxMemoryWrites).
		Msg("Dialogue service starting")

	// Cancellable root context bound to SIGINT/SIGTERM.
	ctx, stop := newServerContext()
	defer stop()

	st, provider, err := initDependencies(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	synth, stt, media, err := factory.NewVoice(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Voice components unavailable")
		return err
	}

	// World events flow through an in-process bus; the log publisher is the
	// only consumer today, game servers can subscribe in-process later.
	bus := worldevents.NewBus(worldEventBuffer, log)
	go worldevents.Consume(ctx, bus, worldevents.NewLogPublisher(log))

	orch := dialogue.NewOrchestrator(st, provider, bus, log, dialogue.Policy{
		RetrievalTopK:   cfg.RetrievalTopK,
		MaxMemoryWrites: cfg.MaxMemoryWrites,
		StreamChunkSize: cfg.StreamChunkSize,
		GenerateTimeout: cfg.GenerateTimeout(),
	})

	svcHealth, storeChecker := startHealthCheckers(ctx, cfg, log, st, provider)

	router := api.NewRouter(api.Deps{
		Store:   st,
		Orch:    orch,
		Synth:   synth,
		STT:     stt,
		Media:   media,
		Service: svcHealth,
		Model:   cfg.GeminiModel,
		Log:     log,
	})

	// Block startup until the memory store reports healthy; fail fast
	// otherwise. The generation backend is observational only: turns
	// degrade to fallback replies while it is down, so it never gates
	// startup.
	if err := waitUntilHealthy(ctx, cfg, storeChecker); err != nil {
		log.Error().Err(err).Msg("startup health check failed")
		return err
	}

	if cfg.RetentionDays > 0 {
		sweeper := retention.NewSweeper(st, cfg.RetentionAge(), cfg.SweepInterval(), log)
		go func() { _ = sweeper.Run(ctx) }()
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}

// initDependencies constructs the hard dependencies and fails fast when
// one is missing.
func initDependencies(cfg *config.Config, log zerolog.Logger) (storepkg.MemoryStore, llm.Provider, error) {
	st, err := factory.NewStore(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Memory store unavailable")
		return nil, nil, err
	}

	provider, err := factory.NewProvider(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Generation backend unavailable")
		_ = st.Close()
		return nil, nil, err
	}
	return st, provider, nil
}

// startHealthCheckers starts the component checkers and the service-level
// aggregator. The aggregate feeds /healthz; only the store checker is
// returned separately because only it gates startup.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st storepkg.MemoryStore, provider llm.Provider) (*health.ServiceHealthChecker, *storepkg.StoreHealthChecker) {
	interval := cfg.HealthInterval()
	probeTimeout := cfg.HealthProbeTimeout()

	storeChecker := storepkg.NewStoreHealthChecker(st, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	backendChecker := llm.NewBackendHealthChecker(provider, log, probeTimeout)
	go backendChecker.Start(ctx, interval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker, backendChecker)
	go svcHealth.Start(ctx, interval)
	return svcHealth, storeChecker
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// WebSocket sessions are hijacked from the server and manage their
		// own lifetime; these timeouts only cover plain HTTP requests.
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// startupHealthTimeout is interval*2 with a 60 second floor, giving the
// checkers time to finish their first probe cycle.
func startupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until the checker reports healthy or the startup
// window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, checker health.HealthChecker) error {
	timeoutSeconds := startupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if checker.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: memory store not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a context cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
