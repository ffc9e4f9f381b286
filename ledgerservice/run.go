// Package ledgerservice boots the reputation ledger HTTP service.
package ledgerservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/veilrep/repledger/internal/api"
	"github.com/veilrep/repledger/internal/config"
	"github.com/veilrep/repledger/internal/he"
	"github.com/veilrep/repledger/internal/health"
	"github.com/veilrep/repledger/internal/logger"
	"github.com/veilrep/repledger/internal/mint"
	"github.com/veilrep/repledger/internal/oracle"
	"github.com/veilrep/repledger/internal/services"
	"github.com/veilrep/repledger/internal/store"
	"github.com/veilrep/repledger/internal/store/memory"
	"github.com/veilrep/repledger/internal/store/sqlite"
)

// Run starts the ledger service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("repledger")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("store_driver", cfg.StoreDriver).
		Int("http_port", cfg.HTTPPort).
		Str("he_preset", cfg.HEPreset).
		Str("oracle_url", cfg.OracleURL).
		Str("mint_url", cfg.MintURL).
		Msg("Ledger service starting")

	// Cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	st, err := newStore(cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store unavailable")
		return err
	}

	arith, err := newArithmetic(cfg)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Encryption context unavailable")
		return err
	}

	ledger, decrypt, err := buildServices(cfg, st, arith, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Service wiring failed")
		return err
	}

	// Janitor prunes expired decryption requests; a no-op without a TTL.
	go func() {
		if err := decrypt.RunJanitor(ctx, cfg.JanitorInterval()); err != nil && ctx.Err() == nil {
			log.Error().Stack().Err(err).Msg("request janitor failed")
		}
	}()

	svcHealth := startHealthCheckers(ctx, cfg, log, st)
	router := api.NewRouter(ledger, decrypt, svcHealth.IsHealthy)

	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// newStore selects the configured store driver.
func newStore(cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn().Msg("memory store selected; data is lost on restart")
		return memory.New(), nil
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite at %s: %w", cfg.SQLitePath, err)
		}
		return sqlite.New(db)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// newArithmetic loads the service-wide public key and builds the homomorphic
// adapter. The ledger never holds the secret key.
func newArithmetic(cfg *config.Config) (he.Arithmetic, error) {
	pkBytes, err := os.ReadFile(cfg.HEPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key %s: %w", cfg.HEPublicKeyPath, err)
	}
	return he.NewArithmeticFromPublicKey(cfg.HEPreset, pkBytes)
}

func buildServices(cfg *config.Config, st store.Store, arith he.Arithmetic, log zerolog.Logger) (*services.LedgerService, *services.DecryptionService, error) {
	if cfg.OracleVerifyKey == "" {
		return nil, nil, fmt.Errorf("REPLEDGER_ORACLE_VERIFY_KEY is required")
	}
	verifyKey, err := cfg.DecodeOracleVerifyKey()
	if err != nil {
		return nil, nil, err
	}
	verifier, err := oracle.NewEd25519Verifier(verifyKey)
	if err != nil {
		return nil, nil, err
	}

	locks := services.NewUserLocks()
	ledger := services.NewLedgerService(st, arith, locks, log)
	gate := services.NewBadgeGate(mint.NewHTTPMinter(cfg.MintURL), log)
	decrypt := services.NewDecryptionService(
		st,
		oracle.NewHTTPClient(cfg.OracleURL),
		verifier,
		gate,
		locks,
		cfg.RequestTTL(),
		log,
	)
	return ledger, decrypt, nil
}

// startHealthCheckers starts the store checker and the service-level aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	storeChecker := store.NewHealthChecker(st, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
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

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
