// Command orchestrator runs the plugin lifecycle orchestrator: it loads
// configuration from the environment, brings up the store, container
// driver, and supporting services in dependency order, reconciles against
// the container daemon, then starts serving the HTTP/WebSocket API until a
// termination signal arrives.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowforge/plugin-orchestrator/internal/api"
	"github.com/flowforge/plugin-orchestrator/internal/config"
	"github.com/flowforge/plugin-orchestrator/internal/container"
	"github.com/flowforge/plugin-orchestrator/internal/events"
	"github.com/flowforge/plugin-orchestrator/internal/gateway"
	"github.com/flowforge/plugin-orchestrator/internal/lifecycle"
	"github.com/flowforge/plugin-orchestrator/internal/logger"
	"github.com/flowforge/plugin-orchestrator/internal/platformservices"
	"github.com/flowforge/plugin-orchestrator/internal/ports"
	"github.com/flowforge/plugin-orchestrator/internal/registry"
	"github.com/flowforge/plugin-orchestrator/internal/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.MustLoad()
	logger.Configure(cfg.LogLevel)
	log := logger.Component("main")

	// Store first: every other collaborator either reads from it at startup
	// (ports, reconciliation) or writes through it on every transition.
	db, err := store.New(store.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to store")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run store migrations")
	}

	if err := seedDefaultSources(db, cfg.DefaultRegistryPath); err != nil {
		log.Error().Err(err).Msg("failed to seed default marketplace sources")
	}

	driver, err := container.New(cfg.ContainerDaemonHost, cfg.ManagedNetworkName, cfg.VolumeNamePrefix, cfg.ContainerNamePrefix)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to container daemon")
	}
	defer driver.Close()

	usedPorts, err := db.GetUsedHostPorts(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed port allocator from store")
	}
	portAllocator := ports.New(cfg.PortRangeStart, cfg.PortRangeEnd, usedPorts)

	platform := platformservices.New(cfg)
	defer platform.Close()

	gatewayPublisher := gateway.New(cfg.GatewayAdminURL)
	bus := events.NewBus(0)

	engine := lifecycle.New(lifecycle.Deps{
		Store:    db,
		Driver:   driver,
		Ports:    portAllocator,
		Gateway:  gatewayPublisher,
		Bus:      bus,
		Platform: platform,
		Config:   cfg,
	})

	reconcileCtx, cancelReconcile := context.WithTimeout(context.Background(), 30*time.Second)
	if err := engine.Reconcile(reconcileCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to reconcile against the container daemon")
	}
	cancelReconcile()

	catalog := registry.New(db)
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	if err := catalog.Start(startCtx); err != nil {
		log.Error().Err(err).Msg("failed to start marketplace aggregator, continuing with an empty catalog")
	}
	cancelStart()
	defer catalog.Stop()

	server := api.New(cfg.Host+":"+cfg.Port, api.Deps{
		Engine:   engine,
		Registry: catalog,
		Store:    db,
		Driver:   driver,
		Bus:      bus,
	})
	server.Start()
	log.Info().Str("addr", cfg.Host+":"+cfg.Port).Msg("orchestrator started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("api server shutdown did not complete cleanly")
	}
}

// seedDefaultSources registers the default marketplace sources on a fresh
// install only: if any source is already configured, the seed file is
// assumed to have already been applied (or the operator manages sources
// entirely through the API) and is left untouched.
func seedDefaultSources(db *store.Store, seedPath string) error {
	ctx := context.Background()
	existing, err := db.ListSources(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	seeds, err := registry.LoadSeed(seedPath)
	if err != nil {
		return err
	}
	for _, src := range seeds {
		if err := db.UpsertSource(ctx, src); err != nil {
			return err
		}
	}
	return nil
}
