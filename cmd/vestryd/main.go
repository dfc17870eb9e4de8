package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"vestry/internal/config"
	"vestry/internal/daemon"
	"vestry/internal/engine"
	"vestry/internal/ipc"
	"vestry/internal/logging"
	"vestry/internal/notifications"
	"vestry/internal/registry"
	"vestry/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open event store", logging.Error(err))
		os.Exit(1)
	}

	reg, err := registry.Default(cfg)
	if err != nil {
		logger.Error("build module registry", logging.Error(err))
		os.Exit(1)
	}

	eng := engine.New(cfg, st, reg, logger)
	eng.SetNotifier(notifications.NewRunNotifier(notifications.NewService(cfg), logger))

	d, err := daemon.New(cfg, st, reg, eng, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, reg, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		os.Exit(1)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}
	defer d.Stop()

	<-ctx.Done()
	logger.Info("vestryd shutting down")
}
