package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"reel/internal/artifact"
	"reel/internal/config"
	"reel/internal/daemon"
	"reel/internal/dispatch"
	"reel/internal/logging"
	"reel/internal/preflight"
	"reel/internal/project"
	"reel/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}
	for _, check := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logger.Warn("preflight check failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail))
	}

	store, err := project.Open(cfg)
	if err != nil {
		log.Fatalf("open project store: %v", err)
	}

	var (
		gateway dispatch.Gateway
		inbox   dispatch.Inbox
	)
	if cfg.RedisEnabled() {
		redis, err := dispatch.NewRedisDispatcher(ctx, cfg)
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer redis.Close()
		gateway, inbox = redis, redis
	} else {
		logger.Warn("redis not configured, using in-process dispatcher")
		local := dispatch.NewLocalDispatcher(0)
		gateway, inbox = local, local
	}

	manager, err := workflow.NewManager(workflow.Options{
		Config:   cfg,
		Store:    store,
		Verifier: artifact.NewFSVerifier(cfg.Paths.MediaDir),
		Gateway:  gateway,
		Inbox:    inbox,
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("create workflow manager: %v", err)
	}

	d, err := daemon.New(cfg, store, manager, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("reeld shutting down")
}
