// Package daemon ties the orchestrator to the outside world: it enforces
// single-instance execution with a file lock, runs the worker event
// consumer, and serves the HTTP API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/project"
	"reel/internal/workflow"
)

// Daemon coordinates background processing and the API server.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *project.Store
	manager *workflow.Manager

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	RedisEnabled bool
	Stats        project.StatsSummary
	Health       project.DatabaseHealth
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *project.Store, manager *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || manager == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		manager:  manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = server
	return d, nil
}

// Start acquires the daemon lock, launches the event consumer, and begins
// serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reel daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	// Repair drift left by a previous session before serving any reads.
	if reports, err := d.manager.ReconcileAll(d.ctx); err != nil {
		d.logger.Warn("startup reconcile sweep failed", logging.Error(err))
	} else {
		corrected := 0
		for _, report := range reports {
			if report.Changed() {
				corrected++
			}
		}
		d.logger.Info("startup reconcile sweep finished",
			logging.Int("projects", len(reports)),
			logging.Int("corrected", corrected))
	}

	go func() {
		if err := d.manager.Run(d.ctx); err != nil {
			d.logger.Error("event consumer stopped", logging.Error(err))
		}
	}()

	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("reel daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("reel daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr reports the API listen address once started, for tests binding to
// port zero.
func (d *Daemon) Addr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status collects runtime information plus store diagnostics.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		RedisEnabled: d.cfg.RedisEnabled(),
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.Stats = stats
	}
	if health, err := d.store.CheckHealth(ctx); err == nil {
		status.Health = health
	} else {
		status.Health = project.DatabaseHealth{DBPath: d.cfg.DatabasePath(), Error: err.Error()}
	}
	return status
}
