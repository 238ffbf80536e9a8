package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"factstream/internal/config"
	"factstream/internal/logging"
	"factstream/internal/pipeline"
	"factstream/internal/refcache"
	"factstream/internal/retrieval"
)

// Daemon coordinates the pipeline and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *refcache.Store
	loader  *retrieval.Loader
	manager *pipeline.Manager
	hub     *pipeline.Hub

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	api     *apiServer
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *refcache.Store, loader *retrieval.Loader, manager *pipeline.Manager, hub *pipeline.Hub, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || loader == nil || manager == nil || hub == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, loader, manager, hub, and logger")
	}

	lockPath := cfg.LockFilePath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		loader:   loader,
		manager:  manager,
		hub:      hub,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and brings up the API server. ctx is the
// process context; sessions started later inherit it so they survive client
// disconnects.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another factstream daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.releaseStart()
		return err
	}
	d.api = api
	if err := d.api.start(d.ctx); err != nil {
		d.releaseStart()
		return err
	}

	d.running.Store(true)
	d.logger.Info("factstream daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api_bind", d.cfg.Paths.APIBind))
	return nil
}

func (d *Daemon) releaseStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop ends any live session, shuts down the API server, and releases the
// daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.manager.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("factstream daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// StartSession begins fact-checking a source URL using the daemon's
// long-lived context.
func (d *Daemon) StartSession(sourceURL string) error {
	if !d.running.Load() || d.ctx == nil {
		return errors.New("daemon is not running")
	}
	return d.manager.Start(d.ctx, sourceURL)
}

// StopSession stops the live session, blocking until it drains.
func (d *Daemon) StopSession() {
	d.manager.Stop()
}

// Status reports the pipeline state plus corpus counters.
type Status struct {
	Pipeline     pipeline.Status `json:"pipeline"`
	CorpusChunks int             `json:"corpus_chunks"`
	LockFilePath string          `json:"lock_file"`
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Pipeline:     d.manager.Status(),
		CorpusChunks: d.loader.IndexLen(),
		LockFilePath: d.lockPath,
	}
}
