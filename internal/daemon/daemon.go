package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reawwise/internal/config"
	"reawwise/internal/connection"
	"reawwise/internal/eventbus"
	"reawwise/internal/history"
	"reawwise/internal/jobs"
	"reawwise/internal/logging"
	"reawwise/internal/notifications"
	"reawwise/internal/services"
	"reawwise/internal/session"
	"reawwise/internal/statestore"
	"reawwise/internal/workstation"
)

// Options tune New.
type Options struct {
	// Exclusive takes the watch lock on Start.
	Exclusive bool
	// Workers bounds concurrent preview and import jobs.
	Workers int
	// BusCapacity is the number of events the bus remembers.
	BusCapacity int
	// Notifier receives import results. Defaults to the configured ntfy
	// service.
	Notifier notifications.Service
}

// Daemon wires the stores, watcher and session controller together.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	bus     *eventbus.Bus
	pool    *jobs.Pool
	state   *statestore.Store
	history *history.Store
	watcher *connection.Watcher
	adapter *workstation.ManifestAdapter
	session *session.Controller
	notify  notifications.Service

	exclusive bool
	lockPath  string
	lock      *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Connection   connection.Snapshot
	Importing    bool
	StateDBPath  string
	HistoryPath  string
	LockFilePath string
}

// New opens the stores and constructs the components. Nothing runs until
// Start.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires a config")
	}
	if cfg.Session.Manifest == "" {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "new", "session.manifest is not set", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.NewService(cfg)
	}

	state, err := statestore.Open(cfg.StateDBPath())
	if err != nil {
		return nil, err
	}
	hist, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		_ = state.Close()
		return nil, err
	}

	bus := eventbus.New(opts.BusCapacity)
	pool := jobs.NewPool(context.Background(), opts.Workers, logger)
	watcher := connection.New(connection.OptionsFromConfig(cfg), bus, logger)
	adapter := workstation.NewManifestAdapter(cfg.Session.Manifest, state)
	ctrl := session.New(session.Deps{
		Config:     cfg,
		Adapter:    adapter,
		Connection: watcher,
		Bus:        bus,
		Pool:       pool,
		History:    hist,
		Logger:     logger,
	})

	lockPath := cfg.WatchLockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		bus:       bus,
		pool:      pool,
		state:     state,
		history:   hist,
		watcher:   watcher,
		adapter:   adapter,
		session:   ctrl,
		notify:    opts.Notifier,
		exclusive: opts.Exclusive,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the lock when exclusive, then starts the watcher and the
// session controller.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if d.exclusive {
		ok, err := d.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return services.Wrap(services.ErrBusy, "daemon", "start", "another reawwise watch is already running", nil)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.watcher.Start(runCtx); err != nil {
		cancel()
		d.unlock()
		return fmt.Errorf("start connection watcher: %w", err)
	}
	if err := d.session.Start(runCtx); err != nil {
		_ = d.watcher.Stop()
		cancel()
		d.unlock()
		return fmt.Errorf("start session: %w", err)
	}
	if notifications.Enabled(d.notify) {
		sub := d.bus.Subscribe(16, eventbus.TopicImport)
		d.wg.Add(1)
		go d.forwardImports(runCtx, sub)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("reawwise daemon started",
		logging.String("address", d.cfg.WAAPI.URL()),
		logging.String("manifest", d.adapter.Path()),
		logging.Bool("exclusive", d.exclusive),
	)
	return nil
}

// Stop shuts the session and watcher down and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.session.Stop()
	if err := d.watcher.Stop(); err != nil {
		d.logger.Warn("connection watcher did not stop cleanly", logging.Error(err))
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.unlock()
	d.running.Store(false)
	d.logger.Info("reawwise daemon stopped")
}

func (d *Daemon) forwardImports(ctx context.Context, sub *eventbus.Subscription) {
	defer d.wg.Done()
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			imp, ok := ev.Payload.(session.ImportEvent)
			if !ok {
				continue
			}
			var err error
			switch imp.Phase {
			case session.ImportFinished:
				err = d.notify.NotifyImportFinished(ctx, imp.Session, imp.Summary, imp.Elapsed)
			case session.ImportFailed:
				err = d.notify.NotifyImportFailed(ctx, imp.Session, imp.Err)
			default:
				continue
			}
			if err != nil {
				logging.WarnWithContext(d.logger, "import notification not delivered", "notification_failed",
					logging.Error(err),
					logging.String("run_id", imp.RunID),
					logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				)
			}
		}
	}
}

func (d *Daemon) unlock() {
	if !d.exclusive {
		return
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release watch lock", logging.Error(err))
	}
}

// Close stops the daemon and releases the stores.
func (d *Daemon) Close() error {
	d.Stop()
	d.pool.Close()
	return errors.Join(d.history.Close(), d.state.Close())
}

// WaitConnected blocks until the watcher reports a connection or ctx ends.
func (d *Daemon) WaitConnected(ctx context.Context) (connection.Snapshot, error) {
	sub := d.bus.Subscribe(8, eventbus.TopicConnection)
	defer sub.Close()
	for {
		snap := d.watcher.Snapshot()
		if snap.State == connection.Connected {
			return snap, nil
		}
		select {
		case <-sub.C:
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			msg := "no WAAPI connection at " + snap.Address
			if snap.LastError != "" {
				msg += ": " + snap.LastError
			}
			return snap, services.Wrap(services.ErrNotConnected, "daemon", "wait connected", msg, ctx.Err())
		}
	}
}

// Status reports the daemon's runtime state.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Connection:   d.watcher.Snapshot(),
		Importing:    d.session.Importing(),
		StateDBPath:  d.cfg.StateDBPath(),
		HistoryPath:  d.cfg.HistoryDBPath(),
		LockFilePath: d.lockPath,
	}
}

func (d *Daemon) Session() *session.Controller { return d.session }

func (d *Daemon) Bus() *eventbus.Bus { return d.bus }

func (d *Daemon) History() *history.Store { return d.history }

func (d *Daemon) States() *statestore.Store { return d.state }
