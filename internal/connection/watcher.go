package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"reawwise/internal/config"
	"reawwise/internal/eventbus"
	"reawwise/internal/logging"
	"reawwise/internal/services"
	"reawwise/internal/waapi"
)

// Conn is the part of *waapi.Client the watcher drives.
type Conn interface {
	waapi.Caller
	Subscribe(ctx context.Context, topic string, options map[string]any, handler func(map[string]any)) (waapi.SubscriptionID, error)
	Unsubscribe(ctx context.Context, id waapi.SubscriptionID) error
	Done() <-chan struct{}
	Close() error
}

// DialFunc opens a connection to address.
type DialFunc func(ctx context.Context, address string) (Conn, error)

// Options configures a Watcher.
type Options struct {
	Address           string
	Serializer        string
	CallTimeout       time.Duration
	MinRetryDelay     time.Duration
	MaxRetryDelay     time.Duration
	PollInterval      time.Duration
	ReadRetryAttempts int
	ReadRetryDelay    time.Duration
	StopTimeout       time.Duration
	// Dial replaces the default waapi.Connect dialer.
	Dial DialFunc
}

// OptionsFromConfig maps the [waapi] section onto watcher options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Address:           cfg.WAAPI.URL(),
		Serializer:        cfg.WAAPI.Serializer,
		CallTimeout:       cfg.WAAPI.CallTimeout(),
		MinRetryDelay:     cfg.WAAPI.MinRetryDelay(),
		MaxRetryDelay:     cfg.WAAPI.MaxRetryDelay(),
		PollInterval:      cfg.WAAPI.PollInterval(),
		ReadRetryAttempts: cfg.WAAPI.ReadRetryAttempts,
		ReadRetryDelay:    cfg.WAAPI.ReadRetryDelay(),
	}
}

// Watcher keeps a WAAPI connection alive.
type Watcher struct {
	opts    Options
	dial    DialFunc
	bus     *eventbus.Bus
	logger  *slog.Logger
	backoff *Backoff

	wake     chan struct{}
	shutdown atomic.Bool

	mu        sync.Mutex
	address   string
	reconnect bool
	conn      Conn
	subs      []waapi.SubscriptionID
	snap      Snapshot
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// New constructs a watcher. bus may be nil.
func New(opts Options, bus *eventbus.Bus, logger *slog.Logger) *Watcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ReadRetryAttempts <= 0 {
		opts.ReadRetryAttempts = 1
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 5 * time.Second
	}
	w := &Watcher{
		opts:    opts,
		dial:    opts.Dial,
		bus:     bus,
		logger:  logging.NewComponentLogger(logger, "connection"),
		backoff: NewBackoff(opts.MinRetryDelay, opts.MaxRetryDelay),
		wake:    make(chan struct{}, 1),
		address: opts.Address,
	}
	if w.dial == nil {
		w.dial = func(ctx context.Context, address string) (Conn, error) {
			client, err := waapi.Connect(ctx, waapi.Options{
				URL:         address,
				Serializer:  opts.Serializer,
				CallTimeout: opts.CallTimeout,
				Logger:      logger,
			})
			if err != nil {
				return nil, err
			}
			return client, nil
		}
	}
	w.snap.Address = opts.Address
	return w
}

// Start launches the loop goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("connection watcher already running")
	}
	runCtx, cancel := context.WithCancel(services.WithComponent(ctx, "connection"))
	w.cancel = cancel
	w.running = true
	w.done = make(chan struct{})
	w.shutdown.Store(false)
	go w.loop(runCtx, w.done)
	return nil
}

// Stop asks the loop to exit and waits up to the stop timeout for it.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	w.shutdown.Store(true)
	w.notify()
	cancel()
	select {
	case <-done:
		return nil
	case <-time.After(w.opts.StopTimeout):
		return services.Wrap(services.ErrTimeout, "connection", "stop", "watcher loop did not exit", nil)
	}
}

// SetAddress changes the WAAPI endpoint. The loop reconnects on its next
// iteration.
func (w *Watcher) SetAddress(address string) {
	w.mu.Lock()
	if address == w.address {
		w.mu.Unlock()
		return
	}
	w.address = address
	w.reconnect = true
	w.mu.Unlock()
	w.notify()
}

// Snapshot returns a copy of the current state.
func (w *Watcher) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snap
}

// Caller returns the live connection, or an ErrNotConnected error.
func (w *Watcher) Caller() (waapi.Caller, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.snap.State != Connected || w.conn == nil {
		return nil, services.Wrap(services.ErrNotConnected, "connection", "caller", "not connected to WAAPI", nil)
	}
	return w.conn, nil
}

// Project returns the project info, refetching it when a project change
// marked it stale.
func (w *Watcher) Project(ctx context.Context) (waapi.ProjectInfo, error) {
	w.mu.Lock()
	conn, snap := w.conn, w.snap
	w.mu.Unlock()
	if snap.State != Connected || conn == nil {
		return waapi.ProjectInfo{}, services.Wrap(services.ErrNotConnected, "connection", "project", "not connected to WAAPI", nil)
	}
	if !snap.ProjectStale && snap.Project.ID != "" {
		return snap.Project, nil
	}
	project, err := w.fetchProject(ctx, conn)
	if err != nil {
		return waapi.ProjectInfo{}, err
	}
	w.mu.Lock()
	if w.conn == conn {
		w.snap.Project = project
		w.snap.ProjectStale = false
	}
	w.mu.Unlock()
	return project, nil
}

// ConsumeObjectsChanged reports and clears the objects-changed flag.
func (w *Watcher) ConsumeObjectsChanged() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := w.snap.ObjectsChanged
	w.snap.ObjectsChanged = false
	return changed
}

func (w *Watcher) notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// wait parks the loop for d or until notify, ctx cancellation, or lost.
func (w *Watcher) wait(ctx context.Context, d time.Duration, lost <-chan struct{}) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-w.wake:
	case <-timer.C:
	case <-lost:
	}
}

func (w *Watcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer w.teardown(Disconnected, nil)

	for !w.shutdown.Load() && ctx.Err() == nil {
		w.mu.Lock()
		conn := w.conn
		reconnect := w.reconnect
		w.reconnect = false
		w.mu.Unlock()

		if conn != nil && reconnect {
			w.logger.Info("address changed; reconnecting",
				logging.String(logging.FieldEventType, "waapi_reconnect"),
			)
			w.teardown(Disconnected, nil)
			w.backoff.Reset()
			continue
		}

		if conn == nil {
			if err := w.connect(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				delay := w.backoff.Next()
				w.recordFailure(err, delay)
				w.wait(ctx, delay, nil)
			}
			continue
		}

		w.wait(ctx, w.opts.PollInterval, conn.Done())
		if w.shutdown.Load() || ctx.Err() != nil {
			return
		}
		select {
		case <-conn.Done():
			w.logger.Warn("waapi connection lost",
				logging.String(logging.FieldEventType, "waapi_connection_lost"),
				logging.String(logging.FieldErrorHint, "check that Wwise is running with WAAPI enabled"),
			)
			w.teardown(Disconnected, errors.New("connection lost"))
			continue
		default:
		}
		w.mu.Lock()
		reconnect = w.reconnect
		w.mu.Unlock()
		if reconnect {
			continue
		}
		if _, err := waapi.GetInfo(ctx, conn); err != nil && ctx.Err() == nil {
			w.logger.Warn("waapi ping failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "waapi_ping_failed"),
				logging.String(logging.FieldErrorHint, "check that Wwise is responsive"),
			)
			w.teardown(Disconnected, err)
		}
	}
}

func (w *Watcher) connect(ctx context.Context) error {
	w.mu.Lock()
	address := w.address
	w.reconnect = false
	w.mu.Unlock()
	w.setState(Connecting, address, nil)

	conn, err := w.dial(ctx, address)
	if err != nil {
		return err
	}

	var info waapi.Info
	var infoErr error
	ok := waapi.ExecuteWithRetry(ctx, func() bool {
		info, infoErr = waapi.GetInfo(ctx, conn)
		return infoErr == nil
	}, w.opts.ReadRetryDelay, w.opts.ReadRetryAttempts)
	if !ok {
		_ = conn.Close()
		if infoErr == nil {
			infoErr = ctx.Err()
		}
		return services.Wrap(services.ErrNotConnected, "connection", "connect", "getInfo failed", infoErr)
	}

	subs := w.subscribe(ctx, conn)
	project, projectErr := w.fetchProject(ctx, conn)

	w.mu.Lock()
	w.conn = conn
	w.subs = subs
	w.snap = Snapshot{
		State:        Connected,
		Address:      address,
		Info:         info,
		Project:      project,
		ProjectStale: projectErr != nil,
	}
	snap := w.snap
	w.mu.Unlock()
	w.backoff.Reset()

	w.logger.Info("connected to waapi",
		logging.String(logging.FieldEventType, "waapi_connected"),
		logging.String("address", address),
		logging.String("version", info.Version.String()),
		logging.String("project", project.Name),
	)
	w.publish(eventbus.TopicConnection, snap)
	return nil
}

func (w *Watcher) fetchProject(ctx context.Context, conn Conn) (waapi.ProjectInfo, error) {
	var project waapi.ProjectInfo
	var err error
	waapi.ExecuteWithRetry(ctx, func() bool {
		project, err = waapi.GetProjectInfo(ctx, conn)
		return err == nil
	}, w.opts.ReadRetryDelay, w.opts.ReadRetryAttempts)
	if err != nil {
		logging.WarnWithContext(w.logger, "project info unavailable", "waapi_project_info_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "open a project in Wwise"),
			logging.String(logging.FieldImpact, "preview cannot predict originals paths"),
		)
	}
	return project, err
}

func (w *Watcher) subscribe(ctx context.Context, conn Conn) []waapi.SubscriptionID {
	subs := make([]waapi.SubscriptionID, 0, len(topicReasons))
	for _, tr := range topicReasons {
		reason := tr.reason
		id, err := conn.Subscribe(ctx, tr.topic, nil, func(map[string]any) {
			w.markStale(reason)
		})
		if err != nil {
			w.logger.Warn("waapi subscription failed",
				logging.Error(err),
				logging.String("topic", tr.topic),
				logging.String(logging.FieldEventType, "waapi_subscribe_failed"),
				logging.String(logging.FieldErrorHint, "remote changes will only be seen on the next poll"),
			)
			continue
		}
		subs = append(subs, id)
	}
	return subs
}

// markStale runs on the transport's dispatch goroutine. It only flips flags
// and publishes.
func (w *Watcher) markStale(reason Reason) {
	w.mu.Lock()
	topic := eventbus.TopicObjects
	switch reason {
	case ReasonProjectLoaded, ReasonProjectClosed:
		w.snap.ProjectStale = true
		w.snap.Project.ID = ""
		topic = eventbus.TopicProject
	default:
		w.snap.ObjectsChanged = true
	}
	w.mu.Unlock()
	w.logger.Debug("remote change", logging.String("reason", string(reason)))
	w.publish(topic, reason)
}

func (w *Watcher) teardown(next State, cause error) {
	w.mu.Lock()
	conn, subs := w.conn, w.subs
	w.conn, w.subs = nil, nil
	w.mu.Unlock()

	if conn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		for _, id := range subs {
			_ = conn.Unsubscribe(ctx, id)
		}
		cancel()
		_ = conn.Close()
		w.setState(next, "", cause)
	}
}

func (w *Watcher) recordFailure(err error, delay time.Duration) {
	w.mu.Lock()
	w.snap.State = Disconnected
	w.snap.Failures++
	w.snap.RetryIn = delay
	w.snap.LastError = err.Error()
	failures := w.snap.Failures
	snap := w.snap
	w.mu.Unlock()

	level := slog.LevelDebug
	if failures == 1 {
		level = slog.LevelWarn
	}
	w.logger.Log(context.Background(), level, "waapi connect failed; will retry",
		logging.Error(err),
		logging.Duration("retry_in", delay),
		logging.Int("failures", failures),
		logging.String(logging.FieldEventType, "waapi_connect_failed"),
		logging.String(logging.FieldErrorHint, "start Wwise and enable WAAPI in User Preferences"),
	)
	w.publish(eventbus.TopicConnection, snap)
}

func (w *Watcher) setState(state State, address string, cause error) {
	w.mu.Lock()
	changed := w.snap.State != state
	w.snap.State = state
	if address != "" {
		w.snap.Address = address
	}
	if state != Connected {
		w.snap.Info = waapi.Info{}
	}
	if cause != nil {
		w.snap.LastError = cause.Error()
	}
	snap := w.snap
	w.mu.Unlock()
	if changed {
		w.publish(eventbus.TopicConnection, snap)
	}
}

func (w *Watcher) publish(topic eventbus.Topic, payload any) {
	if w.bus != nil {
		w.bus.Publish(topic, payload)
	}
}
