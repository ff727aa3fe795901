package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"reawwise/internal/config"
	"reawwise/internal/connection"
	"reawwise/internal/eventbus"
	"reawwise/internal/history"
	"reawwise/internal/importer"
	"reawwise/internal/jobs"
	"reawwise/internal/logging"
	"reawwise/internal/mapping"
	"reawwise/internal/preview"
	"reawwise/internal/services"
	"reawwise/internal/waapi"
	"reawwise/internal/workstation"
	"reawwise/internal/wwise"
)

var (
	// ErrNotRunning is returned by methods called before Start or after Stop.
	ErrNotRunning = errors.New("session controller not running")
	// ErrDeclined is returned when the render confirmation is refused.
	ErrDeclined = errors.New("transfer declined")
)

// Connection is the watcher surface the controller consumes.
// *connection.Watcher satisfies it.
type Connection interface {
	Snapshot() connection.Snapshot
	Caller() (waapi.Caller, error)
	Project(ctx context.Context) (waapi.ProjectInfo, error)
	ConsumeObjectsChanged() bool
}

// Recorder stores finished import runs. *history.Store satisfies it.
type Recorder interface {
	Add(ctx context.Context, rec history.Record) (int64, error)
}

// Deps are the collaborators of a Controller. History may be nil.
type Deps struct {
	Config     *config.Config
	Adapter    workstation.Adapter
	Connection Connection
	Bus        *eventbus.Bus
	Pool       *jobs.Pool
	History    Recorder
	Logger     *slog.Logger
}

// Settings are the transfer settings of the session.
type Settings struct {
	Session            string
	Destination        string
	OriginalsSubfolder string
	ConflictPolicy     mapping.ConflictPolicy
	TemplatePolicy     mapping.TemplatePolicy
	Nodes              []mapping.Node
	// DestinationType and Validation are refreshed by every preview.
	DestinationType wwise.Type
	Validation      mapping.Validation
}

func (s Settings) clone() Settings {
	s.Nodes = append([]mapping.Node(nil), s.Nodes...)
	s.Validation.Issues = append([]mapping.NodeIssue(nil), s.Validation.Issues...)
	return s
}

// PreviewUpdate is published on eventbus.TopicPreview.
type PreviewUpdate struct {
	Generation uint64
	Result     preview.Result
	Items      int
	Err        error
}

// Controller drives one session.
type Controller struct {
	cfg      *config.Config
	adapter  workstation.Adapter
	conn     Connection
	bus      *eventbus.Bus
	pool     *jobs.Pool
	history  Recorder
	logger   *slog.Logger
	engine   *preview.Engine
	importer *importer.Executor

	previews   jobs.Latest
	importGate *jobs.Gate

	cmds    chan func()
	results chan jobs.Result[previewOutcome]

	lifecycle sync.Mutex
	running   atomic.Bool
	runCtx    context.Context
	cancel    context.CancelFunc
	done      chan struct{}

	// Owned by the loop goroutine.
	settings       Settings
	waiters        []chan PreviewUpdate
	connState      connection.State
	objectsPending bool
}

// DefaultDestination is used until a session state is restored.
const DefaultDestination = wwise.ActorMixerHierarchyRoot + `\Default Work Unit`

// DefaultNodes is the mapping of a session without saved state: one sound
// per render file, named after the file.
func DefaultNodes() []mapping.Node {
	return []mapping.Node{{Type: wwise.SoundSFX, Name: "$filename"}}
}

// New builds a controller with settings seeded from configuration.
func New(deps Deps) *Controller {
	logger := logging.NewComponentLogger(deps.Logger, "session")
	conflict, _ := mapping.ParseConflictPolicy(deps.Config.Import.ConflictPolicy)
	template, _ := mapping.ParseTemplatePolicy(deps.Config.Import.TemplatePolicy)
	return &Controller{
		cfg:        deps.Config,
		adapter:    deps.Adapter,
		conn:       deps.Connection,
		bus:        deps.Bus,
		pool:       deps.Pool,
		history:    deps.History,
		logger:     logger,
		engine:     preview.NewEngine(deps.Config.Import.DefaultLanguage, deps.Logger),
		importer:   importer.New(deps.Logger),
		importGate: jobs.NewGate("import"),
		cmds:       make(chan func()),
		results:    make(chan jobs.Result[previewOutcome], 1),
		settings: Settings{
			Destination:    DefaultDestination,
			ConflictPolicy: conflict,
			TemplatePolicy: template,
			Nodes:          DefaultNodes(),
		},
	}
}

// Start restores the session state and launches the loop.
func (c *Controller) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.running.Load() {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.runCtx = runCtx
	c.cancel = cancel
	c.done = make(chan struct{})
	sub := c.bus.Subscribe(64, eventbus.TopicConnection, eventbus.TopicProject, eventbus.TopicObjects)
	c.connState = c.conn.Snapshot().State
	c.running.Store(true)
	go c.loop(runCtx, sub, c.done)
	c.logger.Info("session controller started")
	return nil
}

// Stop cancels in-flight previews and waits for the loop to exit. A running
// import finishes on the job pool.
func (c *Controller) Stop() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if !c.running.Load() {
		return
	}
	c.running.Store(false)
	c.cancel()
	<-c.done
	c.logger.Info("session controller stopped")
}

// Importing reports whether a transfer is in progress.
func (c *Controller) Importing() bool { return c.importGate.Busy() }

func (c *Controller) loop(ctx context.Context, sub *eventbus.Subscription, done chan struct{}) {
	defer close(done)
	defer sub.Close()

	interval := c.cfg.Session.PollInterval()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.restore(ctx)
	c.trigger(preview.TriggerSession)

	for {
		select {
		case <-ctx.Done():
			c.previews.Invalidate()
			c.releaseWaiters(PreviewUpdate{Err: ErrNotRunning})
			return
		case fn := <-c.cmds:
			fn()
		case ev := <-sub.C:
			c.handleEvent(ev)
		case res := <-c.results:
			c.handlePreview(res)
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

// do runs fn on the loop goroutine and waits for it.
func (c *Controller) do(ctx context.Context, fn func()) error {
	if !c.running.Load() {
		return ErrNotRunning
	}
	done := make(chan struct{})
	select {
	case c.cmds <- func() { fn(); close(done) }:
	case <-c.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-c.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn on the loop without waiting for it to run.
func (c *Controller) post(fn func()) {
	if !c.running.Load() {
		return
	}
	go func() {
		select {
		case c.cmds <- fn:
		case <-c.done:
		}
	}()
}

func (c *Controller) handleEvent(ev eventbus.Event) {
	switch ev.Topic {
	case eventbus.TopicConnection:
		if snap, ok := ev.Payload.(connection.Snapshot); ok {
			c.observeConnection(snap.State)
		}
	case eventbus.TopicProject:
		c.trigger(preview.TriggerConnection)
	case eventbus.TopicObjects:
		// Coalesced on the next poll tick; an import emits a burst.
		c.objectsPending = true
	}
}

// observeConnection re-diffs when the link settles into a new state.
func (c *Controller) observeConnection(state connection.State) {
	if state == connection.Connecting || state == c.connState {
		return
	}
	c.connState = state
	c.trigger(preview.TriggerConnection)
}

func (c *Controller) poll(ctx context.Context) {
	// Transitions are also read here since a full subscription drops events.
	c.observeConnection(c.conn.Snapshot().State)

	changed, err := c.adapter.SessionChanged(ctx)
	if err != nil {
		c.logger.Debug("session poll failed", logging.Error(err))
	}
	if changed {
		c.logger.Info("workstation session changed")
		c.restore(ctx)
		c.trigger(preview.TriggerSession)
		return
	}
	if c.objectsPending && !c.importGate.Busy() {
		c.objectsPending = false
		if c.conn.ConsumeObjectsChanged() {
			c.trigger(preview.TriggerObjects)
		}
	}
}

func (c *Controller) publish(topic eventbus.Topic, payload any) {
	if c.bus != nil {
		c.bus.Publish(topic, payload)
	}
}

// requestContext tags ctx with the session name for logging.
func (c *Controller) requestContext(ctx context.Context, session string) context.Context {
	ctx = services.WithSession(ctx, session)
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx, _ = services.WithNewRequestID(ctx)
	}
	return ctx
}
