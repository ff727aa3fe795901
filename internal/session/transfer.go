package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"reawwise/internal/connection"
	"reawwise/internal/eventbus"
	"reawwise/internal/history"
	"reawwise/internal/importer"
	"reawwise/internal/jobs"
	"reawwise/internal/logging"
	"reawwise/internal/mapping"
	"reawwise/internal/preflight"
	"reawwise/internal/preview"
	"reawwise/internal/services"
	"reawwise/internal/workstation"
)

// Confirmation describes the render a transfer is about to start.
type Confirmation struct {
	Session     string
	Destination string
	// Targets are the files the render will write.
	Targets []string
}

// ConfirmFunc approves a render before it starts. A nil ConfirmFunc
// approves every render.
type ConfirmFunc func(ctx context.Context, c Confirmation) (bool, error)

// ImportPhase is the stage reported on eventbus.TopicImport.
type ImportPhase string

const (
	ImportStarted  ImportPhase = "started"
	ImportFinished ImportPhase = "finished"
	ImportFailed   ImportPhase = "failed"
)

// ImportEvent is published on eventbus.TopicImport.
type ImportEvent struct {
	Phase   ImportPhase
	RunID   string
	Session string
	Summary *importer.Summary
	Err     error
	Elapsed time.Duration
}

// PendingConfirmation describes what TransferToWwise would render, for
// callers that confirm out of band.
func (c *Controller) PendingConfirmation(ctx context.Context) (Confirmation, error) {
	settings, err := c.Settings(ctx)
	if err != nil {
		return Confirmation{}, err
	}
	return c.confirmation(ctx, settings)
}

func (c *Controller) confirmation(ctx context.Context, settings Settings) (Confirmation, error) {
	targets, err := c.adapter.RenderTargets(ctx)
	if err != nil {
		return Confirmation{}, err
	}
	return Confirmation{Session: settings.Session, Destination: settings.Destination, Targets: targets}, nil
}

// TransferToWwise renders the session and imports the rendered files under
// the destination. Only one transfer runs at a time; a concurrent call
// fails with services.ErrBusy. Once the import call is issued it runs to
// completion even if ctx is cancelled.
func (c *Controller) TransferToWwise(ctx context.Context, confirm ConfirmFunc) (*importer.Summary, error) {
	settings, err := c.Settings(ctx)
	if err != nil {
		return nil, err
	}
	ctx = c.requestContext(ctx, settings.Session)
	logger := logging.WithContext(ctx, c.logger)

	if confirm != nil {
		pending, err := c.confirmation(ctx, settings)
		if err != nil {
			return nil, err
		}
		ok, err := confirm(ctx, pending)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Info("transfer declined")
			return nil, ErrDeclined
		}
	}

	if err := c.importGate.Enter(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	c.publish(eventbus.TopicImport, ImportEvent{Phase: ImportStarted, RunID: runID, Session: settings.Session})
	fail := func(err error) (*importer.Summary, error) {
		c.importGate.Leave()
		c.publish(eventbus.TopicImport, ImportEvent{Phase: ImportFailed, RunID: runID, Session: settings.Session, Err: err})
		logging.WarnWithContext(logger, "transfer aborted", "transfer_aborted",
			logging.Error(err),
			logging.String("run_id", runID),
			logging.String(logging.FieldImpact, "nothing was imported"),
		)
		return nil, err
	}

	snap := c.conn.Snapshot()
	if snap.State != connection.Connected {
		return fail(services.Wrap(services.ErrNotConnected, "session", "transfer", "not connected to Wwise", nil))
	}
	caller, err := c.conn.Caller()
	if err != nil {
		return fail(err)
	}
	// Template validity and the destination type are only as fresh as the
	// last preview, which may not have landed yet.
	destinationType, templateValid, err := lookupRemote(ctx, caller, settings.Destination, settings.Nodes)
	if err != nil {
		return fail(err)
	}
	settings.DestinationType = destinationType
	for i := range settings.Nodes {
		settings.Nodes[i].TemplateValid = templateValid[i]
	}
	if v := mapping.Validate(settings.DestinationType, settings.Nodes); !v.Valid {
		return fail(services.Wrap(services.ErrValidation, "session", "transfer", "hierarchy mapping is invalid", v.Err()))
	}

	if err := c.adapter.RenderItems(ctx); err != nil {
		return fail(err)
	}
	items, err := workstation.GetItemsForImport(ctx, c.adapter, workstation.Options{
		Destination:        settings.Destination,
		Nodes:              settings.Nodes,
		OriginalsSubfolder: settings.OriginalsSubfolder,
	}, c.logger)
	if err != nil {
		return fail(err)
	}
	if len(items) == 0 {
		return fail(services.Wrap(services.ErrValidation, "session", "transfer", "render produced no importable items", nil))
	}

	project, err := c.conn.Project(ctx)
	if err != nil {
		return fail(err)
	}
	if err := preflight.Failed(preflight.ForTransfer(project.OriginalsDir, items, c.cfg.Import.EmbedAudio)); err != nil {
		return fail(err)
	}

	req := importer.Request{
		Items:            items,
		Destination:      settings.Destination,
		Nodes:            settings.Nodes,
		ConflictPolicy:   settings.ConflictPolicy,
		TemplatePolicy:   settings.TemplatePolicy,
		ApplyTemplates:   true,
		OriginalsDir:     project.OriginalsDir,
		SelectionChannel: c.cfg.Import.SelectionChannel,
		Capabilities:     snap.Info.Capabilities,
		UndoGroupName:    c.cfg.Import.UndoGroupName,
		DefaultLanguage:  c.cfg.Import.DefaultLanguage,
		Embed:            c.cfg.Import.EmbedAudio,
	}
	session, requestID := settings.Session, ""
	if id, ok := services.RequestIDFromContext(ctx); ok {
		requestID = id
	}

	ch, err := jobs.Submit(c.pool, "import", 0, func(jobCtx context.Context) (*importer.Summary, error) {
		defer c.importGate.Leave()
		jobCtx = services.WithRequestID(services.WithSession(jobCtx, session), requestID)
		started := time.Now()
		summary, err := c.importer.Execute(jobCtx, caller, req)
		c.record(jobCtx, runID, project.Name, settings, summary, started)
		ev := ImportEvent{Phase: ImportFinished, RunID: runID, Session: session, Summary: summary, Elapsed: time.Since(started)}
		if err != nil {
			ev.Phase, ev.Err = ImportFailed, err
		}
		c.publish(eventbus.TopicImport, ev)
		c.post(func() { c.trigger(preview.TriggerObjects) })
		return summary, err
	})
	if err != nil {
		return fail(err)
	}

	select {
	case res := <-ch:
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Controller) record(ctx context.Context, runID, project string, s Settings, summary *importer.Summary, started time.Time) {
	if c.history == nil || summary == nil {
		return
	}
	rec := history.Record{
		RunID:            runID,
		Session:          s.Session,
		Project:          project,
		Destination:      s.Destination,
		ConflictPolicy:   s.ConflictPolicy.String(),
		StartedAt:        started,
		FinishedAt:       time.Now(),
		ObjectsCreated:   summary.ObjectsCreated,
		ObjectsReplaced:  summary.ObjectsReplaced,
		TemplatesApplied: summary.TemplatesApplied,
		FilesTransferred: summary.FilesTransferred,
		ErrorCount:       len(summary.Errors),
	}
	if data, err := json.Marshal(summary); err == nil {
		rec.SummaryJSON = string(data)
	}
	// The job context may already be cancelled by pool shutdown.
	if _, err := c.history.Add(context.WithoutCancel(ctx), rec); err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "import history not recorded", "history_write_failed",
			logging.Error(err),
			logging.String("run_id", runID),
			logging.String(logging.FieldImpact, "the run is missing from history"),
		)
	}
}
