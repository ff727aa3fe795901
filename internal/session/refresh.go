package session

import (
	"context"
	"errors"

	"reawwise/internal/eventbus"
	"reawwise/internal/jobs"
	"reawwise/internal/logging"
	"reawwise/internal/mapping"
	"reawwise/internal/preview"
	"reawwise/internal/services"
	"reawwise/internal/waapi"
	"reawwise/internal/workstation"
	"reawwise/internal/wwise"
)

type previewOutcome struct {
	result          preview.Result
	items           int
	nodes           []mapping.Node
	destinationType wwise.Type
	templateValid   []bool
}

// Preview returns a preview computed for the current settings. It waits for
// the in-flight job, or starts one. An unchanged session skips the hierarchy
// query and reuses the engine's last tree.
func (c *Controller) Preview(ctx context.Context) (PreviewUpdate, error) {
	ch := make(chan PreviewUpdate, 1)
	if err := c.do(ctx, func() {
		c.waiters = append(c.waiters, ch)
		if !c.previews.InFlight() {
			c.refresh()
		}
	}); err != nil {
		return PreviewUpdate{}, err
	}
	select {
	case update := <-ch:
		return update, update.Err
	case <-ctx.Done():
		return PreviewUpdate{}, ctx.Err()
	}
}

// Refresh marks the preview stale and recomputes it in the background.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.do(ctx, func() { c.trigger(preview.TriggerObjects) })
}

func (c *Controller) trigger(reason preview.Trigger) {
	c.engine.MarkStale(reason)
	c.refresh()
}

// refresh supersedes any running preview job with a new one.
func (c *Controller) refresh() {
	settings := c.settings.clone()
	jobCtx, gen := c.previews.Begin(c.runCtx)
	ch, err := jobs.Submit(c.pool, "preview", gen, func(poolCtx context.Context) (previewOutcome, error) {
		ctx := jobCtx
		if id, ok := services.JobFromContext(poolCtx); ok {
			ctx = services.WithJob(ctx, id)
		}
		return c.computePreview(c.requestContext(ctx, settings.Session), settings)
	})
	if err != nil {
		c.previews.Finish(gen)
		c.deliver(PreviewUpdate{Generation: gen, Err: err})
		return
	}
	done := c.done
	go func() {
		res := <-ch
		select {
		case c.results <- res:
		case <-done:
		}
	}()
}

func (c *Controller) computePreview(ctx context.Context, s Settings) (previewOutcome, error) {
	out := previewOutcome{nodes: s.Nodes}
	caller, err := c.conn.Caller()
	if err != nil {
		return out, err
	}
	snap := c.conn.Snapshot()

	items, err := workstation.GetItemsForPreview(ctx, c.adapter, workstation.Options{
		Destination:        s.Destination,
		Nodes:              s.Nodes,
		OriginalsSubfolder: s.OriginalsSubfolder,
	}, c.logger)
	if err != nil {
		return out, err
	}
	out.items = len(items)

	project, err := c.conn.Project(ctx)
	if err != nil {
		c.logger.Debug("originals directory unknown", logging.Error(err))
	}

	result, err := c.engine.Run(ctx, caller, preview.Request{
		Destination:    s.Destination,
		Nodes:          s.Nodes,
		Items:          items,
		ConflictPolicy: s.ConflictPolicy,
		OriginalsDir:   project.OriginalsDir,
		UseWAQL:        snap.Info.Capabilities.WAQL,
	})
	if err != nil {
		return out, err
	}
	out.result = result

	// Any change that could move the destination or a template marks the
	// engine stale, so a cached run keeps the previous lookups.
	if result.Cached {
		out.destinationType = s.DestinationType
		out.templateValid = make([]bool, len(s.Nodes))
		for i, node := range s.Nodes {
			out.templateValid[i] = node.TemplateValid
		}
		return out, nil
	}
	out.destinationType, out.templateValid, err = lookupRemote(ctx, caller, s.Destination, s.Nodes)
	if err != nil {
		return out, err
	}
	return out, nil
}

// lookupRemote returns the type of the destination object, Unknown when it
// does not exist yet, and for each node whether its template exists.
func lookupRemote(ctx context.Context, caller waapi.Caller, destination string, nodes []mapping.Node) (wwise.Type, []bool, error) {
	destinationType := wwise.Unknown
	if obj, found, err := waapi.GetObject(ctx, caller, destination); err != nil {
		return wwise.Unknown, nil, err
	} else if found {
		destinationType = obj.Type
	}
	valid := make([]bool, len(nodes))
	for i, node := range nodes {
		if node.TemplatePath == "" {
			continue
		}
		_, found, err := waapi.GetObject(ctx, caller, node.TemplatePath)
		if err != nil {
			return destinationType, nil, err
		}
		valid[i] = found
	}
	return destinationType, valid, nil
}

func (c *Controller) handlePreview(res jobs.Result[previewOutcome]) {
	if !c.previews.Finish(res.Generation) {
		c.logger.Debug("stale preview discarded", logging.Uint64("generation", res.Generation))
		return
	}
	update := PreviewUpdate{Generation: res.Generation, Err: res.Err}
	if res.Err == nil {
		update.Result = res.Value.result
		update.Items = res.Value.items
		if mapping.StructureEqual(c.settings.Nodes, res.Value.nodes) {
			for i := range c.settings.Nodes {
				c.settings.Nodes[i].TemplateValid = res.Value.templateValid[i]
			}
		}
		c.settings.DestinationType = res.Value.destinationType
		c.settings.Validation = mapping.Validate(res.Value.destinationType, c.settings.Nodes)
	} else if !errors.Is(res.Err, services.ErrNotConnected) && !errors.Is(res.Err, context.Canceled) {
		logging.WarnWithContext(c.logger, "preview failed", "preview_failed",
			logging.Error(res.Err),
			logging.String(logging.FieldErrorHint, "check the destination and the connection to Wwise"),
			logging.String(logging.FieldImpact, "the preview is not current"),
		)
	}
	c.deliver(update)
}

func (c *Controller) deliver(update PreviewUpdate) {
	c.publish(eventbus.TopicPreview, update)
	c.releaseWaiters(update)
}

func (c *Controller) releaseWaiters(update PreviewUpdate) {
	for _, ch := range c.waiters {
		ch <- update
	}
	c.waiters = nil
}
