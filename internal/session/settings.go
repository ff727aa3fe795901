package session

import (
	"context"
	"strings"

	"reawwise/internal/eventbus"
	"reawwise/internal/logging"
	"reawwise/internal/mapping"
	"reawwise/internal/preview"
	"reawwise/internal/services"
	"reawwise/internal/wwise"
)

// Settings returns a copy of the current settings.
func (c *Controller) Settings(ctx context.Context) (Settings, error) {
	var out Settings
	err := c.do(ctx, func() { out = c.settings.clone() })
	return out, err
}

// SetDestination changes the object the mapping is rooted under.
func (c *Controller) SetDestination(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if len(wwise.PathParts(path)) == 0 {
		return services.Wrap(services.ErrValidation, "session", "set destination", "destination must be an absolute object path", nil)
	}
	return c.do(ctx, func() {
		if path == c.settings.Destination {
			return
		}
		c.settings.Destination = path
		c.persist(ctx)
		c.publish(eventbus.TopicDestination, path)
		c.trigger(preview.TriggerDestination)
	})
}

// SetNodes replaces the hierarchy mapping. Template validity flags are
// recomputed by the next preview; a change that keeps every path and template
// keeps the current flags.
func (c *Controller) SetNodes(ctx context.Context, nodes []mapping.Node) error {
	nodes = append([]mapping.Node(nil), nodes...)
	return c.do(ctx, func() {
		structural := !mapping.StructureEqual(c.settings.Nodes, nodes)
		if !structural {
			for i := range nodes {
				nodes[i].TemplateValid = c.settings.Nodes[i].TemplateValid
			}
		}
		c.settings.Nodes = nodes
		c.persist(ctx)
		c.publish(eventbus.TopicMapping, append([]mapping.Node(nil), nodes...))
		if structural {
			c.trigger(preview.TriggerMapping)
		}
	})
}

// SetOriginalsSubfolder changes the subfolder pattern under the originals
// root. It may contain wildcards.
func (c *Controller) SetOriginalsSubfolder(ctx context.Context, subfolder string) error {
	return c.do(ctx, func() {
		if subfolder == c.settings.OriginalsSubfolder {
			return
		}
		c.settings.OriginalsSubfolder = subfolder
		c.persist(ctx)
		c.publish(eventbus.TopicSubfolder, subfolder)
		c.trigger(preview.TriggerSubfolder)
	})
}

// SetConflictPolicy changes how name collisions on sounds resolve.
func (c *Controller) SetConflictPolicy(ctx context.Context, policy mapping.ConflictPolicy) error {
	return c.do(ctx, func() {
		if policy == c.settings.ConflictPolicy {
			return
		}
		c.settings.ConflictPolicy = policy
		c.persist(ctx)
		c.trigger(preview.TriggerPolicy)
	})
}

// SetTemplatePolicy changes which objects receive property templates.
func (c *Controller) SetTemplatePolicy(ctx context.Context, policy mapping.TemplatePolicy) error {
	return c.do(ctx, func() {
		if policy == c.settings.TemplatePolicy {
			return
		}
		c.settings.TemplatePolicy = policy
		c.persist(ctx)
	})
}

// ApplyState replaces the persisted settings with state and saves it.
func (c *Controller) ApplyState(ctx context.Context, state mapping.ProjectState) error {
	return c.do(ctx, func() {
		c.apply(state)
		c.persist(ctx)
		c.trigger(preview.TriggerMapping)
	})
}

// SaveState writes the current settings through the adapter.
func (c *Controller) SaveState(ctx context.Context) error {
	var err error
	doErr := c.do(ctx, func() { err = c.save(ctx) })
	if doErr != nil {
		return doErr
	}
	return err
}

func (c *Controller) projectState() mapping.ProjectState {
	s := c.settings
	return mapping.NewProjectState(s.Destination, s.OriginalsSubfolder, s.ConflictPolicy, s.TemplatePolicy, s.Nodes)
}

func (c *Controller) save(ctx context.Context) error {
	blob, err := mapping.EncodeState(c.projectState())
	if err != nil {
		return err
	}
	return c.adapter.SaveState(ctx, blob)
}

func (c *Controller) persist(ctx context.Context) {
	if err := c.save(ctx); err != nil {
		logging.WarnWithContext(c.logger, "session state not saved", "session_state_save_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory"),
			logging.String(logging.FieldImpact, "settings revert when the session is reopened"),
		)
	}
}

// restore loads the session's saved state. A session without saved state
// keeps the current settings.
func (c *Controller) restore(ctx context.Context) {
	if name, err := c.adapter.SessionName(ctx); err == nil {
		c.settings.Session = name
	}
	blob, err := c.adapter.RetrieveState(ctx)
	if err != nil {
		logging.WarnWithContext(c.logger, "session state unreadable", "session_state_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the render manifest and state directory"),
			logging.String(logging.FieldImpact, "current settings are kept"),
		)
		return
	}
	if blob == nil {
		return
	}
	state, err := mapping.DecodeState(blob)
	if err != nil {
		logging.WarnWithContext(c.logger, "session state discarded", "session_state_corrupt",
			logging.Error(err),
			logging.String(logging.FieldImpact, "current settings are kept"),
		)
		return
	}
	c.apply(state)
	c.logger.Info("session state restored",
		logging.String(logging.FieldSession, c.settings.Session),
		logging.String("destination", state.Destination),
		logging.Int("nodes", len(state.Nodes)),
	)
}

func (c *Controller) apply(state mapping.ProjectState) {
	if state.Destination != "" {
		c.settings.Destination = state.Destination
	}
	c.settings.OriginalsSubfolder = state.OriginalsSubfolder
	c.settings.ConflictPolicy = state.ConflictPolicy
	c.settings.TemplatePolicy = state.TemplatePolicy
	if nodes := state.MappingNodes(); len(nodes) > 0 {
		c.settings.Nodes = nodes
	}
	c.publish(eventbus.TopicDestination, c.settings.Destination)
	c.publish(eventbus.TopicMapping, append([]mapping.Node(nil), c.settings.Nodes...))
	c.publish(eventbus.TopicSubfolder, c.settings.OriginalsSubfolder)
}
