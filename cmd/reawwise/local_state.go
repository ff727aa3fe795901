package main

import (
	"context"

	"reawwise/internal/config"
	"reawwise/internal/mapping"
	"reawwise/internal/session"
	"reawwise/internal/statestore"
	"reawwise/internal/workstation"
)

// localState reads and writes the saved session state without connecting
// to Wwise.
type localState struct {
	cfg     *config.Config
	store   *statestore.Store
	adapter *workstation.ManifestAdapter
}

func openLocalState(cfg *config.Config) (*localState, error) {
	store, err := statestore.Open(cfg.StateDBPath())
	if err != nil {
		return nil, err
	}
	return &localState{
		cfg:     cfg,
		store:   store,
		adapter: workstation.NewManifestAdapter(cfg.Session.Manifest, store),
	}, nil
}

func (l *localState) Close() error { return l.store.Close() }

// load returns the saved state, or the defaults with saved=false.
func (l *localState) load(ctx context.Context) (state mapping.ProjectState, saved bool, err error) {
	blob, err := l.adapter.RetrieveState(ctx)
	if err != nil {
		return mapping.ProjectState{}, false, err
	}
	if blob == nil {
		conflict, _ := mapping.ParseConflictPolicy(l.cfg.Import.ConflictPolicy)
		template, _ := mapping.ParseTemplatePolicy(l.cfg.Import.TemplatePolicy)
		return mapping.NewProjectState(session.DefaultDestination, "", conflict, template, session.DefaultNodes()), false, nil
	}
	state, err = mapping.DecodeState(blob)
	return state, err == nil, err
}

func (l *localState) save(ctx context.Context, state mapping.ProjectState) error {
	blob, err := mapping.EncodeState(state)
	if err != nil {
		return err
	}
	return l.adapter.SaveState(ctx, blob)
}
