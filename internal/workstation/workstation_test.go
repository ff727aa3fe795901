package workstation_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reawwise/internal/logging"
	"reawwise/internal/mapping"
	"reawwise/internal/statestore"
	"reawwise/internal/workstation"
	"reawwise/internal/wwise"
)

const workUnit = `\Actor-Mixer Hierarchy\Default Work Unit`

func writeManifest(t *testing.T, m workstation.Manifest) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "render.yaml")
	require.NoError(t, workstation.WriteManifest(path, m))
	return path
}

func drumsOptions() workstation.Options {
	return workstation.Options{
		Destination: workUnit,
		Nodes: []mapping.Node{
			{Type: wwise.ActorMixer, Name: "$track"},
			{Type: wwise.SoundSFX, Name: "$filename"},
		},
		OriginalsSubfolder: "$session/$track",
	}
}

func TestManifestPreviewItems(t *testing.T) {
	path := writeManifest(t, workstation.Manifest{
		Session: "Demo",
		Targets: []workstation.Target{
			{File: "renders/kick.wav", Wildcards: map[string]string{"track": "Drums"}},
			{File: "/abs/snare.wav", Wildcards: map[string]string{"track": "Drums"}},
		},
	})
	adapter := workstation.NewManifestAdapter(path, nil)

	items, err := workstation.GetItemsForPreview(context.Background(), adapter, drumsOptions(), logging.NewNop())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, workUnit+`\<Actor-Mixer>Drums\<Sound SFX>kick`, items[0].Path)
	assert.Equal(t, "Demo/Drums", items[0].OriginalsSubfolder)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "renders", "kick.wav"), items[0].RenderFile)
	assert.Equal(t, workUnit+`\<Actor-Mixer>Drums\<Sound SFX>snare`, items[1].Path)
}

func TestManifestUnknownWildcardLeavesIncompletePath(t *testing.T) {
	path := writeManifest(t, workstation.Manifest{Targets: []workstation.Target{{File: "/r/kick.wav"}}})
	adapter := workstation.NewManifestAdapter(path, nil)

	items, err := workstation.GetItemsForPreview(context.Background(), adapter, drumsOptions(), nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, wwise.IsPathComplete(items[0].Path))
}

func TestImportItemsFollowLastRender(t *testing.T) {
	path := writeManifest(t, workstation.Manifest{
		Session: "Demo",
		Targets: []workstation.Target{{File: "/r/kick.wav", Wildcards: map[string]string{"track": "Drums"}}},
	})
	adapter := workstation.NewManifestAdapter(path, nil)
	ctx := context.Background()

	items, err := workstation.GetItemsForImport(ctx, adapter, drumsOptions(), nil)
	require.NoError(t, err)
	assert.Empty(t, items, "no render yet")

	require.NoError(t, adapter.RenderItems(ctx))
	items, err = workstation.GetItemsForImport(ctx, adapter, drumsOptions(), nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "/r/kick.wav", items[0].AudioFile)
	assert.Equal(t, workUnit+`\<Actor-Mixer>Drums\<Sound SFX>kick`, items[0].Path)
}

func TestImportItemsIgnoreMalformedStats(t *testing.T) {
	path := writeManifest(t, workstation.Manifest{
		Targets:    []workstation.Target{{File: "/r/kick.wav"}},
		LastRender: "kick.wav;PEAK:0;",
	})
	adapter := workstation.NewManifestAdapter(path, nil)
	items, err := workstation.GetItemsForImport(context.Background(), adapter, drumsOptions(), nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

type mismatchedAdapter struct {
	workstation.Adapter
	targets []string
	paths   []string
}

func (m mismatchedAdapter) RenderTargets(context.Context) ([]string, error) { return m.targets, nil }

func (m mismatchedAdapter) ResolveRenderPattern(context.Context, string) ([]string, error) {
	return m.paths, nil
}

func TestCountMismatchYieldsNoItems(t *testing.T) {
	adapter := mismatchedAdapter{targets: []string{"a.wav", "b.wav"}, paths: []string{`\A\<Sound SFX>a`}}
	items, err := workstation.GetItemsForPreview(context.Background(), adapter, drumsOptions(), logging.NewNop())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSessionChangedTracksManifestEdits(t *testing.T) {
	m := workstation.Manifest{Session: "Demo", Targets: []workstation.Target{{File: "/r/a.wav"}}}
	path := writeManifest(t, m)
	adapter := workstation.NewManifestAdapter(path, nil)
	ctx := context.Background()

	changed, err := adapter.SessionChanged(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "first call records a baseline")

	changed, _ = adapter.SessionChanged(ctx)
	assert.False(t, changed)

	m.Targets = append(m.Targets, workstation.Target{File: "/r/b.wav"})
	require.NoError(t, workstation.WriteManifest(path, m))
	changed, _ = adapter.SessionChanged(ctx)
	assert.True(t, changed)
	changed, _ = adapter.SessionChanged(ctx)
	assert.False(t, changed)
}

func TestStateRoundTripsPerSession(t *testing.T) {
	store, err := statestore.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	path := writeManifest(t, workstation.Manifest{Session: "Song A"})
	adapter := workstation.NewManifestAdapter(path, store)
	ctx := context.Background()

	blob, err := adapter.RetrieveState(ctx)
	require.NoError(t, err)
	assert.Nil(t, blob)

	require.NoError(t, adapter.SaveState(ctx, []byte("state")))
	blob, err = adapter.RetrieveState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "state", string(blob))

	saved, err := store.Load("Song A", workstation.StateKey)
	require.NoError(t, err)
	assert.Equal(t, "state", string(saved))
}

func TestSessionNameFallsBackToFileName(t *testing.T) {
	path := writeManifest(t, workstation.Manifest{})
	name, err := workstation.NewManifestAdapter(path, nil).SessionName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "render", name)
}

func TestMissingManifest(t *testing.T) {
	adapter := workstation.NewManifestAdapter(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	_, err := adapter.RenderTargets(context.Background())
	require.Error(t, err)
	_, statErr := os.Stat(adapter.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestRenderItemsRunsManifestCommand(t *testing.T) {
	path := writeManifest(t, workstation.Manifest{
		Session:       "Demo",
		RenderCommand: []string{"./render.sh", "rendered"},
		Targets:       []workstation.Target{{File: "kick.wav"}},
	})
	dir := filepath.Dir(path)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "render.sh"), []byte("#!/bin/sh\ntouch \"$1\"\n"), 0o755))

	adapter := workstation.NewManifestAdapter(path, nil)
	require.NoError(t, adapter.RenderItems(context.Background()))
	assert.FileExists(t, filepath.Join(dir, "rendered"), "command runs in the manifest directory")

	stats, err := adapter.LastRenderStats(context.Background())
	require.NoError(t, err)
	assert.Contains(t, stats, "kick.wav")
}

func TestRenderItemsReportsMissingCommand(t *testing.T) {
	path := writeManifest(t, workstation.Manifest{
		Session:       "Demo",
		RenderCommand: []string{"./missing-render.sh"},
		Targets:       []workstation.Target{{File: "kick.wav"}},
	})
	err := workstation.NewManifestAdapter(path, nil).RenderItems(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
