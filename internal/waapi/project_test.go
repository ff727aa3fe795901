package waapi_test

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reawwise/internal/testsupport"
	"reawwise/internal/waapi"
)

func TestCapabilitiesFor(t *testing.T) {
	assert.Equal(t, waapi.Capabilities{}, waapi.CapabilitiesFor(waapi.Version{Year: 2019}))
	assert.Equal(t, waapi.Capabilities{WAQL: true, UndoGroups: true}, waapi.CapabilitiesFor(waapi.Version{Year: 2021}))
	assert.Equal(t, waapi.Capabilities{WAQL: true, UndoGroups: true, PasteProperties: true}, waapi.CapabilitiesFor(waapi.Version{Year: 2022}))
}

func TestGetInfoAndProjectInfo(t *testing.T) {
	fake := testsupport.NewFakeWAAPI("/originals")
	info, err := waapi.GetInfo(context.Background(), fake)
	require.NoError(t, err)
	assert.Equal(t, 2023, info.Version.Year)
	assert.True(t, info.Capabilities.PasteProperties)

	project, err := waapi.GetProjectInfo(context.Background(), fake)
	require.NoError(t, err)
	assert.Equal(t, "Fake", project.Name)
	assert.Equal(t, "/originals", project.OriginalsDir)
	assert.NotEmpty(t, project.ID)
	assert.Contains(t, project.Languages, "English(US)")
}

func TestImportRequestArgs(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "kick.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF"), 0o644))

	req := waapi.ImportRequest{
		Operation: "useExisting",
		Language:  "SFX",
		Items: []waapi.ImportItem{
			{AudioFile: audio, ObjectPath: `\A\<Sound SFX>kick`, OriginalsSubFolder: "Drums"},
			{AudioFile: audio, ObjectPath: `\A\<Sound SFX>kick2`, Embed: true},
		},
	}
	args, err := req.Args()
	require.NoError(t, err)
	assert.Equal(t, "useExisting", args["importOperation"])
	imports := args["imports"].([]any)
	require.Len(t, imports, 2)
	first := imports[0].(map[string]any)
	assert.Equal(t, audio, first["audioFile"])
	second := imports[1].(map[string]any)
	name, payload, ok := strings.Cut(second["audioFileBase64"].(string), "|")
	require.True(t, ok)
	assert.Equal(t, "kick.wav", name)
	decoded, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(decoded))

	req.Items[1].AudioFile = filepath.Join(t.TempDir(), "missing.wav")
	_, err = req.Args()
	assert.Error(t, err)
}

func TestImportThroughRouter(t *testing.T) {
	originals := t.TempDir()
	fake := testsupport.NewFakeWAAPI(originals)
	router := testsupport.NewRouter(t, fake)
	client := connect(t, router, "json")

	objects, err := waapi.Import(context.Background(), client, waapi.ImportRequest{
		Operation: "useExisting",
		Language:  "SFX",
		Items:     []waapi.ImportItem{{AudioFile: "/renders/kick.wav", ObjectPath: workUnit + `\<Sound SFX>kick`}},
	})
	require.NoError(t, err)
	got := paths(objects)
	assert.Contains(t, got, workUnit+`\kick`)
	assert.Contains(t, got, workUnit+`\kick\kick`)
	_, err = os.Stat(filepath.Join(originals, "SFX", "kick.wav"))
	assert.NoError(t, err)
}

func TestUndoAndSelectionCommands(t *testing.T) {
	fake := testsupport.NewFakeWAAPI("")
	ctx := context.Background()
	require.NoError(t, waapi.BeginUndoGroup(ctx, fake))
	require.NoError(t, waapi.EndUndoGroup(ctx, fake, "Transfer to Wwise"))
	assert.Equal(t, []string{"Transfer to Wwise"}, fake.ClosedUndoGroups())
	assert.Error(t, waapi.CancelUndoGroup(ctx, fake))

	require.NoError(t, waapi.SelectInProjectExplorer(ctx, fake, 2, []string{workUnit}))
	calls := fake.Calls()
	assert.Equal(t, "FindInProjectExplorerSelectionChannel2", calls[len(calls)-1].Args["command"])

	err := waapi.PasteProperties(ctx, fake, `\Missing`, []string{workUnit})
	assert.True(t, waapi.IsUnknownObject(err))
}

func TestExecuteWithRetry(t *testing.T) {
	attempts := 0
	ok := waapi.ExecuteWithRetry(context.Background(), func() bool {
		attempts++
		return attempts == 3
	}, time.Millisecond, 5)
	assert.True(t, ok)
	assert.Equal(t, 3, attempts)

	attempts = 0
	ok = waapi.ExecuteWithRetry(context.Background(), func() bool {
		attempts++
		return false
	}, time.Millisecond, 4)
	assert.False(t, ok)
	assert.Equal(t, 4, attempts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts = 0
	assert.False(t, waapi.ExecuteWithRetry(ctx, func() bool { attempts++; return true }, time.Millisecond, 3))
	assert.Equal(t, 0, attempts)
}
