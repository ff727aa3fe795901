package importer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reawwise/internal/importer"
	"reawwise/internal/mapping"
	"reawwise/internal/services"
	"reawwise/internal/testsupport"
	"reawwise/internal/waapi"
	"reawwise/internal/workstation"
	"reawwise/internal/wwise"
)

const workUnit = `\Actor-Mixer Hierarchy\Default Work Unit`

var modern = waapi.CapabilitiesFor(waapi.Version{Year: 2023})

func renderFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))
	return path
}

func TestExecuteImportsSingleRegion(t *testing.T) {
	renders := t.TempDir()
	originals := t.TempDir()
	fake := testsupport.NewFakeWAAPI(originals)

	summary, err := importer.New(nil).Execute(context.Background(), fake, importer.Request{
		Items: []workstation.Item{{
			Path:      workUnit + `\<Sound SFX>kick`,
			AudioFile: renderFile(t, renders, "kick.wav"),
		}},
		Destination:      workUnit,
		Nodes:            []mapping.Node{{Type: wwise.SoundSFX, Name: "$region"}},
		OriginalsDir:     originals,
		SelectionChannel: 1,
		Capabilities:     modern,
		DefaultLanguage:  "SFX",
	})
	require.NoError(t, err)

	assert.Empty(t, summary.Errors)
	assert.Equal(t, 1, summary.Count(wwise.SoundSFX, wwise.StatusNew))
	assert.Equal(t, 1, summary.Count(wwise.AudioFileSource, wwise.StatusNew))
	assert.Equal(t, 2, summary.ObjectsCreated)
	assert.Equal(t, 1, summary.FilesTransferred)

	kick, ok := summary.Entry(workUnit + `\kick`)
	require.True(t, ok)
	assert.Equal(t, wwise.WavNew, kick.WavStatus)
	assert.NotEmpty(t, kick.ID)

	wu, ok := summary.Entry(workUnit)
	require.True(t, ok)
	assert.Equal(t, wwise.StatusNoChange, wu.Status)

	assert.Equal(t, []string{importer.DefaultUndoGroupName}, fake.ClosedUndoGroups())
	assert.Zero(t, fake.OpenUndoGroups())
	assert.Equal(t, wwise.ActorMixerHierarchyRoot, summary.Selected)
	assert.Equal(t, 1, fake.CallCount(waapi.ProcAudioImport))
	assert.Equal(t, 1, fake.CallCount(waapi.ProcCommandsExecute))
}

func TestExecuteClassifiesReplacedObjects(t *testing.T) {
	renders := t.TempDir()
	originals := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(originals, "SFX"), 0o755))
	renderFile(t, filepath.Join(originals, "SFX"), "kick.wav")

	fake := testsupport.NewFakeWAAPI(originals)
	before := fake.AddObject(workUnit+`\kick`, wwise.SoundSFX)

	summary, err := importer.New(nil).Execute(context.Background(), fake, importer.Request{
		Items: []workstation.Item{
			{Path: workUnit + `\<Sound SFX>kick`, AudioFile: renderFile(t, renders, "kick.wav")},
			{Path: workUnit + `\<Sound SFX>snare`, AudioFile: renderFile(t, renders, "snare.wav")},
		},
		Destination:     workUnit,
		Nodes:           []mapping.Node{{Type: wwise.SoundSFX, Name: "$region"}},
		ConflictPolicy:  mapping.Replace,
		OriginalsDir:    originals,
		Capabilities:    modern,
		DefaultLanguage: "SFX",
	})
	require.NoError(t, err)

	kick, ok := summary.Entry(workUnit + `\kick`)
	require.True(t, ok)
	assert.Equal(t, wwise.StatusReplaced, kick.Status)
	assert.NotEqual(t, before.ID, kick.ID)
	assert.Equal(t, wwise.WavReplaced, kick.WavStatus)

	snare, ok := summary.Entry(workUnit + `\snare`)
	require.True(t, ok)
	assert.Equal(t, wwise.StatusNew, snare.Status)
	assert.Equal(t, wwise.WavNew, snare.WavStatus)

	assert.Equal(t, 1, summary.ObjectsReplaced)
	assert.Equal(t, 2, summary.FilesTransferred)
}

func TestExecuteCreateNewIgnoresExistingSounds(t *testing.T) {
	fake := testsupport.NewFakeWAAPI("")
	fake.AddObject(workUnit+`\kick`, wwise.SoundSFX)

	summary, err := importer.New(nil).Execute(context.Background(), fake, importer.Request{
		Items:          []workstation.Item{{Path: workUnit + `\<Sound SFX>kick`, AudioFile: "/r/kick.wav"}},
		Destination:    workUnit,
		Nodes:          []mapping.Node{{Type: wwise.SoundSFX, Name: "$region"}},
		ConflictPolicy: mapping.CreateNew,
		Capabilities:   modern,
	})
	require.NoError(t, err)

	_, ok := summary.Entry(workUnit + `\kick`)
	assert.False(t, ok, "pre-existing sounds are not snapshotted under create_new")
	renamed, ok := summary.Entry(workUnit + `\kick_01`)
	require.True(t, ok)
	assert.Equal(t, wwise.StatusNew, renamed.Status)
	assert.Equal(t, wwise.WavUnknown, renamed.WavStatus)
}

func TestExecuteRecordsPasteFailureAndContinues(t *testing.T) {
	fake := testsupport.NewFakeWAAPI("")
	fake.AddObject(workUnit+`\Templates\Sound`, wwise.SoundSFX)

	nodes := []mapping.Node{
		{Type: wwise.ActorMixer, Name: "Drums", TemplatePath: workUnit + `\Templates\Missing`, TemplateEnabled: true, TemplateValid: true},
		{Type: wwise.SoundSFX, Name: "$region", TemplatePath: workUnit + `\Templates\Sound`, TemplateEnabled: true, TemplateValid: true},
	}
	summary, err := importer.New(nil).Execute(context.Background(), fake, importer.Request{
		Items: []workstation.Item{
			{Path: workUnit + `\<Actor-Mixer>Drums\<Sound SFX>kick`, AudioFile: "/r/kick.wav"},
			{Path: workUnit + `\<Actor-Mixer>Drums\<Sound SFX>snare`, AudioFile: "/r/snare.wav"},
		},
		Destination:    workUnit,
		Nodes:          nodes,
		ApplyTemplates: true,
		Capabilities:   modern,
		UndoGroupName:  "Import drums",
	})
	require.NoError(t, err)

	require.Len(t, summary.Errors, 1)
	assert.Equal(t, waapi.ProcPasteProperties, summary.Errors[0].Procedure)
	assert.Equal(t, waapi.ErrURIUnknownObject, summary.Errors[0].URI)
	assert.Equal(t, 2, fake.CallCount(waapi.ProcPasteProperties))
	assert.Equal(t, 2, summary.TemplatesApplied)
	require.Len(t, summary.Templates, 3)
	assert.False(t, summary.Templates[0].OK)
	assert.Equal(t, workUnit+`\Drums`, summary.Templates[0].Target)

	kick, _ := summary.Entry(workUnit + `\Drums\kick`)
	assert.Equal(t, workUnit+`\Templates\Sound`, kick.TemplatePath)
	drums, _ := summary.Entry(workUnit + `\Drums`)
	assert.Empty(t, drums.TemplatePath)

	assert.Equal(t, []string{"Import drums"}, fake.ClosedUndoGroups())
	assert.Equal(t, 5, summary.ObjectsCreated)
}

func TestExecuteTemplatePolicy(t *testing.T) {
	tests := []struct {
		policy mapping.TemplatePolicy
		pastes int
	}{
		{mapping.TemplateNewOnly, 0},
		{mapping.TemplateAll, 1},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			fake := testsupport.NewFakeWAAPI("")
			fake.AddObject(workUnit+`\Drums`, wwise.ActorMixer)
			fake.AddObject(workUnit+`\Templates\Bus`, wwise.ActorMixer)
			nodes := []mapping.Node{
				{Type: wwise.ActorMixer, Name: "Drums", TemplatePath: workUnit + `\Templates\Bus`, TemplateEnabled: true, TemplateValid: true},
				{Type: wwise.SoundSFX, Name: "$region"},
			}
			summary, err := importer.New(nil).Execute(context.Background(), fake, importer.Request{
				Items:          []workstation.Item{{Path: workUnit + `\<Actor-Mixer>Drums\<Sound SFX>kick`, AudioFile: "/r/kick.wav"}},
				Destination:    workUnit,
				Nodes:          nodes,
				ApplyTemplates: true,
				TemplatePolicy: tt.policy,
				Capabilities:   modern,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.pastes, fake.CallCount(waapi.ProcPasteProperties))
			assert.Equal(t, tt.pastes, summary.TemplatesApplied)
		})
	}
}

func TestExecuteSkipsTemplatesWithoutCapability(t *testing.T) {
	fake := testsupport.NewFakeWAAPI("")
	fake.AddObject(workUnit+`\Templates\Sound`, wwise.SoundSFX)
	node := mapping.Node{Type: wwise.SoundSFX, Name: "$region", TemplatePath: workUnit + `\Templates\Sound`, TemplateEnabled: true, TemplateValid: true}
	_, err := importer.New(nil).Execute(context.Background(), fake, importer.Request{
		Items:          []workstation.Item{{Path: workUnit + `\<Sound SFX>kick`, AudioFile: "/r/kick.wav"}},
		Destination:    workUnit,
		Nodes:          []mapping.Node{node},
		ApplyTemplates: true,
		Capabilities:   waapi.CapabilitiesFor(waapi.Version{Year: 2021}),
	})
	require.NoError(t, err)
	assert.Zero(t, fake.CallCount(waapi.ProcPasteProperties))
}

func TestExecuteImportFailureCancelsUndoGroup(t *testing.T) {
	fake := testsupport.NewFakeWAAPI("")
	fake.Fail(waapi.ProcAudioImport, waapi.NewRemoteError(waapi.ProcAudioImport, "ak.wwise.invalid_arguments", "bad file"))

	summary, err := importer.New(nil).Execute(context.Background(), fake, importer.Request{
		Items:        []workstation.Item{{Path: workUnit + `\<Sound SFX>kick`, AudioFile: "/r/kick.wav"}},
		Destination:  workUnit,
		Nodes:        []mapping.Node{{Type: wwise.SoundSFX, Name: "$region"}},
		Capabilities: modern,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrRemoteCall))
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, waapi.ProcAudioImport, summary.Errors[0].Procedure)
	assert.Equal(t, "bad file", summary.Errors[0].Message)
	assert.Zero(t, summary.FilesTransferred)
	assert.Equal(t, 1, fake.CallCount(waapi.ProcUndoCancelGroup))
	assert.Empty(t, fake.ClosedUndoGroups())
	assert.Zero(t, fake.OpenUndoGroups())
}

func TestExecuteSkipsIncompleteItems(t *testing.T) {
	fake := testsupport.NewFakeWAAPI("")
	summary, err := importer.New(nil).Execute(context.Background(), fake, importer.Request{
		Items:        []workstation.Item{{Path: workUnit + `\<Sound SFX>`, AudioFile: "/r/a.wav"}},
		Destination:  workUnit,
		Capabilities: modern,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{workUnit + `\<Sound SFX>`}, summary.Skipped)
	assert.Empty(t, fake.Calls())
}

func TestExecuteWithoutUndoSupport(t *testing.T) {
	fake := testsupport.NewFakeWAAPI("")
	fake.SetYear(2019)
	summary, err := importer.New(nil).Execute(context.Background(), fake, importer.Request{
		Items:        []workstation.Item{{Path: workUnit + `\<Sound SFX>kick`, AudioFile: "/r/kick.wav"}},
		Destination:  workUnit,
		Nodes:        []mapping.Node{{Type: wwise.SoundSFX, Name: "$region"}},
		Capabilities: waapi.CapabilitiesFor(waapi.Version{Year: 2019}),
	})
	require.NoError(t, err)
	assert.Zero(t, fake.CallCount(waapi.ProcUndoBeginGroup))
	assert.Zero(t, fake.CallCount(waapi.ProcUndoEndGroup))
	assert.Equal(t, 1, summary.Count(wwise.SoundSFX, wwise.StatusNew))
}
