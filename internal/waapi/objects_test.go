package waapi_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reawwise/internal/services"
	"reawwise/internal/testsupport"
	"reawwise/internal/waapi"
	"reawwise/internal/wwise"
)

const workUnit = `\Actor-Mixer Hierarchy\Default Work Unit`

func seededFake() *testsupport.FakeWAAPI {
	fake := testsupport.NewFakeWAAPI("")
	fake.AddObject(workUnit+`\Drums`, wwise.ActorMixer)
	fake.AddObject(workUnit+`\Drums\Kicks`, wwise.RandomContainer)
	fake.AddObject(workUnit+`\Drums\Kicks\kick`, wwise.SoundSFX)
	return fake
}

func paths(objects []waapi.Object) []string {
	out := make([]string, 0, len(objects))
	for _, o := range objects {
		out = append(out, o.Path)
	}
	return out
}

func TestFetchLineageWAQL(t *testing.T) {
	fake := seededFake()
	objects, answered, err := waapi.FetchLineage(context.Background(), fake, workUnit+`\Drums`, true)
	require.NoError(t, err)
	assert.Equal(t, workUnit+`\Drums`, answered)
	assert.Equal(t, []string{
		`\Actor-Mixer Hierarchy`,
		workUnit,
		workUnit + `\Drums`,
		workUnit + `\Drums\Kicks`,
		workUnit + `\Drums\Kicks\kick`,
	}, paths(objects))
	assert.Equal(t, 1, fake.CallCount(waapi.ProcObjectGet))
	assert.Equal(t, wwise.RandomContainer, objects[3].Type)
}

func TestFetchLineageLegacyMatchesWAQL(t *testing.T) {
	fake := seededFake()
	waql, _, err := waapi.FetchLineage(context.Background(), fake, workUnit+`\Drums`, true)
	require.NoError(t, err)

	fake.ResetCalls()
	legacy, _, err := waapi.FetchLineage(context.Background(), fake, workUnit+`\Drums`, false)
	require.NoError(t, err)
	assert.Equal(t, paths(waql), paths(legacy))
	assert.Equal(t, 3, fake.CallCount(waapi.ProcObjectGet))
}

func TestFetchLineageClimbsToExistingAncestor(t *testing.T) {
	fake := seededFake()
	objects, answered, err := waapi.FetchLineage(context.Background(), fake, workUnit+`\<Actor-Mixer>Music\<Sound SFX>theme`, true)
	require.NoError(t, err)
	assert.Equal(t, workUnit, answered)
	assert.Contains(t, paths(objects), workUnit+`\Drums\Kicks\kick`)
	assert.Equal(t, 3, fake.CallCount(waapi.ProcObjectGet))
}

func TestFetchLineageFallsBackWhenWAQLUnsupported(t *testing.T) {
	fake := seededFake()
	fake.SetYear(2019)
	objects, _, err := waapi.FetchLineage(context.Background(), fake, workUnit, true)
	require.NoError(t, err)
	assert.Len(t, objects, 5)
	assert.Equal(t, 4, fake.CallCount(waapi.ProcObjectGet))
}

func TestFetchLineageStopsOnTransportError(t *testing.T) {
	fake := seededFake()
	fake.Fail(waapi.ProcObjectGet, &waapi.CallError{Procedure: waapi.ProcObjectGet, Err: services.ErrNotConnected})
	_, _, err := waapi.FetchLineage(context.Background(), fake, workUnit+`\Missing\Deeper`, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrNotConnected))
	assert.Equal(t, 1, fake.CallCount(waapi.ProcObjectGet))
}

func TestGetObject(t *testing.T) {
	fake := seededFake()
	obj, found, err := waapi.GetObject(context.Background(), fake, `\Actor-Mixer Hierarchy\<Work Unit>Default Work Unit\<Actor-Mixer>Drums`)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Drums", obj.Name)
	assert.Equal(t, wwise.ActorMixer, obj.Type)

	_, found, err = waapi.GetObject(context.Background(), fake, workUnit+`\Nope`)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestParseObjectDisambiguatesTypes(t *testing.T) {
	obj := waapi.ParseObject(map[string]any{
		"id":                "{1}",
		"type":              "RandomSequenceContainer",
		"@RandomOrSequence": float64(0),
	})
	assert.Equal(t, wwise.SequenceContainer, obj.Type)

	voice := waapi.ParseObject(map[string]any{"type": "Sound", "@IsVoice": true})
	assert.Equal(t, wwise.SoundVoice, voice.Type)
}
