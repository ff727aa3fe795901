package wwise_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reawwise/internal/wwise"
)

func TestFromWAAPIDisambiguates(t *testing.T) {
	assert.Equal(t, wwise.SoundVoice, wwise.FromWAAPI("Sound", 0, true))
	assert.Equal(t, wwise.SoundSFX, wwise.FromWAAPI("Sound", 0, false))
	assert.Equal(t, wwise.SequenceContainer, wwise.FromWAAPI("RandomSequenceContainer", 0, false))
	assert.Equal(t, wwise.RandomContainer, wwise.FromWAAPI("RandomSequenceContainer", 1, false))
	assert.Equal(t, wwise.WorkUnit, wwise.FromWAAPI("WorkUnit", 0, false))
	assert.Equal(t, wwise.Unknown, wwise.FromWAAPI("Event", 0, false))
}

func TestParseTypeAcceptsBothNames(t *testing.T) {
	typ, ok := wwise.ParseType("random container")
	require.True(t, ok)
	assert.Equal(t, wwise.RandomContainer, typ)

	typ, ok = wwise.ParseType("ActorMixer")
	require.True(t, ok)
	assert.Equal(t, wwise.ActorMixer, typ)

	_, ok = wwise.ParseType("Bus")
	assert.False(t, ok)
}

func TestLookupTypeSuggests(t *testing.T) {
	typ, suggestions := wwise.LookupType("rndcont")
	assert.Equal(t, wwise.Unknown, typ)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "Random Container", suggestions[0])
}

func TestTypeTextRoundTrip(t *testing.T) {
	for _, typ := range wwise.AllTypes() {
		text, err := typ.MarshalText()
		require.NoError(t, err)
		var decoded wwise.Type
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, typ, decoded)
	}
}

func TestStatusTextRoundTrip(t *testing.T) {
	for _, s := range []wwise.Status{wwise.StatusNew, wwise.StatusReplaced, wwise.StatusNoChange, wwise.StatusRenamed} {
		text, err := s.MarshalText()
		require.NoError(t, err)
		var got wwise.Status
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, s, got)
	}
	var wav wwise.WavStatus
	require.NoError(t, wav.UnmarshalText([]byte("replaced")))
	assert.Equal(t, wwise.WavReplaced, wav)
	assert.Error(t, wav.UnmarshalText([]byte("maybe")))
}

func TestValidateParentChild(t *testing.T) {
	tests := []struct {
		parent, child wwise.Type
		want          bool
	}{
		{wwise.PhysicalFolder, wwise.WorkUnit, true},
		{wwise.PhysicalFolder, wwise.SoundSFX, false},
		{wwise.WorkUnit, wwise.RandomContainer, true},
		{wwise.WorkUnit, wwise.SoundVoice, true},
		{wwise.Folder, wwise.ActorMixer, true},
		{wwise.ActorMixer, wwise.Folder, false},
		{wwise.RandomContainer, wwise.SoundSFX, true},
		{wwise.RandomContainer, wwise.ActorMixer, false},
		{wwise.SoundSFX, wwise.AudioFileSource, true},
		{wwise.SoundSFX, wwise.SoundSFX, false},
		{wwise.Unknown, wwise.SoundSFX, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wwise.ValidateParentChild(tt.parent, tt.child), "%s -> %s", tt.parent, tt.child)
	}
}

func TestOriginalsPath(t *testing.T) {
	root := t.TempDir()
	sfx := wwise.OriginalsPath(root, `Drums\Kicks`, "/renders/kick.wav", "", false)
	assert.Equal(t, filepath.Join(root, "SFX", "Drums", "Kicks", "kick.wav"), sfx)

	voice := wwise.OriginalsPath(root, "", "line01.wav", "English(US)", true)
	assert.Equal(t, filepath.Join(root, "Voices", "English(US)", "line01.wav"), voice)

	assert.Equal(t, "", wwise.OriginalsPath("", "x", "kick.wav", "", false))
}

func TestCheckOriginal(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "SFX", "kick.wav")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0o755))
	require.NoError(t, os.WriteFile(existing, []byte("RIFF"), 0o644))

	assert.Equal(t, wwise.WavReplaced, wwise.CheckOriginal(existing))
	assert.Equal(t, wwise.WavNew, wwise.CheckOriginal(filepath.Join(root, "SFX", "snare.wav")))
	assert.Equal(t, wwise.WavUnknown, wwise.CheckOriginal(""))
}
