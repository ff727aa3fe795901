package renderstats_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reawwise/internal/renderstats"
)

func TestParseWindowsPaths(t *testing.T) {
	input := `FILE:C:\renders\kick.wav;PEAK:-0.3;LUFSI:-14.2;FILE:C:\renders\snare.wav;PEAK:-1.0;`
	entries, err := renderstats.Parse(input)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, `C:\renders\kick.wav`, entries[0].File)
	peak, ok := entries[0].Lookup("PEAK")
	require.True(t, ok)
	assert.Equal(t, "-0.3", peak)
	assert.Equal(t, `C:\renders\snare.wav`, entries[1].File)
	assert.Len(t, entries[1].Stats, 1)
}

func TestParseOptionalTrailingSeparator(t *testing.T) {
	files, err := renderstats.Files("FILE:/tmp/a.wav;FILE:/tmp/b.wav")
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/a.wav", "/tmp/b.wav"}, files)
}

func TestParseEmpty(t *testing.T) {
	entries, err := renderstats.Parse("")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseMalformed(t *testing.T) {
	for _, input := range []string{
		"PEAK:-1;FILE:/a.wav;",
		"FILE:/a.wav;garbage;",
		"FILE:;",
		":value;",
	} {
		_, err := renderstats.Parse(input)
		require.Error(t, err, input)
		assert.True(t, errors.Is(err, renderstats.ErrMalformed), input)
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"FILE:/renders/kick.wav;",
		`FILE:D:\Project\Renders\vo_01.wav;PEAK:-3.0;CLIP:0;FILE:D:\Project\Renders\vo_02.wav;`,
	}
	for _, input := range inputs {
		entries, err := renderstats.Parse(input)
		require.NoError(t, err)
		formatted, err := renderstats.Format(entries)
		require.NoError(t, err)
		assert.Equal(t, input, formatted)
	}
}

func TestFormatRejectsUnrepresentable(t *testing.T) {
	_, err := renderstats.Format([]renderstats.Entry{{File: "a;b.wav"}})
	require.Error(t, err)
	_, err = renderstats.Format([]renderstats.Entry{{File: "a.wav", Stats: []renderstats.Stat{{Key: "K:1", Value: "v"}}}})
	require.Error(t, err)
}
