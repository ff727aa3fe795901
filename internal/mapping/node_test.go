package mapping_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reawwise/internal/mapping"
	"reawwise/internal/wwise"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		dest  wwise.Type
		nodes []mapping.Node
		valid bool
	}{
		{
			name:  "single sound under work unit",
			dest:  wwise.WorkUnit,
			nodes: []mapping.Node{{Type: wwise.SoundSFX, Name: "$region"}},
			valid: true,
		},
		{
			name: "container chain",
			dest: wwise.WorkUnit,
			nodes: []mapping.Node{
				{Type: wwise.ActorMixer, Name: "Drums"},
				{Type: wwise.RandomContainer, Name: "$track"},
				{Type: wwise.SoundSFX, Name: "$region"},
			},
			valid: true,
		},
		{
			name:  "unknown destination skips first pair",
			dest:  wwise.Unknown,
			nodes: []mapping.Node{{Type: wwise.SoundVoice, Name: "line"}},
			valid: true,
		},
		{
			name:  "leaf not a sound",
			dest:  wwise.WorkUnit,
			nodes: []mapping.Node{{Type: wwise.ActorMixer, Name: "Drums"}},
		},
		{
			name:  "illegal first pair",
			dest:  wwise.PhysicalFolder,
			nodes: []mapping.Node{{Type: wwise.SoundSFX, Name: "kick"}},
		},
		{
			name: "illegal inner pair",
			dest: wwise.WorkUnit,
			nodes: []mapping.Node{
				{Type: wwise.RandomContainer, Name: "Kicks"},
				{Type: wwise.ActorMixer, Name: "Bad"},
				{Type: wwise.SoundSFX, Name: "kick"},
			},
		},
		{
			name:  "empty name",
			dest:  wwise.WorkUnit,
			nodes: []mapping.Node{{Type: wwise.SoundSFX, Name: " "}},
		},
		{
			name: "empty mapping",
			dest: wwise.WorkUnit,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapping.Validate(tt.dest, tt.nodes)
			assert.Equal(t, tt.valid, got.Valid, "%+v", got.Issues)
			if !tt.valid {
				assert.NotEmpty(t, got.Issues)
			}
		})
	}
}

func TestPattern(t *testing.T) {
	nodes := []mapping.Node{
		{Type: wwise.RandomContainer, Name: "$track"},
		{Type: wwise.SoundSFX, Name: "$region"},
	}
	got := mapping.Pattern(`\Actor-Mixer Hierarchy\Default Work Unit`, nodes)
	assert.Equal(t, `\Actor-Mixer Hierarchy\Default Work Unit\<Random Container>$track\<Sound SFX>$region`, got)
}

func TestLanguage(t *testing.T) {
	sfx := []mapping.Node{{Type: wwise.SoundSFX, Name: "a", Language: "French(France)"}}
	assert.Equal(t, "SFX", mapping.Language(sfx, "SFX"))
	voice := []mapping.Node{{Type: wwise.SoundVoice, Name: "a", Language: "French(France)"}}
	assert.Equal(t, "French(France)", mapping.Language(voice, "SFX"))
	assert.True(t, mapping.IsVoice(voice))
	assert.Equal(t, "SFX", mapping.Language(nil, "SFX"))
}

func TestHasTemplate(t *testing.T) {
	n := mapping.Node{TemplatePath: `\Actor-Mixer Hierarchy\Templates\Loud`, TemplateEnabled: true}
	assert.False(t, n.HasTemplate())
	n.TemplateValid = true
	assert.True(t, n.HasTemplate())
	n.TemplateEnabled = false
	assert.False(t, n.HasTemplate())
}

func TestStructureEqualIgnoresValidity(t *testing.T) {
	a := []mapping.Node{{Type: wwise.SoundSFX, Name: "$region", TemplateValid: true}}
	b := []mapping.Node{{Type: wwise.SoundSFX, Name: "$region"}}
	assert.True(t, mapping.StructureEqual(a, b))
	b[0].Name = "$item"
	assert.False(t, mapping.StructureEqual(a, b))
}

func TestWildcards(t *testing.T) {
	assert.Equal(t, []string{"track", "region"}, mapping.Wildcards("$track_$region"))
	assert.True(t, mapping.HasWildcard("x$item"))
	assert.False(t, mapping.HasWildcard("plain $ sign"))

	expanded := mapping.Expand(`\A\<Sound SFX>$region`, map[string]string{"region": "kick"})
	assert.Equal(t, `\A\<Sound SFX>kick`, expanded)

	missing := mapping.Expand(`\A\<Sound SFX>$region`, nil)
	assert.Equal(t, `\A\<Sound SFX>`, missing)
	assert.False(t, wwise.IsPathComplete(missing))
}

func TestParsePolicies(t *testing.T) {
	p, err := mapping.ParseConflictPolicy("replaceExisting")
	require.NoError(t, err)
	assert.Equal(t, mapping.Replace, p)
	assert.Equal(t, "replaceExisting", p.ImportOperation())

	p, err = mapping.ParseConflictPolicy("create-new")
	require.NoError(t, err)
	assert.Equal(t, "createNew", p.ImportOperation())

	_, err = mapping.ParseConflictPolicy("merge")
	assert.Error(t, err)

	tp, err := mapping.ParseTemplatePolicy("all")
	require.NoError(t, err)
	assert.Equal(t, mapping.TemplateAll, tp)
}
