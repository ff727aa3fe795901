package wwise

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Type identifies a Wwise object type in the Actor-Mixer hierarchy.
type Type int

const (
	Unknown Type = iota
	ActorMixer
	AudioFileSource
	BlendContainer
	Folder
	PhysicalFolder
	RandomContainer
	SequenceContainer
	SwitchContainer
	SoundSFX
	SoundVoice
	WorkUnit
)

var allTypes = []Type{
	ActorMixer,
	AudioFileSource,
	BlendContainer,
	Folder,
	PhysicalFolder,
	RandomContainer,
	SequenceContainer,
	SwitchContainer,
	SoundSFX,
	SoundVoice,
	WorkUnit,
}

var readableNames = map[Type]string{
	ActorMixer:        "Actor-Mixer",
	AudioFileSource:   "Audio File Source",
	BlendContainer:    "Blend Container",
	Folder:            "Folder",
	PhysicalFolder:    "Physical Folder",
	RandomContainer:   "Random Container",
	SequenceContainer: "Sequence Container",
	SwitchContainer:   "Switch Container",
	SoundSFX:          "Sound SFX",
	SoundVoice:        "Sound Voice",
	WorkUnit:          "Work Unit",
}

var waapiNames = map[Type]string{
	ActorMixer:        "ActorMixer",
	AudioFileSource:   "AudioFileSource",
	BlendContainer:    "BlendContainer",
	Folder:            "Folder",
	PhysicalFolder:    "PhysicalFolder",
	RandomContainer:   "RandomSequenceContainer",
	SequenceContainer: "RandomSequenceContainer",
	SwitchContainer:   "SwitchContainer",
	SoundSFX:          "Sound",
	SoundVoice:        "Sound",
	WorkUnit:          "WorkUnit",
}

// AllTypes returns every known type in declaration order.
func AllTypes() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

// ReadableName returns the tag used inside object paths, e.g. "Sound SFX".
func (t Type) ReadableName() string {
	return readableNames[t]
}

// WAAPIName returns the type string reported by ak.wwise.core.object.get.
func (t Type) WAAPIName() string {
	return waapiNames[t]
}

func (t Type) String() string {
	if name := readableNames[t]; name != "" {
		return name
	}
	return "Unknown"
}

// IsSound reports whether t is a leaf sound object.
func (t Type) IsSound() bool {
	return t == SoundSFX || t == SoundVoice
}

// IsContainer reports whether t is one of the playable containers.
func (t Type) IsContainer() bool {
	switch t {
	case BlendContainer, RandomContainer, SequenceContainer, SwitchContainer:
		return true
	}
	return false
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	parsed, ok := ParseType(string(text))
	if !ok {
		return fmt.Errorf("unknown object type %q", string(text))
	}
	*t = parsed
	return nil
}

// ParseType resolves a readable tag ("Random Container") or a WAAPI type name
// ("ActorMixer"). Matching ignores case. Ambiguous WAAPI names resolve to
// their default variant (Sound to SoundSFX, RandomSequenceContainer to
// RandomContainer).
func ParseType(name string) (Type, bool) {
	trimmed := strings.TrimSpace(name)
	if strings.EqualFold(trimmed, "Unknown") || trimmed == "" {
		return Unknown, trimmed != ""
	}
	for _, t := range allTypes {
		if strings.EqualFold(readableNames[t], trimmed) {
			return t, true
		}
	}
	for _, t := range allTypes {
		if strings.EqualFold(waapiNames[t], trimmed) {
			return t, true
		}
	}
	return Unknown, false
}

// FromWAAPI maps an object.get result onto a Type using the
// @RandomOrSequence and @IsVoice properties to split shared WAAPI names.
func FromWAAPI(typeName string, randomOrSequence int, isVoice bool) Type {
	switch typeName {
	case "Sound":
		if isVoice {
			return SoundVoice
		}
		return SoundSFX
	case "RandomSequenceContainer":
		if randomOrSequence == 0 {
			return SequenceContainer
		}
		return RandomContainer
	}
	for _, t := range allTypes {
		if waapiNames[t] == typeName {
			return t
		}
	}
	return Unknown
}

// LookupType resolves name like ParseType and, when nothing matches exactly,
// returns the closest readable names as suggestions.
func LookupType(name string) (Type, []string) {
	if t, ok := ParseType(name); ok {
		return t, nil
	}
	candidates := make([]string, 0, len(allTypes))
	for _, t := range allTypes {
		candidates = append(candidates, readableNames[t])
	}
	matches := fuzzy.Find(strings.TrimSpace(name), candidates)
	suggestions := make([]string, 0, len(matches))
	for _, m := range matches {
		suggestions = append(suggestions, m.Str)
		if len(suggestions) == 3 {
			break
		}
	}
	return Unknown, suggestions
}

// Status is the predicted or observed outcome for one object.
type Status int

const (
	StatusNew Status = iota
	StatusReplaced
	StatusNoChange
	StatusRenamed
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusReplaced:
		return "Replaced"
	case StatusNoChange:
		return "No Change"
	case StatusRenamed:
		return "Renamed"
	default:
		return "Unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{StatusNew, StatusReplaced, StatusNoChange, StatusRenamed} {
		if strings.EqualFold(candidate.String(), string(text)) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(text))
}

// WavStatus describes whether an import writes a new file under the originals
// directory or overwrites an existing one.
type WavStatus int

const (
	WavUnknown WavStatus = iota
	WavNew
	WavReplaced
)

func (s WavStatus) String() string {
	switch s {
	case WavNew:
		return "New"
	case WavReplaced:
		return "Replaced"
	default:
		return "Unknown"
	}
}

func (s WavStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *WavStatus) UnmarshalText(text []byte) error {
	for _, candidate := range []WavStatus{WavUnknown, WavNew, WavReplaced} {
		if strings.EqualFold(candidate.String(), string(text)) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown wav status %q", string(text))
}
