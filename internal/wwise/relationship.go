package wwise

var sounds = []Type{SoundSFX, SoundVoice}

var containers = []Type{BlendContainer, RandomContainer, SequenceContainer, SwitchContainer}

func childSet(groups ...[]Type) map[Type]struct{} {
	set := make(map[Type]struct{})
	for _, group := range groups {
		for _, t := range group {
			set[t] = struct{}{}
		}
	}
	return set
}

var allowedChildren = map[Type]map[Type]struct{}{
	PhysicalFolder:    childSet([]Type{PhysicalFolder, WorkUnit}),
	WorkUnit:          childSet([]Type{Folder, ActorMixer}, containers, sounds),
	Folder:            childSet([]Type{Folder, ActorMixer}, containers, sounds),
	ActorMixer:        childSet([]Type{ActorMixer}, containers, sounds),
	BlendContainer:    childSet(containers, sounds),
	RandomContainer:   childSet(containers, sounds),
	SequenceContainer: childSet(containers, sounds),
	SwitchContainer:   childSet(containers, sounds),
	SoundSFX:          childSet([]Type{AudioFileSource}),
	SoundVoice:        childSet([]Type{AudioFileSource}),
}

// ValidateParentChild reports whether an object of type child may be created
// directly under an object of type parent.
func ValidateParentChild(parent, child Type) bool {
	allowed, ok := allowedChildren[parent]
	if !ok {
		return false
	}
	_, ok = allowed[child]
	return ok
}
