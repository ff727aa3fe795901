package mapping

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"reawwise/internal/wwise"
)

var (
	stateEncMode cbor.EncMode
	stateDecMode cbor.DecMode
)

func init() {
	var err error
	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	if stateEncMode, err = encOptions.EncMode(); err != nil {
		panic("mapping: CBOR encoder initialization failed: " + err.Error())
	}
	stateDecMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("mapping: CBOR decoder initialization failed: " + err.Error())
	}
}

// StateNode is the persisted form of Node without transient validity flags.
type StateNode struct {
	Type            wwise.Type `cbor:"type"`
	Name            string     `cbor:"name"`
	TemplatePath    string     `cbor:"template_path,omitempty"`
	TemplateEnabled bool       `cbor:"template_enabled,omitempty"`
	Language        string     `cbor:"language,omitempty"`
}

// ProjectState is everything a workstation session remembers about its
// Wwise transfer setup.
type ProjectState struct {
	Version            int            `cbor:"version"`
	Destination        string         `cbor:"destination"`
	OriginalsSubfolder string         `cbor:"originals_subfolder,omitempty"`
	ConflictPolicy     ConflictPolicy `cbor:"conflict_policy"`
	TemplatePolicy     TemplatePolicy `cbor:"template_policy"`
	Nodes              []StateNode    `cbor:"nodes"`
}

const stateVersion = 1

// NewProjectState captures the persisted subset of a session's settings.
func NewProjectState(destination, subfolder string, conflict ConflictPolicy, template TemplatePolicy, nodes []Node) ProjectState {
	state := ProjectState{
		Version:            stateVersion,
		Destination:        destination,
		OriginalsSubfolder: subfolder,
		ConflictPolicy:     conflict,
		TemplatePolicy:     template,
		Nodes:              make([]StateNode, 0, len(nodes)),
	}
	for _, n := range nodes {
		state.Nodes = append(state.Nodes, StateNode{
			Type:            n.Type,
			Name:            n.Name,
			TemplatePath:    n.TemplatePath,
			TemplateEnabled: n.TemplateEnabled,
			Language:        n.Language,
		})
	}
	return state
}

// MappingNodes restores nodes with TemplateValid unset; callers re-check
// templates against the remote project.
func (s ProjectState) MappingNodes() []Node {
	nodes := make([]Node, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		nodes = append(nodes, Node{
			Type:            n.Type,
			Name:            n.Name,
			TemplatePath:    n.TemplatePath,
			TemplateEnabled: n.TemplateEnabled,
			Language:        n.Language,
		})
	}
	return nodes
}

// EncodeState serializes state as deterministic CBOR.
func EncodeState(state ProjectState) ([]byte, error) {
	if state.Version == 0 {
		state.Version = stateVersion
	}
	data, err := stateEncMode.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode project state: %w", err)
	}
	return data, nil
}

// DecodeState parses a blob produced by EncodeState.
func DecodeState(data []byte) (ProjectState, error) {
	var state ProjectState
	if err := stateDecMode.Unmarshal(data, &state); err != nil {
		return ProjectState{}, fmt.Errorf("decode project state: %w", err)
	}
	if state.Version > stateVersion {
		return ProjectState{}, fmt.Errorf("decode project state: unsupported version %d", state.Version)
	}
	return state, nil
}
