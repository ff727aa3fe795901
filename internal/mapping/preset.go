package mapping

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"reawwise/internal/wwise"
)

// Preset is a named, shareable mapping stored as YAML.
type Preset struct {
	Name  string       `yaml:"name"`
	Nodes []PresetNode `yaml:"nodes"`
}

// PresetNode uses the readable type tag so presets stay hand-editable.
type PresetNode struct {
	Type     string          `yaml:"type"`
	Name     string          `yaml:"name"`
	Template *PresetTemplate `yaml:"template,omitempty"`
	Language string          `yaml:"language,omitempty"`
}

type PresetTemplate struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// NewPreset converts nodes into their YAML form.
func NewPreset(name string, nodes []Node) Preset {
	p := Preset{Name: name, Nodes: make([]PresetNode, 0, len(nodes))}
	for _, n := range nodes {
		pn := PresetNode{Type: n.Type.ReadableName(), Name: n.Name, Language: n.Language}
		if n.TemplatePath != "" {
			pn.Template = &PresetTemplate{Path: n.TemplatePath, Enabled: n.TemplateEnabled}
		}
		p.Nodes = append(p.Nodes, pn)
	}
	return p
}

// MappingNodes converts the preset back into nodes, resolving type names.
func (p Preset) MappingNodes() ([]Node, error) {
	nodes := make([]Node, 0, len(p.Nodes))
	for i, pn := range p.Nodes {
		typ, suggestions := wwise.LookupType(pn.Type)
		if typ == wwise.Unknown {
			msg := fmt.Sprintf("preset node %d: unknown type %q", i, pn.Type)
			if len(suggestions) > 0 {
				msg += " (did you mean " + strings.Join(suggestions, ", ") + "?)"
			}
			return nil, errors.New(msg)
		}
		n := Node{Type: typ, Name: pn.Name, Language: pn.Language}
		if pn.Template != nil {
			n.TemplatePath = pn.Template.Path
			n.TemplateEnabled = pn.Template.Enabled
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// WritePreset encodes p as YAML.
func WritePreset(w io.Writer, p Preset) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}
	return enc.Close()
}

// ReadPreset decodes a YAML preset.
func ReadPreset(r io.Reader) (Preset, error) {
	var p Preset
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		return Preset{}, fmt.Errorf("decode preset: %w", err)
	}
	return p, nil
}
