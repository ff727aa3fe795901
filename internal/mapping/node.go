package mapping

import (
	"errors"
	"fmt"
	"strings"

	"reawwise/internal/wwise"
)

// Node is one level of the hierarchy mapping: the object type and name
// template to create, plus an optional property template to paste onto it.
type Node struct {
	Type            wwise.Type
	Name            string
	TemplatePath    string
	TemplateEnabled bool
	// TemplateValid is refreshed from the remote project and never persisted.
	TemplateValid bool
	// Language applies to a trailing Sound Voice node only.
	Language string
}

// HasTemplate reports whether a paste should be issued for this level.
func (n Node) HasTemplate() bool {
	return n.TemplateEnabled && n.TemplateValid && strings.TrimSpace(n.TemplatePath) != ""
}

// NodeIssue explains why a node is invalid.
type NodeIssue struct {
	Index   int
	Message string
}

// Validation is the outcome of Validate.
type Validation struct {
	Valid  bool
	Issues []NodeIssue
}

// Err joins the issues into one error, or returns nil when valid.
func (v Validation) Err() error {
	if v.Valid {
		return nil
	}
	messages := v.Messages()
	errs := make([]error, 0, len(messages))
	for _, msg := range messages {
		errs = append(errs, errors.New(msg))
	}
	return errors.Join(errs...)
}

// Messages formats each issue as "level N: message". Issues that concern
// the whole mapping carry no level.
func (v Validation) Messages() []string {
	out := make([]string, 0, len(v.Issues))
	for _, issue := range v.Issues {
		if issue.Index < 0 {
			out = append(out, issue.Message)
			continue
		}
		out = append(out, fmt.Sprintf("level %d: %s", issue.Index+1, issue.Message))
	}
	return out
}

// Validate checks that nodes form a legal chain below an object of type
// destination: the last node is a sound, every parent/child pair is allowed
// by the containment table, and every name is non-empty. The first pair is
// skipped when the destination type is Unknown.
func Validate(destination wwise.Type, nodes []Node) Validation {
	var issues []NodeIssue
	if len(nodes) == 0 {
		return Validation{Issues: []NodeIssue{{Index: -1, Message: "mapping is empty"}}}
	}
	parent := destination
	for i, node := range nodes {
		if strings.TrimSpace(node.Name) == "" {
			issues = append(issues, NodeIssue{Index: i, Message: "name is empty"})
		}
		if node.Type == wwise.Unknown {
			issues = append(issues, NodeIssue{Index: i, Message: "type is not set"})
		} else if parent != wwise.Unknown && !wwise.ValidateParentChild(parent, node.Type) {
			issues = append(issues, NodeIssue{Index: i, Message: node.Type.String() + " cannot be a child of " + parent.String()})
		}
		parent = node.Type
	}
	if last := nodes[len(nodes)-1]; !last.Type.IsSound() {
		issues = append(issues, NodeIssue{Index: len(nodes) - 1, Message: "last level must be Sound SFX or Sound Voice"})
	}
	return Validation{Valid: len(issues) == 0, Issues: issues}
}

// Pattern builds the unresolved object path for nodes below destination, e.g.
// `\Actor-Mixer Hierarchy\<Work Unit>Default Work Unit\<Sound SFX>$region`.
func Pattern(destination string, nodes []Node) string {
	var b strings.Builder
	b.WriteString(destination)
	for _, node := range nodes {
		b.WriteString(wwise.Separator)
		b.WriteString(wwise.BuildObjectPathNode(node.Type, node.Name))
	}
	return b.String()
}

// Language returns the import language: the last node's language when it is
// a voice, otherwise fallback.
func Language(nodes []Node, fallback string) string {
	if len(nodes) == 0 {
		return fallback
	}
	last := nodes[len(nodes)-1]
	if last.Type == wwise.SoundVoice && strings.TrimSpace(last.Language) != "" {
		return last.Language
	}
	return fallback
}

// IsVoice reports whether the mapping ends in a voice sound.
func IsVoice(nodes []Node) bool {
	return len(nodes) > 0 && nodes[len(nodes)-1].Type == wwise.SoundVoice
}

// StructureEqual reports whether two mappings would resolve to the same
// paths and templates. Transient validity flags are ignored.
func StructureEqual(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Type != y.Type || x.Name != y.Name || x.TemplatePath != y.TemplatePath ||
			x.TemplateEnabled != y.TemplateEnabled || x.Language != y.Language {
			return false
		}
	}
	return true
}
