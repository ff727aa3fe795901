package mapping

import (
	"fmt"
	"strings"
)

// ConflictPolicy governs a name collision at a leaf sound.
type ConflictPolicy int

const (
	UseExisting ConflictPolicy = iota
	CreateNew
	Replace
)

// ImportOperation returns the WAAPI importOperation value.
func (p ConflictPolicy) ImportOperation() string {
	switch p {
	case CreateNew:
		return "createNew"
	case Replace:
		return "replaceExisting"
	default:
		return "useExisting"
	}
}

func (p ConflictPolicy) String() string {
	switch p {
	case CreateNew:
		return "create_new"
	case Replace:
		return "replace"
	default:
		return "use_existing"
	}
}

func (p ConflictPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *ConflictPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseConflictPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseConflictPolicy accepts config spellings and WAAPI importOperation names.
func ParseConflictPolicy(value string) (ConflictPolicy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_") {
	case "use_existing", "useexisting", "":
		return UseExisting, nil
	case "create_new", "createnew":
		return CreateNew, nil
	case "replace", "replace_existing", "replaceexisting":
		return Replace, nil
	}
	return UseExisting, fmt.Errorf("unknown conflict policy %q", value)
}

// TemplatePolicy selects which imported objects receive property templates.
type TemplatePolicy int

const (
	TemplateNewOnly TemplatePolicy = iota
	TemplateAll
)

func (p TemplatePolicy) String() string {
	if p == TemplateAll {
		return "all"
	}
	return "new_only"
}

func (p TemplatePolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *TemplatePolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseTemplatePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseTemplatePolicy accepts "new_only" and "all".
func ParseTemplatePolicy(value string) (TemplatePolicy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_") {
	case "new_only", "new", "":
		return TemplateNewOnly, nil
	case "all":
		return TemplateAll, nil
	}
	return TemplateNewOnly, fmt.Errorf("unknown template policy %q", value)
}
