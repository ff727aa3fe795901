package importer

import (
	"errors"
	"sort"

	"reawwise/internal/waapi"
	"reawwise/internal/wwise"
)

// Entry is the outcome for one object.
type Entry struct {
	Path         string          `json:"path"`
	Type         wwise.Type      `json:"type"`
	Status       wwise.Status    `json:"status"`
	WavStatus    wwise.WavStatus `json:"wav_status"`
	ID           string          `json:"id"`
	TemplatePath string          `json:"template_path,omitempty"`
	// Imported is set for objects reported by the import call.
	Imported bool `json:"imported"`
}

// Error is a remote failure recorded during a run.
type Error struct {
	Procedure string         `json:"procedure"`
	Message   string         `json:"message"`
	URI       string         `json:"uri,omitempty"`
	Raw       map[string]any `json:"raw,omitempty"`
}

// TemplateResult is the paste outcome for one target.
type TemplateResult struct {
	Source string `json:"source"`
	Target string `json:"target"`
	OK     bool   `json:"ok"`
}

// Summary reports what a run did. Counts are filled even when Errors is
// not empty.
type Summary struct {
	Entries   map[string]*Entry `json:"entries"`
	Errors    []Error           `json:"errors,omitempty"`
	Templates []TemplateResult  `json:"templates,omitempty"`
	// Skipped lists item paths left out because a segment was unresolved.
	Skipped  []string `json:"skipped,omitempty"`
	Selected string   `json:"selected,omitempty"`

	ObjectsCreated   int `json:"objects_created"`
	ObjectsReplaced  int `json:"objects_replaced"`
	TemplatesApplied int `json:"templates_applied"`
	FilesTransferred int `json:"files_transferred"`
}

func newSummary() *Summary {
	return &Summary{Entries: make(map[string]*Entry)}
}

// Entry returns the outcome recorded for path. Case and type tags are
// ignored.
func (s *Summary) Entry(path string) (*Entry, bool) {
	e, ok := s.Entries[wwise.FoldPath(path)]
	return e, ok
}

// Sorted returns the entries ordered by path.
func (s *Summary) Sorted() []Entry {
	out := make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return wwise.FoldPath(out[i].Path) < wwise.FoldPath(out[j].Path) })
	return out
}

// Count returns how many imported entries of type t have status.
func (s *Summary) Count(t wwise.Type, status wwise.Status) int {
	n := 0
	for _, e := range s.Entries {
		if e.Imported && e.Type == t && e.Status == status {
			n++
		}
	}
	return n
}

// HasErrors reports whether any remote call failed.
func (s *Summary) HasErrors() bool { return len(s.Errors) > 0 }

func (s *Summary) recordError(procedure string, err error) {
	var callErr *waapi.CallError
	if errors.As(err, &callErr) {
		s.Errors = append(s.Errors, Error{
			Procedure: procedure,
			Message:   callErr.Message,
			URI:       callErr.URI,
			Raw:       callErr.Raw,
		})
		return
	}
	s.Errors = append(s.Errors, Error{Procedure: procedure, Message: err.Error()})
}
