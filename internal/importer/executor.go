package importer

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"reawwise/internal/logging"
	"reawwise/internal/mapping"
	"reawwise/internal/services"
	"reawwise/internal/waapi"
	"reawwise/internal/workstation"
	"reawwise/internal/wwise"
)

// DefaultUndoGroupName labels the undo entry when none is configured.
const DefaultUndoGroupName = "ReaWwise: Import"

// Request describes one transfer.
type Request struct {
	Items          []workstation.Item
	Destination    string
	Nodes          []mapping.Node
	ConflictPolicy mapping.ConflictPolicy
	TemplatePolicy mapping.TemplatePolicy
	// ApplyTemplates enables property pastes from mapping node templates.
	ApplyTemplates bool
	// OriginalsDir is the project's originals root; empty disables WAV
	// replacement detection.
	OriginalsDir string
	// SelectionChannel is the project explorer channel to reveal the
	// imported objects in. Zero disables selection.
	SelectionChannel       int
	Capabilities           waapi.Capabilities
	UndoGroupName          string
	DefaultLanguage        string
	Embed                  bool
	AutoAddToSourceControl bool
}

// Executor runs imports.
type Executor struct {
	logger *slog.Logger
}

// New returns an executor.
func New(logger *slog.Logger) *Executor {
	return &Executor{logger: logging.NewComponentLogger(logger, "importer")}
}

// Execute performs req through c. The returned error is non-nil only when
// the lineage snapshot or the import call fails; later failures are
// recorded on the summary.
func (x *Executor) Execute(ctx context.Context, c waapi.Caller, req Request) (*Summary, error) {
	logger := logging.WithContext(ctx, x.logger)
	summary := newSummary()

	items := make([]workstation.Item, 0, len(req.Items))
	for _, item := range req.Items {
		if !wwise.IsPathComplete(item.Path) {
			logging.WarnWithContext(logger, "skipping item with unresolved path", "import_item_incomplete",
				logging.ObjectPath(item.Path),
				logging.String("audio_file", item.AudioFile),
				logging.String(logging.FieldErrorHint, "check the wildcards of the hierarchy mapping"),
				logging.String(logging.FieldImpact, "item is not imported"),
			)
			summary.Skipped = append(summary.Skipped, item.Path)
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		logger.Info("nothing to import", logging.Int("skipped", len(summary.Skipped)))
		return summary, nil
	}

	logger.Info("starting import",
		logging.Int("items", len(items)),
		logging.String("destination", req.Destination),
		logging.String("conflict_policy", req.ConflictPolicy.String()),
	)

	existing, answered, err := waapi.FetchLineage(ctx, c, req.Destination, req.Capabilities.WAQL)
	if err != nil {
		return summary, services.Wrap(services.ErrRemoteCall, "importer", "snapshot", "read destination lineage", err)
	}
	snapshot := make(map[string]waapi.Object, len(existing))
	for _, obj := range existing {
		if req.ConflictPolicy == mapping.CreateNew && obj.Type.IsSound() {
			continue
		}
		key := wwise.FoldPath(obj.Path)
		snapshot[key] = obj
		summary.Entries[key] = &Entry{Path: obj.Path, Type: obj.Type, Status: wwise.StatusNoChange, ID: obj.ID}
	}
	logger.Debug("lineage snapshot", logging.Int("objects", len(snapshot)), logging.String("answered", answered))

	language := mapping.Language(req.Nodes, req.DefaultLanguage)
	voice := mapping.IsVoice(req.Nodes)
	wav := predictOriginals(items, req.OriginalsDir, language, voice)

	undoOpen := false
	if req.Capabilities.UndoGroups {
		if err := waapi.BeginUndoGroup(ctx, c); err != nil {
			summary.recordError(waapi.ProcUndoBeginGroup, err)
		} else {
			undoOpen = true
		}
	}

	imported, err := waapi.Import(ctx, c, importRequest(req, items, language))
	if err != nil {
		summary.recordError(waapi.ProcAudioImport, err)
		if undoOpen {
			if cancelErr := waapi.CancelUndoGroup(ctx, c); cancelErr != nil {
				summary.recordError(waapi.ProcUndoCancelGroup, cancelErr)
			}
		}
		logging.ErrorWithContext(logger, "import call failed", "import_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the audio files and the destination in the authoring tool"),
			logging.String(logging.FieldImpact, "nothing was imported"),
		)
		return summary, services.Wrap(services.ErrRemoteCall, "importer", "import", "audio import failed", err)
	}
	summary.FilesTransferred = len(items)
	x.reconcile(summary, snapshot, imported, wav)

	if req.ApplyTemplates && req.Capabilities.PasteProperties {
		applyTemplates(ctx, c, summary, req, imported)
	}

	if len(imported) > 0 && req.SelectionChannel > 0 {
		paths := make([]string, 0, len(imported))
		for _, obj := range imported {
			paths = append(paths, obj.Path)
		}
		sort.Strings(paths)
		if ancestor := wwise.CommonAncestor(paths[0], paths[len(paths)-1]); ancestor != "" {
			if err := waapi.SelectInProjectExplorer(ctx, c, req.SelectionChannel, []string{ancestor}); err != nil {
				summary.recordError(waapi.ProcCommandsExecute, err)
			} else {
				summary.Selected = ancestor
			}
		}
	}

	if undoOpen {
		name := req.UndoGroupName
		if strings.TrimSpace(name) == "" {
			name = DefaultUndoGroupName
		}
		if err := waapi.EndUndoGroup(ctx, c, name); err != nil {
			summary.recordError(waapi.ProcUndoEndGroup, err)
		}
	}

	logger.Info("import finished",
		logging.Int("objects_created", summary.ObjectsCreated),
		logging.Int("objects_replaced", summary.ObjectsReplaced),
		logging.Int("templates_applied", summary.TemplatesApplied),
		logging.Int("files_transferred", summary.FilesTransferred),
		logging.Int("errors", len(summary.Errors)),
	)
	return summary, nil
}

func importRequest(req Request, items []workstation.Item, language string) waapi.ImportRequest {
	out := waapi.ImportRequest{
		Operation:              req.ConflictPolicy.ImportOperation(),
		Language:               language,
		AutoAddToSourceControl: req.AutoAddToSourceControl,
		Items:                  make([]waapi.ImportItem, 0, len(items)),
	}
	for _, item := range items {
		out.Items = append(out.Items, waapi.ImportItem{
			AudioFile:          item.AudioFile,
			ObjectPath:         item.Path,
			OriginalsSubFolder: item.OriginalsSubfolder,
			Embed:              req.Embed,
		})
	}
	return out
}

// wavPrediction holds the pre-import originals state, keyed both by
// folded object path and by predicted file path.
type wavPrediction struct {
	byObject map[string]wwise.WavStatus
	byFile   map[string]wwise.WavStatus
}

func predictOriginals(items []workstation.Item, root, language string, voice bool) wavPrediction {
	p := wavPrediction{byObject: map[string]wwise.WavStatus{}, byFile: map[string]wwise.WavStatus{}}
	if strings.TrimSpace(root) == "" {
		return p
	}
	for _, item := range items {
		path := wwise.OriginalsPath(root, item.OriginalsSubfolder, item.AudioFile, language, voice)
		status := wwise.CheckOriginal(path)
		p.byObject[wwise.FoldPath(item.Path)] = status
		p.byFile[filepath.Clean(path)] = status
	}
	return p
}

func (p wavPrediction) lookup(obj waapi.Object) wwise.WavStatus {
	key := wwise.FoldPath(obj.Path)
	if obj.Type == wwise.AudioFileSource {
		key = wwise.FoldPath(wwise.ParentPath(obj.Path))
	}
	if s, ok := p.byObject[key]; ok {
		return s
	}
	if obj.OriginalWavPath != "" {
		if s, ok := p.byFile[filepath.Clean(obj.OriginalWavPath)]; ok {
			return s
		}
	}
	return wwise.WavUnknown
}

// reconcile classifies each imported object: a path absent from the
// snapshot is New, a path present with another id is Replaced.
func (x *Executor) reconcile(summary *Summary, snapshot map[string]waapi.Object, imported []waapi.Object, wav wavPrediction) {
	for _, obj := range imported {
		key := wwise.FoldPath(obj.Path)
		entry, ok := summary.Entries[key]
		if !ok {
			entry = &Entry{Path: obj.Path}
			summary.Entries[key] = entry
		}
		entry.Imported = true
		entry.Type = obj.Type
		prior, seen := snapshot[key]
		switch {
		case !seen:
			entry.Status = wwise.StatusNew
			summary.ObjectsCreated++
		case prior.ID != obj.ID:
			entry.Status = wwise.StatusReplaced
			summary.ObjectsReplaced++
		default:
			entry.Status = wwise.StatusNoChange
		}
		entry.ID = obj.ID
		if obj.Type.IsSound() || obj.Type == wwise.AudioFileSource {
			entry.WavStatus = wav.lookup(obj)
		}
	}
}
