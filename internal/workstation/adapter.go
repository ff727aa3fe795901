package workstation

import (
	"context"
	"log/slog"
	"strings"

	"reawwise/internal/logging"
	"reawwise/internal/mapping"
	"reawwise/internal/renderstats"
)

// Adapter is the host surface consumed by the engine.
type Adapter interface {
	// RenderTargets returns the files the next render will produce.
	RenderTargets(ctx context.Context) ([]string, error)
	// ResolveRenderPattern expands pattern once per render target, in
	// target order.
	ResolveRenderPattern(ctx context.Context, pattern string) ([]string, error)
	// RenderItems renders the targets.
	RenderItems(ctx context.Context) error
	// LastRenderStats returns the "FILE:<path>;KEY:value;..." stats of the
	// most recent render.
	LastRenderStats(ctx context.Context) (string, error)
	// SessionChanged reports whether the session changed since the last call.
	SessionChanged(ctx context.Context) (bool, error)
	SessionName(ctx context.Context) (string, error)
	SaveState(ctx context.Context, blob []byte) error
	// RetrieveState returns nil when nothing was saved for the session.
	RetrieveState(ctx context.Context) ([]byte, error)
}

// Options selects what items resolve to.
type Options struct {
	Destination        string
	Nodes              []mapping.Node
	OriginalsSubfolder string
}

// PreviewItem is one predicted import.
type PreviewItem struct {
	Path               string
	OriginalsSubfolder string
	// RenderFile is the render target the path was resolved for.
	RenderFile string
}

// Item is a rendered file ready to import.
type Item struct {
	Path               string
	OriginalsSubfolder string
	AudioFile          string
}

// GetItemsForPreview resolves one PreviewItem per render target. A count
// mismatch between the resolved lists yields no items.
func GetItemsForPreview(ctx context.Context, a Adapter, opts Options, logger *slog.Logger) ([]PreviewItem, error) {
	targets, err := a.RenderTargets(ctx)
	if err != nil {
		return nil, err
	}
	paths, subfolders, err := resolve(ctx, a, opts)
	if err != nil {
		return nil, err
	}
	if !sameLength(logger, "preview", len(targets), len(paths), len(subfolders)) {
		return nil, nil
	}
	items := make([]PreviewItem, 0, len(targets))
	for i := range targets {
		items = append(items, PreviewItem{Path: paths[i], OriginalsSubfolder: subfolders[i], RenderFile: targets[i]})
	}
	return items, nil
}

// GetItemsForImport pairs the files of the last render with their resolved
// paths. Malformed render stats and count mismatches yield no items.
func GetItemsForImport(ctx context.Context, a Adapter, opts Options, logger *slog.Logger) ([]Item, error) {
	stats, err := a.LastRenderStats(ctx)
	if err != nil {
		return nil, err
	}
	files, err := renderstats.Files(stats)
	if err != nil {
		logging.WarnWithContext(logger, "render stats unreadable", "render_stats_malformed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-render the session"),
			logging.String(logging.FieldImpact, "nothing will be imported"),
		)
		return nil, nil
	}
	paths, subfolders, err := resolve(ctx, a, opts)
	if err != nil {
		return nil, err
	}
	if !sameLength(logger, "import", len(files), len(paths), len(subfolders)) {
		return nil, nil
	}
	items := make([]Item, 0, len(files))
	for i := range files {
		items = append(items, Item{Path: paths[i], OriginalsSubfolder: subfolders[i], AudioFile: files[i]})
	}
	return items, nil
}

func resolve(ctx context.Context, a Adapter, opts Options) ([]string, []string, error) {
	paths, err := a.ResolveRenderPattern(ctx, mapping.Pattern(opts.Destination, opts.Nodes))
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(opts.OriginalsSubfolder) == "" {
		return paths, make([]string, len(paths)), nil
	}
	subfolders, err := a.ResolveRenderPattern(ctx, opts.OriginalsSubfolder)
	if err != nil {
		return nil, nil, err
	}
	return paths, subfolders, nil
}

func sameLength(logger *slog.Logger, op string, files, paths, subfolders int) bool {
	if files == paths && paths == subfolders {
		return true
	}
	logging.WarnWithContext(logger, "resolved list sizes differ", "resolve_count_mismatch",
		logging.String("operation", op),
		logging.Int("files", files),
		logging.Int("paths", paths),
		logging.Int("subfolders", subfolders),
		logging.String(logging.FieldErrorHint, "check the render settings and wildcards"),
		logging.String(logging.FieldImpact, "no items are shown"),
	)
	return false
}
