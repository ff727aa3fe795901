package preview

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync"

	"github.com/zeebo/blake3"

	"reawwise/internal/logging"
	"reawwise/internal/mapping"
	"reawwise/internal/waapi"
	"reawwise/internal/workstation"
	"reawwise/internal/wwise"
)

// Trigger names why a preview must be recomputed.
type Trigger string

const (
	TriggerDestination Trigger = "destination"
	TriggerMapping     Trigger = "mapping"
	TriggerSubfolder   Trigger = "subfolder"
	TriggerPolicy      Trigger = "policy"
	TriggerConnection  Trigger = "connection"
	TriggerSession     Trigger = "session"
	TriggerObjects     Trigger = "objects"
)

// Request is the input of one preview run.
type Request struct {
	Destination    string
	Nodes          []mapping.Node
	Items          []workstation.PreviewItem
	ConflictPolicy mapping.ConflictPolicy
	// OriginalsDir is the project's originals root; empty leaves WAV status
	// unknown.
	OriginalsDir string
	UseWAQL      bool
}

// Result is one computed preview.
type Result struct {
	Tree *Tree
	Hash string
	// Cached is set when the run short-circuited on an unchanged hash.
	Cached bool
	// Existing counts remote objects fetched around the destination.
	Existing int
	// AnsweredPath is the path the lineage query succeeded for.
	AnsweredPath string
}

// Engine computes previews and remembers the last one.
type Engine struct {
	logger          *slog.Logger
	defaultLanguage string

	mu       sync.Mutex
	stale    bool
	staleSeq uint64
	last     *Result
}

// NewEngine returns an engine. defaultLanguage is used for non-voice
// mappings when predicting originals paths.
func NewEngine(defaultLanguage string, logger *slog.Logger) *Engine {
	return &Engine{
		logger:          logging.NewComponentLogger(logger, "preview"),
		defaultLanguage: defaultLanguage,
		stale:           true,
	}
}

// MarkStale forces the next Run to recompute.
func (e *Engine) MarkStale(trigger Trigger) {
	e.mu.Lock()
	e.stale = true
	e.staleSeq++
	e.mu.Unlock()
	e.logger.Debug("preview marked stale", logging.String("trigger", string(trigger)))
}

// Hash digests the items: audio path, originals subfolder and case-folded
// object path of each.
func Hash(items []workstation.PreviewItem) string {
	h := blake3.New()
	for _, item := range items {
		_, _ = h.WriteString(item.RenderFile)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(item.OriginalsSubfolder)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(strings.ToLower(item.Path))
		_, _ = h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Run computes the preview for req.
func (e *Engine) Run(ctx context.Context, caller waapi.Caller, req Request) (Result, error) {
	hash := Hash(req.Items)

	e.mu.Lock()
	if !e.stale && e.last != nil && e.last.Hash == hash {
		cached := *e.last
		e.mu.Unlock()
		cached.Cached = true
		return cached, nil
	}
	startSeq := e.staleSeq
	e.mu.Unlock()

	tree := Build(req.Destination, req.Nodes, req.Items)
	result := Result{Tree: tree, Hash: hash}

	if len(req.Items) > 0 {
		objects, answered, err := waapi.FetchLineage(ctx, caller, req.Destination, req.UseWAQL)
		if err != nil {
			return Result{}, err
		}
		result.Existing = len(objects)
		result.AnsweredPath = answered
		Reconcile(tree, objects, req.ConflictPolicy)
		language := mapping.Language(req.Nodes, e.defaultLanguage)
		ApplyWavStatus(tree, req.Items, req.OriginalsDir, language, mapping.IsVoice(req.Nodes))
	}

	e.mu.Lock()
	if e.staleSeq == startSeq {
		e.stale = false
		stored := result
		e.last = &stored
	}
	e.mu.Unlock()

	counts := tree.Counts()
	e.logger.Debug("preview computed",
		logging.Int("items", len(req.Items)),
		logging.Int("nodes", tree.Len()),
		logging.Int("existing", result.Existing),
		logging.Int("new", counts[wwise.StatusNew]),
	)
	return result, nil
}

// Build inserts every item path and its ancestors into a fresh tree. A
// segment below the destination whose name is empty while its mapping node
// holds a wildcard is flagged unresolved.
func Build(destination string, nodes []mapping.Node, items []workstation.PreviewItem) *Tree {
	tree := newTree()
	base := len(wwise.PathParts(destination))
	for _, item := range items {
		parts := wwise.PathParts(item.Path)
		leaf := tree.insert(item.Path, func(i int) bool {
			_, name := wwise.SplitSegment(parts[i])
			depth := i - base
			if name != "" || depth < 0 || depth >= len(nodes) {
				return false
			}
			return mapping.HasWildcard(nodes[depth].Name)
		})
		if leaf != nil {
			leaf.RenderFile = item.RenderFile
		}
	}
	return tree
}

// Reconcile overwrites predicted statuses for nodes that already exist. A
// leaf sound follows the conflict policy; anything else found is No Change.
func Reconcile(tree *Tree, existing []waapi.Object, policy mapping.ConflictPolicy) {
	for _, obj := range existing {
		node, ok := tree.Find(obj.Path)
		if !ok {
			continue
		}
		node.Existing = true
		node.ID = obj.ID
		if node.Type == wwise.Unknown {
			node.Type = obj.Type
		}
		if node.IsLeaf() && node.Type.IsSound() {
			switch policy {
			case mapping.Replace:
				node.Status = wwise.StatusReplaced
			case mapping.CreateNew:
				node.Status = wwise.StatusRenamed
			default:
				node.Status = wwise.StatusNoChange
			}
			continue
		}
		node.Status = wwise.StatusNoChange
	}
}

// ApplyWavStatus predicts each leaf's originals path and whether a file
// already exists there.
func ApplyWavStatus(tree *Tree, items []workstation.PreviewItem, originalsDir, language string, voice bool) {
	for _, item := range items {
		node, ok := tree.Find(item.Path)
		if !ok {
			continue
		}
		node.OriginalsPath = wwise.OriginalsPath(originalsDir, item.OriginalsSubfolder, item.RenderFile, language, voice)
		node.WavStatus = wwise.CheckOriginal(node.OriginalsPath)
	}
}
