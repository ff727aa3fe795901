package preview

import (
	"sort"

	"reawwise/internal/wwise"
)

// Node is one predicted object.
type Node struct {
	// Path is the tagged path as resolved from the mapping.
	Path      string
	Name      string
	Type      wwise.Type
	Status    wwise.Status
	WavStatus wwise.WavStatus
	// Unresolved marks a segment whose wildcard expanded to nothing.
	Unresolved bool
	// Existing is set when the object was found remotely.
	Existing bool
	ID       string
	// RenderFile and OriginalsPath are set on leaves.
	RenderFile    string
	OriginalsPath string
	Children      []*Node
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Tree holds the predicted hierarchy rooted at the top-level hierarchy
// folder.
type Tree struct {
	Roots []*Node
	index map[string]*Node
}

func newTree() *Tree {
	return &Tree{index: make(map[string]*Node)}
}

// Find returns the node at path. Type tags and case are ignored.
func (t *Tree) Find(path string) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.index[wwise.FoldPath(path)]
	return n, ok
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.index)
}

// insert adds path and its missing ancestors. unresolved reports whether
// the segment at index i is an unresolved wildcard.
func (t *Tree) insert(path string, unresolved func(i int) bool) *Node {
	parts := wwise.PathParts(path)
	var parent *Node
	for i := range parts {
		prefix := wwise.JoinParts(parts[:i+1])
		key := wwise.FoldPath(prefix)
		node, ok := t.index[key]
		if !ok {
			node = &Node{
				Path:       prefix,
				Name:       wwise.ObjectName(prefix),
				Type:       wwise.ObjectType(prefix),
				Status:     wwise.StatusNew,
				Unresolved: unresolved(i),
			}
			t.index[key] = node
			if parent == nil {
				t.Roots = append(t.Roots, node)
			} else {
				parent.Children = append(parent.Children, node)
			}
		}
		parent = node
	}
	return parent
}

// Walk visits nodes depth first with children sorted by name.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	if t == nil {
		return
	}
	var visit func(nodes []*Node, depth int)
	visit = func(nodes []*Node, depth int) {
		sorted := append([]*Node(nil), nodes...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return wwise.FoldPath(sorted[i].Path) < wwise.FoldPath(sorted[j].Path)
		})
		for _, n := range sorted {
			fn(n, depth)
			visit(n.Children, depth+1)
		}
	}
	visit(t.Roots, 0)
}

// Counts tallies node statuses.
func (t *Tree) Counts() map[wwise.Status]int {
	counts := make(map[wwise.Status]int)
	t.Walk(func(n *Node, _ int) { counts[n.Status]++ })
	return counts
}

// Leaves returns the leaf nodes in walk order.
func (t *Tree) Leaves() []*Node {
	var out []*Node
	t.Walk(func(n *Node, _ int) {
		if n.IsLeaf() {
			out = append(out, n)
		}
	})
	return out
}

// Row is a flattened node for tables and wire transfer.
type Row struct {
	Path       string          `json:"path"`
	Name       string          `json:"name"`
	Depth      int             `json:"depth"`
	Type       wwise.Type      `json:"type"`
	Status     wwise.Status    `json:"status"`
	WavStatus  wwise.WavStatus `json:"wav_status,omitempty"`
	Unresolved bool            `json:"unresolved,omitempty"`
	RenderFile string          `json:"render_file,omitempty"`
}

// Rows flattens the tree in walk order. WavStatus is only set on leaves.
func (t *Tree) Rows() []Row {
	var rows []Row
	t.Walk(func(n *Node, depth int) {
		row := Row{
			Path:       n.Path,
			Name:       n.Name,
			Depth:      depth,
			Type:       n.Type,
			Status:     n.Status,
			Unresolved: n.Unresolved,
			RenderFile: n.RenderFile,
		}
		if n.IsLeaf() {
			row.WavStatus = n.WavStatus
		}
		rows = append(rows, row)
	})
	return rows
}
