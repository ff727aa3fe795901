package wwise

import (
	"strings"

	"golang.org/x/text/cases"
)

const (
	// Separator delimits path segments.
	Separator = `\`

	ActorMixerHierarchyRoot = `\Actor-Mixer Hierarchy`
	ContainersRoot          = `\Containers`
)

// PathParts splits an absolute object path into its segments. Segments keep
// their type tags. A path that does not start with the separator yields nil.
func PathParts(path string) []string {
	if !strings.HasPrefix(path, Separator) || len(path) == 1 {
		return nil
	}
	return strings.Split(path[1:], Separator)
}

// JoinParts is the inverse of PathParts.
func JoinParts(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return Separator + strings.Join(parts, Separator)
}

// AncestorPaths returns the proper, non-empty prefixes of path ordered from
// the root down. The path itself is excluded.
func AncestorPaths(path string) []string {
	parts := PathParts(path)
	if len(parts) < 2 {
		return nil
	}
	ancestors := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		ancestors = append(ancestors, JoinParts(parts[:i]))
	}
	return ancestors
}

// ParentPath returns the immediate ancestor, or "" for a root or malformed path.
func ParentPath(path string) string {
	idx := strings.LastIndex(path, Separator)
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}

// SplitSegment separates an optional "<Tag>" prefix from the segment name.
func SplitSegment(segment string) (tag, name string) {
	if strings.HasPrefix(segment, "<") {
		if end := strings.Index(segment, ">"); end > 0 {
			return segment[1:end], segment[end+1:]
		}
	}
	return "", segment
}

// lastSegment returns what follows the final separator, or the whole input
// when it is a bare segment such as "<Sound SFX>kick".
func lastSegment(path string) string {
	return path[strings.LastIndex(path, Separator)+1:]
}

// ObjectName returns the name of the final segment without its type tag.
func ObjectName(path string) string {
	_, name := SplitSegment(lastSegment(path))
	return name
}

// ObjectType returns the type tagged on the final segment. The two hierarchy
// roots are physical folders regardless of tag.
func ObjectType(path string) Type {
	if path == ActorMixerHierarchyRoot || path == ContainersRoot {
		return PhysicalFolder
	}
	tag, _ := SplitSegment(lastSegment(path))
	if tag == "" {
		return Unknown
	}
	for _, t := range allTypes {
		if readableNames[t] == tag {
			return t
		}
	}
	return Unknown
}

// BuildObjectPathNode formats a single "<Readable Type>Name" segment.
func BuildObjectPathNode(t Type, name string) string {
	readable := t.ReadableName()
	if readable == "" {
		return name
	}
	return "<" + readable + ">" + name
}

// IsPathComplete reports whether every segment carries a resolved name. An
// empty segment, a tag followed by nothing, or a trailing separator marks an
// unresolved wildcard.
func IsPathComplete(path string) bool {
	if path == "" {
		return false
	}
	for _, bad := range []string{Separator + Separator, ">" + Separator, "><", Separator + ">"} {
		if strings.Contains(path, bad) {
			return false
		}
	}
	return !strings.HasSuffix(path, Separator) && !strings.HasSuffix(path, ">")
}

// CommonAncestor returns the longest shared prefix of whole segments.
// Inputs are expected in canonical sort order.
func CommonAncestor(a, b string) string {
	pa, pb := PathParts(a), PathParts(b)
	n := 0
	for n < len(pa) && n < len(pb) && pa[n] == pb[n] {
		n++
	}
	return JoinParts(pa[:n])
}

// StripTypeTags removes "<Tag>" prefixes from every segment, yielding the
// form reported by WAAPI.
func StripTypeTags(path string) string {
	parts := PathParts(path)
	if parts == nil {
		return path
	}
	for i, part := range parts {
		_, parts[i] = SplitSegment(part)
	}
	return JoinParts(parts)
}

// FoldPath returns the case-folded, tag-free identity of path. Wwise object
// names are case-insensitive.
func FoldPath(path string) string {
	return cases.Fold().String(StripTypeTags(path))
}

// EqualFold reports whether two paths address the same object.
func EqualFold(a, b string) bool {
	return FoldPath(a) == FoldPath(b)
}

// IsDescendant reports whether path lies strictly below ancestor.
func IsDescendant(path, ancestor string) bool {
	fp, fa := FoldPath(path), FoldPath(ancestor)
	return len(fp) > len(fa) && strings.HasPrefix(fp, fa) && fp[len(fa):len(fa)+1] == Separator
}
