package waapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"reawwise/internal/services"
	"reawwise/internal/wamp"
	"reawwise/internal/wwise"
)

// Object is a remote object snapshot.
type Object struct {
	ID              string
	Name            string
	Path            string
	Type            wwise.Type
	OriginalWavPath string
}

// ObjectReturn is the return list requested from object.get and audio.import.
var ObjectReturn = []any{"id", "name", "type", "path", "sound:originalWavFilePath", "@RandomOrSequence", "@IsVoice"}

// ParseObject reads one entry of a "return" or "objects" array.
func ParseObject(m map[string]any) Object {
	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	ros, _ := wamp.ToInt64(m["@RandomOrSequence"])
	isVoice, _ := m["@IsVoice"].(bool)
	return Object{
		ID:              str("id"),
		Name:            str("name"),
		Path:            str("path"),
		Type:            wwise.FromWAAPI(str("type"), int(ros), isVoice),
		OriginalWavPath: str("sound:originalWavFilePath"),
	}
}

// ParseObjects reads result[key] as a list of objects.
func ParseObjects(result map[string]any, key string) []Object {
	raw, _ := result[key].([]any)
	out := make([]Object, 0, len(raw))
	for _, entry := range raw {
		if m := wamp.ToDict(entry); m != nil {
			out = append(out, ParseObject(m))
		}
	}
	return out
}

// GetObjects runs ak.wwise.core.object.get with the standard return list.
func GetObjects(ctx context.Context, c Caller, args map[string]any) ([]Object, error) {
	result, err := c.Call(ctx, ProcObjectGet, args, map[string]any{"return": ObjectReturn})
	if err != nil {
		return nil, err
	}
	return ParseObjects(result, "return"), nil
}

// GetObject looks up a single object by path. A missing object is reported
// as found=false with a nil error.
func GetObject(ctx context.Context, c Caller, path string) (Object, bool, error) {
	objects, err := GetObjects(ctx, c, map[string]any{"from": map[string]any{"path": []any{wwise.StripTypeTags(path)}}})
	if err != nil {
		if IsUnknownObject(err) {
			return Object{}, false, nil
		}
		return Object{}, false, err
	}
	if len(objects) == 0 {
		return Object{}, false, nil
	}
	return objects[0], true, nil
}

// WAQLLineage builds the query returning path, its ancestors and its
// descendants.
func WAQLLineage(path string) string {
	return fmt.Sprintf(`$ "%s" select this, ancestors, descendants`, strings.ReplaceAll(path, `"`, `\"`))
}

// FetchLineage returns the objects on the line through path: the object
// itself, its ancestors and its descendants, deduplicated by (path, id) and
// sorted by path. When path does not exist yet the query is retried against
// successively higher ancestors. The second return value is the path that
// answered, or "" when none did.
func FetchLineage(ctx context.Context, c Caller, path string, useWAQL bool) ([]Object, string, error) {
	candidate := wwise.StripTypeTags(path)
	var lastErr error
	for candidate != "" {
		var (
			objects []Object
			err     error
		)
		if useWAQL {
			objects, err = GetObjects(ctx, c, map[string]any{"waql": WAQLLineage(candidate)})
			var callErr *CallError
			if err != nil && errors.As(err, &callErr) && callErr.URI == ErrURIInvalidQuery {
				useWAQL = false
				continue
			}
		} else {
			objects, err = legacyLineage(ctx, c, candidate)
		}
		if err == nil {
			return dedupeObjects(objects), candidate, nil
		}
		if !errors.Is(err, services.ErrRemoteCall) {
			return nil, "", err
		}
		lastErr = err
		candidate = wwise.ParentPath(candidate)
	}
	if lastErr == nil {
		lastErr = services.Wrap(services.ErrNotFound, "waapi", "lineage", "no ancestor of "+path+" exists", nil)
	}
	return nil, "", lastErr
}

// legacyLineage issues the three collection queries concurrently.
func legacyLineage(ctx context.Context, c Caller, path string) ([]Object, error) {
	from := map[string]any{"path": []any{path}}
	queries := []map[string]any{
		{"from": from},
		{"from": from, "transform": []any{map[string]any{"select": []any{"ancestors"}}}},
		{"from": from, "transform": []any{map[string]any{"select": []any{"descendants"}}}},
	}

	var (
		mu  sync.Mutex
		all []Object
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, q := range queries {
		g.Go(func() error {
			objects, err := GetObjects(gctx, c, q)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, objects...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

func dedupeObjects(objects []Object) []Object {
	type key struct{ path, id string }
	seen := make(map[key]struct{}, len(objects))
	out := make([]Object, 0, len(objects))
	for _, o := range objects {
		k := key{o.Path, o.ID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
