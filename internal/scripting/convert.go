package scripting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/jsonc"

	"reawwise/internal/waapi"
)

// FromValue stores a Go value tree. Maps must have string keys; slices
// become arrays; everything else must be a scalar accepted by NewVariant.
func (a *Arena) FromValue(v any) (Handle, error) {
	switch x := v.(type) {
	case map[string]any:
		m := a.NewMap()
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child, err := a.FromValue(x[k])
			if err != nil {
				_ = a.Release(m)
				return 0, err
			}
			if err := a.Set(m, k, child); err != nil {
				return 0, err
			}
		}
		return m, nil
	case []any:
		arr := a.NewArray()
		for _, item := range x {
			child, err := a.FromValue(item)
			if err != nil {
				_ = a.Release(arr)
				return 0, err
			}
			if err := a.Append(arr, child); err != nil {
				return 0, err
			}
		}
		return arr, nil
	case []string:
		list := make([]any, len(x))
		for i, s := range x {
			list[i] = s
		}
		return a.FromValue(list)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return a.NewVariant(n)
		}
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: number %q", ErrUnsupported, x)
		}
		return a.NewVariant(f)
	}
	return a.NewVariant(v)
}

// ToValue rebuilds the Go value tree stored at h.
func (a *Arena) ToValue(h Handle) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.toValue(h)
}

func (a *Arena) toValue(h Handle) (any, error) {
	v, err := a.lookup(h)
	if err != nil {
		return nil, err
	}
	switch v.kind {
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for k, child := range v.fields {
			cv, err := a.toValue(child)
			if err != nil {
				return nil, err
			}
			out[k] = cv
		}
		return out, nil
	case KindArray:
		out := make([]any, 0, len(v.items))
		for _, child := range v.items {
			cv, err := a.toValue(child)
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
		return out, nil
	}
	return v.scalar, nil
}

// ParseJSON stores a JSON document. Comments and trailing commas are
// accepted.
func (a *Arena) ParseJSON(data []byte) (Handle, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("parse json: %w", err)
	}
	return a.FromValue(v)
}

// FormatJSON renders the value at h as indented JSON.
func (a *Arena) FormatJSON(h Handle) ([]byte, error) {
	v, err := a.ToValue(h)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, "", "  ")
}

// Call issues procedure with the maps at args and options and stores the
// result in the arena. A zero args or options handle sends nothing.
func (a *Arena) Call(ctx context.Context, c waapi.Caller, procedure string, args, options Handle) (Handle, error) {
	argMap, err := a.mapValue(args)
	if err != nil {
		return 0, fmt.Errorf("args: %w", err)
	}
	optMap, err := a.mapValue(options)
	if err != nil {
		return 0, fmt.Errorf("options: %w", err)
	}
	result, err := c.Call(ctx, procedure, argMap, optMap)
	if err != nil {
		return 0, err
	}
	if result == nil {
		result = map[string]any{}
	}
	return a.FromValue(normalize(result))
}

func (a *Arena) mapValue(h Handle) (map[string]any, error) {
	if h == 0 {
		return nil, nil
	}
	v, err := a.ToValue(h)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: handle %d is not a map", ErrWrongKind, h)
	}
	return m, nil
}

// normalize rewrites decoded wire values (CBOR maps with interface keys,
// unsigned integers) into the shapes FromValue accepts.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}
