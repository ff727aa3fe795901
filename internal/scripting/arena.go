package scripting

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// Handle addresses a value in an Arena. The zero Handle is never valid.
type Handle uint64

// Kind is the shape of a value.
type Kind int

const (
	KindVariant Kind = iota
	KindMap
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindMap:
		return "map"
	case KindArray:
		return "array"
	default:
		return "variant"
	}
}

var (
	ErrInvalidHandle = errors.New("invalid handle")
	ErrWrongKind     = errors.New("wrong value kind")
	ErrOwned         = errors.New("handle already attached to a container")
	ErrOutOfRange    = errors.New("index out of range")
	ErrUnsupported   = errors.New("unsupported value type")
)

type value struct {
	kind   Kind
	scalar any
	fields map[string]Handle
	items  []Handle
	parent Handle
}

// Arena stores values behind handles. It is safe for concurrent use.
type Arena struct {
	mu     sync.Mutex
	next   Handle
	values map[Handle]*value
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{values: make(map[Handle]*value)}
}

func (a *Arena) alloc(v *value) Handle {
	a.next++
	a.values[a.next] = v
	return a.next
}

func (a *Arena) lookup(h Handle, want ...Kind) (*value, error) {
	v, ok := a.values[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	if len(want) > 0 && v.kind != want[0] {
		return nil, fmt.Errorf("%w: handle %d is a %s, want %s", ErrWrongKind, h, v.kind, want[0])
	}
	return v, nil
}

// NewMap creates an empty map.
func (a *Arena) NewMap() Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alloc(&value{kind: KindMap, fields: make(map[string]Handle)})
}

// NewArray creates an empty array.
func (a *Arena) NewArray() Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alloc(&value{kind: KindArray})
}

// NewVariant creates a scalar. Accepted values are nil, bool, string, and
// the integer and float types; integers are stored as int64.
func (a *Arena) NewVariant(v any) (Handle, error) {
	scalar, err := normalizeScalar(v)
	if err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alloc(&value{kind: KindVariant, scalar: scalar}), nil
}

// Kind reports the kind of h.
func (a *Arena) Kind(h Handle) (Kind, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, err := a.lookup(h)
	if err != nil {
		return 0, err
	}
	return v.kind, nil
}

// Variant returns the scalar held by h.
func (a *Arena) Variant(h Handle) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, err := a.lookup(h, KindVariant)
	if err != nil {
		return nil, err
	}
	return v.scalar, nil
}

// SetVariant replaces the scalar held by h.
func (a *Arena) SetVariant(h Handle, s any) error {
	scalar, err := normalizeScalar(s)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	v, err := a.lookup(h, KindVariant)
	if err != nil {
		return err
	}
	v.scalar = scalar
	return nil
}

// Set attaches child under key, releasing any value it replaces.
func (a *Arena) Set(m Handle, key string, child Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, err := a.lookup(m, KindMap)
	if err != nil {
		return err
	}
	if err := a.adopt(m, child); err != nil {
		return err
	}
	if old, ok := v.fields[key]; ok && old != child {
		a.release(old)
	}
	v.fields[key] = child
	return nil
}

// Get returns the handle stored under key.
func (a *Arena) Get(m Handle, key string) (Handle, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, err := a.lookup(m, KindMap)
	if err != nil {
		return 0, false, err
	}
	h, ok := v.fields[key]
	return h, ok, nil
}

// Append attaches child at the end of an array.
func (a *Arena) Append(arr Handle, child Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, err := a.lookup(arr, KindArray)
	if err != nil {
		return err
	}
	if err := a.adopt(arr, child); err != nil {
		return err
	}
	v.items = append(v.items, child)
	return nil
}

// Index returns the handle at position i of an array.
func (a *Arena) Index(arr Handle, i int) (Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, err := a.lookup(arr, KindArray)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(v.items) {
		return 0, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(v.items))
	}
	return v.items[i], nil
}

// Len returns the number of entries of a map or array.
func (a *Arena) Len(h Handle) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, err := a.lookup(h)
	if err != nil {
		return 0, err
	}
	switch v.kind {
	case KindMap:
		return len(v.fields), nil
	case KindArray:
		return len(v.items), nil
	}
	return 0, fmt.Errorf("%w: handle %d is a variant", ErrWrongKind, h)
}

// Clear empties a container, releasing its children, or nulls a variant.
func (a *Arena) Clear(h Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, err := a.lookup(h)
	if err != nil {
		return err
	}
	switch v.kind {
	case KindMap:
		for _, child := range v.fields {
			a.release(child)
		}
		v.fields = make(map[string]Handle)
	case KindArray:
		for _, child := range v.items {
			a.release(child)
		}
		v.items = nil
	default:
		v.scalar = nil
	}
	return nil
}

// Release frees h and everything it owns. A handle still attached to a
// container cannot be released on its own.
func (a *Arena) Release(h Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, err := a.lookup(h)
	if err != nil {
		return err
	}
	if v.parent != 0 {
		return fmt.Errorf("%w: %d", ErrOwned, h)
	}
	a.release(h)
	return nil
}

// Size returns the number of live handles.
func (a *Arena) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.values)
}

func (a *Arena) adopt(parent, child Handle) error {
	c, err := a.lookup(child)
	if err != nil {
		return err
	}
	if c.parent != 0 && c.parent != parent {
		return fmt.Errorf("%w: %d", ErrOwned, child)
	}
	for p := parent; p != 0; p = a.values[p].parent {
		if p == child {
			return fmt.Errorf("%w: %d would contain itself", ErrOwned, child)
		}
	}
	c.parent = parent
	return nil
}

func (a *Arena) release(h Handle) {
	v, ok := a.values[h]
	if !ok {
		return
	}
	delete(a.values, h)
	for _, child := range v.fields {
		a.release(child)
	}
	for _, child := range v.items {
		a.release(child)
	}
}

func normalizeScalar(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupported, x)
		}
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupported, x)
		}
		return int64(x), nil
	case float32:
		return float64(x), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
}
