package scripting_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"reawwise/internal/scripting"
	"reawwise/internal/testsupport"
	"reawwise/internal/waapi"
)

func mustVariant(t *testing.T, a *scripting.Arena, v any) scripting.Handle {
	t.Helper()
	h, err := a.NewVariant(v)
	if err != nil {
		t.Fatalf("NewVariant(%v): %v", v, err)
	}
	return h
}

func TestArenaCreateGetSetClear(t *testing.T) {
	a := scripting.NewArena()
	m := a.NewMap()
	name := mustVariant(t, a, "kick")
	if err := a.Set(m, "name", name); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := a.Get(m, "name")
	if err != nil || !ok || got != name {
		t.Fatalf("Get = %d %v %v, want %d", got, ok, err, name)
	}
	if err := a.SetVariant(name, 42); err != nil {
		t.Fatalf("SetVariant: %v", err)
	}
	v, err := a.Variant(name)
	if err != nil || v != int64(42) {
		t.Fatalf("Variant = %#v %v, want int64(42)", v, err)
	}

	arr := a.NewArray()
	for _, s := range []string{"a", "b"} {
		if err := a.Append(arr, mustVariant(t, a, s)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := a.Set(m, "list", arr); err != nil {
		t.Fatalf("Set list: %v", err)
	}
	if n, _ := a.Len(arr); n != 2 {
		t.Fatalf("Len = %d, want 2", n)
	}
	if _, err := a.Index(arr, 2); !errors.Is(err, scripting.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if a.Size() != 5 {
		t.Fatalf("Size = %d, want 5", a.Size())
	}

	if err := a.Clear(m); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if a.Size() != 1 {
		t.Fatalf("Clear should release children, size = %d", a.Size())
	}
	if _, err := a.Variant(name); !errors.Is(err, scripting.ErrInvalidHandle) {
		t.Fatalf("expected released handle to be invalid, got %v", err)
	}
}

func TestArenaOwnership(t *testing.T) {
	a := scripting.NewArena()
	parent := a.NewMap()
	other := a.NewMap()
	child := mustVariant(t, a, true)
	if err := a.Set(parent, "x", child); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := a.Set(other, "x", child); !errors.Is(err, scripting.ErrOwned) {
		t.Fatalf("expected ErrOwned when attaching twice, got %v", err)
	}
	if err := a.Release(child); !errors.Is(err, scripting.ErrOwned) {
		t.Fatalf("expected ErrOwned when releasing an attached handle, got %v", err)
	}
	if err := a.Set(parent, "self", parent); !errors.Is(err, scripting.ErrOwned) {
		t.Fatalf("expected cycle rejection, got %v", err)
	}
	if err := a.Set(other, "p", parent); err != nil {
		t.Fatalf("Set nested: %v", err)
	}
	if err := a.Set(parent, "loop", other); !errors.Is(err, scripting.ErrOwned) {
		t.Fatalf("expected cycle rejection, got %v", err)
	}

	replacement := mustVariant(t, a, false)
	if err := a.Set(parent, "x", replacement); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := a.Kind(child); !errors.Is(err, scripting.ErrInvalidHandle) {
		t.Fatalf("replaced value should be released, got %v", err)
	}
	if err := a.Release(other); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if a.Size() != 0 {
		t.Fatalf("Size after release = %d", a.Size())
	}
}

func TestArenaKindErrors(t *testing.T) {
	a := scripting.NewArena()
	arr := a.NewArray()
	if _, _, err := a.Get(arr, "x"); !errors.Is(err, scripting.ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}
	if _, err := a.NewVariant(struct{}{}); !errors.Is(err, scripting.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := a.Kind(0); !errors.Is(err, scripting.ErrInvalidHandle) {
		t.Fatalf("zero handle must be invalid, got %v", err)
	}
}

func TestParseJSONAcceptsComments(t *testing.T) {
	a := scripting.NewArena()
	h, err := a.ParseJSON([]byte(`{
		// query the work unit
		"from": {"path": ["\\Actor-Mixer Hierarchy"]},
		"depth": 2,
		"ratio": 0.5,
	}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	got, err := a.ToValue(h)
	if err != nil {
		t.Fatalf("ToValue: %v", err)
	}
	want := map[string]any{
		"from":  map[string]any{"path": []any{`\Actor-Mixer Hierarchy`}},
		"depth": int64(2),
		"ratio": 0.5,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ToValue = %#v, want %#v", got, want)
	}
}

func TestCallRoundTripsThroughCaller(t *testing.T) {
	fake := testsupport.NewFakeWAAPI("")
	a := scripting.NewArena()
	args, err := a.FromValue(map[string]any{
		"from": map[string]any{"path": []any{`\Actor-Mixer Hierarchy\Default Work Unit`}},
	})
	if err != nil {
		t.Fatalf("FromValue: %v", err)
	}
	options, err := a.FromValue(map[string]any{"return": []string{"id", "name"}})
	if err != nil {
		t.Fatalf("FromValue options: %v", err)
	}

	result, err := a.Call(context.Background(), fake, waapi.ProcObjectGet, args, options)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	list, ok, err := a.Get(result, "return")
	if err != nil || !ok {
		t.Fatalf("result has no return list: %v", err)
	}
	first, err := a.Index(list, 0)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	nameHandle, _, _ := a.Get(first, "name")
	name, _ := a.Variant(nameHandle)
	if name != "Default Work Unit" {
		t.Fatalf("name = %v", name)
	}

	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one call, got %d", len(calls))
	}
	if _, ok := calls[0].Options["return"]; !ok {
		t.Fatalf("options not forwarded: %#v", calls[0].Options)
	}

	notMap := mustVariant(t, a, "x")
	if _, err := a.Call(context.Background(), fake, waapi.ProcGetInfo, notMap, 0); !errors.Is(err, scripting.ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind for scalar args, got %v", err)
	}
}
