package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"reawwise/internal/waapi"
	"reawwise/internal/wwise"
)

// HandlerFunc serves one procedure of the fake.
type HandlerFunc func(args, options map[string]any) (map[string]any, error)

// FakeCall records one call made against the fake.
type FakeCall struct {
	Procedure string
	Args      map[string]any
	Options   map[string]any
}

// FakeWAAPI is an in-memory Wwise project that implements waapi.Caller.
// It understands the procedures reawwise uses; others can be added with
// Handle. Serve it over WAMP with NewRouter.
type FakeWAAPI struct {
	mu          sync.Mutex
	handlers    map[string]HandlerFunc
	calls       []FakeCall
	objects     map[string]*fakeObject
	nextID      int
	year        int
	originals   string
	projectName string
	undoDepth   int
	undoClosed  []string
	failures    map[string]error
}

type fakeObject struct {
	id      string
	name    string
	path    string
	typ     wwise.Type
	wavPath string
}

// NewFakeWAAPI returns a project with the Actor-Mixer Hierarchy root and its
// Default Work Unit. originals may be empty.
func NewFakeWAAPI(originals string) *FakeWAAPI {
	f := &FakeWAAPI{
		handlers:    make(map[string]HandlerFunc),
		objects:     make(map[string]*fakeObject),
		year:        2023,
		originals:   originals,
		projectName: "Fake",
		failures:    make(map[string]error),
	}
	f.AddObject(wwise.ActorMixerHierarchyRoot, wwise.PhysicalFolder)
	f.AddObject(wwise.ActorMixerHierarchyRoot+`\Default Work Unit`, wwise.WorkUnit)

	f.handlers[waapi.ProcGetInfo] = f.getInfo
	f.handlers[waapi.ProcGetProjectInfo] = f.getProjectInfo
	f.handlers[waapi.ProcObjectGet] = f.objectGet
	f.handlers[waapi.ProcAudioImport] = f.audioImport
	f.handlers[waapi.ProcPasteProperties] = f.pasteProperties
	f.handlers[waapi.ProcUndoBeginGroup] = f.undoBegin
	f.handlers[waapi.ProcUndoEndGroup] = f.undoEnd
	f.handlers[waapi.ProcUndoCancelGroup] = f.undoCancel
	f.handlers[waapi.ProcCommandsExecute] = func(map[string]any, map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	}
	return f
}

// SetYear changes the version reported by getInfo, which drives capability
// flags. Years before 2021 also reject WAQL queries.
func (f *FakeWAAPI) SetYear(year int) {
	f.mu.Lock()
	f.year = year
	f.mu.Unlock()
}

// Handle overrides or adds a procedure.
func (f *FakeWAAPI) Handle(procedure string, fn HandlerFunc) {
	f.mu.Lock()
	f.handlers[procedure] = fn
	f.mu.Unlock()
}

// Fail makes every call to procedure return err until cleared with a nil err.
func (f *FakeWAAPI) Fail(procedure string, err error) {
	f.mu.Lock()
	if err == nil {
		delete(f.failures, procedure)
	} else {
		f.failures[procedure] = err
	}
	f.mu.Unlock()
}

// AddObject inserts an object at an untagged path and returns it.
func (f *FakeWAAPI) AddObject(path string, t wwise.Type) waapi.Object {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(wwise.StripTypeTags(path), t).public()
}

func (f *FakeWAAPI) addLocked(path string, t wwise.Type) *fakeObject {
	f.nextID++
	obj := &fakeObject{
		id:   fmt.Sprintf("{00000000-0000-0000-0000-%012d}", f.nextID),
		name: wwise.ObjectName(path),
		path: path,
		typ:  t,
	}
	f.objects[wwise.FoldPath(path)] = obj
	return obj
}

// Object returns the object at path.
func (f *FakeWAAPI) Object(path string) (waapi.Object, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[wwise.FoldPath(path)]
	if !ok {
		return waapi.Object{}, false
	}
	return obj.public(), true
}

// Calls returns a copy of the recorded calls.
func (f *FakeWAAPI) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times procedure was called.
func (f *FakeWAAPI) CallCount(procedure string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Procedure == procedure {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (f *FakeWAAPI) ResetCalls() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

// ClosedUndoGroups returns the display names of closed undo groups.
func (f *FakeWAAPI) ClosedUndoGroups() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.undoClosed...)
}

// OpenUndoGroups reports how many undo groups are still open.
func (f *FakeWAAPI) OpenUndoGroups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.undoDepth
}

// Call implements waapi.Caller.
func (f *FakeWAAPI) Call(ctx context.Context, procedure string, args, options map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Procedure: procedure, Args: args, Options: options})
	handler := f.handlers[procedure]
	failure := f.failures[procedure]
	f.mu.Unlock()
	if failure != nil {
		return nil, failure
	}
	if handler == nil {
		return nil, waapi.NewRemoteError(procedure, "ak.wwise.unknown_procedure", "unknown procedure")
	}
	return handler(args, options)
}

func (o *fakeObject) public() waapi.Object {
	return waapi.Object{ID: o.id, Name: o.name, Path: o.path, Type: o.typ, OriginalWavPath: o.wavPath}
}

func (o *fakeObject) wire() map[string]any {
	ros := 1
	if o.typ == wwise.SequenceContainer {
		ros = 0
	}
	m := map[string]any{
		"id":                o.id,
		"name":              o.name,
		"path":              o.path,
		"type":              o.typ.WAAPIName(),
		"@RandomOrSequence": ros,
		"@IsVoice":          o.typ == wwise.SoundVoice,
	}
	if o.wavPath != "" {
		m["sound:originalWavFilePath"] = o.wavPath
	}
	return m
}

func (f *FakeWAAPI) getInfo(map[string]any, map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]any{
		"displayName": "Wwise",
		"processId":   4242,
		"version": map[string]any{
			"displayName": fmt.Sprintf("v%d.1.0", f.year),
			"year":        f.year,
			"major":       1,
			"minor":       0,
			"build":       8000,
		},
	}, nil
}

func (f *FakeWAAPI) getProjectInfo(map[string]any, map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]any{
		"name": f.projectName,
		"path": "/projects/" + f.projectName + "/" + f.projectName + ".wproj",
		"directories": map[string]any{
			"originals": f.originals,
		},
		"languages": []any{map[string]any{"name": "SFX"}, map[string]any{"name": "English(US)"}},
	}, nil
}

var waqlLineage = regexp.MustCompile(`^\$ "(.+)" select (.+)$`)

func (f *FakeWAAPI) objectGet(args, _ map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var (
		base    string
		selects []string
	)
	if q, ok := args["waql"].(string); ok {
		if f.year < 2021 {
			return nil, waapi.NewRemoteError(waapi.ProcObjectGet, waapi.ErrURIInvalidQuery, "WAQL is not supported")
		}
		m := waqlLineage.FindStringSubmatch(q)
		if m == nil {
			return nil, waapi.NewRemoteError(waapi.ProcObjectGet, waapi.ErrURIInvalidQuery, "cannot parse query")
		}
		base = m[1]
		for _, s := range strings.Split(m[2], ",") {
			selects = append(selects, strings.TrimSpace(s))
		}
	} else {
		from, _ := args["from"].(map[string]any)
		paths, _ := from["path"].([]any)
		if len(paths) != 1 {
			return nil, waapi.NewRemoteError(waapi.ProcObjectGet, "ak.wwise.invalid_arguments", "expected one path")
		}
		base, _ = paths[0].(string)
		selects = []string{"this"}
		if transforms, ok := args["transform"].([]any); ok && len(transforms) > 0 {
			t, _ := transforms[0].(map[string]any)
			sel, _ := t["select"].([]any)
			selects = nil
			for _, s := range sel {
				name, _ := s.(string)
				selects = append(selects, name)
			}
		}
	}

	root, ok := f.objects[wwise.FoldPath(base)]
	if !ok {
		return nil, waapi.NewRemoteError(waapi.ProcObjectGet, waapi.ErrURIUnknownObject, "object not found: "+base)
	}

	var out []*fakeObject
	for _, sel := range selects {
		switch sel {
		case "this":
			out = append(out, root)
		case "ancestors":
			for _, a := range wwise.AncestorPaths(root.path) {
				if obj, ok := f.objects[wwise.FoldPath(a)]; ok {
					out = append(out, obj)
				}
			}
		case "descendants":
			keys := make([]string, 0)
			for key, obj := range f.objects {
				if wwise.IsDescendant(obj.path, root.path) {
					keys = append(keys, key)
				}
			}
			sort.Strings(keys)
			for _, key := range keys {
				out = append(out, f.objects[key])
			}
		}
	}
	list := make([]any, 0, len(out))
	for _, obj := range out {
		list = append(list, obj.wire())
	}
	return map[string]any{"return": list}, nil
}

func (f *FakeWAAPI) audioImport(args, _ map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	operation, _ := args["importOperation"].(string)
	defaults, _ := args["default"].(map[string]any)
	language, _ := defaults["importLanguage"].(string)
	imports, _ := args["imports"].([]any)

	var reported []*fakeObject
	seen := map[string]bool{}
	report := func(obj *fakeObject) {
		if !seen[obj.id] {
			seen[obj.id] = true
			reported = append(reported, obj)
		}
	}

	for _, raw := range imports {
		entry, _ := raw.(map[string]any)
		objectPath, _ := entry["objectPath"].(string)
		subfolder, _ := entry["originalsSubFolder"].(string)
		audioFile, _ := entry["audioFile"].(string)
		if embedded, ok := entry["audioFileBase64"].(string); ok {
			audioFile, _, _ = strings.Cut(embedded, "|")
		}
		if !wwise.IsPathComplete(objectPath) || audioFile == "" {
			return nil, waapi.NewRemoteError(waapi.ProcAudioImport, "ak.wwise.invalid_arguments", "invalid import entry "+objectPath)
		}

		parts := wwise.PathParts(objectPath)
		current := ""
		var sound *fakeObject
		for i, part := range parts {
			tag, name := wwise.SplitSegment(part)
			current += wwise.Separator + name
			typ, _ := wwise.ParseType(tag)
			existing, exists := f.objects[wwise.FoldPath(current)]
			last := i == len(parts)-1
			switch {
			case exists && last && typ.IsSound() && operation == "replaceExisting":
				f.removeLocked(existing.path)
				existing = f.addLocked(current, typ)
			case exists && last && typ.IsSound() && operation == "createNew":
				current += "_01"
				existing = f.addLocked(current, typ)
			case !exists:
				if typ == wwise.Unknown {
					return nil, waapi.NewRemoteError(waapi.ProcAudioImport, "ak.wwise.invalid_arguments", "missing type for "+current)
				}
				existing = f.addLocked(current, typ)
			}
			report(existing)
			if last {
				sound = existing
			}
		}

		base := filepath.Base(filepath.FromSlash(strings.ReplaceAll(audioFile, `\`, "/")))
		sourceName := strings.TrimSuffix(base, filepath.Ext(base))
		sourcePath := sound.path + wwise.Separator + sourceName
		source, exists := f.objects[wwise.FoldPath(sourcePath)]
		if !exists {
			source = f.addLocked(sourcePath, wwise.AudioFileSource)
		}
		if f.originals != "" {
			wav := wwise.OriginalsPath(f.originals, subfolder, base, language, sound.typ == wwise.SoundVoice)
			_ = os.MkdirAll(filepath.Dir(wav), 0o755)
			_ = os.WriteFile(wav, []byte("RIFF"), 0o644)
			sound.wavPath = wav
			source.wavPath = wav
		}
		report(source)
	}

	list := make([]any, 0, len(reported))
	for _, obj := range reported {
		list = append(list, obj.wire())
	}
	return map[string]any{"objects": list}, nil
}

func (f *FakeWAAPI) removeLocked(path string) {
	for key, obj := range f.objects {
		if wwise.EqualFold(obj.path, path) || wwise.IsDescendant(obj.path, path) {
			delete(f.objects, key)
		}
	}
}

func (f *FakeWAAPI) pasteProperties(args, _ map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	source, _ := args["source"].(string)
	if _, ok := f.objects[wwise.FoldPath(source)]; !ok {
		return nil, waapi.NewRemoteError(waapi.ProcPasteProperties, waapi.ErrURIUnknownObject, "source not found: "+source)
	}
	targets, _ := args["targets"].([]any)
	for _, t := range targets {
		path, _ := t.(string)
		if _, ok := f.objects[wwise.FoldPath(path)]; !ok {
			return nil, waapi.NewRemoteError(waapi.ProcPasteProperties, waapi.ErrURIUnknownObject, "target not found: "+path)
		}
	}
	return map[string]any{}, nil
}

func (f *FakeWAAPI) undoBegin(map[string]any, map[string]any) (map[string]any, error) {
	f.mu.Lock()
	f.undoDepth++
	f.mu.Unlock()
	return map[string]any{}, nil
}

func (f *FakeWAAPI) undoEnd(args, _ map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.undoDepth == 0 {
		return nil, waapi.NewRemoteError(waapi.ProcUndoEndGroup, "ak.wwise.locked", "no undo group open")
	}
	f.undoDepth--
	name, _ := args["displayName"].(string)
	f.undoClosed = append(f.undoClosed, name)
	return map[string]any{}, nil
}

func (f *FakeWAAPI) undoCancel(map[string]any, map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.undoDepth == 0 {
		return nil, waapi.NewRemoteError(waapi.ProcUndoCancelGroup, "ak.wwise.locked", "no undo group open")
	}
	f.undoDepth--
	return map[string]any{}, nil
}
