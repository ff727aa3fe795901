package workstation

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"reawwise/internal/deps"
	"reawwise/internal/mapping"
	"reawwise/internal/renderstats"
	"reawwise/internal/services"
)

// StateKey is the key the project state blob is stored under.
const StateKey = "project_state"

// StateStore keeps blobs per session. *statestore.Store satisfies it.
type StateStore interface {
	Save(session, key string, blob []byte) error
	Load(session, key string) ([]byte, error)
}

// Manifest is the YAML document describing a session's render.
type Manifest struct {
	Session       string   `yaml:"session"`
	RenderCommand []string `yaml:"render_command,omitempty"`
	Targets       []Target `yaml:"targets"`
	// LastRender holds stats written by the host after a render.
	LastRender string `yaml:"last_render,omitempty"`
}

// Target is one file the render produces with the wildcard values the DAW
// would substitute for it.
type Target struct {
	File      string            `yaml:"file"`
	Wildcards map[string]string `yaml:"wildcards,omitempty"`
}

type commandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

type execCommandRunner struct{}

func (execCommandRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	path, err := deps.Resolve(name, dir)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, path, args...) //nolint:gosec
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ManifestAdapter reads a Manifest from disk on every call so edits made by
// the host are picked up.
type ManifestAdapter struct {
	path   string
	store  StateStore
	runner commandRunner

	mu        sync.Mutex
	lastHash  []byte
	lastStats string
}

// NewManifestAdapter returns an adapter for the manifest at path. store may
// be nil, in which case state is not persisted.
func NewManifestAdapter(path string, store StateStore) *ManifestAdapter {
	return &ManifestAdapter{path: path, store: store, runner: execCommandRunner{}}
}

// Path returns the manifest location.
func (a *ManifestAdapter) Path() string { return a.path }

func (a *ManifestAdapter) read() (Manifest, []byte, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return Manifest{}, nil, services.Wrap(services.ErrNotFound, "workstation", "read manifest", a.path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, nil, services.Wrap(services.ErrValidation, "workstation", "parse manifest", a.path, err)
	}
	base := filepath.Dir(a.path)
	for i := range m.Targets {
		if f := m.Targets[i].File; f != "" && !filepath.IsAbs(f) {
			m.Targets[i].File = filepath.Join(base, f)
		}
	}
	return m, data, nil
}

// RenderTargets implements Adapter.
func (a *ManifestAdapter) RenderTargets(context.Context) ([]string, error) {
	m, _, err := a.read()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(m.Targets))
	for _, t := range m.Targets {
		out = append(out, t.File)
	}
	return out, nil
}

// RenderCommand returns the command RenderItems runs, if any. It runs in the
// manifest's directory.
func (a *ManifestAdapter) RenderCommand(context.Context) ([]string, error) {
	m, _, err := a.read()
	if err != nil {
		return nil, err
	}
	return m.RenderCommand, nil
}

// ResolveRenderPattern implements Adapter. Besides the target's own
// wildcards, $filename, $session and $index are always defined.
func (a *ManifestAdapter) ResolveRenderPattern(_ context.Context, pattern string) ([]string, error) {
	m, _, err := a.read()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(m.Targets))
	for i, t := range m.Targets {
		base := filepath.Base(t.File)
		values := map[string]string{
			"filename": strings.TrimSuffix(base, filepath.Ext(base)),
			"session":  m.Session,
			"index":    strconv.Itoa(i + 1),
		}
		for k, v := range t.Wildcards {
			values[k] = v
		}
		out = append(out, mapping.Expand(pattern, values))
	}
	return out, nil
}

// RenderItems runs the manifest's render command, if any, and records the
// rendered files as the last render.
func (a *ManifestAdapter) RenderItems(ctx context.Context) error {
	m, _, err := a.read()
	if err != nil {
		return err
	}
	if len(m.RenderCommand) > 0 {
		if err := a.runner.Run(ctx, filepath.Dir(a.path), m.RenderCommand[0], m.RenderCommand[1:]...); err != nil {
			return services.Wrap(services.ErrTransient, "workstation", "render", "render command failed", err)
		}
		if m, _, err = a.read(); err != nil {
			return err
		}
		if m.LastRender != "" {
			a.mu.Lock()
			a.lastStats = m.LastRender
			a.mu.Unlock()
			return nil
		}
	}
	entries := make([]renderstats.Entry, 0, len(m.Targets))
	for _, t := range m.Targets {
		entries = append(entries, renderstats.Entry{File: t.File})
	}
	stats, err := renderstats.Format(entries)
	if err != nil {
		return services.Wrap(services.ErrValidation, "workstation", "render", "target cannot be recorded", err)
	}
	a.mu.Lock()
	a.lastStats = stats
	a.mu.Unlock()
	return nil
}

// LastRenderStats implements Adapter. Stats recorded by RenderItems win over
// the manifest's last_render field.
func (a *ManifestAdapter) LastRenderStats(context.Context) (string, error) {
	a.mu.Lock()
	stats := a.lastStats
	a.mu.Unlock()
	if stats != "" {
		return stats, nil
	}
	m, _, err := a.read()
	if err != nil {
		return "", err
	}
	return m.LastRender, nil
}

// SessionChanged implements Adapter by hashing the manifest. The first call
// records a baseline and reports false.
func (a *ManifestAdapter) SessionChanged(context.Context) (bool, error) {
	_, data, err := a.read()
	if err != nil {
		return false, err
	}
	sum := blake3.Sum256(data)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastHash == nil {
		a.lastHash = sum[:]
		return false, nil
	}
	if bytes.Equal(a.lastHash, sum[:]) {
		return false, nil
	}
	a.lastHash = sum[:]
	return true, nil
}

// SessionName implements Adapter. It falls back to the manifest file name.
func (a *ManifestAdapter) SessionName(context.Context) (string, error) {
	m, _, err := a.read()
	if err != nil {
		return "", err
	}
	if name := strings.TrimSpace(m.Session); name != "" {
		return name, nil
	}
	base := filepath.Base(a.path)
	return strings.TrimSuffix(base, filepath.Ext(base)), nil
}

// SaveState implements Adapter.
func (a *ManifestAdapter) SaveState(ctx context.Context, blob []byte) error {
	if a.store == nil {
		return nil
	}
	session, err := a.SessionName(ctx)
	if err != nil {
		return err
	}
	return a.store.Save(session, StateKey, blob)
}

// RetrieveState implements Adapter.
func (a *ManifestAdapter) RetrieveState(ctx context.Context) ([]byte, error) {
	if a.store == nil {
		return nil, nil
	}
	session, err := a.SessionName(ctx)
	if err != nil {
		return nil, err
	}
	return a.store.Load(session, StateKey)
}

// WriteManifest saves m as YAML at path.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
