package testsupport

import (
	"path/filepath"
	"testing"

	"reawwise/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retry delays are shortened so reconnect tests run quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Session.Manifest = filepath.Join(base, "render.yaml")
	cfgVal.WAAPI.MinRetryDelayMS = 5
	cfgVal.WAAPI.MaxRetryDelayMS = 40
	cfgVal.WAAPI.PollIntervalMS = 20
	cfgVal.WAAPI.ReadRetryDelayMS = 1
	cfgVal.Session.PollIntervalMS = 10

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRouter points the WAAPI section at url (as returned by Router.URL).
func WithRouter(r *Router) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.WAAPI.Host = r.Host()
		b.cfg.WAAPI.Port = r.Port()
	}
}

// WithSerializer selects the WAMP serializer.
func WithSerializer(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.WAAPI.Serializer = name
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
