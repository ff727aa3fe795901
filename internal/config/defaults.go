package config

const (
	defaultConfigPath        = "~/.config/reawwise/config.toml"
	defaultStateDir          = "~/.local/share/reawwise"
	defaultLogDir            = "~/.local/share/reawwise/logs"
	defaultWAAPIHost         = "127.0.0.1"
	defaultWAAPIPort         = 8080
	defaultSerializer        = "json"
	defaultMinRetryDelayMS   = 1000
	defaultMaxRetryDelayMS   = 16000
	defaultWAAPIPollMS       = 2000
	defaultReadRetryAttempts = 3
	defaultReadRetryDelayMS  = 250
	defaultConflictPolicy    = "use_existing"
	defaultTemplatePolicy    = "new_only"
	defaultSelectionChannel  = 1
	defaultUndoGroupName     = "Transfer to Wwise"
	defaultLanguage          = "SFX"
	defaultManifest          = "render.yaml"
	defaultSessionPollMS     = 1000
	defaultNtfyTimeoutSec    = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		WAAPI: WAAPI{
			Host:              defaultWAAPIHost,
			Port:              defaultWAAPIPort,
			Serializer:        defaultSerializer,
			MinRetryDelayMS:   defaultMinRetryDelayMS,
			MaxRetryDelayMS:   defaultMaxRetryDelayMS,
			PollIntervalMS:    defaultWAAPIPollMS,
			ReadRetryAttempts: defaultReadRetryAttempts,
			ReadRetryDelayMS:  defaultReadRetryDelayMS,
		},
		Import: Import{
			ConflictPolicy:   defaultConflictPolicy,
			TemplatePolicy:   defaultTemplatePolicy,
			SelectionChannel: defaultSelectionChannel,
			UndoGroupName:    defaultUndoGroupName,
			DefaultLanguage:  defaultLanguage,
		},
		Session: Session{
			Manifest:       defaultManifest,
			PollIntervalMS: defaultSessionPollMS,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSec,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
