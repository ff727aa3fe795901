package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reawwise/internal/config"
	"reawwise/internal/services"
	"reawwise/internal/waapi"
	"reawwise/internal/workstation"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that need only the configuration.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// State directory (always checked)
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))

	if cfg.Session.Manifest != "" {
		results = append(results, CheckManifest(ctx, cfg.Session.Manifest))
		results = append(results, CheckRenderCommand(ctx, cfg.Session.Manifest))
	}

	results = append(results, CheckWAAPI(ctx, waapi.Options{
		URL:        cfg.WAAPI.URL(),
		Serializer: cfg.WAAPI.Serializer,
	}))

	return results
}

// ForTransfer checks what an import touches locally: the originals
// directory and every audio file. The originals directory is skipped when
// audio is embedded, since the authoring host may then be remote.
func ForTransfer(originalsDir string, items []workstation.Item, embed bool) []Result {
	var results []Result
	if !embed && strings.TrimSpace(originalsDir) != "" {
		results = append(results, CheckDirectoryAccess("Originals directory", originalsDir))
	}
	results = append(results, CheckRenderFiles(items))
	return results
}

// Failed joins the failed results into one validation error, or returns nil.
func Failed(results []Result) error {
	var errs []error
	for _, r := range results {
		if !r.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return services.Wrap(services.ErrValidation, "preflight", "check", "preflight failed", errors.Join(errs...))
}
