package preflight

import (
	"context"

	"subtrans/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Options selects the checks RunAll performs.
type Options struct {
	// SkipNetwork omits the remote service probe.
	SkipNetwork bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckAPIKey(cfg),
		CheckDirectoryAccess("Input directory", cfg.Paths.InputDir),
		CheckCreatableDirectory("Output directory", cfg.Paths.OutputDir),
	}
	if cfg.History.Enabled {
		results = append(results, CheckCreatableDirectory("State directory", cfg.Paths.StateDir))
	}
	if !opts.SkipNetwork {
		results = append(results, CheckLLM(ctx, "Translation service", cfg))
		if cfg.Storage.Enabled() {
			results = append(results, CheckObjectStore(ctx, "Output bucket", cfg))
		}
	}
	results = append(results, CheckBinary("mkvmerge", cfg.MkvmergeBinary(), "needed by 'subtrans mux'", true))
	return results
}

// Failed reports whether any required check did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
