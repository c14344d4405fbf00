package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jwtly10/shadertpl/internal/config"
	"github.com/jwtly10/shadertpl/internal/injection"
	"github.com/jwtly10/shadertpl/internal/modules"
	"github.com/jwtly10/shadertpl/internal/output"
	"github.com/jwtly10/shadertpl/internal/transformer"
)

// buildFlags are the compile options shared by compile and watch. Flags that
// are set override the config file.
type buildFlags struct {
	out      string
	mode     string
	noBackup bool
	report   bool
	features []string
	workers  int
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Output directory (default next to each template)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Output mode: pretty or shadow")
	cmd.Flags().BoolVar(&f.noBackup, "no-backup", false, "Don't back up existing shaders before overwriting them")
	cmd.Flags().BoolVar(&f.report, "report", false, "Write a usage report next to each shader")
	cmd.Flags().StringSliceVarP(&f.features, "features", "f", nil, "Features to compile with, added to the configured ones")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Number of parallel workers")
}

// apply merges the set flags into a copy of cfg
func (f *buildFlags) apply(cmd *cobra.Command, cfg *config.Config) *config.Config {
	merged := *cfg
	merged.Features = append([]string(nil), cfg.Features...)

	flags := cmd.Flags()
	if flags.Changed("out") {
		merged.OutputDir = f.out
	}
	if flags.Changed("mode") {
		merged.Mode = f.mode
	}
	if flags.Changed("no-backup") {
		merged.NoBackup = f.noBackup
	}
	if flags.Changed("report") {
		merged.Report = f.report
	}
	if flags.Changed("workers") {
		merged.Workers = f.workers
	}
	merged.Features = append(merged.Features, f.features...)
	return merged.WithDefaults()
}

// buildEnv is what a compile run needs from the config
type buildEnv struct {
	opts transformer.TransformOptions
	// registry and injections are nil when none are configured
	registry   *modules.FSRegistry
	injections *injection.Manager
}

func newBuildEnv(cfg *config.Config) (*buildEnv, error) {
	mode, err := cfg.WriterMode()
	if err != nil {
		return nil, err
	}

	env := &buildEnv{
		opts: transformer.TransformOptions{
			WriterMode: mode,
			NoBackup:   cfg.NoBackup,
			OutputDir:  cfg.OutputDir,
			Report:     cfg.Report,
			Config:     cfg.TemplateConfig(),
		},
	}

	if appLogger != nil {
		env.opts.Logger = output.Slog(appLogger)
	}

	// a nil pointer in the interface would still count as a registry
	if env.registry = cfg.ModuleRegistry(); env.registry != nil {
		env.opts.Modules = env.registry
	}

	env.injections, err = cfg.LoadInjections()
	if err != nil {
		return nil, err
	}
	if env.injections != nil {
		env.opts.Injections = env.injections
	}

	slog.Debug("Build options", "options", env.opts.Pretty())
	return env, nil
}
