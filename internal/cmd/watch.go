package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jwtly10/shadertpl/internal/cli"
	"github.com/jwtly10/shadertpl/internal/output"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	var flags buildFlags

	c := &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Recompile templates when they or their modules change",
		Long: `Watch directories for template changes and recompile them. A change to a
file in a configured module directory recompiles every template.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, args, &flags)
		},
	}

	flags.register(c)
	return c
}

func runWatch(ctx context.Context, cmd *cobra.Command, roots []string, flags *buildFlags) error {
	cfg := flags.apply(cmd, appConfig)
	env, err := newBuildEnv(cfg)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}

	out := cmd.OutOrStdout()
	processor := cli.NewProcessor(env.opts, cfg.Workers)

	opts := cli.WatchOptions{
		Roots:      roots,
		ModuleDirs: cfg.ModuleDirs,
		OnResults: func(results []cli.ProcessResult) {
			compiled, failed := 0, 0
			for _, r := range results {
				if r.Error != nil {
					printFailure(out, r.Path, r.Error, r.Diagnostics)
					failed++
					continue
				}
				printTranspiled(out, cli.TranspileResult{
					Path:        r.Path,
					OutPath:     r.OutPath,
					Diagnostics: r.Output.Diagnostics,
				})
				compiled++
			}
			fmt.Fprintln(out, output.Summary(compiled, failed))
		},
	}
	if env.registry != nil {
		opts.OnModulesChanged = func() {
			slog.Info("Modules changed, recompiling every template")
			env.registry.Reset()
		}
	}

	w, err := processor.NewWatcher(opts)
	if err != nil {
		return err
	}

	slog.Info("Watching for changes", "roots", roots, "moduleDirs", cfg.ModuleDirs)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
