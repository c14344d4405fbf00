package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwtly10/shadertpl"
	"github.com/jwtly10/shadertpl/internal/cli"
	"github.com/jwtly10/shadertpl/internal/output"
)

// NewCompileCmd creates the compile command.
func NewCompileCmd() *cobra.Command {
	var flags buildFlags

	c := &cobra.Command{
		Use:   "compile [path...]",
		Short: "Compile templates to shaders",
		Long: `Compile one or more templates. A directory is searched recursively for
*.sg2.txt files, honouring .gitignore when it is a git checkout.`,
		Example: `  # Compile every template under the current directory
  shadertpl compile

  # Compile one template with extra features, into build/
  shadertpl compile rim.sg2.txt -f OUTLINE -o build`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			return runCompile(cmd, args, &flags)
		},
	}

	flags.register(c)
	return c
}

func runCompile(cmd *cobra.Command, paths []string, flags *buildFlags) error {
	cfg := flags.apply(cmd, appConfig)
	env, err := newBuildEnv(cfg)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}

	start := time.Now()
	processor := cli.NewProcessor(env.opts, cfg.Workers)
	out := cmd.OutOrStdout()

	compiled, failed := 0, 0
	for _, path := range paths {
		results, err := processor.ProcessPath(path)
		for _, r := range results {
			printTranspiled(out, r)
			compiled++
		}

		var batch *cli.BatchError
		switch {
		case errors.As(err, &batch):
			for _, f := range batch.Failures {
				printFailure(out, relativeTo(path, f.Path), f.Error, f.Diagnostics)
			}
			failed += len(batch.Failures)
		case err != nil:
			var de *shadertpl.DiagnosticsError
			if errors.As(err, &de) {
				printFailure(out, path, err, de.Diagnostics)
			} else {
				printFailure(out, path, err, nil)
			}
			failed++
		}
	}

	fmt.Fprintln(out, output.Summary(compiled, failed))
	slog.Debug("Compile finished", "compiled", compiled, "failed", failed, "duration", time.Since(start))

	if failed > 0 {
		return &ExitError{Code: ExitCompileError, Err: fmt.Errorf("%d template(s) failed to compile", failed)}
	}
	return nil
}

func printTranspiled(w io.Writer, r cli.TranspileResult) {
	status := output.StatusCompiled
	if len(r.Diagnostics) > 0 {
		status = output.StatusWarning
	}
	fmt.Fprintln(w, output.FileStatus(r.Path, r.OutPath, status))
	_ = output.WriteDiagnostics(w, r.Diagnostics)
}

func printFailure(w io.Writer, path string, err error, diags shadertpl.Diagnostics) {
	fmt.Fprintln(w, output.FileStatus(path, "", output.StatusFailed))
	if len(diags) > 0 {
		_ = output.WriteDiagnostics(w, diags.Errors())
		return
	}
	fmt.Fprintf(w, "  %s\n", err)
}

func relativeTo(root, path string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(abs, path); err == nil {
		return rel
	}
	return path
}
