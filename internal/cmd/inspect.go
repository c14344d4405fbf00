package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwtly10/shadertpl"
	"github.com/jwtly10/shadertpl/internal/docs"
	"github.com/jwtly10/shadertpl/internal/output"
	"github.com/jwtly10/shadertpl/internal/transformer"
	"github.com/jwtly10/shadertpl/internal/uifeature"
)

// NewDocsCmd creates the docs command.
func NewDocsCmd() *cobra.Command {
	var html, outline bool

	c := &cobra.Command{
		Use:   "docs <template>",
		Short: "Print the reference page of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadedEnv()
			if err != nil {
				return err
			}
			compiled, _, err := compileOne(cmd, env, args[0])
			if compiled == nil || compiled.Document == nil {
				return err
			}

			g := docs.NewGenerator()
			out := cmd.OutOrStdout()
			switch {
			case html:
				return g.HTML(compiled.Document, out)
			case outline:
				var md bytes.Buffer
				if err := g.Markdown(compiled.Document, &md); err != nil {
					return err
				}
				for _, heading := range g.Outline(md.Bytes()) {
					fmt.Fprintln(out, heading)
				}
				return nil
			default:
				return g.Markdown(compiled.Document, out)
			}
		},
	}

	c.Flags().BoolVar(&html, "html", false, "Render HTML instead of Markdown")
	c.Flags().BoolVar(&outline, "outline", false, "Only print the section headings")
	return c
}

// NewFeaturesCmd creates the features command.
func NewFeaturesCmd() *cobra.Command {
	var features []string

	c := &cobra.Command{
		Use:   "features <template>",
		Short: "Show the UI features of a template for a config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *appConfig
			cfg.Features = append(append([]string(nil), appConfig.Features...), features...)

			env, err := newBuildEnv(&cfg)
			if err != nil {
				return &ExitError{Code: ExitConfigError, Err: err}
			}
			compiled, _, err := compileOne(cmd, env, args[0])
			if compiled == nil || compiled.Document == nil {
				return err
			}

			tc := env.opts.Config.Clone()
			compiled.Document.ApplyForcedValues(tc)
			return uifeature.Render(uifeature.Context{Document: compiled.Document, Config: tc}, cmd.OutOrStdout())
		},
	}

	c.Flags().StringSliceVarP(&features, "features", "f", nil, "Features to show as enabled, added to the configured ones")
	return c
}

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <template>",
		Short: "Print the property usage report of a template",
		Long: `Compile a template without writing it and print which properties each pass
uses, the features each pass was compiled with and the enabled generic
implementations, as YAML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadedEnv()
			if err != nil {
				return err
			}
			compiled, t, err := compileOne(cmd, env, args[0])
			if err != nil {
				return err
			}
			return t.Report(compiled).Write(cmd.OutOrStdout())
		},
	}
}

// compileOne compiles path without writing it. Diagnostics are printed to
// stderr. The document is returned when the template parsed, even if it did
// not compile.
func compileOne(cmd *cobra.Command, env *buildEnv, path string) (*transformer.Compiled, *transformer.Transformer, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading file: %w", err)
	}

	t := transformer.NewTransformer(env.opts)
	compiled, err := t.Compile(transformer.TemplateSource{
		Content:  bytes.NewReader(content),
		Metadata: shadertpl.MetaData{Source: path},
	})
	_ = output.WriteDiagnostics(cmd.ErrOrStderr(), compiled.Diagnostics)
	if err != nil {
		err = &ExitError{Code: ExitCompileError, Err: err}
	}

	if env.injections != nil && compiled.Document != nil {
		for _, point := range env.injections.Unmatched(compiled.Document) {
			slog.Warn("Injection point has no marker in template", "point", point, "template", path)
		}
	}
	return compiled, t, err
}

func loadedEnv() (*buildEnv, error) {
	env, err := newBuildEnv(appConfig)
	if err != nil {
		return nil, &ExitError{Code: ExitConfigError, Err: err}
	}
	return env, nil
}
