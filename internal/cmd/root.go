// Package cmd provides the shadertpl command implementations.
package cmd

import (
	"log/slog"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jwtly10/shadertpl/internal/config"
	"github.com/jwtly10/shadertpl/internal/output"
)

var (
	// Global flags
	configFlag  string
	verboseFlag bool

	// Loaded during PersistentPreRunE
	appConfig *config.Config
	appLogger *log.Logger
)

// NewRootCmd creates the root command of the shadertpl CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shadertpl",
		Short: "Shader template compiler",
		Long: `shadertpl compiles shader templates (*.sg2.txt) into shaders, resolving
feature conditions, keyword rules, modules and property usage per pass.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeGlobals(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config file (default ./"+config.DefaultFile+")")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewCompileCmd())
	rootCmd.AddCommand(NewWatchCmd())
	rootCmd.AddCommand(NewDocsCmd())
	rootCmd.AddCommand(NewFeaturesCmd())
	rootCmd.AddCommand(NewReportCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// initializeGlobals sets up logging and loads configuration.
func initializeGlobals(cmd *cobra.Command) error {
	appLogger = output.SetupLogging(output.LogConfig{Verbose: verboseFlag, Output: cmd.ErrOrStderr()})

	loader := config.NewLoader()
	cfg, err := loader.Load(configFlag)
	if err != nil {
		return err
	}
	if used := loader.ConfigFile(); used != "" {
		slog.Debug("Loaded config", "file", used)
	}
	appConfig = cfg
	return nil
}
