// Command shadertpl-ls is the language server for shader templates.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/jwtly10/shadertpl/internal/config"
	"github.com/jwtly10/shadertpl/internal/lsp/server"
	"github.com/sourcegraph/jsonrpc2"
)

// getLogFile returns a log file for the lsp server to write to.
//
// During development (-debug flag) uses persistent log for easy access.
func getLogFile(debug bool) (*os.File, error) {
	if debug {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		logDir := filepath.Join(homeDir, ".shadertpl")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		return os.OpenFile(filepath.Join(logDir, "shadertpl-ls.log"),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	}

	return os.CreateTemp("", "shadertpl-ls-*.log")
}

func main() {
	var (
		debug         bool
		configFile    string
		shadowRoot    string
		compileOnSave bool
	)
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&configFile, "config", "", "Path to config file (default ./"+config.DefaultFile+")")
	flag.StringVar(&shadowRoot, "shadow-root", "", "Directory for shadow files (default a temp directory)")
	flag.BoolVar(&compileOnSave, "compile-on-save", false, "Write the final shader when a template is saved")
	flag.Parse()

	logFile, err := getLogFile(debug)
	if err != nil {
		slog.Error("failed to setup logging", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	// stdout carries the protocol, logs go to stderr and the log file
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(io.MultiWriter(os.Stderr, logFile), log.Options{
		Level:           level,
		ReportTimestamp: true,
		ReportCaller:    debug,
	})
	slog.SetDefault(slog.New(logger))

	slog.Info("starting shadertpl-ls", "logfile", logFile.Name())

	o, err := serverOptions(configFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	o.ShadowRoot = shadowRoot
	o.CompileOnSave = compileOnSave

	s, err := server.NewServer(o)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	rwc := server.NewStdRWC()
	if debug {
		rwc = rwc.WithTrace(logFile)
	}

	<-jsonrpc2.NewConn(
		context.Background(),
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(s.Handle),
	).DisconnectNotify()
}

// serverOptions builds the server options from the shadertpl.yaml of the workspace
func serverOptions(configFile string) (server.Options, error) {
	cfg, err := config.NewLoader().Load(configFile)
	if err != nil {
		return server.Options{}, err
	}

	o := server.Options{
		Config:    cfg.TemplateConfig(),
		OutputDir: cfg.OutputDir,
	}

	if reg := cfg.ModuleRegistry(); reg != nil {
		o.Modules = reg
	}
	inj, err := cfg.LoadInjections()
	if err != nil {
		return server.Options{}, err
	}
	if inj != nil {
		o.Injections = inj
	}

	return o, nil
}
