// Package config loads the shadertpl.yaml settings shared by the CLI and the
// language server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/jwtly10/shadertpl"
	"github.com/jwtly10/shadertpl/internal/injection"
	"github.com/jwtly10/shadertpl/internal/modules"
	"github.com/spf13/viper"
)

const (
	envPrefix = "SHADERTPL"

	// DefaultFile is looked up in the working directory when no config file is given
	DefaultFile = "shadertpl.yaml"

	DefaultWorkers = 4
)

// Config is the content of shadertpl.yaml.
type Config struct {
	// Directories modules are loaded from, in lookup order
	ModuleDirs []string `mapstructure:"moduleDirs"`
	// Files with #INJECT blocks
	InjectionFiles []string `mapstructure:"injectionFiles"`

	// Where generated shaders go, next to their template when empty
	OutputDir string `mapstructure:"outputDir"`
	// pretty or shadow
	Mode     string `mapstructure:"mode"`
	NoBackup bool   `mapstructure:"noBackup"`
	// Write a <shader>.report.yaml usage report next to each output
	Report  bool `mapstructure:"report"`
	Workers int  `mapstructure:"workers"`

	// Features and keywords every template is compiled with
	Features []string          `mapstructure:"features"`
	Keywords map[string]string `mapstructure:"keywords"`
}

// WithDefaults fills in unset values
func (c *Config) WithDefaults() *Config {
	if c.Mode == "" {
		c.Mode = "pretty"
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	return c
}

// WriterMode maps Mode to a shadertpl.WriteMode
func (c *Config) WriterMode() (shadertpl.WriteMode, error) {
	switch strings.ToLower(c.Mode) {
	case "", "pretty":
		return shadertpl.ModePretty, nil
	case "shadow":
		return shadertpl.ModeShadow, nil
	default:
		return 0, fmt.Errorf("unknown mode %q, expected pretty or shadow", c.Mode)
	}
}

// TemplateConfig returns the compilation request for the configured features
// and keywords. Keyword names are upper-cased since viper folds map keys.
func (c *Config) TemplateConfig() *shadertpl.Config {
	cfg := shadertpl.NewConfig(c.Features...)
	for k, v := range c.Keywords {
		cfg.Keywords[strings.ToUpper(k)] = v
	}
	return cfg
}

// ModuleRegistry returns a registry over ModuleDirs, or nil when there are none
func (c *Config) ModuleRegistry() *modules.FSRegistry {
	if len(c.ModuleDirs) == 0 {
		return nil
	}
	dirs := make([]fs.FS, 0, len(c.ModuleDirs))
	for _, d := range c.ModuleDirs {
		dirs = append(dirs, os.DirFS(d))
	}
	return modules.NewFSRegistry(dirs...)
}

// LoadInjections reads every injection file, or returns nil when there are none
func (c *Config) LoadInjections() (*injection.Manager, error) {
	if len(c.InjectionFiles) == 0 {
		return nil, nil
	}
	m := injection.NewManager()
	for _, file := range c.InjectionFiles {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("opening injection file: %w", err)
		}
		diags, err := m.Load(f, file)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("loading injection file %s: %w", file, err)
		}
		diags.Log(slog.Default())
	}
	slog.Debug("Loaded injection files", "count", len(c.InjectionFiles), "points", m.Points())
	return m, nil
}

// Loader handles loading configuration from a file and the environment.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("moduleDirs", "SHADERTPL_MODULE_DIRS")
	_ = v.BindEnv("injectionFiles", "SHADERTPL_INJECTION_FILES")
	_ = v.BindEnv("outputDir", "SHADERTPL_OUTPUT_DIR")
	_ = v.BindEnv("mode", "SHADERTPL_MODE")
	_ = v.BindEnv("noBackup", "SHADERTPL_NO_BACKUP")
	_ = v.BindEnv("report", "SHADERTPL_REPORT")
	_ = v.BindEnv("workers", "SHADERTPL_WORKERS")
	_ = v.BindEnv("features", "SHADERTPL_FEATURES")

	return &Loader{v: v}
}

// Load reads configFile, or shadertpl.yaml in the working directory when
// configFile is empty. A missing file is not an error. Environment variables
// take precedence over file values.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile == "" {
		configFile = DefaultFile
	}

	l.v.SetConfigFile(configFile)
	l.v.SetConfigType("yaml")

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if _, err := cfg.WithDefaults().WriterMode(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFile returns the file the last Load read, if any
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}
