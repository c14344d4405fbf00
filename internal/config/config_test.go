package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jwtly10/shadertpl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderLoad(t *testing.T) {
	t.Run("loads config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "shadertpl.yaml")

		content := `
moduleDirs:
  - modules
  - vendor/modules
outputDir: generated
mode: shadow
noBackup: true
workers: 8
features: [OUTLINE, RIM]
keywords:
  RENDER_TYPE: Opaque
`
		require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

		cfg, err := NewLoader().Load(configFile)
		require.NoError(t, err)

		assert.Equal(t, []string{"modules", "vendor/modules"}, cfg.ModuleDirs)
		assert.Equal(t, "generated", cfg.OutputDir)
		assert.True(t, cfg.NoBackup)
		assert.Equal(t, 8, cfg.Workers)

		mode, err := cfg.WriterMode()
		require.NoError(t, err)
		assert.Equal(t, shadertpl.ModeShadow, mode)

		tc := cfg.TemplateConfig()
		assert.Equal(t, []string{"OUTLINE", "RIM"}, tc.Features.Sorted())
		assert.Equal(t, "Opaque", tc.Keyword("RENDER_TYPE"))
	})

	t.Run("returns defaults for missing file", func(t *testing.T) {
		cfg, err := NewLoader().Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
		require.NoError(t, err)
		assert.Empty(t, cfg.ModuleDirs)
		assert.Equal(t, "pretty", cfg.Mode)
		assert.Equal(t, DefaultWorkers, cfg.Workers)
	})

	t.Run("env vars override file values", func(t *testing.T) {
		t.Setenv("SHADERTPL_OUTPUT_DIR", "/env/out")
		t.Setenv("SHADERTPL_WORKERS", "2")

		configFile := filepath.Join(t.TempDir(), "shadertpl.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("outputDir: file/out\nworkers: 6\n"), 0o644))

		cfg, err := NewLoader().Load(configFile)
		require.NoError(t, err)
		assert.Equal(t, "/env/out", cfg.OutputDir)
		assert.Equal(t, 2, cfg.Workers)
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "shadertpl.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("mode: fancy\n"), 0o644))

		_, err := NewLoader().Load(configFile)
		require.ErrorContains(t, err, `unknown mode "fancy"`)
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "shadertpl.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("mode: [unclosed\n"), 0o644))

		_, err := NewLoader().Load(configFile)
		require.ErrorContains(t, err, "reading config file")
	})
}

func TestConfig_ModuleRegistry(t *testing.T) {
	assert.Nil(t, (&Config{}).ModuleRegistry())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Module_Rim.txt"), []byte("#VARIABLES\nfloat _Rim;\n#END\n"), 0o644))

	reg := (&Config{ModuleDirs: []string{dir}}).ModuleRegistry()
	require.NotNil(t, reg)
	assert.Equal(t, []string{"Rim"}, reg.Available())

	m, err := reg.Load("Rim")
	require.NoError(t, err)
	assert.Equal(t, "Rim", m.Name)
}

func TestConfig_LoadInjections(t *testing.T) {
	m, err := (&Config{}).LoadInjections()
	require.NoError(t, err)
	assert.Nil(t, m)

	dir := t.TempDir()
	file := filepath.Join(dir, "wind.txt")
	content := "#INJECT Vertex Offset\nfloat\tWindStrength\tvertex\timp(material_float, variable = \"_WindStrength\")\n#END\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	m, err = (&Config{InjectionFiles: []string{file}}).LoadInjections()
	require.NoError(t, err)
	assert.Equal(t, []string{"Vertex Offset"}, m.Points())

	_, err = (&Config{InjectionFiles: []string{filepath.Join(dir, "missing.txt")}}).LoadInjections()
	assert.ErrorContains(t, err, "opening injection file")
}
