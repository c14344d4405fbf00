package transformer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixtureFiles are the template and expected outputs of a test case, every
// other file in the case directory is a support file
var fixtureFiles = map[string]bool{
	"input.sg2.txt":          true,
	"expected.shader":        true,
	"expected.shadow.shader": true,
}

type testDir struct {
	path string
	t    *testing.T
}

// setupFiles copies the supporting files of a test case, such as modules, into destDir
func setupFiles(t *testing.T, srcDir string, destDir *testDir) {
	t.Helper()

	entries, err := os.ReadDir(srcDir)
	require.NoError(t, err)

	for _, entry := range entries {
		if entry.IsDir() || fixtureFiles[entry.Name()] {
			continue
		}

		content, err := os.ReadFile(filepath.Join(srcDir, entry.Name()))
		require.NoError(t, err)

		destDir.createFile(entry.Name(), string(content))
	}
}

func newTestDir(t *testing.T) *testDir {
	t.Helper()

	dir, err := os.MkdirTemp("", "transformer-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	return &testDir{
		path: dir,
		t:    t,
	}
}

func (td *testDir) cleanup() {
	td.t.Helper()
	if err := os.RemoveAll(td.path); err != nil {
		td.t.Errorf("failed to cleanup test dir: %v", err)
	}
}

func (td *testDir) createFile(name, content string) string {
	td.t.Helper()

	path := filepath.Join(td.path, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		td.t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func (td *testDir) readFile(name string) string {
	td.t.Helper()

	content, err := os.ReadFile(filepath.Join(td.path, name))
	require.NoError(td.t, err)
	return string(content)
}

// fixture reads one of the fixtureFiles of the case in srcDir
func fixture(t *testing.T, srcDir, name string) string {
	t.Helper()
	require.True(t, fixtureFiles[name], "%s is not a fixture file", name)

	content, err := os.ReadFile(filepath.Join(srcDir, name))
	require.NoError(t, err)
	return string(content)
}
