package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPathsOptional(t *testing.T) {
	tmpDir := t.TempDir()

	file1 := filepath.Join(tmpDir, "file1.yaml")
	require.NoError(t, os.WriteFile(file1, []byte("test"), 0644))
	subDir := filepath.Join(tmpDir, "dir.yaml")
	require.NoError(t, os.Mkdir(subDir, 0755))

	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{"finds existing file", []string{filepath.Join(tmpDir, "missing.yaml"), file1}, file1},
		{"skips directories", []string{subDir}, ""},
		{"returns empty string when not found", []string{filepath.Join(tmpDir, "nonexistent.yaml")}, ""},
		{"handles empty path list", []string{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchPathsOptional(tt.paths))
		})
	}
}

func TestDefaultConfigPaths(t *testing.T) {
	paths := DefaultConfigPaths("formrelay.yaml")

	require.Len(t, paths, 3)
	for _, path := range paths {
		assert.True(t, strings.HasSuffix(path, "formrelay.yaml"), path)
	}
	assert.True(t, strings.HasPrefix(paths[2], SystemConfigDir))
}

func TestDefaultEnvFiles(t *testing.T) {
	files := DefaultEnvFiles()

	require.Len(t, files, 2)
	assert.Equal(t, ".env", files[0])
	assert.Equal(t, filepath.Join(SystemConfigDir, "formrelay.env"), files[1])
}

func TestFindConfigOptional(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "config"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config", "formrelay.yaml"), []byte("port: 1"), 0644))
	chdir(t, tmpDir)

	assert.Equal(t, filepath.Join("config", "formrelay.yaml"), FindConfigOptional("formrelay.yaml"))
	assert.Equal(t, "", FindConfigOptional("other.yaml"))
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("test"), 0644))

	assert.True(t, FileExists(testFile))
	assert.False(t, FileExists(tmpDir))
	assert.False(t, FileExists(filepath.Join(tmpDir, "nonexistent.txt")))
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
