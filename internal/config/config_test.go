package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigHasUsableDefaults(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig(root)

	assert.Equal(t, root, cfg.Service.Root)
	assert.Equal(t, 9177, cfg.Service.Port)
	assert.Equal(t, 200, cfg.Index.ChunkSize)
	assert.Equal(t, 20, cfg.Index.ChunkOverlap)
	assert.Equal(t, 8000, cfg.Index.ResponseCapByte)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfigHonorsEnvOverrides(t *testing.T) {
	root := t.TempDir()
	t.Setenv("RLM_PORT", "9200")
	cfg := DefaultConfig(root)
	assert.Equal(t, 9200, cfg.Service.Port)
}

func TestValidateRejectsOverlapAtOrAboveChunkSize(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig(root)
	cfg.Index.ChunkOverlap = cfg.Index.ChunkSize
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMissingRoot(t *testing.T) {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadPort(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig(root)
	cfg.Service.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestLoadMergesTOMLOverDefaults(t *testing.T) {
	root := t.TempDir()
	confPath := filepath.Join(root, "rlmd.toml")
	require.NoError(t, os.WriteFile(confPath, []byte(`
[service]
port = 9300

[index]
chunk_size = 100
`), 0644))

	cfg, err := Load(confPath, root)
	require.NoError(t, err)
	assert.Equal(t, 9300, cfg.Service.Port)
	assert.Equal(t, 100, cfg.Index.ChunkSize)
	assert.Equal(t, 20, cfg.Index.ChunkOverlap)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(filepath.Join(root, "missing.toml"), root)
	require.NoError(t, err)
	assert.Equal(t, 9177, cfg.Service.Port)
}

func TestStringSliceUnmarshalsBareStringAsSingleton(t *testing.T) {
	root := t.TempDir()
	confPath := filepath.Join(root, "rlmd.toml")
	require.NoError(t, os.WriteFile(confPath, []byte(`
[logging]
output = "console"
`), 0644))

	cfg, err := Load(confPath, root)
	require.NoError(t, err)
	assert.Equal(t, StringSlice{"console"}, cfg.Logging.Output)
}

func TestEnsureDirectoriesCreatesStateTree(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig(root)
	require.NoError(t, cfg.EnsureDirectories())

	assert.DirExists(t, cfg.ChunkRootDir())
	assert.DirExists(t, cfg.SandboxStateDir())
}
