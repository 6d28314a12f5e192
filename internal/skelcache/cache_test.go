package skelcache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExtractor struct {
	calls int32
}

func (c *countingExtractor) Squeeze(absPath string) (string, error) {
	atomic.AddInt32(&c.calls, 1)
	info, err := os.Stat(absPath)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("skeleton@%d", info.ModTime().UnixNano()), nil
}

func TestGetCachesUntilMtimeChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.go")
	require.NoError(t, os.WriteFile(path, []byte("package a"), 0644))

	ext := &countingExtractor{}
	c := New(ext)

	s1, ok, err := c.Get(path)
	require.NoError(t, err)
	require.True(t, ok)

	s2, ok, err := c.Get(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s1, s2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ext.calls))

	// touch with a later mtime
	future := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	s3, ok, err := c.Get(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, s1, s3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&ext.calls))
}

func TestGetMissingFile(t *testing.T) {
	c := New(&countingExtractor{})
	_, ok, err := c.Get(filepath.Join(t.TempDir(), "missing.go"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidateForcesRecompute(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.go")
	require.NoError(t, os.WriteFile(path, []byte("package a"), 0644))

	ext := &countingExtractor{}
	c := New(ext)

	_, _, err := c.Get(path)
	require.NoError(t, err)
	c.Invalidate(path)
	_, _, err = c.Get(path)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&ext.calls))
}
