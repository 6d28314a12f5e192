package treeview

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCache struct {
	skeletons map[string]string
}

func (s stubCache) Get(absPath string) (string, bool, error) {
	v, ok := s.skeletons[absPath]
	return v, ok, nil
}

func TestTreeSortsDirsFirstCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "Zdir"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "adir"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a"), 0644))

	svc := New(root, stubCache{}, 50, 10)
	node, err := svc.Tree("", 4)
	require.NoError(t, err)
	require.Len(t, node.Entries, 3)
	assert.Equal(t, "dir", node.Entries[0].Type)
	assert.Equal(t, "adir", node.Entries[0].Name)
	assert.Equal(t, "dir", node.Entries[1].Type)
	assert.Equal(t, "Zdir", node.Entries[1].Name)
	assert.Equal(t, "file", node.Entries[2].Type)
}

func TestTreeMaxDepthZeroOmitsNestedEntries(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "x.go"), []byte("package x"), 0644))

	svc := New(root, stubCache{}, 50, 10)
	node, err := svc.Tree("", 0)
	require.NoError(t, err)
	require.Len(t, node.Entries, 1)
	assert.Equal(t, 1, node.Entries[0].Children)
	assert.Nil(t, node.Entries[0].Entries)
}

func TestSearchZeroMatchesReturnsEmptyNotError(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a"), 0644))

	svc := New(root, stubCache{skeletons: map[string]string{path: "# a.go — no structural elements found (1 lines)"}}, 50, 10)
	results, err := svc.Search("doesnotexist", "")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestSearchCaseInsensitiveMatch(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a"), 0644))

	svc := New(root, stubCache{skeletons: map[string]string{path: "func Widget() {}  # L1-1"}}, 50, 10)
	results, err := svc.Search("WIDGET", "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.go", results[0].Path)
}
