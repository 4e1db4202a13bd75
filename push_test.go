package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
)

func TestKeyForFile(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		rel    string
		want   string
	}{
		{"no prefix", "", "dir/file.txt", "dir/file.txt"},
		{"with prefix", "backups", "file.txt", "backups/file.txt"},
		{"prefix trailing slash collapsed", "backups/", "file.txt", "backups/file.txt"},
		{"nested prefix", "a/b", "c/d.txt", "a/b/c/d.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keyForFile(tt.prefix, tt.rel))
		})
	}
}

func TestKeyForFileNormalizesUnicode(t *testing.T) {
	// "é" in decomposed form (e + combining acute), as macOS filesystems
	// report it.
	decomposed := "caf" + "é" + ".txt"

	key := keyForFile("", decomposed)

	assert.Equal(t, "café.txt", key)
	assert.True(t, norm.NFC.IsNormalString(key))
}

func TestScanDir(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "deep", "nested.bin"), []byte("abc"), 0o644))

	files, err := scanDir(root, "pre")
	require.NoError(t, err)
	require.Len(t, files, 2)

	byKey := make(map[string]localFile, len(files))
	for _, f := range files {
		byKey[f.key] = f
	}

	top, ok := byKey["pre/top.txt"]
	require.True(t, ok)
	assert.Equal(t, int64(5), top.size)
	assert.Equal(t, filepath.Join(root, "top.txt"), top.path)

	nested, ok := byKey["pre/sub/deep/nested.bin"]
	require.True(t, ok)
	assert.Equal(t, int64(3), nested.size)
}

func TestScanDirMissingRoot(t *testing.T) {
	_, err := scanDir(filepath.Join(t.TempDir(), "does-not-exist"), "")
	require.Error(t, err)
}
