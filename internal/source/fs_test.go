package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func newCorpus(t *testing.T) (string, *FSSource) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "pdf/SKILL.md", "---\nname: pdf\ndescription: PDF tools\n---\nbody")
	writeFile(t, root, "pdf/scripts/extract.py", "print('hi')\n")
	writeFile(t, root, "office/xlsx/SKILL.md", "---\nname: xlsx\ndescription: Spreadsheets\ncategory: Office\n---\n")
	writeFile(t, root, ".git/hooks/SKILL.md", "---\nname: hidden\n---\n")
	writeFile(t, root, "broken/SKILL.md", "---\nname: [oops\n---\n")

	src, err := NewFSSource(root)
	require.NoError(t, err)
	return root, src
}

func TestFSSource_Load(t *testing.T) {
	_, src := newCorpus(t)

	skills, err := src.Load(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(skills))
	for _, s := range skills {
		ids = append(ids, s.ID)
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"office/xlsx", "pdf"}, ids)
}

func TestFSSource_Stat(t *testing.T) {
	root, src := newCorpus(t)
	ctx := context.Background()

	stat, err := src.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stat.Count)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "pdf", "SKILL.md"), later, later))

	changed, err := src.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, changed.Count)
	assert.True(t, changed.LatestModified.After(stat.LatestModified))
}

func TestFSSource_StatMissingRoot(t *testing.T) {
	src, err := NewFSSource(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)

	stat, err := src.Stat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stat.Count)

	skills, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, skills)
}

func TestFSSource_ReadFile(t *testing.T) {
	root, src := newCorpus(t)
	ctx := context.Background()

	file, err := src.ReadFile(ctx, "pdf", "scripts/extract.py", 1024)
	require.NoError(t, err)
	assert.Equal(t, "scripts/extract.py", file.Path)
	assert.Equal(t, "print('hi')\n", file.Content)
	assert.Equal(t, int64(12), file.Size)

	_, err = src.ReadFile(ctx, "pdf", "../office/xlsx/SKILL.md", 1024)
	assert.ErrorIs(t, err, domain.ErrPathTraversal)

	_, err = src.ReadFile(ctx, "pdf", "missing.md", 1024)
	assert.ErrorIs(t, err, domain.ErrFileNotFound)

	_, err = src.ReadFile(ctx, "pdf", "scripts", 1024)
	assert.ErrorIs(t, err, domain.ErrFileNotFound)

	writeFile(t, root, "pdf/big.txt", strings.Repeat("x", 2048))
	_, err = src.ReadFile(ctx, "pdf", "big.txt", 1024)
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	writeFile(t, root, "pdf/blob.bin", string([]byte{0xff, 0xfe, 0x00}))
	_, err = src.ReadFile(ctx, "pdf", "blob.bin", 1024)
	assert.ErrorIs(t, err, domain.ErrFileNotText)
}

func TestFSSource_ReadFileSymlinkEscape(t *testing.T) {
	root, src := newCorpus(t)
	outside := writeFile(t, t.TempDir(), "secret.txt", "secret")

	if err := os.Symlink(outside, filepath.Join(root, "pdf", "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := src.ReadFile(context.Background(), "pdf", "link.txt", 1024)
	assert.ErrorIs(t, err, domain.ErrPathTraversal)
}

func TestFSSource_Dirs(t *testing.T) {
	root, src := newCorpus(t)

	dirs, err := src.Dirs()
	require.NoError(t, err)

	assert.Contains(t, dirs, root)
	assert.Contains(t, dirs, filepath.Join(root, "office", "xlsx"))
	assert.NotContains(t, dirs, filepath.Join(root, ".git"))
}
