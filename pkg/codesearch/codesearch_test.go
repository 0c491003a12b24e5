package codesearch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func numberedLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func TestIsCodeFile(t *testing.T) {
	for _, p := range []string{"a.java", "b.PY", "c/d.go", "e.rs", "f.Kt", "g.swift", "h.cs"} {
		assert.True(t, IsCodeFile(p), p)
	}
	for _, p := range []string{"README.md", "Makefile", "x.json", "y.java.bak"} {
		assert.False(t, IsCodeFile(p), p)
	}
}

func TestValidateFolder(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	writeFile(t, file, "x")

	assert.NoError(t, ValidateFolder(dir))
	assert.ErrorIs(t, ValidateFolder(filepath.Join(dir, "missing")), ErrFolderNotFound)
	assert.ErrorIs(t, ValidateFolder(file), ErrNotAFolder)
}

func TestCountCodeFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "")
	writeFile(t, filepath.Join(root, "pkg", "b.java"), "")
	writeFile(t, filepath.Join(root, "pkg", "deep", "c.py"), "")
	writeFile(t, filepath.Join(root, "README.md"), "")
	writeFile(t, filepath.Join(root, "node_modules", "dep", "index.js"), "")

	n, err := CountCodeFiles(root)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = CountCodeFiles(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestSearch_ExactMatchesFirst(t *testing.T) {
	root1 := t.TempDir()
	root2 := t.TempDir()
	writeFile(t, filepath.Join(root1, "orders", "OrderService.java"), "class OrderService {}")
	writeFile(t, filepath.Join(root1, "orders", "LegacyOrderService.java"), "class LegacyOrderService {}")
	writeFile(t, filepath.Join(root1, "orders", "OrderService.md"), "docs")
	writeFile(t, filepath.Join(root1, "node_modules", "x", "OrderService.java"), "ignored")
	writeFile(t, filepath.Join(root2, "legacy", "OrderService.java"), "class OrderService {}")
	missing := filepath.Join(root1, "does-not-exist")

	res, err := Search(context.Background(), []string{root1, missing, root2}, "OrderService.java")
	require.NoError(t, err)

	require.Len(t, res.Matches, 3)
	assert.True(t, res.Matches[0].Exact)
	assert.True(t, res.Matches[1].Exact)
	assert.False(t, res.Matches[2].Exact)
	assert.Equal(t, "LegacyOrderService.java", filepath.Base(res.Matches[2].Path))
	assert.Equal(t, "orders/LegacyOrderService.java", res.Matches[2].Display)

	displays := []string{res.Matches[0].Display, res.Matches[1].Display}
	assert.ElementsMatch(t, []string{"orders/OrderService.java", "legacy/OrderService.java"}, displays)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, missing, res.Skipped[0].Path)
	assert.ErrorIs(t, res.Skipped[0].Err, ErrFolderNotFound)

	best, ok := res.Best()
	require.True(t, ok)
	assert.Equal(t, res.Matches[0], best)
}

func TestSearch_PrefersPathContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "legacy", "invoice.py"), "")
	writeFile(t, filepath.Join(root, "billing", "invoice.py"), "")

	res, err := Search(context.Background(), []string{root}, "/srv/app/billing/invoice.py")
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)

	assert.Equal(t, filepath.Join(root, "billing", "invoice.py"), res.Matches[0].Path)
	assert.True(t, res.Matches[0].InContext)
	assert.False(t, res.Matches[1].InContext)
}

func TestSearch_NoMatches(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "")

	res, err := Search(context.Background(), []string{root}, "Other.java")
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	_, ok := res.Best()
	assert.False(t, ok)

	res, err = Search(context.Background(), []string{root}, "")
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
}

func TestSearch_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Search(ctx, []string{root}, "main.go")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestReadSnippet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Svc.java")
	writeFile(t, path, numberedLines(30))

	tests := []struct {
		name      string
		line      int
		wantFirst string
		wantLast  string
		wantLines int
	}{
		{name: "middle", line: 15, wantFirst: "line 5", wantLast: "line 24", wantLines: 20},
		{name: "near start", line: 2, wantFirst: "line 1", wantLast: "line 11", wantLines: 11},
		{name: "near end", line: 30, wantFirst: "line 20", wantLast: "line 30", wantLines: 11},
		{name: "unknown line reads head", line: 0, wantFirst: "line 1", wantLast: "line 20", wantLines: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadSnippet(path, tt.line, 10)
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
			assert.Len(t, lines, tt.wantLines)
			assert.Equal(t, tt.wantFirst, lines[0])
			assert.Equal(t, tt.wantLast, lines[len(lines)-1])
		})
	}

	got, err := ReadSnippet(path, 500, 10)
	require.NoError(t, err)
	assert.Empty(t, got, "line past the end yields nothing")

	_, err = ReadSnippet(filepath.Join(t.TempDir(), "missing.java"), 1, 10)
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.go")
	writeFile(t, path, strings.Repeat("a", 100))

	content, truncated, err := ReadFile(path, 40)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Len(t, content, 40)

	content, truncated, err = ReadFile(path, 100)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Len(t, content, 100)

	_, _, err = ReadFile(filepath.Dir(path), 10)
	assert.ErrorIs(t, err, ErrNotAFile)
}
