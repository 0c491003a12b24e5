package codesearch

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"
)

// Directories never worth descending into when looking for source files.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// Match is a source file that may correspond to a stack frame.
type Match struct {
	Path    string `json:"path"`
	Display string `json:"display"`
	Folder  string `json:"folder"`
	// Exact is true when the base name equals the frame's file name.
	Exact bool `json:"exact"`
	// InContext is true when the path relative to its folder is a fuzzy
	// subsequence of the frame's full path.
	InContext bool `json:"in_context"`
	Score     int  `json:"score"`
}

// SkippedFolder is a folder that could not be searched.
type SkippedFolder struct {
	Path string
	Err  error
}

type SearchResult struct {
	Matches []Match
	Skipped []SkippedFolder
}

// Best returns the highest ranked match.
func (r *SearchResult) Best() (Match, bool) {
	if r == nil || len(r.Matches) == 0 {
		return Match{}, false
	}
	return r.Matches[0], true
}

// Search looks through folders for source files matching target, the file
// reported by a stack frame (a bare name or a full path). Invalid folders are
// reported in Skipped. Matches are ranked exact name first.
func Search(ctx context.Context, folders []string, target string) (*SearchResult, error) {
	result := &SearchResult{}
	base := filepath.Base(filepath.FromSlash(target))
	if target == "" || base == "." || base == string(filepath.Separator) {
		return result, nil
	}
	targetSlash := filepath.ToSlash(target)

	var valid []string
	for _, folder := range folders {
		if err := ValidateFolder(folder); err != nil {
			result.Skipped = append(result.Skipped, SkippedFolder{Path: folder, Err: err})
			continue
		}
		valid = append(valid, folder)
	}

	perFolder := make([][]Match, len(valid))
	g, gctx := errgroup.WithContext(ctx)
	for i, folder := range valid {
		g.Go(func() error {
			matches, err := searchFolder(gctx, folder, base, targetSlash)
			perFolder[i] = matches
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, matches := range perFolder {
		for _, m := range matches {
			if seen[m.Path] {
				continue
			}
			seen[m.Path] = true
			result.Matches = append(result.Matches, m)
		}
	}
	rank(result.Matches)
	return result, nil
}

func searchFolder(ctx context.Context, folder, base, targetSlash string) ([]Match, error) {
	var matches []Match
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if d != nil && d.IsDir() && path != folder {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != folder && skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !IsCodeFile(path) {
			return nil
		}

		exact := d.Name() == base
		if !exact && !strings.Contains(path, base) {
			return nil
		}

		rel, relErr := filepath.Rel(folder, path)
		if relErr != nil {
			rel = path
		}
		relSlash := filepath.ToSlash(rel)

		m := Match{
			Path:    path,
			Display: relSlash,
			Folder:  folder,
			Exact:   exact,
		}
		if exact {
			m.Display = filepath.Base(filepath.Dir(path)) + "/" + d.Name()
		}
		if fm := fuzzy.Find(base, []string{relSlash}); len(fm) > 0 {
			m.Score = fm[0].Score
		}
		if fm := fuzzy.Find(relSlash, []string{targetSlash}); len(fm) > 0 {
			m.InContext = true
			m.Score += fm[0].Score
		}
		matches = append(matches, m)
		return nil
	})
	return matches, err
}

func rank(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Exact != b.Exact {
			return a.Exact
		}
		if a.InContext != b.InContext {
			return a.InContext
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if len(a.Path) != len(b.Path) {
			return len(a.Path) < len(b.Path)
		}
		return a.Path < b.Path
	})
}
