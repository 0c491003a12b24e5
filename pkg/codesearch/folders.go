package codesearch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var codeExtensions = map[string]bool{
	".java":  true,
	".py":    true,
	".js":    true,
	".ts":    true,
	".cpp":   true,
	".c":     true,
	".cs":    true,
	".go":    true,
	".php":   true,
	".rb":    true,
	".swift": true,
	".kt":    true,
	".rs":    true,
}

var (
	ErrFolderNotFound    = errors.New("folder does not exist")
	ErrNotAFolder        = errors.New("path is not a folder")
	ErrFolderNotReadable = errors.New("folder is not readable")
	ErrNotAFile          = errors.New("path is not a file")
)

// IsCodeFile reports whether path has one of the supported source extensions.
func IsCodeFile(path string) bool {
	return codeExtensions[strings.ToLower(filepath.Ext(path))]
}

// ValidateFolder checks that path exists, is a directory and can be listed.
func ValidateFolder(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrFolderNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFolderNotReadable, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotAFolder, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFolderNotReadable, path, err)
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: %v", ErrFolderNotReadable, path, err)
	}
	return nil
}

// CountCodeFiles counts source files under root, recursively. Unreadable
// subdirectories are skipped, as are the ones Search never enters.
func CountCodeFiles(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if IsCodeFile(path) {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count code files in %s: %w", root, err)
	}
	return count, nil
}
