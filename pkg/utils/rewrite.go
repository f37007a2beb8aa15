package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cherry/cherry/pkg/source"
)

// Decision says how a source is reachable from an output directory.
// Path is relative to the output directory in both cases.
type Decision struct {
	NeedsCopy bool
	Path      string
}

// ResolveSubPath decides how the file at sourcePath is referenced from outputDir.
// A file inside outputDir's subtree is referenced in place. Any other file gets a
// local name "<stem>.dev<ext>" and, when allowCopy is set, is copied there.
func ResolveSubPath(sourcePath, outputDir string, allowCopy bool) (Decision, error) {
	absSource, err := filepath.Abs(sourcePath)
	if err != nil {
		return Decision{}, err
	}
	absOut, err := filepath.Abs(outputDir)
	if err != nil {
		return Decision{}, err
	}

	if rel, ok := subPath(absSource, absOut); ok {
		return Decision{NeedsCopy: false, Path: rel}, nil
	}

	decision := Decision{NeedsCopy: true, Path: DevCopyName(absSource)}
	if allowCopy {
		if err := CopyFile(absSource, filepath.Join(absOut, decision.Path)); err != nil {
			if os.IsNotExist(err) {
				return Decision{}, fmt.Errorf("%w: %s: %w", source.ErrMissingSource, sourcePath, err)
			}
			return Decision{}, fmt.Errorf("failed to copy %s into %s: %w", sourcePath, outputDir, err)
		}
	}
	return decision, nil
}

// CleanSubPath removes the copy ResolveSubPath would have made for sourcePath.
// It is a no-op for in-tree files and for copies that do not exist.
func CleanSubPath(sourcePath, outputDir string) (removed string, err error) {
	decision, err := ResolveSubPath(sourcePath, outputDir, false)
	if err != nil {
		return "", err
	}
	if !decision.NeedsCopy {
		return "", nil
	}

	target := filepath.Join(outputDir, decision.Path)
	ok, err := RemoveIfExists(target)
	if err != nil {
		return "", fmt.Errorf("failed to remove %s: %w", target, err)
	}
	if !ok {
		return "", nil
	}
	return target, nil
}

// DevCopyName returns the local file name used for an out-of-tree file
func DevCopyName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ".dev" + ext
}

func subPath(path, dir string) (string, bool) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
