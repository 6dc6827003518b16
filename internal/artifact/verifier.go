package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Verifier answers existence and listing questions against the durable
// artifact store. It is the ground truth for whether a clip actually exists.
type Verifier interface {
	Exists(ctx context.Context, path string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// ErrPathOutsideStore indicates a path that escapes the store root.
var ErrPathOutsideStore = errors.New("path outside artifact store")

// FSVerifier verifies artifacts against a local filesystem root.
type FSVerifier struct {
	root string
}

// NewFSVerifier returns a verifier rooted at the given directory.
func NewFSVerifier(root string) *FSVerifier {
	return &FSVerifier{root: filepath.Clean(root)}
}

// Exists reports whether the store contains a regular file at path.
func (v *FSVerifier) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	full, err := v.resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat artifact %q: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// List returns the store-relative paths of all files under prefix, sorted.
// A missing prefix directory yields an empty list, not an error.
func (v *FSVerifier) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := v.resolve(prefix)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat prefix %q: %w", prefix, err)
	}
	if !info.IsDir() {
		rel, err := filepath.Rel(v.root, full)
		if err != nil {
			return nil, err
		}
		return []string{filepath.ToSlash(rel)}, nil
	}

	var paths []string
	err = filepath.WalkDir(full, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(v.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list prefix %q: %w", prefix, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (v *FSVerifier) resolve(path string) (string, error) {
	cleaned := filepath.Clean(strings.TrimSpace(path))
	if cleaned == "." || cleaned == "" {
		return v.root, nil
	}
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideStore, path)
	}
	full := filepath.Join(v.root, cleaned)
	rel, err := filepath.Rel(v.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideStore, path)
	}
	return full, nil
}
