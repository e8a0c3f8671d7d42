package output

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

// FileStore writes run files under Root/<run id>/.
type FileStore struct {
	Root string
}

func NewFileStore(root string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("output: file store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	return &FileStore{Root: abs}, nil
}

func (s *FileStore) path(runID, name string) (string, error) {
	runID, name, err := key(runID, name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, runID, filepath.FromSlash(name)), nil
}

func (s *FileStore) Put(_ context.Context, runID, name string, content []byte) error {
	p, err := s.path(runID, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, runID, name string) ([]byte, error) {
	p, err := s.path(runID, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *FileStore) List(_ context.Context, runID string) ([]string, error) {
	runID, err := checkRunID(runID)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.Root, runID)
	var out []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (s *FileStore) Location(_ context.Context, runID, name string) (string, error) {
	return s.path(runID, name)
}
