// Package output persists the files a run leaves behind: the final source,
// the executable test, the packages manifest and the run report.
package output

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Store persists files of a run, addressed by run id and relative path.
type Store interface {
	Put(ctx context.Context, runID, path string, content []byte) error
	Get(ctx context.Context, runID, path string) ([]byte, error)
	List(ctx context.Context, runID string) ([]string, error)
	// Location is where a reader finds the file: a file path, a URL, or ""
	// when the backend has no external address.
	Location(ctx context.Context, runID, path string) (string, error)
}

var ErrNotFound = errors.New("output: file not found")

// key validates runID and name and returns them cleaned.
func key(runID, name string) (string, string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return "", "", fmt.Errorf("output: run_id is required")
	}
	if strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return "", "", fmt.Errorf("output: invalid run_id %q", runID)
	}
	name = strings.TrimLeft(strings.TrimSpace(strings.ReplaceAll(name, `\`, "/")), "/")
	if name == "" {
		return "", "", fmt.Errorf("output: path is required")
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", "", fmt.Errorf("output: path %q escapes the run", name)
	}
	return runID, clean, nil
}

func checkRunID(runID string) (string, error) {
	id, _, err := key(runID, "x")
	return id, err
}
