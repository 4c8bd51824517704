package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultArtifactsDir is where review artifacts land, relative to the
// workspace root.
const DefaultArtifactsDir = ".sdra/artifacts"

// ErrArtifactNotFound is returned by Read for a missing artifact.
var ErrArtifactNotFound = errors.New("artifact not found")

// FilesystemSink writes artifacts as files directly under one directory.
type FilesystemSink struct {
	dir string
}

// NewFilesystemSink stores artifacts in dir. The directory is created on
// first write.
func NewFilesystemSink(dir string) *FilesystemSink {
	return &FilesystemSink{dir: filepath.Clean(dir)}
}

// Dir returns the artifacts directory.
func (s *FilesystemSink) Dir() string {
	return s.dir
}

// ResolvePath maps an artifact name into the artifacts directory and
// rejects names that escape it or point into a subdirectory.
func (s *FilesystemSink) ResolvePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("artifact name cannot be empty")
	}

	cleanPath := filepath.Clean(filepath.Join(s.dir, name))
	if !strings.HasPrefix(cleanPath, s.dir+string(filepath.Separator)) || filepath.Dir(cleanPath) != s.dir {
		return "", fmt.Errorf("invalid artifact name: %s", name)
	}
	return cleanPath, nil
}

// Record writes content atomically: a temp file in the same directory is
// renamed over the target.
func (s *FilesystemSink) Record(name, content string) (err error) {
	path, err := s.ResolvePath(name)
	if err != nil {
		return err
	}

	// G301: Use 0700 for directories
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	if err = tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set artifact permissions: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact %s: %w", name, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move artifact %s into place: %w", name, err)
	}
	return nil
}

// Read returns a stored artifact.
func (s *FilesystemSink) Read(name string) (string, error) {
	path, err := s.ResolvePath(name)
	if err != nil {
		return "", err
	}
	// #nosec G304 -- Path is resolved and validated via ResolvePath
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
		}
		return "", fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	return string(data), nil
}

// List returns the names of stored artifacts, sorted.
func (s *FilesystemSink) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// NopSink discards every artifact.
type NopSink struct{}

func (NopSink) Record(string, string) error { return nil }
