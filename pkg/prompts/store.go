// Package prompts loads the versioned prompt templates used by each review
// phase. The default set is embedded in the binary; a directory on disk
// can replace it.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"text/template"

	"github.com/felixgeelhaar/sdra/pkg/domain"
)

// DefaultVersion is the prompt set used when none is configured.
const DefaultVersion = "v1"

//go:embed templates
var embedded embed.FS

// Store reads prompt files laid out as <version>/<name>.
type Store struct {
	fsys fs.FS
}

// NewStore reads from fsys.
func NewStore(fsys fs.FS) *Store {
	return &Store{fsys: fsys}
}

// Default returns the store over the embedded prompt set.
func Default() *Store {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		// The directory is part of the binary.
		panic(err)
	}
	return NewStore(sub)
}

// FromDir returns a store reading from dir, or the embedded store when dir
// is empty.
func FromDir(dir string) (*Store, error) {
	if dir == "" {
		return Default(), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &domain.ConfigError{Field: "prompts_dir", Reason: err.Error()}
	}
	if !info.IsDir() {
		return nil, &domain.ConfigError{Field: "prompts_dir", Reason: fmt.Sprintf("%s is not a directory", dir)}
	}
	return NewStore(os.DirFS(dir)), nil
}

// Load returns the raw text of a prompt. The file is read on every call.
func (s *Store) Load(name, version string) (string, error) {
	if version == "" {
		version = DefaultVersion
	}
	p := path.Join(version, name)
	if !fs.ValidPath(p) || strings.Contains(name, "/") {
		return "", &domain.NotFoundError{Kind: "prompt", Name: p}
	}

	data, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &domain.NotFoundError{Kind: "prompt", Name: p, Err: err}
		}
		return "", fmt.Errorf("failed to read prompt %s: %w", p, err)
	}
	return string(data), nil
}

// Render loads a prompt and executes it as a text/template with data.
func (s *Store) Render(name, version string, data any) (string, error) {
	text, err := s.Load(name, version)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// Names lists the prompts available for version, sorted.
func (s *Store) Names(version string) ([]string, error) {
	if version == "" {
		version = DefaultVersion
	}
	entries, err := fs.ReadDir(s.fsys, version)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.NotFoundError{Kind: "prompt version", Name: version, Err: err}
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
