package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store supplies catalog snapshots
type Store interface {
	Tools(ctx context.Context) ([]Tool, error)
}

// Open returns a store for a catalog source: a postgres:// DSN or a path to a
// YAML or JSON file. An empty source yields an empty catalog.
func Open(source string) (Store, error) {
	switch {
	case source == "":
		return StaticStore(nil), nil
	case strings.HasPrefix(source, "postgres://"), strings.HasPrefix(source, "postgresql://"):
		return OpenPostgres(source)
	default:
		return NewFileStore(source), nil
	}
}

// StaticStore serves a fixed list of tools
type StaticStore []Tool

// Tools returns a copy of the list
func (s StaticStore) Tools(context.Context) ([]Tool, error) {
	out := make([]Tool, len(s))
	copy(out, s)
	return out, nil
}

// FileStore reads the catalog from a YAML or JSON file on every call, so edits
// are picked up without a restart
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

type catalogFile struct {
	Tools []Tool `yaml:"tools"`
}

// Tools loads the catalog file
func (s *FileStore) Tools(ctx context.Context) ([]Tool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseTools(data)
}

// ParseTools decodes a catalog document. Both a top-level "tools" key and a
// bare list are accepted; JSON is valid YAML so either format works.
func ParseTools(data []byte) ([]Tool, error) {
	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err == nil && doc.Tools != nil {
		return validateTools(doc.Tools)
	}

	var tools []Tool
	if err := yaml.Unmarshal(data, &tools); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return validateTools(tools)
}

func validateTools(tools []Tool) ([]Tool, error) {
	seen := map[string]bool{}
	for i, t := range tools {
		if t.ID == "" {
			return nil, fmt.Errorf("catalog entry %d (%s) has no id", i, t.Name)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("duplicate catalog id %q", t.ID)
		}
		seen[t.ID] = true
	}
	return tools, nil
}
