package data

import (
	"fmt"
	"os"

	"github.com/tilesim/core/internal/core/ecs"
	"go.uber.org/multierr"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// ComponentSchemaEntry declares a raw byte component registered at startup
// by name, for collaborators that address components by name only.
type ComponentSchemaEntry struct {
	Name string `yaml:"name"`
	Size int    `yaml:"size"`
	Note string `yaml:"note"`
}

// ComponentSchema is the ordered component table from components.yaml.
type ComponentSchema struct {
	entries []ComponentSchemaEntry
}

// LoadComponentSchema loads components.yaml.
func LoadComponentSchema(path string) (*ComponentSchema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read component schema: %w", err)
	}
	return ParseComponentSchema(raw)
}

// ParseComponentSchema parses a YAML list of components and rejects empty
// names, negative sizes and case-insensitive duplicates.
func ParseComponentSchema(raw []byte) (*ComponentSchema, error) {
	var entries []ComponentSchemaEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse component schema: %w", err)
	}

	var errs error
	fold := cases.Fold()
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("component schema entry %d: empty name", i))
			continue
		}
		if e.Size < 0 {
			errs = multierr.Append(errs, fmt.Errorf("component schema %s: negative size %d", e.Name, e.Size))
		}
		key := fold.String(e.Name)
		if j, dup := seen[key]; dup {
			errs = multierr.Append(errs, fmt.Errorf("component schema %s: duplicate of entry %d", e.Name, j))
		}
		seen[key] = i
	}
	if errs != nil {
		return nil, errs
	}
	return &ComponentSchema{entries: entries}, nil
}

// Register adds every entry to w in file order and returns the ids by name.
func (s *ComponentSchema) Register(w *ecs.World) (map[string]ecs.ComponentID, error) {
	ids := make(map[string]ecs.ComponentID, len(s.entries))
	var errs error
	for _, e := range s.entries {
		id, err := w.RegisterComponent(e.Name, e.Size)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		ids[e.Name] = id
	}
	return ids, errs
}

// Entries returns the parsed entries in file order.
func (s *ComponentSchema) Entries() []ComponentSchemaEntry {
	return s.entries
}

// Count returns the total number of components declared.
func (s *ComponentSchema) Count() int {
	return len(s.entries)
}
