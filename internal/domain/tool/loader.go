package tool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the YAML shape of an on-disk tool catalog.
type catalogFile struct {
	Tools []Tool `yaml:"tools"`
}

// LoadCatalog reads and validates a tool catalog from a YAML file.
// Unlike config files, a missing catalog file is an error: the core refuses
// to start without an explicit tool list.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from config
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	c, err := NewCatalog(f.Tools)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}
