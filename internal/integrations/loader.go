// Package integrations derives topic tags ("integrations") from package
// manifests, config filenames and page text, using a curated keyword table.
package integrations

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTable []byte

// Load reads the keyword table at path. An empty path selects the embedded
// default table.
func Load(path string) (*Table, error) {
	data := defaultTable
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read integrations file: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes a YAML keyword table.
func Parse(data []byte) (*Table, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse integrations yaml: %w", err)
	}
	for i, kw := range f.Keywords {
		if kw.Name == "" {
			return nil, fmt.Errorf("integrations keyword #%d has no name", i)
		}
	}
	for i, g := range f.Groups {
		if g.Name == "" {
			return nil, fmt.Errorf("integrations group #%d has no name", i)
		}
	}
	return newTable(f), nil
}

// Default returns the embedded table. It panics if the embedded file is
// invalid, which only a broken build can cause.
func Default() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(err)
	}
	return t
}
