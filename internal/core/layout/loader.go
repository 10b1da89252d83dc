package layout

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

type layoutFile struct {
	Layouts []entity.Layout `yaml:"layouts"`
}

// ParseYAML reads one layout, or a document with a top-level "layouts" list.
// Every layout is validated against the layout schema.
func ParseYAML(data []byte) ([]entity.Layout, error) {
	var top map[string]any
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	var layouts []entity.Layout
	if _, ok := top["layouts"]; ok {
		var f layoutFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		layouts = f.Layouts
	} else {
		var l entity.Layout
		if err := yaml.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		layouts = []entity.Layout{l}
	}

	for i, l := range layouts {
		doc, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		if err := ValidateDocument(doc); err != nil {
			return nil, fmt.Errorf("layout %d (%s): %w", i+1, l.Name, err)
		}
	}
	return layouts, nil
}

// LoadFile reads layouts from a YAML file.
func LoadFile(path string) ([]entity.Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(data)
}
