package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/nirdswipe/internal/model"
)

type format int

const (
	formatTOML format = iota
	formatYAML
)

type fileCatalog struct {
	Items []fileItem            `toml:"items" yaml:"items"`
	Notes map[string]model.Note `toml:"notes" yaml:"notes"`
}

type fileItem struct {
	ID             string          `toml:"id" yaml:"id"`
	Name           string          `toml:"name" yaml:"name"`
	Classification string          `toml:"classification" yaml:"classification"`
	Category       string          `toml:"category" yaml:"category"`
	Description    string          `toml:"description" yaml:"description"`
	Icon           string          `toml:"icon" yaml:"icon"`
	Pillar         string          `toml:"pillar" yaml:"pillar"`
	Alternative    string          `toml:"alternative" yaml:"alternative"`
	Stats          model.ItemStats `toml:"stats" yaml:"stats"`
	Savings        *model.Savings  `toml:"savings" yaml:"savings"`
}

// Load reads a catalog from a TOML or YAML file, picked by extension.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return nil, fmt.Errorf("catalog path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decode(data, formatYAML)
	case ".toml", "":
		return decode(data, formatTOML)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
	}
}

func decode(data []byte, f format) (*Catalog, error) {
	var fc fileCatalog
	switch f {
	case formatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil {
			return nil, fmt.Errorf("failed to decode catalog: %w", err)
		}
	default:
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&fc); err != nil {
			return nil, fmt.Errorf("failed to decode catalog: %w", err)
		}
	}
	if len(fc.Items) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	items := make([]model.TechnologyItem, 0, len(fc.Items))
	for i, fi := range fc.Items {
		item, err := fi.toItem()
		if err != nil {
			return nil, fmt.Errorf("item %d (%s): %w", i, fi.ID, err)
		}
		items = append(items, item)
	}
	return New(items, fc.Notes)
}

func (fi fileItem) toItem() (model.TechnologyItem, error) {
	cl, err := model.ParseClassification(fi.Classification)
	if err != nil {
		return model.TechnologyItem{}, err
	}
	p, err := model.ParsePillar(fi.Pillar)
	if err != nil {
		return model.TechnologyItem{}, err
	}
	return model.TechnologyItem{
		ID:             strings.TrimSpace(fi.ID),
		Name:           fi.Name,
		Category:       fi.Category,
		Description:    fi.Description,
		Icon:           fi.Icon,
		Classification: cl,
		Pillar:         p,
		Stats:          fi.Stats,
		AlternativeID:  strings.TrimSpace(fi.Alternative),
		Savings:        fi.Savings,
	}, nil
}
