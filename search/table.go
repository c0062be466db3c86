package search

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadCategories reads a replacement category table from a YAML file:
//
//	categories:
//	  - name: academic
//	    keywords: [research, paper]
//	    engines: "arxiv,google scholar"
//
// Match priority follows file order.
func LoadCategories(path string) ([]Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category table: %w", err)
	}

	var table struct {
		Categories []Category `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse category table: %w", err)
	}
	if len(table.Categories) == 0 {
		return nil, fmt.Errorf("category table %s has no categories", path)
	}
	for _, category := range table.Categories {
		if category.Name == "" || category.Engines == "" {
			return nil, fmt.Errorf("category table %s has an entry without name or engines", path)
		}
	}

	return table.Categories, nil
}
