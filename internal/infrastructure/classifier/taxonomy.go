package classifier

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kmrl/documind/internal/core/domain"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

// LoadTaxonomy reads the taxonomy at path, or the built-in KMRL taxonomy when path is empty.
func LoadTaxonomy(path string) (domain.Taxonomy, error) {
	raw := defaultTaxonomy
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Taxonomy{}, fmt.Errorf("read taxonomy: %w", err)
		}
		raw = data
	}
	return ParseTaxonomy(raw)
}

func ParseTaxonomy(raw []byte) (domain.Taxonomy, error) {
	var t domain.Taxonomy
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return domain.Taxonomy{}, fmt.Errorf("parse taxonomy: %w", err)
	}
	if err := validateTaxonomy(t); err != nil {
		return domain.Taxonomy{}, err
	}
	return t, nil
}

func validateTaxonomy(t domain.Taxonomy) error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("taxonomy: no categories")
	}
	known := make(map[string]bool, len(t.Categories))
	for _, c := range t.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("taxonomy: category without name")
		}
		if known[c.Name] {
			return fmt.Errorf("taxonomy: duplicate category %q", c.Name)
		}
		known[c.Name] = true
	}
	for _, m := range t.VendorMappings {
		if !known[m.Category] {
			return fmt.Errorf("taxonomy: mapping %q targets unknown category %q", m.Pattern, m.Category)
		}
	}
	for _, d := range t.Disambiguations {
		for _, cand := range d.Candidates {
			if !known[cand.Category] {
				return fmt.Errorf("taxonomy: disambiguation %q targets unknown category %q", d.VendorCategory, cand.Category)
			}
		}
	}
	return nil
}
