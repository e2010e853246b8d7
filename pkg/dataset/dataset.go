// Package dataset reads the YAML file that seeds the categories served by the
// dev catalog and the collection points loaded into the index or PostGIS.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/1F47E/ecoleta-points/pkg/models"
	"gopkg.in/yaml.v3"
)

// Dataset is the on-disk shape of dataset.yaml
type Dataset struct {
	Categories []models.Category         `yaml:"categories"`
	Points     []*models.CollectionPoint `yaml:"points"`
}

// Load reads and validates a dataset file
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates dataset YAML
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Validate checks ids are unique and every point has a title and a sane location
func (ds *Dataset) Validate() error {
	var errs []string

	categoryIDs := make(map[int]bool, len(ds.Categories))
	for i, c := range ds.Categories {
		if categoryIDs[c.ID] {
			errs = append(errs, fmt.Sprintf("categories[%d]: duplicate id %d", i, c.ID))
		}
		categoryIDs[c.ID] = true
		if strings.TrimSpace(c.Title) == "" {
			errs = append(errs, fmt.Sprintf("categories[%d]: title is required", i))
		}
	}

	pointIDs := make(map[string]bool, len(ds.Points))
	for i, p := range ds.Points {
		if p == nil {
			errs = append(errs, fmt.Sprintf("points[%d]: empty entry", i))
			continue
		}
		if p.ID == "" {
			errs = append(errs, fmt.Sprintf("points[%d]: id is required", i))
		} else if pointIDs[p.ID] {
			errs = append(errs, fmt.Sprintf("points[%d]: duplicate id %q", i, p.ID))
		}
		pointIDs[p.ID] = true
		if strings.TrimSpace(p.Title) == "" {
			errs = append(errs, fmt.Sprintf("points[%d]: title is required", i))
		}
		if !p.Location.Valid() {
			errs = append(errs, fmt.Sprintf("points[%d]: location out of range", i))
		}
	}

	if len(errs) > 0 {
		return errors.New("invalid dataset:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}

// CategoryTitles resolves ids to titles in the order given, skipping ids not
// present in categories
func CategoryTitles(categories []models.Category, ids []int) []string {
	byID := make(map[int]string, len(categories))
	for _, c := range categories {
		byID[c.ID] = c.Title
	}

	titles := make([]string, 0, len(ids))
	for _, id := range ids {
		if title, ok := byID[id]; ok {
			titles = append(titles, title)
		}
	}
	return titles
}
