package rtree

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/1F47E/ecoleta-points/pkg/models"
)

// IndexData represents the serializable form of the point index
type IndexData struct {
	Points []*models.CollectionPoint
	Count  int64
}

var worldBounds = models.BoundingBox{
	BottomLeft: models.Coordinate{Latitude: -90, Longitude: -180},
	TopRight:   models.Coordinate{Latitude: 90, Longitude: 180},
}

// SaveToFile writes a gob snapshot of every indexed point
func (g *PointIndex) SaveToFile(filename string) error {
	// rtreego has no iterator, so the whole world is queried instead
	points, err := g.QueryBox(worldBounds)
	if err != nil {
		return fmt.Errorf("failed to extract points: %w", err)
	}

	data := IndexData{
		Points: points,
		Count:  int64(len(points)),
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(data); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	return nil
}

// LoadFromFile replaces the index contents with a gob snapshot
func (g *PointIndex) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var data IndexData
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}

	g.Clear()
	if err := g.IndexPoints(data.Points); err != nil {
		return fmt.Errorf("failed to index points: %w", err)
	}

	return nil
}
