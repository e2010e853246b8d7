// Package rtree implements an in-memory R-Tree of collection points with
// goroutine-based parallel search across longitude partitions
package rtree

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/1F47E/ecoleta-points/pkg/geo"
	"github.com/1F47E/ecoleta-points/pkg/models"
	"github.com/dhconnelly/rtreego"
)

const (
	tolerance   = 0.00001
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
)

// spatialPoint wraps a collection point to implement rtreego.Spatial
type spatialPoint struct {
	*models.CollectionPoint
	rect rtreego.Rect
}

func (sp *spatialPoint) Bounds() rtreego.Rect {
	return sp.rect
}

// PointIndex is a thread-safe R-Tree index of collection points
type PointIndex struct {
	// Partitioned trees for parallel query execution
	partitions []*rtreego.Rtree
	numParts   int
	mu         sync.RWMutex
	itemCount  atomic.Int64

	partitionBounds []models.BoundingBox
}

// NewPointIndex creates an index with one longitude partition per CPU
func NewPointIndex() *PointIndex {
	return NewPointIndexWithPartitions(runtime.NumCPU())
}

// NewPointIndexWithPartitions creates an index with the given partition count
func NewPointIndexWithPartitions(numPartitions int) *PointIndex {
	if numPartitions <= 0 {
		numPartitions = runtime.NumCPU()
	}

	g := &PointIndex{numParts: numPartitions}
	g.reset()
	return g
}

func (g *PointIndex) reset() {
	g.partitions = make([]*rtreego.Rtree, g.numParts)
	g.partitionBounds = make([]models.BoundingBox, g.numParts)

	lonRange := 360.0 / float64(g.numParts)
	for i := 0; i < g.numParts; i++ {
		g.partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)

		minLon := -180.0 + float64(i)*lonRange
		maxLon := minLon + lonRange
		if i == g.numParts-1 {
			maxLon = 180.0
		}

		g.partitionBounds[i] = models.BoundingBox{
			BottomLeft: models.Coordinate{Latitude: -90, Longitude: minLon},
			TopRight:   models.Coordinate{Latitude: 90, Longitude: maxLon},
		}
	}
	g.itemCount.Store(0)
}

// IndexPoints adds points to the index. Points with a duplicate ID are
// indexed again, callers are expected to Clear before a reload.
func (g *PointIndex) IndexPoints(points []*models.CollectionPoint) error {
	if len(points) == 0 {
		return nil
	}

	partitioned := make([][]*spatialPoint, g.numParts)

	lonRange := 360.0 / float64(g.numParts)
	for _, point := range points {
		if point == nil {
			continue
		}
		loc := point.Location
		if !loc.Valid() {
			return fmt.Errorf("point %s has invalid location (%f, %f)", point.ID, loc.Latitude, loc.Longitude)
		}

		rect := rtreego.Point{loc.Latitude, loc.Longitude}.ToRect(tolerance)

		idx := int((loc.Longitude + 180.0) / lonRange)
		if idx < 0 {
			idx = 0
		}
		if idx >= g.numParts {
			idx = g.numParts - 1
		}
		partitioned[idx] = append(partitioned[idx], &spatialPoint{point, rect})
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var wg sync.WaitGroup
	var inserted atomic.Int64

	for i := 0; i < g.numParts; i++ {
		if len(partitioned[i]) == 0 {
			continue
		}

		wg.Add(1)
		go func(partitionIdx int, items []*spatialPoint) {
			defer wg.Done()
			for _, item := range items {
				g.partitions[partitionIdx].Insert(item)
			}
			inserted.Add(int64(len(items)))
		}(i, partitioned[i])
	}

	wg.Wait()
	g.itemCount.Add(inserted.Load())
	return nil
}

// QueryBox returns all points inside the box, searching partitions in parallel
func (g *PointIndex) QueryBox(box models.BoundingBox) ([]*models.CollectionPoint, error) {
	bounds, err := rtreego.NewRectFromPoints(
		rtreego.Point{box.BottomLeft.Latitude, box.BottomLeft.Longitude},
		rtreego.Point{box.TopRight.Latitude, box.TopRight.Longitude},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	relevant := g.relevantPartitions(box)
	resultsChan := make(chan []*models.CollectionPoint, len(relevant))

	for _, partitionIdx := range relevant {
		go func(idx int) {
			results := g.partitions[idx].SearchIntersect(bounds)

			points := make([]*models.CollectionPoint, 0, len(results))
			for _, result := range results {
				item, ok := result.(*spatialPoint)
				if !ok || item.CollectionPoint == nil {
					continue
				}
				// strict check, the tolerance rect may poke outside the box
				if box.Contains(item.Location) {
					points = append(points, item.CollectionPoint)
				}
			}
			resultsChan <- points
		}(partitionIdx)
	}

	var all []*models.CollectionPoint
	for i := 0; i < len(relevant); i++ {
		all = append(all, <-resultsChan...)
	}

	sortByID(all)
	return all, nil
}

// SearchPoints returns the points visible in region that accept at least one
// of categoryIDs. An empty filter returns every visible point. Regions
// crossing the antimeridian are queried one side at a time.
func (g *PointIndex) SearchPoints(ctx context.Context, region geo.Region, categoryIDs []int) ([]models.CollectionPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var candidates []*models.CollectionPoint
	for _, box := range region.Envelopes() {
		found, err := g.QueryBox(box)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, found...)
	}
	sortByID(candidates)

	points := make([]models.CollectionPoint, 0, len(candidates))
	for _, p := range candidates {
		if p.Accepts(categoryIDs) {
			points = append(points, *p)
		}
	}
	return points, nil
}

// NearestNeighbors returns the n points closest to center, nearest first
func (g *PointIndex) NearestNeighbors(center models.Coordinate, n int) []*models.CollectionPoint {
	if n <= 0 {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	type nearestResult struct {
		point    *models.CollectionPoint
		distance float64
	}

	resultsChan := make(chan []nearestResult, g.numParts)
	queryPoint := rtreego.Point{center.Latitude, center.Longitude}

	for i := 0; i < g.numParts; i++ {
		go func(idx int) {
			results := g.partitions[idx].NearestNeighbors(n, queryPoint)

			nearest := make([]nearestResult, 0, len(results))
			for _, result := range results {
				sp, ok := result.(*spatialPoint)
				if !ok || sp == nil {
					continue
				}
				nearest = append(nearest, nearestResult{
					point:    sp.CollectionPoint,
					distance: geo.Distance(center, sp.Location),
				})
			}
			resultsChan <- nearest
		}(i)
	}

	var all []nearestResult
	for i := 0; i < g.numParts; i++ {
		all = append(all, <-resultsChan...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].distance < all[j].distance })
	if len(all) > n {
		all = all[:n]
	}

	points := make([]*models.CollectionPoint, len(all))
	for i, r := range all {
		points[i] = r.point
	}
	return points
}

// Count returns the number of indexed points
func (g *PointIndex) Count() int64 {
	return g.itemCount.Load()
}

// Clear removes all points from the index
func (g *PointIndex) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
}

// relevantPartitions returns the partitions whose longitude band intersects box
func (g *PointIndex) relevantPartitions(box models.BoundingBox) []int {
	var relevant []int
	for i, bounds := range g.partitionBounds {
		if box.BottomLeft.Longitude <= bounds.TopRight.Longitude &&
			box.TopRight.Longitude >= bounds.BottomLeft.Longitude {
			relevant = append(relevant, i)
		}
	}
	return relevant
}

// sortByID keeps results stable across the parallel merge
func sortByID(points []*models.CollectionPoint) {
	sort.Slice(points, func(i, j int) bool { return points[i].ID < points[j].ID })
}
