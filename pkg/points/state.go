package points

import (
	"sort"

	"github.com/1F47E/ecoleta-points/pkg/dataset"
	"github.com/1F47E/ecoleta-points/pkg/geo"
	"github.com/1F47E/ecoleta-points/pkg/models"
)

// LocationStatus is the state of location acquisition for one mount
type LocationStatus int

const (
	LocationLoading LocationStatus = iota
	LocationPermissionDenied
	LocationPositionUnavailable
	LocationReady
)

func (s LocationStatus) String() string {
	switch s {
	case LocationLoading:
		return "loading"
	case LocationPermissionDenied:
		return "permission_denied"
	case LocationPositionUnavailable:
		return "position_unavailable"
	case LocationReady:
		return "ready"
	default:
		return "unknown"
	}
}

// LocationState holds the acquired coordinate. Coordinate is nil until the
// status is LocationReady.
type LocationState struct {
	Status     LocationStatus
	Coordinate *models.Coordinate
	Err        error
}

// Resolved returns the ready state for c
func (l LocationState) Resolved(c models.Coordinate) LocationState {
	return LocationState{Status: LocationReady, Coordinate: &c}
}

// Failed returns a state without coordinate. Status must be one of the
// failure statuses.
func (l LocationState) Failed(status LocationStatus, err error) LocationState {
	return LocationState{Status: status, Err: err}
}

func (l LocationState) Ready() bool {
	return l.Status == LocationReady && l.Coordinate != nil
}

// Region returns the camera region around the coordinate
func (l LocationState) Region(delta float64) (geo.Region, bool) {
	if !l.Ready() {
		return geo.Region{}, false
	}
	return geo.RegionAround(*l.Coordinate, delta), true
}

// CategoryStatus tracks the single category fetch of a mount
type CategoryStatus int

const (
	CategoriesPending CategoryStatus = iota
	CategoriesLoaded
	CategoriesFailed
)

func (s CategoryStatus) String() string {
	switch s {
	case CategoriesPending:
		return "pending"
	case CategoriesLoaded:
		return "loaded"
	case CategoriesFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CategoryList is the category strip content in server order
type CategoryList struct {
	Status CategoryStatus
	Items  []models.Category
	Err    error
}

// Loaded replaces the list wholesale with a copy of items
func (c CategoryList) Loaded(items []models.Category) CategoryList {
	copied := make([]models.Category, len(items))
	copy(copied, items)
	return CategoryList{Status: CategoriesLoaded, Items: copied}
}

// Failed empties the list
func (c CategoryList) Failed(err error) CategoryList {
	return CategoryList{Status: CategoriesFailed, Err: err}
}

func (c CategoryList) Len() int {
	return len(c.Items)
}

// Titles resolves category ids to titles, skipping unknown ids
func (c CategoryList) Titles(ids []int) []string {
	return dataset.CategoryTitles(c.Items, ids)
}

// SelectionSet is the set of category ids toggled on. The zero value is an
// empty set; Toggle never modifies the receiver.
type SelectionSet struct {
	ids      map[int]struct{}
	revision uint64
}

// newSelectionSet returns a set holding ids
func newSelectionSet(ids ...int) SelectionSet {
	s := SelectionSet{ids: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Toggle inserts id when absent and removes it when present. Every call
// bumps the revision, even when it undoes the previous one.
func (s SelectionSet) Toggle(id int) SelectionSet {
	next := SelectionSet{
		ids:      make(map[int]struct{}, len(s.ids)+1),
		revision: s.revision + 1,
	}
	for k := range s.ids {
		next.ids[k] = struct{}{}
	}
	if _, ok := next.ids[id]; ok {
		delete(next.ids, id)
	} else {
		next.ids[id] = struct{}{}
	}
	return next
}

func (s SelectionSet) Has(id int) bool {
	_, ok := s.ids[id]
	return ok
}

func (s SelectionSet) Len() int {
	return len(s.ids)
}

// Revision counts the toggles that produced this set
func (s SelectionSet) Revision() uint64 {
	return s.revision
}

// IDs returns the selected ids in ascending order
func (s SelectionSet) IDs() []int {
	ids := make([]int, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// equal compares membership only
func (s SelectionSet) equal(other SelectionSet) bool {
	if len(s.ids) != len(other.ids) {
		return false
	}
	for id := range s.ids {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Ordered returns the selected categories in list order. Ids missing from
// the list never match.
func (s SelectionSet) Ordered(list []models.Category) []models.Category {
	var selected []models.Category
	for _, c := range list {
		if s.Has(c.ID) {
			selected = append(selected, c)
		}
	}
	return selected
}
