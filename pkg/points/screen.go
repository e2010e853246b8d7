// Package points implements the Points screen: it acquires the device
// position, fetches the category list, keeps the category filter and shows
// collection point markers on a map around the user.
//
// All state changes happen in Update. Location and category requests run as
// tea commands bound to the mount context and report back through messages
// tagged with the mount generation, so results landing after Unmount are
// ignored.
package points

import (
	"context"
	"fmt"
	"strconv"

	"github.com/1F47E/ecoleta-points/pkg/geo"
	"github.com/1F47E/ecoleta-points/pkg/location"
	"github.com/1F47E/ecoleta-points/pkg/metrics"
	"github.com/1F47E/ecoleta-points/pkg/models"
	"github.com/1F47E/ecoleta-points/pkg/navigation"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// placeholderTitle labels the single marker shown without a point searcher
const placeholderTitle = "Olha só"

// CategoryFetcher is the remote catalog service
type CategoryFetcher interface {
	FetchCategories(ctx context.Context) ([]models.Category, error)
}

// PointSearcher finds the collection points inside a region accepting at
// least one of categoryIDs. An empty filter matches every point.
type PointSearcher interface {
	SearchPoints(ctx context.Context, region geo.Region, categoryIDs []int) ([]models.CollectionPoint, error)
}

// Options wires the screen to its collaborators
type Options struct {
	Location  location.Provider
	Catalog   CategoryFetcher
	Navigator navigation.Navigator
	// Searcher is optional. Without one the map shows a single marker at
	// the current position.
	Searcher PointSearcher
	// Delta is the camera span in degrees, geo.DefaultDelta when zero
	Delta float64
}

// Marker is a pressable pin on the map
type Marker struct {
	Point       models.CollectionPoint
	Placeholder bool
}

type permissionMsg struct {
	mount      uint64
	permission location.Permission
	err        error
}

type positionMsg struct {
	mount      uint64
	coordinate models.Coordinate
	err        error
}

type categoriesMsg struct {
	mount      uint64
	categories []models.Category
	err        error
}

type pointsMsg struct {
	mount  uint64
	seq    uint64
	points []models.CollectionPoint
	err    error
}

// Screen is the Points screen model
type Screen struct {
	provider  location.Provider
	catalog   CategoryFetcher
	searcher  PointSearcher
	navigator navigation.Navigator
	delta     float64
	log       zerolog.Logger

	// mount lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	mount   uint64
	mounted bool

	location   LocationState
	region     *geo.Region
	granted    bool
	locPending bool

	categories CategoryList
	selection  SelectionSet

	points    []models.CollectionPoint
	searchSeq uint64
	searching bool
	searchErr error

	cursor int
	focus  int

	spinner spinner.Model
	keys    keyMap
	help    help.Model
	width   int
	height  int
}

// New creates an unmounted screen. Init mounts it.
func New(opts Options) *Screen {
	delta := opts.Delta
	if delta <= 0 {
		delta = geo.DefaultDelta
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(brandColor)

	return &Screen{
		provider:  opts.Location,
		catalog:   opts.Catalog,
		searcher:  opts.Searcher,
		navigator: opts.Navigator,
		delta:     delta,
		log:       log.With().Str("screen", navigation.ScreenPoints.String()).Logger(),
		spinner:   s,
		keys:      defaultKeyMap(),
		help:      help.New(),
		width:     80,
		height:    24,
	}
}

// Init mounts the screen with fresh state and starts the permission request
// and the category fetch concurrently. Mounting an already mounted screen
// unmounts it first.
func (s *Screen) Init() tea.Cmd {
	s.Unmount()

	s.mount++
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mounted = true

	s.location = LocationState{}
	s.region = nil
	s.granted = false
	s.locPending = false
	s.categories = CategoryList{}
	s.selection = SelectionSet{}
	s.points = nil
	s.searchSeq = 0
	s.searching = false
	s.searchErr = nil
	s.cursor = 0
	s.focus = 0

	s.log.Info().Uint64("mount", s.mount).Msg("Screen mounted")

	return tea.Batch(
		s.spinner.Tick,
		s.requestPermission(),
		s.fetchCategories(),
	)
}

// Unmount cancels in-flight requests. Their results are dropped.
func (s *Screen) Unmount() {
	if !s.mounted {
		return
	}
	s.cancel()
	s.mounted = false
	s.log.Info().Uint64("mount", s.mount).Msg("Screen unmounted")
}

func (s *Screen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.help.Width = msg.Width
		return s, nil

	case tea.KeyMsg:
		return s, s.handleKey(msg)

	case spinner.TickMsg:
		if !s.mounted {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case permissionMsg:
		return s, s.handlePermission(msg)

	case positionMsg:
		return s, s.handlePosition(msg)

	case categoriesMsg:
		s.handleCategories(msg)
		return s, nil

	case pointsMsg:
		s.handlePoints(msg)
		return s, nil
	}

	return s, nil
}

// Toggle flips a category in the filter and refreshes the markers. Ids are
// not checked against the category list.
func (s *Screen) Toggle(categoryID int) tea.Cmd {
	if !s.mounted {
		return nil
	}

	s.selection = s.selection.Toggle(categoryID)
	metrics.SelectionToggles.Inc()
	s.log.Debug().
		Int("category", categoryID).
		Bool("selected", s.selection.Has(categoryID)).
		Ints("selection", s.selection.IDs()).
		Uint64("revision", s.selection.Revision()).
		Msg("Category toggled")

	return s.search()
}

// PressMarker asks the navigator for the details of the i-th marker
func (s *Screen) PressMarker(i int) tea.Cmd {
	if !s.mounted {
		return nil
	}
	markers := s.Markers()
	if i < 0 || i >= len(markers) {
		return nil
	}

	params := s.detailsParams(markers[i])
	metrics.MarkerPresses.Inc()
	s.log.Info().Str("point", params.PointID).Str("title", params.Title).Msg("Marker pressed")

	return s.navigator.NavigateTo(navigation.ScreenPointDetails, params)
}

// RetryLocation repeats the step that failed: the permission request after
// a denial, the position read after an unavailable position. It does nothing
// while a request is in flight or once the position is known.
func (s *Screen) RetryLocation() tea.Cmd {
	if !s.mounted || s.locPending {
		return nil
	}

	switch s.location.Status {
	case LocationPermissionDenied:
		s.log.Info().Msg("Retrying location permission")
		s.location = LocationState{}
		return s.requestPermission()
	case LocationPositionUnavailable:
		s.location = LocationState{}
		if s.granted {
			s.log.Info().Msg("Retrying position read")
			return s.requestPosition()
		}
		s.log.Info().Msg("Retrying location permission")
		return s.requestPermission()
	}
	return nil
}

// Back asks the navigator to leave the screen
func (s *Screen) Back() tea.Cmd {
	if !s.mounted {
		return nil
	}
	s.log.Debug().Msg("Navigating back")
	return s.navigator.GoBack()
}

// Location returns the location acquisition state
func (s *Screen) Location() LocationState {
	return s.location
}

// Region returns the camera region, fixed when the position first resolves
func (s *Screen) Region() (geo.Region, bool) {
	if s.region == nil {
		return geo.Region{}, false
	}
	return *s.region, true
}

// Categories returns the category strip content
func (s *Screen) Categories() CategoryList {
	return s.categories
}

// Selection returns the category filter
func (s *Screen) Selection() SelectionSet {
	return s.selection
}

// SearchErr returns the error of the last point search, if it failed
func (s *Screen) SearchErr() error {
	return s.searchErr
}

func (s *Screen) Mounted() bool {
	return s.mounted
}

// Markers returns the pins to draw. There are none until the position is
// known.
func (s *Screen) Markers() []Marker {
	if !s.location.Ready() {
		return nil
	}
	if s.searcher == nil {
		return []Marker{{
			Point: models.CollectionPoint{
				Title:    placeholderTitle,
				Location: *s.location.Coordinate,
			},
			Placeholder: true,
		}}
	}

	markers := make([]Marker, len(s.points))
	for i, p := range s.points {
		markers[i] = Marker{Point: p}
	}
	return markers
}

func (s *Screen) accepts(mount uint64) bool {
	return s.mounted && mount == s.mount
}

func (s *Screen) requestPermission() tea.Cmd {
	ctx, mount, provider := s.ctx, s.mount, s.provider
	s.locPending = true

	return func() tea.Msg {
		perm, err := provider.RequestPermission(ctx)
		return permissionMsg{mount: mount, permission: perm, err: err}
	}
}

func (s *Screen) requestPosition() tea.Cmd {
	ctx, mount, provider := s.ctx, s.mount, s.provider
	s.locPending = true

	return func() tea.Msg {
		c, err := provider.CurrentPosition(ctx)
		return positionMsg{mount: mount, coordinate: c, err: err}
	}
}

func (s *Screen) fetchCategories() tea.Cmd {
	ctx, mount, catalog := s.ctx, s.mount, s.catalog

	return func() tea.Msg {
		categories, err := catalog.FetchCategories(ctx)
		return categoriesMsg{mount: mount, categories: categories, err: err}
	}
}

// search starts a point search for the current region and filter. Only the
// latest search may update the markers.
func (s *Screen) search() tea.Cmd {
	if s.searcher == nil || s.region == nil {
		return nil
	}

	s.searchSeq++
	s.searching = true
	ctx, mount, seq, searcher := s.ctx, s.mount, s.searchSeq, s.searcher
	region, ids := *s.region, s.selection.IDs()

	return func() tea.Msg {
		points, err := searcher.SearchPoints(ctx, region, ids)
		return pointsMsg{mount: mount, seq: seq, points: points, err: err}
	}
}

func (s *Screen) handlePermission(msg permissionMsg) tea.Cmd {
	if !s.accepts(msg.mount) {
		return nil
	}
	s.locPending = false

	if msg.err != nil {
		s.location = s.location.Failed(LocationPositionUnavailable, fmt.Errorf("%w: %w", ErrLocationUnavailable, msg.err))
		metrics.LocationResults.WithLabelValues(metrics.ResultUnavailable).Inc()
		s.log.Warn().Err(msg.err).Msg("Location permission request failed")
		return nil
	}

	if msg.permission != location.Granted {
		s.location = s.location.Failed(LocationPermissionDenied, ErrPermissionDenied)
		metrics.LocationResults.WithLabelValues(metrics.ResultDenied).Inc()
		s.log.Warn().Msg("Location permission denied")
		return nil
	}

	s.granted = true
	s.log.Debug().Msg("Location permission granted")
	return s.requestPosition()
}

func (s *Screen) handlePosition(msg positionMsg) tea.Cmd {
	if !s.accepts(msg.mount) {
		return nil
	}
	s.locPending = false

	if msg.err != nil {
		s.location = s.location.Failed(LocationPositionUnavailable, fmt.Errorf("%w: %w", ErrLocationUnavailable, msg.err))
		metrics.LocationResults.WithLabelValues(metrics.ResultUnavailable).Inc()
		s.log.Warn().Err(msg.err).Msg("Current position unavailable")
		return nil
	}

	s.location = s.location.Resolved(msg.coordinate)
	if s.region == nil {
		region, _ := s.location.Region(s.delta)
		s.region = &region
	}
	metrics.LocationResults.WithLabelValues(metrics.ResultSuccess).Inc()
	s.log.Info().
		Float64("lat", msg.coordinate.Latitude).
		Float64("lon", msg.coordinate.Longitude).
		Msg("Position acquired")

	return s.search()
}

func (s *Screen) handleCategories(msg categoriesMsg) {
	if !s.accepts(msg.mount) {
		return
	}

	if msg.err != nil {
		s.categories = s.categories.Failed(fmt.Errorf("%w: %w", ErrCatalogFetchFailed, msg.err))
		s.cursor = 0
		metrics.CatalogFetches.WithLabelValues(metrics.ResultFailure).Inc()
		s.log.Error().Err(msg.err).Msg("Failed to fetch categories")
		return
	}

	s.categories = s.categories.Loaded(msg.categories)
	if s.cursor >= s.categories.Len() {
		s.cursor = 0
	}
	metrics.CatalogFetches.WithLabelValues(metrics.ResultSuccess).Inc()
	s.log.Info().Int("count", s.categories.Len()).Msg("Categories loaded")
}

func (s *Screen) handlePoints(msg pointsMsg) {
	if !s.accepts(msg.mount) {
		return
	}
	if msg.seq != s.searchSeq {
		s.log.Debug().Uint64("seq", msg.seq).Uint64("latest", s.searchSeq).Msg("Dropping stale search result")
		return
	}
	s.searching = false

	if msg.err != nil {
		s.searchErr = fmt.Errorf("%w: %w", ErrPointSearchFailed, msg.err)
		metrics.PointSearches.WithLabelValues(metrics.ResultFailure).Inc()
		s.log.Error().Err(msg.err).Msg("Point search failed")
		return
	}

	s.points = msg.points
	s.searchErr = nil
	if s.focus >= len(s.points) {
		s.focus = 0
	}
	metrics.PointSearches.WithLabelValues(metrics.ResultSuccess).Inc()
	s.log.Debug().Int("count", len(s.points)).Ints("categories", s.selection.IDs()).Msg("Points found")
}

func (s *Screen) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, s.keys.Back):
		return s.Back()

	case key.Matches(msg, s.keys.Retry):
		return s.RetryLocation()

	case key.Matches(msg, s.keys.Left):
		if s.cursor > 0 {
			s.cursor--
		}

	case key.Matches(msg, s.keys.Right):
		if s.cursor < s.categories.Len()-1 {
			s.cursor++
		}

	case key.Matches(msg, s.keys.Toggle):
		if s.cursor < s.categories.Len() {
			return s.Toggle(s.categories.Items[s.cursor].ID)
		}

	case key.Matches(msg, s.keys.Pick):
		n, err := strconv.Atoi(msg.String())
		if err != nil || n < 1 || n > s.categories.Len() {
			return nil
		}
		s.cursor = n - 1
		return s.Toggle(s.categories.Items[s.cursor].ID)

	case key.Matches(msg, s.keys.NextMarker):
		if n := len(s.Markers()); n > 0 {
			s.focus = (s.focus + 1) % n
		}

	case key.Matches(msg, s.keys.PrevMarker):
		if n := len(s.Markers()); n > 0 {
			s.focus = (s.focus - 1 + n) % n
		}

	case key.Matches(msg, s.keys.Open):
		return s.PressMarker(s.focus)

	case key.Matches(msg, s.keys.Help):
		s.help.ShowAll = !s.help.ShowAll
	}

	return nil
}

func (s *Screen) detailsParams(m Marker) navigation.DetailsParams {
	if m.Placeholder {
		return navigation.DetailsParams{Title: m.Point.Title}
	}
	p := m.Point
	return navigation.DetailsParams{
		PointID:  p.ID,
		Title:    p.Title,
		Items:    s.categories.Titles(p.ItemIDs),
		Address:  p.Address,
		City:     p.City,
		UF:       p.UF,
		Email:    p.Email,
		WhatsApp: p.WhatsApp,
	}
}
