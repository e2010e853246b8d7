package points

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/1F47E/ecoleta-points/pkg/geo"
	"github.com/1F47E/ecoleta-points/pkg/location"
	"github.com/1F47E/ecoleta-points/pkg/models"
	"github.com/1F47E/ecoleta-points/pkg/navigation"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var saoPaulo = models.Coordinate{Latitude: -23.55, Longitude: -46.63}

var sampleCategories = []models.Category{
	{ID: 1, Title: "Lâmpadas"},
	{ID: 2, Title: "Pilhas"},
	{ID: 6, Title: "Óleo"},
}

type fakeProvider struct {
	permissionCalls int
	positionCalls   int
	ctx             context.Context

	requestPermission func(ctx context.Context) (location.Permission, error)
	currentPosition   func(ctx context.Context) (models.Coordinate, error)
}

func (f *fakeProvider) RequestPermission(ctx context.Context) (location.Permission, error) {
	f.permissionCalls++
	f.ctx = ctx
	return f.requestPermission(ctx)
}

func (f *fakeProvider) CurrentPosition(ctx context.Context) (models.Coordinate, error) {
	f.positionCalls++
	f.ctx = ctx
	return f.currentPosition(ctx)
}

func grantedAt(c models.Coordinate) *fakeProvider {
	return &fakeProvider{
		requestPermission: func(context.Context) (location.Permission, error) { return location.Granted, nil },
		currentPosition:   func(context.Context) (models.Coordinate, error) { return c, nil },
	}
}

type fakeCatalog struct {
	calls int
	fetch func(ctx context.Context) ([]models.Category, error)
}

func (f *fakeCatalog) FetchCategories(ctx context.Context) ([]models.Category, error) {
	f.calls++
	return f.fetch(ctx)
}

func catalogOf(categories []models.Category) *fakeCatalog {
	return &fakeCatalog{fetch: func(context.Context) ([]models.Category, error) { return categories, nil }}
}

type searchCall struct {
	region geo.Region
	ids    []int
}

type fakeSearcher struct {
	calls  []searchCall
	search func(ctx context.Context, region geo.Region, ids []int) ([]models.CollectionPoint, error)
}

func (f *fakeSearcher) SearchPoints(ctx context.Context, region geo.Region, ids []int) ([]models.CollectionPoint, error) {
	f.calls = append(f.calls, searchCall{region: region, ids: ids})
	return f.search(ctx, region, ids)
}

func newScreen(provider *fakeProvider, catalog *fakeCatalog, searcher PointSearcher) *Screen {
	s := New(Options{
		Location:  provider,
		Catalog:   catalog,
		Navigator: navigation.Messages{},
		Searcher:  searcher,
	})
	s.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
	return s
}

// drain runs cmd and feeds every message back into the screen until no
// commands remain. Navigation messages are returned instead.
func drain(s *Screen, cmd tea.Cmd) []tea.Msg {
	var out []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case spinner.TickMsg:
		case navigation.NavigateMsg, navigation.BackMsg:
			out = append(out, msg)
		default:
			_, next := s.Update(msg)
			queue = append(queue, next)
		}
	}
	return out
}

// collect runs cmd and every batched command without updating the screen
func collect(cmd tea.Cmd) []tea.Msg {
	var out []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case spinner.TickMsg:
		default:
			out = append(out, msg)
		}
	}
	return out
}

func TestGrantedPositionCentersRegion(t *testing.T) {
	provider := grantedAt(saoPaulo)
	s := newScreen(provider, catalogOf(sampleCategories), nil)

	drain(s, s.Init())

	assert.Equal(t, LocationReady, s.Location().Status)
	require.NotNil(t, s.Location().Coordinate)
	assert.Equal(t, saoPaulo, *s.Location().Coordinate)

	region, ok := s.Region()
	require.True(t, ok)
	assert.Equal(t, saoPaulo, region.Center)
	assert.Equal(t, geo.DefaultDelta, region.LatitudeDelta)
	assert.Equal(t, geo.DefaultDelta, region.LongitudeDelta)

	assert.Equal(t, 1, provider.permissionCalls)
	assert.Equal(t, 1, provider.positionCalls)
}

func TestConfiguredDelta(t *testing.T) {
	s := New(Options{
		Location:  grantedAt(saoPaulo),
		Catalog:   catalogOf(nil),
		Navigator: navigation.Messages{},
		Delta:     0.05,
	})

	drain(s, s.Init())

	region, ok := s.Region()
	require.True(t, ok)
	assert.Equal(t, 0.05, region.LatitudeDelta)
	assert.Equal(t, 0.05, region.LongitudeDelta)
}

func TestPlaceholderMarkerWithoutSearcher(t *testing.T) {
	s := newScreen(grantedAt(saoPaulo), catalogOf(sampleCategories), nil)

	drain(s, s.Init())

	markers := s.Markers()
	require.Len(t, markers, 1)
	assert.True(t, markers[0].Placeholder)
	assert.Equal(t, saoPaulo, markers[0].Point.Location)
	assert.Contains(t, s.View(), "◉")
	assert.Contains(t, s.View(), "Olha só")
}

func TestDeniedNeverRendersMap(t *testing.T) {
	provider := &fakeProvider{
		requestPermission: func(context.Context) (location.Permission, error) { return location.Denied, nil },
		currentPosition: func(context.Context) (models.Coordinate, error) {
			t.Fatal("position requested after denial")
			return models.Coordinate{}, nil
		},
	}
	s := newScreen(provider, catalogOf(sampleCategories), nil)

	drain(s, s.Init())

	assert.Equal(t, LocationPermissionDenied, s.Location().Status)
	assert.ErrorIs(t, s.Location().Err, ErrPermissionDenied)
	assert.Nil(t, s.Location().Coordinate)
	assert.Equal(t, 0, provider.positionCalls)

	_, ok := s.Region()
	assert.False(t, ok)
	assert.Empty(t, s.Markers())

	view := s.View()
	assert.Contains(t, view, "Ops! Precisamos da sua localização.")
	assert.NotContains(t, view, "◉")
	assert.NotContains(t, view, "●")
}

func TestPositionUnavailable(t *testing.T) {
	provider := grantedAt(saoPaulo)
	provider.currentPosition = func(context.Context) (models.Coordinate, error) {
		return models.Coordinate{}, location.ErrNoFix
	}
	s := newScreen(provider, catalogOf(sampleCategories), nil)

	drain(s, s.Init())

	assert.Equal(t, LocationPositionUnavailable, s.Location().Status)
	assert.ErrorIs(t, s.Location().Err, ErrLocationUnavailable)
	assert.ErrorIs(t, s.Location().Err, location.ErrNoFix)
	assert.Empty(t, s.Markers())
	assert.Contains(t, s.View(), "Não foi possível obter sua localização.")
}

func TestPermissionErrorIsUnavailable(t *testing.T) {
	provider := grantedAt(saoPaulo)
	provider.requestPermission = func(context.Context) (location.Permission, error) {
		return location.Denied, errors.New("provider crashed")
	}
	s := newScreen(provider, catalogOf(nil), nil)

	drain(s, s.Init())

	assert.Equal(t, LocationPositionUnavailable, s.Location().Status)
	assert.ErrorIs(t, s.Location().Err, ErrLocationUnavailable)
	assert.Equal(t, 0, provider.positionCalls)

	// permission was never granted, so retry asks again
	provider.requestPermission = func(context.Context) (location.Permission, error) { return location.Granted, nil }
	drain(s, s.RetryLocation())

	assert.Equal(t, 2, provider.permissionCalls)
	assert.Equal(t, LocationReady, s.Location().Status)
}

func TestRetryAfterUnavailableRereadsPositionOnly(t *testing.T) {
	fail := true
	provider := grantedAt(saoPaulo)
	provider.currentPosition = func(context.Context) (models.Coordinate, error) {
		if fail {
			return models.Coordinate{}, location.ErrNoFix
		}
		return saoPaulo, nil
	}
	s := newScreen(provider, catalogOf(nil), nil)

	drain(s, s.Init())
	require.Equal(t, LocationPositionUnavailable, s.Location().Status)

	fail = false
	drain(s, s.RetryLocation())

	assert.Equal(t, LocationReady, s.Location().Status)
	assert.Equal(t, 1, provider.permissionCalls)
	assert.Equal(t, 2, provider.positionCalls)

	// nothing to retry once ready
	assert.Nil(t, s.RetryLocation())
}

func TestRetryAfterDenialRequestsPermission(t *testing.T) {
	perm := location.Denied
	provider := grantedAt(saoPaulo)
	provider.requestPermission = func(context.Context) (location.Permission, error) { return perm, nil }
	s := newScreen(provider, catalogOf(nil), nil)

	drain(s, s.Init())
	require.Equal(t, LocationPermissionDenied, s.Location().Status)

	perm = location.Granted
	drain(s, update(s, keyRunes("r")))

	assert.Equal(t, LocationReady, s.Location().Status)
	assert.Equal(t, 2, provider.permissionCalls)
	assert.Equal(t, 1, provider.positionCalls)
}

func TestRetryIgnoredWhileInFlight(t *testing.T) {
	s := newScreen(grantedAt(saoPaulo), catalogOf(nil), nil)

	_ = s.Init()

	assert.Nil(t, s.RetryLocation())
	assert.Equal(t, LocationLoading, s.Location().Status)
}

func TestCategoryOrderMatchesResponse(t *testing.T) {
	permutations := [][]int{
		{0, 1, 2},
		{0, 2, 1},
		{1, 0, 2},
		{1, 2, 0},
		{2, 0, 1},
		{2, 1, 0},
	}

	for _, perm := range permutations {
		response := make([]models.Category, len(perm))
		for i, idx := range perm {
			response[i] = sampleCategories[idx]
		}

		s := newScreen(grantedAt(saoPaulo), catalogOf(response), nil)
		drain(s, s.Init())

		assert.Equal(t, response, s.Categories().Items)

		view := s.View()
		last := -1
		for _, c := range response {
			pos := strings.Index(view, c.Title)
			require.NotEqual(t, -1, pos, "missing %q", c.Title)
			assert.Greater(t, pos, last, "%q rendered out of order", c.Title)
			last = pos
		}
	}
}

func TestCategoryFailureIsIsolated(t *testing.T) {
	catalog := &fakeCatalog{fetch: func(context.Context) ([]models.Category, error) {
		return nil, errors.New("connection refused")
	}}
	s := newScreen(grantedAt(saoPaulo), catalog, nil)

	drain(s, s.Init())

	assert.Equal(t, CategoriesFailed, s.Categories().Status)
	assert.ErrorIs(t, s.Categories().Err, ErrCatalogFetchFailed)
	assert.Empty(t, s.Categories().Items)
	assert.Equal(t, 1, catalog.calls)

	assert.Equal(t, LocationReady, s.Location().Status)

	drain(s, s.Toggle(2))
	assert.True(t, s.Selection().Has(2))
	assert.NotContains(t, s.View(), "Carregando itens")
}

func TestNoStateChangeAfterUnmount(t *testing.T) {
	provider := grantedAt(saoPaulo)
	s := newScreen(provider, catalogOf(sampleCategories), nil)

	msgs := collect(s.Init())
	require.Len(t, msgs, 2)

	s.Unmount()
	require.ErrorIs(t, provider.ctx.Err(), context.Canceled)

	for _, msg := range msgs {
		_, cmd := s.Update(msg)
		assert.Nil(t, cmd)
	}

	assert.Equal(t, LocationLoading, s.Location().Status)
	assert.Nil(t, s.Location().Coordinate)
	assert.Equal(t, CategoriesPending, s.Categories().Status)
	assert.Empty(t, s.Categories().Items)
	assert.Equal(t, 0, provider.positionCalls)
	assert.False(t, s.Mounted())

	assert.Nil(t, s.Toggle(1))
	assert.Equal(t, 0, s.Selection().Len())
}

func TestPositionAfterUnmountIsDropped(t *testing.T) {
	provider := grantedAt(saoPaulo)
	s := newScreen(provider, catalogOf(nil), nil)

	var positionCmd tea.Cmd
	for _, msg := range collect(s.Init()) {
		if _, ok := msg.(permissionMsg); ok {
			_, positionCmd = s.Update(msg)
		}
	}
	require.NotNil(t, positionCmd)

	s.Unmount()
	for _, msg := range collect(positionCmd) {
		s.Update(msg)
	}

	assert.Equal(t, LocationLoading, s.Location().Status)
	_, ok := s.Region()
	assert.False(t, ok)
}

func TestRemountDropsPreviousResults(t *testing.T) {
	s := newScreen(grantedAt(saoPaulo), catalogOf(sampleCategories), nil)

	old := collect(s.Init())
	drain(s, s.Toggle(6))

	_ = s.Init()
	for _, msg := range old {
		s.Update(msg)
	}

	assert.True(t, s.Mounted())
	assert.Equal(t, LocationLoading, s.Location().Status)
	assert.Equal(t, CategoriesPending, s.Categories().Status)
	assert.Equal(t, 0, s.Selection().Len())
}

func TestSearchRunsOnPositionAndToggle(t *testing.T) {
	mendao := models.CollectionPoint{ID: "mendao", Title: "Mercadão do Mendão", Location: saoPaulo, ItemIDs: []int{2, 6}}
	searcher := &fakeSearcher{search: func(_ context.Context, _ geo.Region, ids []int) ([]models.CollectionPoint, error) {
		if mendao.Accepts(ids) {
			return []models.CollectionPoint{mendao}, nil
		}
		return []models.CollectionPoint{}, nil
	}}
	s := newScreen(grantedAt(saoPaulo), catalogOf(sampleCategories), searcher)

	drain(s, s.Init())

	require.Len(t, searcher.calls, 1)
	assert.Equal(t, saoPaulo, searcher.calls[0].region.Center)
	assert.Empty(t, searcher.calls[0].ids)
	require.Len(t, s.Markers(), 1)
	assert.False(t, s.Markers()[0].Placeholder)

	drain(s, s.Toggle(1))
	require.Len(t, searcher.calls, 2)
	assert.Equal(t, []int{1}, searcher.calls[1].ids)
	assert.Empty(t, s.Markers())

	drain(s, s.Toggle(6))
	assert.Equal(t, []int{1, 6}, searcher.calls[2].ids)
	assert.Len(t, s.Markers(), 1)
}

func TestNoSearchBeforePosition(t *testing.T) {
	searcher := &fakeSearcher{search: func(context.Context, geo.Region, []int) ([]models.CollectionPoint, error) {
		return nil, nil
	}}
	provider := grantedAt(saoPaulo)
	provider.requestPermission = func(context.Context) (location.Permission, error) { return location.Denied, nil }
	s := newScreen(provider, catalogOf(sampleCategories), searcher)

	drain(s, s.Init())
	drain(s, s.Toggle(1))

	assert.Empty(t, searcher.calls)
	assert.True(t, s.Selection().Has(1))
}

func TestStaleSearchIsDropped(t *testing.T) {
	byFilter := map[int]models.CollectionPoint{
		1: {ID: "lampadas", Title: "Ecoponto Sé", Location: saoPaulo},
		2: {ID: "pilhas", Title: "Ecoponto Liberdade", Location: saoPaulo},
	}
	searcher := &fakeSearcher{search: func(_ context.Context, _ geo.Region, ids []int) ([]models.CollectionPoint, error) {
		if len(ids) == 0 {
			return nil, nil
		}
		return []models.CollectionPoint{byFilter[ids[len(ids)-1]]}, nil
	}}
	s := newScreen(grantedAt(saoPaulo), catalogOf(sampleCategories), searcher)
	drain(s, s.Init())

	first := s.Toggle(1)
	second := s.Toggle(1)
	third := s.Toggle(2)

	drain(s, third)
	drain(s, first)
	drain(s, second)

	markers := s.Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, "pilhas", markers[0].Point.ID)
}

func TestSearchFailureKeepsMarkers(t *testing.T) {
	fail := false
	point := models.CollectionPoint{ID: "mendao", Title: "Mercadão do Mendão", Location: saoPaulo}
	searcher := &fakeSearcher{search: func(context.Context, geo.Region, []int) ([]models.CollectionPoint, error) {
		if fail {
			return nil, errors.New("db down")
		}
		return []models.CollectionPoint{point}, nil
	}}
	s := newScreen(grantedAt(saoPaulo), catalogOf(sampleCategories), searcher)
	drain(s, s.Init())
	require.Len(t, s.Markers(), 1)

	fail = true
	drain(s, s.Toggle(2))

	assert.ErrorIs(t, s.SearchErr(), ErrPointSearchFailed)
	require.Len(t, s.Markers(), 1)
	assert.Equal(t, "mendao", s.Markers()[0].Point.ID)
	assert.Contains(t, s.View(), "Falha ao buscar pontos.")
}

func TestPressMarkerNavigatesWithDetails(t *testing.T) {
	point := models.CollectionPoint{
		ID:       "mendao",
		Title:    "Mercadão do Mendão",
		Address:  "Rua 115, 151 casa D",
		City:     "São Paulo",
		UF:       "SP",
		Email:    "contato@mendao.com.br",
		WhatsApp: "5511999999999",
		Location: saoPaulo,
		ItemIDs:  []int{6, 2},
	}
	searcher := &fakeSearcher{search: func(context.Context, geo.Region, []int) ([]models.CollectionPoint, error) {
		return []models.CollectionPoint{point}, nil
	}}
	s := newScreen(grantedAt(saoPaulo), catalogOf(sampleCategories), searcher)
	drain(s, s.Init())

	out := drain(s, s.PressMarker(0))

	require.Len(t, out, 1)
	assert.Equal(t, navigation.NavigateMsg{
		Screen: navigation.ScreenPointDetails,
		Params: navigation.DetailsParams{
			PointID:  "mendao",
			Title:    "Mercadão do Mendão",
			Items:    []string{"Óleo", "Pilhas"},
			Address:  "Rua 115, 151 casa D",
			City:     "São Paulo",
			UF:       "SP",
			Email:    "contato@mendao.com.br",
			WhatsApp: "5511999999999",
		},
	}, out[0])

	assert.Nil(t, s.PressMarker(1))
	assert.Nil(t, s.PressMarker(-1))
}

func TestPressPlaceholderMarker(t *testing.T) {
	s := newScreen(grantedAt(saoPaulo), catalogOf(sampleCategories), nil)
	drain(s, s.Init())

	out := drain(s, update(s, tea.KeyMsg{Type: tea.KeyEnter}))

	require.Len(t, out, 1)
	assert.Equal(t, navigation.NavigateMsg{
		Screen: navigation.ScreenPointDetails,
		Params: navigation.DetailsParams{Title: "Olha só"},
	}, out[0])
}

func TestKeys(t *testing.T) {
	s := newScreen(grantedAt(saoPaulo), catalogOf(sampleCategories), nil)
	drain(s, s.Init())

	drain(s, update(s, keyRunes("2")))
	assert.Equal(t, []int{2}, s.Selection().IDs())

	drain(s, update(s, tea.KeyMsg{Type: tea.KeyRight}))
	drain(s, update(s, tea.KeyMsg{Type: tea.KeySpace}))
	assert.Equal(t, []int{2, 6}, s.Selection().IDs())

	drain(s, update(s, tea.KeyMsg{Type: tea.KeyLeft}))
	drain(s, update(s, tea.KeyMsg{Type: tea.KeyLeft}))
	drain(s, update(s, tea.KeyMsg{Type: tea.KeySpace}))
	assert.Equal(t, []int{1, 2, 6}, s.Selection().IDs())

	// out of range digit is ignored
	drain(s, update(s, keyRunes("9")))
	assert.Equal(t, 3, s.Selection().Len())

	out := drain(s, update(s, tea.KeyMsg{Type: tea.KeyEsc}))
	assert.Equal(t, []tea.Msg{navigation.BackMsg{}}, out)
}

func TestToggleUnknownIDIsStored(t *testing.T) {
	s := newScreen(grantedAt(saoPaulo), catalogOf(sampleCategories), nil)
	drain(s, s.Init())

	drain(s, s.Toggle(99))

	assert.True(t, s.Selection().Has(99))
	assert.Empty(t, s.Selection().Ordered(s.Categories().Items))
}

func TestViewListsSelectionInStripOrder(t *testing.T) {
	s := newScreen(grantedAt(saoPaulo), catalogOf(sampleCategories), nil)
	drain(s, s.Init())

	assert.NotContains(t, s.View(), "Selecionados")

	drain(s, s.Toggle(6))
	drain(s, s.Toggle(99))
	drain(s, s.Toggle(1))

	assert.Contains(t, s.View(), "Selecionados: Lâmpadas, Óleo")
	assert.Equal(t, uint64(3), s.Selection().Revision())
}

func update(s *Screen, msg tea.Msg) tea.Cmd {
	_, cmd := s.Update(msg)
	return cmd
}

func keyRunes(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}
