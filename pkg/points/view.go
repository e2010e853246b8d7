package points

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	mapHeight = 11
	tileWidth = 16
)

var (
	brandColor = lipgloss.Color("#34CB79")
	tileColor  = lipgloss.Color("#EEEEEE")
	mutedColor = lipgloss.Color("#6C6C80")
	errorColor = lipgloss.Color("#FF5555")

	backStyle = lipgloss.NewStyle().
			Foreground(brandColor)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1)

	descriptionStyle = lipgloss.NewStyle().
				Foreground(mutedColor)

	mapStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			MarginTop(1)

	markerStyle = lipgloss.NewStyle().
			Foreground(brandColor)

	focusedMarkerStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(brandColor)

	noticeStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	dimStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	tileStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(tileColor).
			Width(tileWidth).
			Align(lipgloss.Center).
			MarginRight(1)

	selectedTileStyle = tileStyle.
				BorderForeground(brandColor)
)

func (s *Screen) View() string {
	var b strings.Builder

	b.WriteString(backStyle.Render("← voltar"))
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("😃 Bem vindo."))
	b.WriteString("\n")
	b.WriteString(descriptionStyle.Render("Encontre no mapa um ponto de coleta."))
	b.WriteString("\n")

	b.WriteString(s.renderMapPanel())
	b.WriteString("\n")
	b.WriteString(s.renderCategories())
	b.WriteString("\n\n")
	b.WriteString(s.help.View(s.keys))

	return b.String()
}

func (s *Screen) mapWidth() int {
	w := s.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

// renderMapPanel draws the map only once the position is known
func (s *Screen) renderMapPanel() string {
	switch s.location.Status {
	case LocationPermissionDenied:
		return s.renderNotice("Ops! Precisamos da sua localização.")
	case LocationPositionUnavailable:
		return s.renderNotice("Não foi possível obter sua localização.")
	case LocationReady:
		return s.renderMap()
	default:
		return mapStyle.Render(s.spinner.View() + " Obtendo sua localização...")
	}
}

func (s *Screen) renderNotice(text string) string {
	body := noticeStyle.Render(text)
	if !s.locPending {
		body += "\n" + dimStyle.Render("pressione r para tentar novamente")
	}
	return mapStyle.Render(body)
}

func (s *Screen) renderMap() string {
	region, ok := s.Region()
	if !ok {
		return ""
	}

	width, height := s.mapWidth(), mapHeight
	grid := make([][]string, height)
	for row := range grid {
		grid[row] = make([]string, width)
		for col := range grid[row] {
			grid[row][col] = " "
		}
	}

	markers := s.Markers()
	for i, m := range markers {
		col, row, ok := region.Project(m.Point.Location, width, height)
		if !ok {
			continue
		}
		if i == s.focus {
			grid[row][col] = focusedMarkerStyle.Render("◉")
		} else {
			grid[row][col] = markerStyle.Render("●")
		}
	}

	lines := make([]string, height)
	for row := range grid {
		lines[row] = strings.Join(grid[row], "")
	}

	var b strings.Builder
	b.WriteString(mapStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")
	b.WriteString(s.renderMarkerStatus(markers))
	return b.String()
}

func (s *Screen) renderMarkerStatus(markers []Marker) string {
	var parts []string

	if s.focus < len(markers) {
		p := markers[s.focus].Point
		label := markerStyle.Render("● " + p.Title)
		if p.Address != "" {
			label += dimStyle.Render(" · " + p.Address)
		}
		parts = append(parts, label)
	}

	switch {
	case s.searching:
		parts = append(parts, s.spinner.View()+dimStyle.Render(" buscando pontos..."))
	case s.searchErr != nil:
		parts = append(parts, noticeStyle.Render("Falha ao buscar pontos."))
	case s.searcher != nil:
		parts = append(parts, dimStyle.Render(fmt.Sprintf("%d pontos", len(markers))))
	}

	return strings.Join(parts, "  ")
}

// renderCategories draws the strip in server order, scrolled so the cursor
// tile stays visible
func (s *Screen) renderCategories() string {
	switch s.categories.Status {
	case CategoriesPending:
		return s.spinner.View() + dimStyle.Render(" Carregando itens...")
	case CategoriesFailed:
		return ""
	}

	items := s.categories.Items
	if len(items) == 0 {
		return ""
	}

	visible := s.width / (tileWidth + 3)
	if visible < 1 {
		visible = 1
	}
	start := 0
	if s.cursor >= visible {
		start = s.cursor - visible + 1
	}
	end := start + visible
	if end > len(items) {
		end = len(items)
	}

	tiles := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		c := items[i]
		style := tileStyle
		if s.selection.Has(c.ID) {
			style = selectedTileStyle
		}
		title := c.Title
		if i == s.cursor {
			title = lipgloss.NewStyle().Bold(true).Render(title)
		}
		tiles = append(tiles, style.Render(dimStyle.Render(fmt.Sprintf("%d", i+1))+"\n"+title))
	}

	strip := lipgloss.JoinHorizontal(lipgloss.Top, tiles...)
	if start > 0 || end < len(items) {
		strip += "\n" + dimStyle.Render(fmt.Sprintf("%d-%d de %d", start+1, end, len(items)))
	}
	if summary := s.selectedSummary(); summary != "" {
		strip += "\n" + summary
	}
	return strip
}

// selectedSummary lists the selected categories in strip order
func (s *Screen) selectedSummary() string {
	selected := s.selection.Ordered(s.categories.Items)
	if len(selected) == 0 {
		return ""
	}
	titles := make([]string, len(selected))
	for i, c := range selected {
		titles[i] = c.Title
	}
	return markerStyle.Render("Selecionados: ") + strings.Join(titles, ", ")
}
