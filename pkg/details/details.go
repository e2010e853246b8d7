// Package details shows the contact card of one collection point.
package details

import (
	"fmt"
	"strings"

	"github.com/1F47E/ecoleta-points/pkg/navigation"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
)

var (
	brandColor = lipgloss.Color("#34CB79")

	backStyle = lipgloss.NewStyle().
			Foreground(brandColor)

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#322153")).
			MarginTop(1)

	itemsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C6C80"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(brandColor).
			Padding(0, 2).
			MarginRight(1)
)

type keyMap struct {
	Back key.Binding
}

func (k keyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Back} }
func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{{k.Back}} }

// Screen renders navigation.DetailsParams
type Screen struct {
	params    navigation.DetailsParams
	navigator navigation.Navigator
	keys      keyMap
	help      help.Model
}

func New(params navigation.DetailsParams, navigator navigation.Navigator) *Screen {
	return &Screen{
		params:    params,
		navigator: navigator,
		keys: keyMap{
			Back: key.NewBinding(
				key.WithKeys("esc", "backspace", "b"),
				key.WithHelp("esc", "back"),
			),
		},
		help: help.New(),
	}
}

func (s *Screen) Init() tea.Cmd {
	log.Debug().Str("point", s.params.PointID).Msg("Details opened")
	return nil
}

func (s *Screen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.help.Width = msg.Width
	case tea.KeyMsg:
		if key.Matches(msg, s.keys.Back) {
			return s, s.navigator.GoBack()
		}
	}
	return s, nil
}

// Params returns what the screen was opened with
func (s *Screen) Params() navigation.DetailsParams {
	return s.params
}

func (s *Screen) View() string {
	p := s.params
	var b strings.Builder

	b.WriteString(backStyle.Render("← voltar"))
	b.WriteString("\n")
	b.WriteString(nameStyle.Render(p.Title))
	b.WriteString("\n")
	if len(p.Items) > 0 {
		b.WriteString(itemsStyle.Render(strings.Join(p.Items, ", ")))
		b.WriteString("\n")
	}

	if address := formatAddress(p); address != "" {
		b.WriteString(labelStyle.Render("Endereço"))
		b.WriteString("\n")
		b.WriteString(itemsStyle.Render(address))
		b.WriteString("\n")
	}

	var buttons []string
	if p.WhatsApp != "" {
		buttons = append(buttons, buttonStyle.Render("WhatsApp "+p.WhatsApp))
	}
	if p.Email != "" {
		buttons = append(buttons, buttonStyle.Render("E-mail "+p.Email))
	}
	if len(buttons) > 0 {
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(s.help.View(s.keys))
	return b.String()
}

// formatAddress renders "address, city/UF", skipping empty parts
func formatAddress(p navigation.DetailsParams) string {
	place := p.City
	if p.UF != "" {
		if place != "" {
			place = fmt.Sprintf("%s/%s", place, p.UF)
		} else {
			place = p.UF
		}
	}

	parts := make([]string, 0, 2)
	for _, part := range []string{p.Address, place} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}
