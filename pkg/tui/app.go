// Package tui hosts the screens in a single bubbletea program and routes
// navigation messages between them.
package tui

import (
	"github.com/1F47E/ecoleta-points/pkg/details"
	"github.com/1F47E/ecoleta-points/pkg/navigation"
	"github.com/1F47E/ecoleta-points/pkg/points"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
)

// App is the root model. The Points screen is the bottom of the stack and
// stays mounted while screens are pushed on top of it.
type App struct {
	points    *points.Screen
	stack     []tea.Model
	navigator navigation.Navigator

	size     *tea.WindowSizeMsg
	quitting bool
}

func New(screen *points.Screen, navigator navigation.Navigator) *App {
	return &App{
		points:    screen,
		stack:     []tea.Model{screen},
		navigator: navigator,
	}
}

func (a *App) Init() tea.Cmd {
	return a.points.Init()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, a.quit()
		}
		return a, a.updateTop(msg)

	case tea.WindowSizeMsg:
		a.size = &msg
		return a, a.broadcast(msg)

	case navigation.NavigateMsg:
		return a, a.push(msg)

	case navigation.BackMsg:
		if len(a.stack) == 1 {
			return a, a.quit()
		}
		a.stack = a.stack[:len(a.stack)-1]
		log.Debug().Int("depth", len(a.stack)).Msg("Screen popped")
		return a, nil
	}

	return a, a.broadcast(msg)
}

func (a *App) View() string {
	if a.quitting {
		return ""
	}
	return a.top().View()
}

// Depth returns the number of screens on the stack
func (a *App) Depth() int {
	return len(a.stack)
}

// Top returns the visible screen
func (a *App) Top() tea.Model {
	return a.top()
}

func (a *App) top() tea.Model {
	return a.stack[len(a.stack)-1]
}

func (a *App) push(msg navigation.NavigateMsg) tea.Cmd {
	switch msg.Screen {
	case navigation.ScreenPointDetails:
		params, ok := msg.Params.(navigation.DetailsParams)
		if !ok {
			log.Warn().Str("screen", msg.Screen.String()).Msgf("Unexpected params %T", msg.Params)
			return nil
		}
		screen := details.New(params, a.navigator)
		a.stack = append(a.stack, screen)
		log.Info().Str("screen", msg.Screen.String()).Str("point", params.PointID).Msg("Screen pushed")

		cmds := []tea.Cmd{screen.Init()}
		if a.size != nil {
			_, cmd := screen.Update(*a.size)
			cmds = append(cmds, cmd)
		}
		return tea.Batch(cmds...)

	case navigation.ScreenPoints:
		a.stack = a.stack[:1]
		return nil
	}

	log.Warn().Str("screen", msg.Screen.String()).Msg("Unknown screen")
	return nil
}

func (a *App) updateTop(msg tea.Msg) tea.Cmd {
	i := len(a.stack) - 1
	model, cmd := a.stack[i].Update(msg)
	a.stack[i] = model
	return cmd
}

// broadcast delivers msg to every screen so the covered Points screen keeps
// receiving its async results
func (a *App) broadcast(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(a.stack))
	for i, screen := range a.stack {
		model, cmd := screen.Update(msg)
		a.stack[i] = model
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (a *App) quit() tea.Cmd {
	a.quitting = true
	a.points.Unmount()
	return tea.Quit
}
