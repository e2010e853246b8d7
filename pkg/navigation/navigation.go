// Package navigation defines the screens of the app and the messages screens
// use to move between them.
package navigation

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ScreenID identifies a screen the router can show
type ScreenID int

const (
	ScreenPoints ScreenID = iota
	ScreenPointDetails
)

func (s ScreenID) String() string {
	switch s {
	case ScreenPoints:
		return "Points"
	case ScreenPointDetails:
		return "PointDetails"
	default:
		return "Unknown"
	}
}

// DetailsParams is what the details screen shows for a collection point.
// Items holds category titles, already resolved by the caller.
type DetailsParams struct {
	PointID  string
	Title    string
	Items    []string
	Address  string
	City     string
	UF       string
	Email    string
	WhatsApp string
}

// NavigateMsg asks the router to push a screen
type NavigateMsg struct {
	Screen ScreenID
	Params any
}

// BackMsg asks the router to pop the current screen
type BackMsg struct{}

// Navigator is the navigation service screens call into
type Navigator interface {
	GoBack() tea.Cmd
	NavigateTo(screen ScreenID, params any) tea.Cmd
}

// Messages is a Navigator that turns calls into router messages
type Messages struct{}

func (Messages) GoBack() tea.Cmd {
	return func() tea.Msg { return BackMsg{} }
}

func (Messages) NavigateTo(screen ScreenID, params any) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Screen: screen, Params: params}
	}
}
