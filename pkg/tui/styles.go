package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.Color("#cba6f7")
	colorCrust   = lipgloss.Color("#11111b")
	colorGreen   = lipgloss.Color("#a6e3a1")
	colorRed     = lipgloss.Color("#f38ba8")
	colorYellow  = lipgloss.Color("#f9e2af")
	colorDim     = lipgloss.Color("#6c7086")
	colorBorder  = lipgloss.Color("#585b70")
	colorSurface = lipgloss.Color("#313244")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCrust).
			Background(colorAccent).
			Padding(0, 1)

	backendStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	focusedPanelStyle = panelStyle.
				BorderForeground(colorAccent)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#b4befe"))

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	selectedFolderStyle = lipgloss.NewStyle().
				Foreground(colorAccent).
				Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	statusBarStyle = lipgloss.NewStyle().
			Background(colorSurface).
			Padding(0, 1)

	statusStyles = map[statusKind]lipgloss.Style{
		statusInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("#cdd6f4")),
		statusBusy:    lipgloss.NewStyle().Foreground(colorYellow),
		statusSuccess: lipgloss.NewStyle().Foreground(colorGreen),
		statusError:   lipgloss.NewStyle().Foreground(colorRed),
	}
)
