package tui

import (
	"context"
	"fmt"

	"strava-stats/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Screen identifiers
type Screen int

const (
	ScreenStats Screen = iota
	ScreenEddington
	ScreenSync
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	stats      StatsModel
	eddington  EddingtonModel
	syncScreen SyncModel
	help       HelpModel

	// Services
	statsService *service.StatsService
	syncService  *service.SyncService
	exportDir    string

	// Window dimensions
	width  int
	height int

	// Status message
	status string
}

// NewApp creates a new App with all dependencies
func NewApp(syncService *service.SyncService, statsService *service.StatsService, exportDir string) *App {
	return &App{
		screen:       ScreenStats,
		statsService: statsService,
		syncService:  syncService,
		exportDir:    exportDir,
		stats:        NewStatsModel(statsService, 0, 0),
		eddington:    NewEddingtonModel(statsService),
		syncScreen:   NewSyncModel(syncService),
		help:         NewHelpModel(),
	}
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.stats.Init(), a.syncScreen.Init())
}

type exportDoneMsg struct {
	paths []string
	err   error
}

func (a *App) runExport() tea.Msg {
	paths, err := a.statsService.Export(context.Background(), a.exportDir)
	return exportDoneMsg{paths: paths, err: err}
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings (unless in sync mode)
		if a.screen != ScreenSync || !a.syncScreen.syncing {
			switch msg.String() {
			case "q", "ctrl+c":
				return a, tea.Quit
			case "1":
				a.screen = ScreenStats
				return a, nil
			case "2":
				a.screen = ScreenEddington
				return a, a.eddington.Init()
			case "3", "s":
				if a.screen != ScreenSync {
					a.screen = ScreenSync
					return a, a.syncScreen.Init()
				}
				// Let 's' fall through to sync screen when already there
			case "e":
				a.status = "Exporting to " + a.exportDir + "..."
				return a, a.runExport
			case "?":
				if a.screen != ScreenHelp {
					a.prevScreen = a.screen
					a.screen = ScreenHelp
				}
				return a, nil
			case "esc":
				if a.screen == ScreenHelp {
					a.screen = a.prevScreen
					return a, nil
				}
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// the stats viewport tracks the window even when another screen is shown
		m, cmd := a.stats.Update(msg)
		a.stats = m.(StatsModel)
		return a, cmd

	case exportDoneMsg:
		if msg.err != nil && msg.paths == nil {
			a.status = errorStyle.Render(fmt.Sprintf("Export failed: %v", msg.err))
		} else {
			a.status = successStyle.Render(fmt.Sprintf("Exported %d files to %s", len(msg.paths), a.exportDir))
		}
		return a, nil

	case sectionsLoadedMsg:
		m, cmd := a.stats.Update(msg)
		a.stats = m.(StatsModel)
		return a, cmd

	case eddingtonLoadedMsg:
		m, cmd := a.eddington.Update(msg)
		a.eddington = m.(EddingtonModel)
		return a, cmd

	case syncProgressMsg, SyncDoneMsg, lastSyncMsg:
		m, cmd := a.syncScreen.Update(msg)
		a.syncScreen = m.(SyncModel)
		return a, cmd

	case SyncCompleteMsg:
		// New activities invalidate every statistic
		a.stats.loading = true
		return a, tea.Batch(a.stats.Init(), a.eddington.Init())
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenStats:
		var m tea.Model
		m, cmd = a.stats.Update(msg)
		a.stats = m.(StatsModel)
	case ScreenEddington:
		var m tea.Model
		m, cmd = a.eddington.Update(msg)
		a.eddington = m.(EddingtonModel)
	case ScreenSync:
		var m tea.Model
		m, cmd = a.syncScreen.Update(msg)
		a.syncScreen = m.(SyncModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

// View renders the app
func (a *App) View() string {
	header := a.renderHeader()
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenStats:
		content = a.stats.View()
	case ScreenEddington:
		content = a.eddington.View()
	case ScreenSync:
		content = a.syncScreen.View()
	case ScreenHelp:
		content = a.help.View()
	}

	footer := a.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content, footer)
}

func (a *App) renderHeader() string {
	return headerStyle.Render("Strava Statistics")
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Statistics", ScreenStats},
		{"2", "Eddington", ScreenEddington},
		{"3", "Sync", ScreenSync},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[e] Export  [q] Quit")

	return navStyle.Render(nav)
}

func (a *App) renderFooter() string {
	if a.status != "" {
		return statusStyle.Render(a.status)
	}
	return ""
}

// SyncCompleteMsg is sent when sync finishes
type SyncCompleteMsg struct{}
