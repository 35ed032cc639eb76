package tui

import (
	"context"
	"fmt"
	"strings"

	"strava-stats/internal/service"
	"strava-stats/internal/statistics"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// chromeHeight is the space taken by the app header, nav, tabs and footer
const chromeHeight = 9

// StatsModel shows one statistics section at a time, scrollable
type StatsModel struct {
	statsService *service.StatsService
	sections     []statistics.Section
	selected     int
	viewport     viewport.Model
	loading      bool
	err          error
	warning      error // statistics left out of their section
	width        int
	height       int
	ready        bool
}

// NewStatsModel creates a new stats model
func NewStatsModel(ss *service.StatsService, width, height int) StatsModel {
	m := StatsModel{
		statsService: ss,
		loading:      true,
		width:        width,
		height:       height,
	}

	if width > 0 && height > chromeHeight {
		m.viewport = viewport.New(width, height-chromeHeight)
		m.ready = true
	}

	return m
}

// Init initializes the stats screen
func (m StatsModel) Init() tea.Cmd {
	return m.loadSections
}

type sectionsLoadedMsg struct {
	sections []statistics.Section
	err      error
}

func (m StatsModel) loadSections() tea.Msg {
	sections, err := m.statsService.Sections(context.Background())
	return sectionsLoadedMsg{sections: sections, err: err}
}

// Update handles messages
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sectionsLoadedMsg:
		m.loading = false
		m.err = nil
		m.warning = nil
		if msg.sections == nil {
			m.err = msg.err
		} else {
			m.sections = msg.sections
			m.warning = msg.err
		}
		if m.selected >= len(m.sections) {
			m.selected = 0
		}
		m.refreshContent()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-chromeHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - chromeHeight
		}
		m.refreshContent()

	case tea.KeyMsg:
		switch msg.String() {
		case "right", "l", "tab":
			if len(m.sections) > 0 {
				m.selected = (m.selected + 1) % len(m.sections)
				m.refreshContent()
			}
			return m, nil
		case "left", "h", "shift+tab":
			if len(m.sections) > 0 {
				m.selected = (m.selected + len(m.sections) - 1) % len(m.sections)
				m.refreshContent()
			}
			return m, nil
		case "r":
			m.loading = true
			return m, m.loadSections
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *StatsModel) refreshContent() {
	if !m.ready || len(m.sections) == 0 {
		return
	}
	m.viewport.SetContent(renderSection(m.sections[m.selected]))
	m.viewport.GotoTop()
}

// View renders the stats screen
func (m StatsModel) View() string {
	if m.loading {
		return "\n  Computing statistics..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if len(m.sections) == 0 {
		return "\n  No activities yet. Sync some activities first."
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	parts := []string{m.renderTabs(), m.viewport.View()}
	if m.warning != nil {
		parts = append(parts, warningStyle.Render("  Some statistics could not be computed, see the log file"))
	}
	parts = append(parts, statusStyle.Render("  h/l or tab: section  j/k: scroll  r: refresh  e: export"))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m StatsModel) renderTabs() string {
	tabs := make([]string, 0, len(m.sections))
	for i, s := range m.sections {
		if i == m.selected {
			tabs = append(tabs, tabActiveStyle.Render(s.Name))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(s.Name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n"
}

func renderSection(section statistics.Section) string {
	var lines []string
	for _, stat := range section.Statistics {
		lines = append(lines, "  "+RenderStatistic(stat.Name, stat.Value, stat.Available(), activityDetail(stat)))
	}
	return strings.Join(lines, "\n")
}

// activityDetail names the activity a statistic comes from
func activityDetail(stat statistics.Statistic) string {
	if stat.Activity == nil {
		return ""
	}
	return fmt.Sprintf("%s, %s", stat.Activity.Name, stat.Activity.LocalDay())
}
