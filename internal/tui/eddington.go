package tui

import (
	"context"
	"fmt"
	"strings"

	"strava-stats/internal/analysis"
	"strava-stats/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// eddingtonTargets is how many numbers above the current one are listed
const eddingtonTargets = 5

// EddingtonModel shows the Eddington number and how far the next ones are
type EddingtonModel struct {
	statsService *service.StatsService
	result       analysis.EddingtonResult
	loading      bool
	err          error
}

// NewEddingtonModel creates a new Eddington model
func NewEddingtonModel(ss *service.StatsService) EddingtonModel {
	return EddingtonModel{statsService: ss, loading: true}
}

// Init initializes the Eddington screen
func (m EddingtonModel) Init() tea.Cmd {
	return m.loadEddington
}

type eddingtonLoadedMsg struct {
	result analysis.EddingtonResult
	err    error
}

func (m EddingtonModel) loadEddington() tea.Msg {
	result, err := m.statsService.Eddington(context.Background())
	return eddingtonLoadedMsg{result: result, err: err}
}

// Update handles messages
func (m EddingtonModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eddingtonLoadedMsg:
		m.loading = false
		m.result = msg.result
		m.err = msg.err

	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, m.loadEddington
		}
	}
	return m, nil
}

// View renders the Eddington screen
func (m EddingtonModel) View() string {
	if m.loading {
		return "\n  Loading Eddington number..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	var sections []string
	sections = append(sections, cardTitleStyle.Render(fmt.Sprintf("Eddington number: %d km", m.result.Number)))

	if len(m.result.Counts) == 0 {
		sections = append(sections, "  No day with at least 1 km yet.")
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	sections = append(sections, m.renderChart(), m.renderTargets())
	sections = append(sections, statusStyle.Render("  r: refresh"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m EddingtonModel) renderChart() string {
	data := make([]float64, len(m.result.Counts))
	for i, c := range m.result.Counts {
		data[i] = float64(c)
	}
	if len(data) < 2 {
		return ""
	}

	return asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(60),
		asciigraph.Caption("days with at least N km"),
	) + "\n"
}

// renderTargets lists how many more days each next Eddington number needs
func (m EddingtonModel) renderTargets() string {
	lines := []string{helpSectionStyle.Render("Next targets")}
	for _, t := range EddingtonTargets(m.result, eddingtonTargets) {
		lines = append(lines, fmt.Sprintf("  %3d km  %s", t.Km, helpDescStyle.Render(fmt.Sprintf("%d more days", t.Missing))))
	}
	return strings.Join(lines, "\n")
}

// EddingtonTarget is a future Eddington number and the days it still needs
type EddingtonTarget struct {
	Km      int
	Missing int
}

// EddingtonTargets returns the n numbers above the current one with the
// days of at least that many km still missing for each.
func EddingtonTargets(result analysis.EddingtonResult, n int) []EddingtonTarget {
	targets := make([]EddingtonTarget, 0, n)
	for km := result.Number + 1; km <= result.Number+n; km++ {
		have := 0
		if km <= len(result.Counts) {
			have = result.Counts[km-1]
		}
		targets = append(targets, EddingtonTarget{Km: km, Missing: km - have})
	}
	return targets
}
