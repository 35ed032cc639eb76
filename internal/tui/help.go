package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpModel is the help screen model
type HelpModel struct{}

// NewHelpModel creates a new help model
func NewHelpModel() HelpModel {
	return HelpModel{}
}

// Init initializes the help screen
func (m HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the help screen
func (m HelpModel) View() string {
	var sections []string

	title := cardTitleStyle.Render("Keyboard Shortcuts")
	sections = append(sections, title)

	sections = append(sections, m.renderSection("Navigation", []keyHelp{
		{"1", "Statistics"},
		{"2", "Eddington number"},
		{"3 or s", "Sync screen"},
		{"e", "Export statistics to CSV and Parquet"},
		{"?", "Help (this screen)"},
		{"q", "Quit"},
		{"esc", "Close help"},
	}))

	sections = append(sections, m.renderSection("Statistics", []keyHelp{
		{"h / l / tab", "Previous / next section"},
		{"j / k", "Scroll"},
		{"r", "Recompute"},
	}))

	sections = append(sections, m.renderSection("Sync Screen", []keyHelp{
		{"s / enter", "Start sync"},
	}))

	sections = append(sections, m.renderGlossary())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

type keyHelp struct {
	key  string
	desc string
}

func (m HelpModel) renderSection(title string, keys []keyHelp) string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, helpSectionStyle.Render(title))

	for _, k := range keys {
		lines = append(lines, "  "+RenderKeyHelp(k.key, k.desc))
	}

	return strings.Join(lines, "\n")
}

func (m HelpModel) renderGlossary() string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, helpSectionStyle.Render("Statistics Explained"))
	lines = append(lines, "")

	terms := []struct {
		name string
		desc string
	}{
		{"Best <distance>", "Fastest time over that distance inside a single activity."},
		{"Best <duration>", "Longest distance covered in that time inside a single activity."},
		{"Max gradient", "Steepest average climb over that distance."},
		{"Best average power", "Highest mean power held for that duration."},
		{"Max streak", "Longest run of consecutive days with an activity."},
		{"Eddington number", "Largest E such that E days each have at least E km."},
	}

	for _, term := range terms {
		lines = append(lines, "  "+helpKeyStyle.Render(term.name))
		lines = append(lines, "  "+helpDescStyle.Render(term.desc))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
