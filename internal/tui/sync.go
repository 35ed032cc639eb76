package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"strava-stats/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// SyncModel is the sync screen model
type SyncModel struct {
	syncService *service.SyncService
	syncing     bool
	progress    service.SyncProgress
	progressCh  chan service.SyncProgress
	doneCh      chan SyncDoneMsg
	lastSync    time.Time
	result      *service.SyncResult
	err         error
	done        bool
}

// NewSyncModel creates a new sync model
func NewSyncModel(ss *service.SyncService) SyncModel {
	return SyncModel{
		syncService: ss,
	}
}

// Init initializes the sync screen
func (m SyncModel) Init() tea.Cmd {
	return m.loadLastSync
}

type lastSyncMsg time.Time

func (m SyncModel) loadLastSync() tea.Msg {
	last, err := m.syncService.LastSync(context.Background())
	if err != nil {
		return lastSyncMsg(time.Time{})
	}
	return lastSyncMsg(last)
}

// SyncDoneMsg is sent when sync finishes
type SyncDoneMsg struct {
	Result *service.SyncResult
	Err    error
}

type syncProgressMsg service.SyncProgress

// Update handles messages
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case lastSyncMsg:
		m.lastSync = time.Time(msg)

	case syncProgressMsg:
		m.progress = service.SyncProgress(msg)
		return m, waitForSync(m.progressCh, m.doneCh)

	case SyncDoneMsg:
		m.syncing = false
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Batch(m.loadLastSync, func() tea.Msg { return SyncCompleteMsg{} })

	case tea.KeyMsg:
		if !m.syncing {
			switch msg.String() {
			case "enter", "s":
				return m.startSync()
			}
		}
	}
	return m, nil
}

// startSync runs the sync in the background. Progress is relayed one
// message at a time until the progress channel is closed.
func (m SyncModel) startSync() (SyncModel, tea.Cmd) {
	m.syncing = true
	m.done = false
	m.err = nil
	m.result = nil
	m.progress = service.SyncProgress{}
	m.progressCh = make(chan service.SyncProgress, 16)
	m.doneCh = make(chan SyncDoneMsg, 1)

	ss, progress, done := m.syncService, m.progressCh, m.doneCh
	go func() {
		result, err := ss.SyncAll(context.Background(), progress)
		done <- SyncDoneMsg{Result: result, Err: err}
	}()

	return m, waitForSync(progress, done)
}

func waitForSync(progress <-chan service.SyncProgress, done <-chan SyncDoneMsg) tea.Cmd {
	return func() tea.Msg {
		if p, ok := <-progress; ok {
			return syncProgressMsg(p)
		}
		return <-done
	}
}

// View renders the sync screen
func (m SyncModel) View() string {
	var sections []string

	title := cardTitleStyle.Render("Strava Sync")
	sections = append(sections, title)

	if m.syncing {
		sections = append(sections, m.renderProgress())
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err)))
		sections = append(sections, m.renderSummary())
		sections = append(sections, "\n"+statusStyle.Render("  Press 's' or Enter to retry"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.done {
		sections = append(sections, successStyle.Render("\n  Sync complete!"))
		sections = append(sections, m.renderSummary())
		sections = append(sections, "\n"+statusStyle.Render("  Press '1' to see the statistics"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	sections = append(sections, m.renderStartPrompt())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m SyncModel) renderStartPrompt() string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, "  This will sync your Strava activities:")
	lines = append(lines, "")
	lines = append(lines, "  1. Fetch activities created since the last sync")
	lines = append(lines, fmt.Sprintf("  2. Download up to %d missing streams", service.StreamBatchSize))
	lines = append(lines, "")

	lines = append(lines, statusStyle.Render("  Last sync: "+lastSyncLabel(m.lastSync)))
	short, daily := m.syncService.RateLimitStatus()
	lines = append(lines, statusStyle.Render(fmt.Sprintf("  API requests left: %d (15min), %s (daily)", short, humanize.Comma(int64(daily)))))
	lines = append(lines, "")
	lines = append(lines, statusStyle.Render("  Press 's' or Enter to start sync"))

	return strings.Join(lines, "\n")
}

func (m SyncModel) renderProgress() string {
	var lines []string
	p := m.progress

	lines = append(lines, "")
	switch p.Phase {
	case service.PhaseStreams:
		lines = append(lines, fmt.Sprintf("  Downloading streams %d/%d", p.Completed, p.Total))
		if p.Total > 0 {
			lines = append(lines, "  "+RenderProgressBar(float64(p.Completed)/float64(p.Total), 40))
		}
		if p.CurrentActivity != "" {
			lines = append(lines, statusStyle.Render("  "+p.CurrentActivity))
		}
	default:
		lines = append(lines, fmt.Sprintf("  Fetching activities, %s stored so far", humanize.Comma(int64(p.Completed))))
	}
	lines = append(lines, "")
	lines = append(lines, statusStyle.Render("  This may take a moment..."))

	return strings.Join(lines, "\n")
}

func (m SyncModel) renderSummary() string {
	var lines []string

	if m.result == nil {
		return ""
	}

	r := m.result
	lines = append(lines, "")

	if r.ActivitiesStored > 0 {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %s activities synced", humanize.Comma(int64(r.ActivitiesStored)))))
	} else {
		lines = append(lines, statusStyle.Render("  No new activities"))
	}

	if r.StreamsFetched > 0 {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %d streams downloaded", r.StreamsFetched)))
	}

	if r.StreamsMissing > 0 {
		lines = append(lines, statusStyle.Render(fmt.Sprintf("  %d activities without stream", r.StreamsMissing)))
	}

	if len(r.Errors) > 0 {
		lines = append(lines, "")
		lines = append(lines, warningStyle.Render(fmt.Sprintf("  %d errors occurred, see the log file", len(r.Errors))))
	}

	return strings.Join(lines, "\n")
}

func lastSyncLabel(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}
