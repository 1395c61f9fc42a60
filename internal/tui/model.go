package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tokenledger/internal/ledger"
)

const (
	weekWindow   = 7
	monthWindow  = 30
	refreshEvery = 5 * time.Second
)

// Source is the ledger surface the dashboard reads.
type Source interface {
	Reload() int
	Overall() ledger.OverallAnalytics
	Daily(days int) []ledger.DailyUsage
	ModelShares() []ledger.ModelShare
	Models() []ledger.ModelAnalytics
}

// Model is the dashboard TUI model.
type Model struct {
	src     Source
	version string
	window  int

	overall ledger.OverallAnalytics
	daily   []ledger.DailyUsage
	shares  []ledger.ModelShare
	models  table.Model

	help     help.Model
	width    int
	height   int
	loading  bool
	loadedAt time.Time
}

// dataLoadedMsg carries a fresh read of the ledger.
type dataLoadedMsg struct {
	window  int
	overall ledger.OverallAnalytics
	daily   []ledger.DailyUsage
	shares  []ledger.ModelShare
	models  []ledger.ModelAnalytics
	at      time.Time
}

// refreshTickMsg triggers periodic reload.
type refreshTickMsg struct{}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshEvery, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

// loadCmd reads the ledger for the given window. When reload is set the
// ledger re-reads its store first.
func loadCmd(src Source, window int, reload bool) tea.Cmd {
	return func() tea.Msg {
		if reload {
			src.Reload()
		}
		return dataLoadedMsg{
			window:  window,
			overall: src.Overall(),
			daily:   src.Daily(window),
			shares:  src.ModelShares(),
			models:  src.Models(),
			at:      time.Now(),
		}
	}
}

// NewModel creates a dashboard over src showing window days (7 or 30).
func NewModel(src Source, version string, window int) Model {
	if window != monthWindow {
		window = weekWindow
	}

	t := table.New(
		table.WithColumns(modelColumns),
		table.WithHeight(8),
		table.WithFocused(false),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(mutedColor).
		BorderBottom(true).
		Bold(true).
		Foreground(primaryColor)
	s.Selected = s.Selected.Foreground(lipgloss.NoColor{}).Bold(false)
	t.SetStyles(s)

	return Model{
		src:     src,
		version: version,
		window:  window,
		models:  t,
		help:    help.New(),
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(loadCmd(m.src, m.window, false), refreshTick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case dataLoadedMsg:
		// Ignore results for a window the user already switched away from.
		if msg.window != m.window {
			return m, nil
		}
		m.loading = false
		m.overall = msg.overall
		m.daily = msg.daily
		m.shares = msg.shares
		m.models.SetRows(modelRows(msg.models))
		m.loadedAt = msg.at
		return m, nil

	case refreshTickMsg:
		return m, tea.Batch(loadCmd(m.src, m.window, true), refreshTick())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Reload):
			m.loading = true
			return m, loadCmd(m.src, m.window, true)
		case key.Matches(msg, keys.Week):
			return m.setWindow(weekWindow)
		case key.Matches(msg, keys.Month):
			return m.setWindow(monthWindow)
		case key.Matches(msg, keys.Toggle):
			if m.window == weekWindow {
				return m.setWindow(monthWindow)
			}
			return m.setWindow(weekWindow)
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}
	return m, nil
}

func (m Model) setWindow(days int) (tea.Model, tea.Cmd) {
	if m.window == days {
		return m, nil
	}
	m.window = days
	m.loading = true
	return m, loadCmd(m.src, days, false)
}

func (m Model) View() string {
	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		"",
		m.renderBody(),
		helpStyle.Render(m.help.View(keys)),
	))
}

// Run starts the dashboard.
func Run(src Source, version string, window int) error {
	p := tea.NewProgram(NewModel(src, version, window), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
