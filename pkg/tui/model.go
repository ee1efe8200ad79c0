// Package tui renders the dashboard in the terminal: an interactive
// bubbletea program for terminals and a plain report for everything else.
package tui

import (
	"fmt"
	"strings"

	"github.com/1F47E/rail-eda/pkg/dataset"
	"github.com/1F47E/rail-eda/pkg/models"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	labelWidth    = 24
)

// Options configures the dashboard
type Options struct {
	Center  models.Location
	Reports ReportPaths
}

type loadedMsg struct {
	snap    *dataset.Snapshot
	reports Reports
}

// Model is the bubbletea dashboard
type Model struct {
	repo *dataset.Repository
	opts Options

	spinner spinner.Model
	bar     progress.Model
	loading bool

	snap    *dataset.Snapshot
	reports Reports

	tab    Tab
	sel    Selection
	scroll int

	width  int
	height int
}

// New creates the dashboard model over a repository
func New(repo *dataset.Repository, opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return Model{
		repo:    repo,
		opts:    opts,
		spinner: s,
		bar:     newBar(defaultWidth / 2),
		loading: true,
		width:   defaultWidth,
		height:  defaultHeight,
	}
}

// Run starts the interactive dashboard on the alternate screen
func Run(repo *dataset.Repository, opts Options) error {
	p := tea.NewProgram(New(repo, opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}

func newBar(width int) progress.Model {
	return progress.New(
		progress.WithDefaultGradient(),
		progress.WithoutPercentage(),
		progress.WithWidth(width),
	)
}

func load(repo *dataset.Repository) tea.Cmd {
	return func() tea.Msg {
		snap := repo.Snapshot()
		return loadedMsg{snap: snap, reports: Summarise(snap)}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, load(m.repo))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar = newBar(max(10, msg.Width-labelWidth-16))
		return m, nil

	case loadedMsg:
		m.loading = false
		m.snap = msg.snap
		m.reports = msg.reports
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "right", "tab", "l":
		m.tab = Tabs[wrap(int(m.tab)+1, len(Tabs))]
		m.scroll = 0
	case "left", "shift+tab", "h":
		m.tab = Tabs[wrap(int(m.tab)-1, len(Tabs))]
		m.scroll = 0
	case "down", "j":
		m.scroll++
	case "up", "k":
		m.scroll = max(0, m.scroll-1)
	case "r":
		// files are re-read only if they changed on disk
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, load(m.repo))
	}

	if m.tab == TabGeospatial {
		switch msg.String() {
		case "n":
			m.sel.Train++
		case "p":
			m.sel.Train--
		case "f":
			m.sel.From++
		case "F":
			m.sel.From--
		case "t":
			m.sel.To++
		case "T":
			m.sel.To--
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Indian Railways EDA Dashboard"))
	b.WriteString("\n")
	b.WriteString(m.tabBar())
	b.WriteString("\n")

	if m.loading {
		b.WriteString("\n" + m.spinner.View() + " Loading datasets...\n")
		return b.String()
	}

	sections := sectionsFor(m.tab, m.snap, m.reports, m.sel, m.opts.Center, m.opts.Reports)
	var body strings.Builder
	for _, sec := range sections {
		body.WriteString(m.renderSection(sec))
	}

	lines := strings.Split(body.String(), "\n")
	visible := max(1, m.height-6)
	start := min(m.scroll, max(0, len(lines)-visible))
	end := min(len(lines), start+visible)
	b.WriteString(strings.Join(lines[start:end], "\n"))

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.help()))
	return b.String()
}

func (m Model) tabBar() string {
	tabs := make([]string, len(Tabs))
	for i, t := range Tabs {
		if t == m.tab {
			tabs[i] = activeTabStyle.Render(t.String())
		} else {
			tabs[i] = tabStyle.Render(t.String())
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) help() string {
	keys := "←/→ switch tab • ↑/↓ scroll • r reload • q quit"
	if m.tab == TabGeospatial {
		keys += " • n/p train • f/F from • t/T to"
	}
	return keys
}

func (m Model) renderSection(sec section) string {
	var b strings.Builder
	b.WriteString("\n" + subtitleStyle.Render(sec.Title) + "\n")

	for _, w := range sec.Warnings {
		b.WriteString(warnStyle.Render("! "+w) + "\n")
	}
	for _, s := range sec.Stats {
		b.WriteString(fmt.Sprintf("  %s %s\n", infoStyle.Render(s.Label+":"), statStyle.Render(s.Value)))
	}
	for _, c := range sec.Charts {
		b.WriteString(m.renderChart(c))
	}
	if len(sec.Lines) > 0 {
		b.WriteString(boxStyle.Render(strings.Join(sec.Lines, "\n")) + "\n")
	}
	return b.String()
}

// renderChart draws a horizontal bar chart with one progress bar per item
func (m Model) renderChart(c chart) string {
	if len(c.Items) == 0 {
		return ""
	}
	peak := 0.0
	for _, it := range c.Items {
		peak = max(peak, it.Value)
	}

	var b strings.Builder
	b.WriteString("\n  " + successStyle.Render(c.Title) + "\n")
	for _, it := range c.Items {
		frac := 0.0
		if peak > 0 {
			frac = it.Value / peak
		}
		b.WriteString(fmt.Sprintf("  %-*s %s %s\n",
			labelWidth, truncate(it.Label, labelWidth), m.bar.ViewAs(frac), formatValue(it.Value)))
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
