// Package tui provides the Bubble Tea brew timer interface.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/pourover/internal/brew"
	"github.com/verte-zerg/pourover/internal/model"
)

const maxContentWidth = 72

// Journal records finished brews.
type Journal interface {
	InsertBrew(ctx context.Context, rec model.BrewRecord) (int64, error)
}

// Options configures the model. Journal may be nil to disable recording.
type Options struct {
	Journal Journal
	Logf    func(format string, args ...any)
	Now     func() time.Time
}

// changedMsg signals that the driver published a new state. The payload may
// be stale by the time it is handled, so Update re-reads the driver.
type changedMsg struct{}

// Model implements the Bubble Tea brew timer UI.
type Model struct {
	driver  *brew.Driver
	journal Journal
	logf    func(format string, args ...any)
	now     func() time.Time

	snap  brew.Snapshot
	steps []brew.Step

	sessionOpen bool
	sessionAt   time.Time

	keys     keyMap
	help     help.Model
	progress progress.Model

	width  int
	height int
}

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	clockStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#1E1E1E")).Background(lipgloss.Color("#C89A3A")).Padding(0, 1)
	optionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0")).Padding(0, 1)
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	activeCard     = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#C89A3A"))
	pendingCard    = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#4A4A4A"))
	activeTitle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	pendingTitle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	activeDetail   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0C080"))
	pendingDetail  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	actionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	completedBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
)

// NewModel constructs a brew timer model driven by d.
func NewModel(d *brew.Driver, opts Options) *Model {
	m := &Model{
		driver:   d,
		journal:  opts.Journal,
		logf:     opts.Logf,
		now:      opts.Now,
		keys:     newKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithSolidFill("#C89A3A"), progress.WithoutPercentage()),
	}
	if m.logf == nil {
		m.logf = func(string, ...any) {}
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.apply(d.Snapshot())
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return waitForSnapshot(m.driver.Updates())
}

func waitForSnapshot(updates <-chan brew.Snapshot) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = m.contentWidth()
		return m, nil
	case changedMsg:
		snap := m.driver.Snapshot()
		if snap.Phase == brew.PhaseCompleted {
			m.finishSession(snap)
		}
		m.apply(snap)
		return m, waitForSnapshot(m.driver.Updates())
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.finishSession(m.driver.Snapshot())
		m.driver.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		m.toggle()
	case key.Matches(msg, m.keys.Reset):
		m.finishSession(m.driver.Snapshot())
		m.apply(m.driver.Reset())
	case key.Matches(msg, m.keys.Beans):
		m.selectBeans(msg.String())
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) toggle() {
	if m.snap.Running {
		m.apply(m.driver.Pause())
		return
	}
	wasIdle := m.snap.Phase == brew.PhaseIdle
	snap := m.driver.Start()
	if wasIdle && snap.Running {
		m.sessionOpen = true
		m.sessionAt = m.now()
	}
	m.apply(snap)
}

func (m *Model) selectBeans(pressed string) {
	grams := 0
	switch pressed {
	case "1":
		grams = 15
	case "2":
		grams = 20
	case "tab":
		presets := brew.Presets()
		for i, p := range presets {
			if p.BeansGrams == m.snap.Preset.BeansGrams {
				grams = presets[(i+1)%len(presets)].BeansGrams
				break
			}
		}
	}
	if snap, ok := m.driver.SetPreset(grams); ok {
		m.apply(snap)
	}
}

func (m *Model) apply(snap brew.Snapshot) {
	if snap.Preset != m.snap.Preset || m.steps == nil {
		m.steps = m.driver.Steps()
	}
	m.snap = snap
	m.keys.Beans.SetEnabled(!snap.Started)
}

// finishSession records the open session, if any, as completed or abandoned.
func (m *Model) finishSession(snap brew.Snapshot) {
	if !m.sessionOpen || !snap.Started {
		return
	}
	m.sessionOpen = false
	if m.journal == nil {
		return
	}
	rec := model.BrewRecord{
		StartedAt:      m.sessionAt,
		EndedAt:        m.now(),
		BeansGrams:     snap.Preset.BeansGrams,
		WaterGrams:     snap.Preset.TotalWater(),
		ElapsedSeconds: snap.ElapsedSeconds,
		Completed:      snap.Phase == brew.PhaseCompleted,
	}
	if _, err := m.journal.InsertBrew(context.Background(), rec); err != nil {
		m.logf("failed to save brew: %v\n", err)
	}
}

func (m *Model) contentWidth() int {
	w := m.width - 4
	if w > maxContentWidth {
		w = maxContentWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

// View implements tea.Model.
func (m *Model) View() string {
	width := m.contentWidth()
	sections := []string{
		titleStyle.Render("Pour-over timer"),
		m.renderPreset(),
		m.renderClock(),
		m.progress.ViewAs(float64(m.snap.ElapsedSeconds) / float64(brew.TotalDuration)),
		m.renderSteps(width),
	}
	if m.snap.Phase == brew.PhaseCompleted {
		sections = append(sections, doneStyle.Render("Brew complete. Enjoy your coffee!"))
	}
	sections = append(sections, m.help.View(m.keys))
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) renderPreset() string {
	if m.snap.Started {
		return mutedStyle.Render(m.snap.Preset.String())
	}
	options := make([]string, 0, 2)
	for _, p := range brew.Presets() {
		label := fmt.Sprintf("%dg · %dml", p.BeansGrams, p.TotalWater())
		if p.BeansGrams == m.snap.Preset.BeansGrams {
			options = append(options, selectedStyle.Render(label))
			continue
		}
		options = append(options, optionStyle.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, options...)
}

func (m *Model) renderClock() string {
	clock := clockStyle.Render(brew.FormatTime(m.snap.ElapsedSeconds))
	total := mutedStyle.Render("/ " + brew.FormatTime(brew.TotalDuration))
	status := phaseLabel(m.snap.Phase)
	if m.snap.Phase == brew.PhaseCompleted {
		return fmt.Sprintf("%s %s  %s", clock, total, mutedStyle.Render(status))
	}
	left := mutedStyle.Render(fmt.Sprintf("-%s left", brew.FormatTime(m.snap.Remaining())))
	return fmt.Sprintf("%s %s  %s  %s", clock, total, left, mutedStyle.Render(status))
}

func phaseLabel(p brew.Phase) string {
	switch p {
	case brew.PhaseRunning:
		return "brewing"
	case brew.PhasePaused:
		return "paused"
	case brew.PhaseCompleted:
		return "done"
	case brew.PhaseIdle:
		return "ready"
	default:
		return p.String()
	}
}

func (m *Model) renderSteps(width int) string {
	active := m.snap.ActiveStep
	cards := make([]string, 0, len(m.steps)+1)
	for i, step := range m.steps {
		if i < active {
			continue
		}
		cards = append(cards, renderStep(i, step, i == active, width))
	}
	if active > 0 {
		cards = append(cards, completedBadge.Render(fmt.Sprintf("%d of %d steps done", active, len(m.steps))))
	}
	return strings.Join(cards, "\n")
}

func renderStep(index int, step brew.Step, active bool, width int) string {
	card, title, detail := pendingCard, pendingTitle, pendingDetail
	if active {
		card, title, detail = activeCard, activeTitle, activeDetail
	}
	inner := width - card.GetHorizontalFrameSize()
	if inner < 1 {
		inner = 1
	}
	header := fmt.Sprintf("%d  %s  %s  %s",
		index+1,
		brew.FormatTime(step.OffsetSeconds),
		actionStyle.Render(step.Action),
		title.Render(step.Title),
	)
	desc := step.Description
	if !active {
		desc = runewidth.Truncate(desc, inner, "…")
	}
	body := detail.Width(inner).Render(desc)
	return card.Width(width - card.GetHorizontalBorderSize()).Render(header + "\n" + body)
}
