package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/pourover/internal/brew"
	"github.com/verte-zerg/pourover/internal/model"
)

type manualTicker struct {
	c chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.c }
func (t *manualTicker) Stop()               {}

type manualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (c *manualClock) NewTicker(time.Duration) brew.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{c: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

// advance delivers n ticks to the newest tick source.
func (c *manualClock) advance(t *testing.T, d *brew.Driver, n int) {
	t.Helper()
	c.mu.Lock()
	tk := c.tickers[len(c.tickers)-1]
	c.mu.Unlock()
	want := d.Snapshot().ElapsedSeconds + n
	for i := 0; i < n; i++ {
		select {
		case tk.c <- time.Now():
		case <-time.After(time.Second):
			t.Fatalf("tick %d not delivered", i)
		}
	}
	deadline := time.Now().Add(time.Second)
	for d.Snapshot().ElapsedSeconds < want {
		if time.Now().After(deadline) {
			t.Fatalf("expected elapsed %d, got %d", want, d.Snapshot().ElapsedSeconds)
		}
		time.Sleep(time.Millisecond)
	}
}

type memJournal struct {
	records []model.BrewRecord
	err     error
}

func (j *memJournal) InsertBrew(_ context.Context, rec model.BrewRecord) (int64, error) {
	if j.err != nil {
		return 0, j.err
	}
	j.records = append(j.records, rec)
	return int64(len(j.records)), nil
}

func newTestModel(t *testing.T, journal Journal) (*Model, *brew.Driver, *manualClock) {
	t.Helper()
	clk := &manualClock{}
	d := brew.NewDriver(brew.NewTimer(brew.DefaultPreset()), brew.DriverOptions{Clock: clk})
	t.Cleanup(d.Close)
	m := NewModel(d, Options{Journal: journal})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, d, clk
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

var spaceKey = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}

func TestViewIdle(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	out := m.View()
	if !containsAll(out, []string{"0:00", "3:30", "-3:30 left", "ready", "15g · 225ml", "20g · 300ml", "Bloom", "45g"}) {
		t.Fatalf("idle view missing expected text:\n%s", out)
	}
}

func TestSelectBeansOnlyBeforeStart(t *testing.T) {
	m, d, _ := newTestModel(t, nil)
	m.Update(runeKey('1'))
	if got := d.Snapshot().Preset.BeansGrams; got != 15 {
		t.Fatalf("expected 15g preset, got %d", got)
	}
	if !strings.Contains(m.View(), "35g") {
		t.Fatalf("expected steps rebound to 15g preset")
	}

	m.Update(spaceKey)
	if !d.Snapshot().Running {
		t.Fatalf("expected timer running")
	}
	m.Update(runeKey('2'))
	if got := d.Snapshot().Preset.BeansGrams; got != 15 {
		t.Fatalf("preset changed after start: %d", got)
	}
	if !strings.Contains(m.View(), "15g beans / 225g water") {
		t.Fatalf("expected locked preset line:\n%s", m.View())
	}
}

func TestTabCyclesPresets(t *testing.T) {
	m, d, _ := newTestModel(t, nil)
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := d.Snapshot().Preset.BeansGrams; got != 15 {
		t.Fatalf("expected 15g after tab, got %d", got)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := d.Snapshot().Preset.BeansGrams; got != 20 {
		t.Fatalf("expected 20g after second tab, got %d", got)
	}
}

func TestToggleAndStepProgress(t *testing.T) {
	m, d, clk := newTestModel(t, nil)
	m.Update(spaceKey)
	clk.advance(t, d, 45)
	m.Update(changedMsg{})
	out := m.View()
	if strings.Contains(out, "Bloom") {
		t.Fatalf("completed step should be hidden:\n%s", out)
	}
	if !containsAll(out, []string{"0:45", "-2:45 left", "First percolation", "1 of 6 steps done", "brewing"}) {
		t.Fatalf("running view missing expected text:\n%s", out)
	}

	m.Update(spaceKey)
	if snap := d.Snapshot(); snap.Running || snap.Phase != brew.PhasePaused {
		t.Fatalf("expected paused, got %+v", snap)
	}
	if !strings.Contains(m.View(), "paused") {
		t.Fatalf("expected paused label")
	}
}

func TestResetRecordsAbandonedBrew(t *testing.T) {
	journal := &memJournal{}
	m, d, clk := newTestModel(t, journal)
	m.Update(spaceKey)
	clk.advance(t, d, 3)
	m.Update(runeKey('r'))

	if snap := d.Snapshot(); snap.Started || snap.ElapsedSeconds != 0 {
		t.Fatalf("expected idle after reset, got %+v", snap)
	}
	if len(journal.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(journal.records))
	}
	rec := journal.records[0]
	if rec.Completed || rec.ElapsedSeconds != 3 || rec.BeansGrams != 20 || rec.WaterGrams != 300 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	m.Update(runeKey('r'))
	if len(journal.records) != 1 {
		t.Fatalf("reset while idle must not record")
	}
}

func TestCompletionRecordsOnce(t *testing.T) {
	journal := &memJournal{}
	m, d, clk := newTestModel(t, journal)
	m.Update(spaceKey)
	clk.advance(t, d, brew.TotalDuration)
	m.Update(changedMsg{})
	m.Update(changedMsg{})

	if d.Snapshot().Phase != brew.PhaseCompleted {
		t.Fatalf("expected completed")
	}
	if len(journal.records) != 1 || !journal.records[0].Completed {
		t.Fatalf("expected one completed record, got %+v", journal.records)
	}
	if out := m.View(); !strings.Contains(out, "Brew complete") || strings.Contains(out, "left") {
		t.Fatalf("expected completion banner without countdown:\n%s", out)
	}

	m.Update(spaceKey)
	if d.Snapshot().Running {
		t.Fatalf("start from completed must be a no-op")
	}
	m.Update(runeKey('r'))
	if len(journal.records) != 1 {
		t.Fatalf("reset after completion must not record again")
	}
}

func TestQuitClosesDriver(t *testing.T) {
	journal := &memJournal{}
	m, d, _ := newTestModel(t, journal)
	m.Update(spaceKey)
	_, cmd := m.Update(runeKey('q'))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if len(journal.records) != 1 || journal.records[0].Completed {
		t.Fatalf("expected abandoned record on quit, got %+v", journal.records)
	}
	if d.Start().Running {
		t.Fatalf("driver should be closed")
	}
	// A snapshot published before Close may still be buffered.
	wait := waitForSnapshot(d.Updates())
	if msg := wait(); msg != nil {
		if msg = wait(); msg != nil {
			t.Fatalf("expected nil message after close, got %T", msg)
		}
	}
}

func TestJournalErrorIsLogged(t *testing.T) {
	clk := &manualClock{}
	d := brew.NewDriver(brew.NewTimer(brew.DefaultPreset()), brew.DriverOptions{Clock: clk})
	t.Cleanup(d.Close)
	var logged []string
	m := NewModel(d, Options{
		Journal: &memJournal{err: errors.New("disk full")},
		Logf: func(format string, args ...any) {
			logged = append(logged, format)
		},
	})
	m.Update(spaceKey)
	m.Update(runeKey('r'))
	if len(logged) != 1 {
		t.Fatalf("expected one log line, got %v", logged)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func TestPhaseLabel(t *testing.T) {
	cases := map[brew.Phase]string{
		brew.PhaseIdle:      "ready",
		brew.PhaseRunning:   "brewing",
		brew.PhasePaused:    "paused",
		brew.PhaseCompleted: "done",
		brew.Phase(42):      "unknown",
	}
	for phase, want := range cases {
		if got := phaseLabel(phase); got != want {
			t.Fatalf("phaseLabel(%d) = %q, want %q", int(phase), got, want)
		}
	}
}
