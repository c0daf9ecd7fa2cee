package brew

// Phase is the lifecycle state derived from the timer fields.
type Phase int

// Brew lifecycle phases.
const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhasePaused
	PhaseCompleted
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of the timer for display.
type Snapshot struct {
	ElapsedSeconds int
	Running        bool
	Started        bool
	ActiveStep     int
	Preset         Preset
	Phase          Phase
}

// Remaining returns the seconds left until the brew completes. It is zero once
// the brew has completed.
func (s Snapshot) Remaining() int {
	if s.ElapsedSeconds >= TotalDuration {
		return 0
	}
	return TotalDuration - s.ElapsedSeconds
}

// Timer is the brew state machine. It is not safe for concurrent use; Driver
// serializes access to it.
type Timer struct {
	elapsed int
	running bool
	started bool
	preset  Preset
	steps   []Step
}

// NewTimer returns an idle timer bound to the given preset.
func NewTimer(p Preset) *Timer {
	return &Timer{preset: p, steps: Steps(p)}
}

// Phase reports the current lifecycle state.
func (t *Timer) Phase() Phase {
	switch {
	case t.running:
		return PhaseRunning
	case t.elapsed >= TotalDuration:
		return PhaseCompleted
	case t.started:
		return PhasePaused
	default:
		return PhaseIdle
	}
}

// Start moves Idle or Paused to Running. It reports whether the timer
// transitioned; starting a running or completed timer does nothing.
func (t *Timer) Start() bool {
	switch t.Phase() {
	case PhaseIdle, PhasePaused:
		t.running = true
		t.started = true
		return true
	default:
		return false
	}
}

// Pause stops a running timer without touching elapsed time.
func (t *Timer) Pause() bool {
	if !t.running {
		return false
	}
	t.running = false
	return true
}

// Reset returns the timer to Idle from any state, keeping the preset.
func (t *Timer) Reset() {
	t.elapsed = 0
	t.running = false
	t.started = false
}

// SetPreset changes the preset while the timer is idle. Unknown bean amounts
// and calls after Start are ignored.
func (t *Timer) SetPreset(grams int) bool {
	if t.started {
		return false
	}
	p, ok := PresetFor(grams)
	if !ok {
		return false
	}
	t.preset = p
	t.steps = Steps(p)
	return true
}

// Tick advances a running timer by one second, completing it at
// TotalDuration. Ticks on a stopped timer are ignored.
func (t *Timer) Tick() {
	if !t.running {
		return
	}
	t.elapsed++
	if t.elapsed >= TotalDuration {
		t.elapsed = TotalDuration
		t.running = false
	}
}

// Steps returns the schedule bound to the current preset.
func (t *Timer) Steps() []Step {
	return append([]Step(nil), t.steps...)
}

// Snapshot returns the current state with the derived active step.
func (t *Timer) Snapshot() Snapshot {
	return Snapshot{
		ElapsedSeconds: t.elapsed,
		Running:        t.running,
		Started:        t.started,
		ActiveStep:     ActiveStepIndex(t.elapsed, t.steps),
		Preset:         t.preset,
		Phase:          t.Phase(),
	}
}
