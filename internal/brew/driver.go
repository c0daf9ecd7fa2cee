package brew

import (
	"context"
	"sync"
	"time"

	"github.com/verte-zerg/pourover/internal/wakelock"
)

// TickInterval is the real-time length of one elapsed second.
const TickInterval = time.Second

// Clock creates tick sources.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

// RealClock returns a Clock backed by time.NewTicker.
func RealClock() Clock {
	return realClock{}
}

func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// DriverOptions configures a Driver. Zero values select the real clock, no
// wake lock and no logging.
type DriverOptions struct {
	Clock  Clock
	Locker wakelock.Locker
	Logf   func(format string, args ...any)
}

// Driver runs a Timer in real time. It owns the single tick source and the
// wake lock held while the timer runs. All methods are safe for concurrent
// use.
type Driver struct {
	mu     sync.Mutex
	timer  *Timer
	clock  Clock
	locker wakelock.Locker
	logf   func(format string, args ...any)

	// gen identifies the current tick source; ticks and lock grants from an
	// older generation are discarded.
	gen    uint64
	cancel context.CancelFunc
	lock   wakelock.Handle
	closed bool

	updates chan Snapshot
}

// NewDriver wraps t. The driver takes ownership of t.
func NewDriver(t *Timer, opts DriverOptions) *Driver {
	d := &Driver{
		timer:   t,
		clock:   opts.Clock,
		locker:  opts.Locker,
		logf:    opts.Logf,
		updates: make(chan Snapshot, 1),
	}
	if d.clock == nil {
		d.clock = RealClock()
	}
	if d.logf == nil {
		d.logf = func(string, ...any) {}
	}
	return d
}

// Updates delivers the latest snapshot after every state change. An unread
// snapshot is replaced by a newer one. The channel is closed by Close.
func (d *Driver) Updates() <-chan Snapshot {
	return d.updates
}

// Snapshot returns the current timer state.
func (d *Driver) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer.Snapshot()
}

// Steps returns the schedule bound to the current preset.
func (d *Driver) Steps() []Step {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer.Steps()
}

// Start begins or resumes ticking. It does nothing when the timer is already
// running or completed.
func (d *Driver) Start() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || !d.timer.Start() {
		return d.timer.Snapshot()
	}
	d.startTickingLocked()
	return d.publishLocked()
}

// Pause stops ticking and keeps the elapsed time.
func (d *Driver) Pause() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || !d.timer.Pause() {
		return d.timer.Snapshot()
	}
	d.stopTickingLocked()
	return d.publishLocked()
}

// Reset stops ticking, releases the wake lock and returns the timer to idle.
func (d *Driver) Reset() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return d.timer.Snapshot()
	}
	d.stopTickingLocked()
	d.timer.Reset()
	return d.publishLocked()
}

// SetPreset selects the preset for a bean amount. It is ignored once the
// timer has started or when no preset matches.
func (d *Driver) SetPreset(grams int) (Snapshot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || !d.timer.SetPreset(grams) {
		return d.timer.Snapshot(), false
	}
	return d.publishLocked(), true
}

// Close pauses the timer, releases the wake lock and closes Updates. Later
// operations have no effect.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.timer.Pause()
	d.stopTickingLocked()
	d.closed = true
	close(d.updates)
}

func (d *Driver) startTickingLocked() {
	d.stopTickingLocked()
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	gen := d.gen
	go d.run(ctx, d.clock.NewTicker(TickInterval), gen)
	if d.locker != nil {
		go d.acquire(ctx, gen)
	}
}

func (d *Driver) stopTickingLocked() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.gen++
	if d.lock != nil {
		h := d.lock
		d.lock = nil
		if err := h.Release(); err != nil {
			d.logf("failed to release wake lock: %v\n", err)
		}
	}
}

func (d *Driver) run(ctx context.Context, ticker Ticker, gen uint64) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if !d.tick(gen) {
				return
			}
		}
	}
}

func (d *Driver) tick(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || gen != d.gen {
		return false
	}
	d.timer.Tick()
	if !d.timer.running {
		d.stopTickingLocked()
	}
	d.publishLocked()
	return d.timer.running
}

func (d *Driver) acquire(ctx context.Context, gen uint64) {
	h, err := d.locker.Acquire(ctx)
	if err != nil {
		if ctx.Err() == nil {
			d.logf("wake lock unavailable: %v\n", err)
		}
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || gen != d.gen {
		if rerr := h.Release(); rerr != nil {
			d.logf("failed to release wake lock: %v\n", rerr)
		}
		return
	}
	d.lock = h
}

func (d *Driver) publishLocked() Snapshot {
	snap := d.timer.Snapshot()
	select {
	case d.updates <- snap:
		return snap
	default:
	}
	select {
	case <-d.updates:
	default:
	}
	select {
	case d.updates <- snap:
	default:
	}
	return snap
}
