// Package wakelock keeps the host display awake while a brew is running.
package wakelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// ErrUnsupported is returned when the host has no wake-lock capability.
var ErrUnsupported = errors.New("wake lock not supported on this host")

// errExited reports an inhibitor that exited cleanly before holding the lock.
var errExited = errors.New("exited without holding the lock")

// startupGrace is how long an inhibitor must stay alive to count as holding
// the lock. systemd-inhibit exits at once when logind or polkit refuse it.
var startupGrace = 250 * time.Millisecond

// Handle is an acquired wake lock.
type Handle interface {
	Release() error
}

// Locker acquires wake locks from the host platform.
type Locker interface {
	Acquire(ctx context.Context) (Handle, error)
}

// Unsupported is a Locker for hosts without a wake-lock capability.
type Unsupported struct{}

// Acquire always fails with ErrUnsupported.
func (Unsupported) Acquire(context.Context) (Handle, error) {
	return nil, ErrUnsupported
}

// Command holds a wake lock by keeping an inhibitor process alive.
type Command struct {
	Name string
	Args []string
}

// Acquire starts the inhibitor process and waits startupGrace for it to
// settle. An inhibitor that exits within that window is reported as an error.
// The lock lasts until Release, not until ctx is done.
func (c Command) Acquire(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := exec.Command(c.Name, c.Args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", c.Name, err)
	}
	h := &processHandle{name: c.Name, cmd: cmd, done: make(chan struct{})}
	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	grace := time.NewTimer(startupGrace)
	defer grace.Stop()
	select {
	case <-h.done:
		err := h.waitErr
		if err == nil {
			err = errExited
		}
		return nil, fmt.Errorf("%s exited: %w", c.Name, err)
	case <-ctx.Done():
		return nil, multierr.Append(ctx.Err(), h.Release())
	case <-grace.C:
		return h, nil
	}
}

type processHandle struct {
	once sync.Once
	name string
	cmd  *exec.Cmd
	done chan struct{}
	// waitErr is written before done is closed.
	waitErr error
	err     error
}

// Release stops the inhibitor process. Calling it more than once is safe.
func (h *processHandle) Release() error {
	h.once.Do(func() {
		select {
		case <-h.done:
			return
		default:
		}
		if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			h.err = fmt.Errorf("failed to stop %s: %w", h.name, err)
			return
		}
		<-h.done
	})
	return h.err
}

// Detect returns the Locker available on this host.
func Detect() Locker {
	return detect(runtime.GOOS, exec.LookPath)
}

func detect(goos string, lookPath func(string) (string, error)) Locker {
	switch goos {
	case "linux":
		if _, err := lookPath("systemd-inhibit"); err == nil {
			return Command{
				Name: "systemd-inhibit",
				Args: []string{"--what=idle:sleep", "--who=pourover", "--why=Brewing coffee", "--mode=block", "sleep", "infinity"},
			}
		}
	case "darwin":
		if _, err := lookPath("caffeinate"); err == nil {
			return Command{Name: "caffeinate", Args: []string{"-d", "-i"}}
		}
	}
	return Unsupported{}
}
